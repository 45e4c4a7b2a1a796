package issuer

import (
	"context"
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // SKI is a non-cryptographic identifier per RFC 5280
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"net"
	"time"

	"github.com/remotemaster/trustengine/internal/audit"
	"github.com/remotemaster/trustengine/internal/certstore"
	"github.com/remotemaster/trustengine/internal/hostinfo"
	"github.com/remotemaster/trustengine/internal/serial"
)

// oidBasicConstraints is the X.509 basicConstraints extension identifier.
var oidBasicConstraints = asn1.ObjectIdentifier{2, 5, 29, 19}

// DefaultValidity is the leaf validity window used when none is configured.
const DefaultValidity = 365 * 24 * time.Hour

// Issuer signs leaf certificates bound to a host identity.
type Issuer struct {
	provider *certstore.Provider
	hosts    hostinfo.Provider
	validity time.Duration
}

// New creates an Issuer. validity of 0 selects DefaultValidity.
func New(provider *certstore.Provider, hosts hostinfo.Provider, validity time.Duration) *Issuer {
	if validity == 0 {
		validity = DefaultValidity
	}
	return &Issuer{
		provider: provider,
		hosts:    hosts,
		validity: validity,
	}
}

// Issue validates csrDER and signs a leaf certificate for it.
//
// The CA-capability check runs before the CA lookup: a CSR declaring
// basicConstraints CA=true is rejected regardless of CA availability.
func (i *Issuer) Issue(ctx context.Context, csrDER []byte) (*x509.Certificate, error) {
	_ = ctx // reserved for cancellation of the trust store lookup

	if len(csrDER) == 0 {
		return nil, fmt.Errorf("%w: CSR bytes must not be empty", ErrInvalidCSR)
	}

	csr, err := x509.ParseCertificateRequest(csrDER)
	if err != nil {
		return nil, &IssueError{Op: "parse", Err: fmt.Errorf("%w: %v", ErrInvalidCSR, err)}
	}
	if err := csr.CheckSignature(); err != nil {
		return nil, &IssueError{Op: "parse", Err: fmt.Errorf("%w: signature check failed: %v", ErrInvalidCSR, err)}
	}

	isCA, err := requestsCACapability(csr)
	if err != nil {
		return nil, &IssueError{Op: "parse", Err: fmt.Errorf("%w: %v", ErrInvalidCSR, err)}
	}
	if isCA {
		return nil, ErrCACSRNotAllowed
	}

	ca, err := i.provider.IssuerCertificate()
	if err != nil {
		return nil, err
	}

	host, err := i.hosts.Info()
	if err != nil {
		return nil, &IssueError{Op: "lookup", Err: fmt.Errorf("failed to resolve host identity: %w", err)}
	}

	sn, err := serial.Generate()
	if err != nil {
		return nil, &IssueError{Op: "sign", Err: err}
	}

	template, err := i.buildTemplate(csr, host, sn)
	if err != nil {
		return nil, &IssueError{Op: "sign", Serial: sn.String(), Err: err}
	}

	der, err := x509.CreateCertificate(rand.Reader, template, ca.Certificate, csr.PublicKey, ca.Key)
	if err != nil {
		_ = audit.LogCertIssued(ca.Certificate.Subject.CommonName, sn.String(), template.Subject.String(), "", false)
		return nil, &IssueError{Op: "sign", Serial: sn.String(), Err: fmt.Errorf("failed to sign certificate: %w", err)}
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, &IssueError{Op: "sign", Serial: sn.String(), Err: fmt.Errorf("failed to parse signed certificate: %w", err)}
	}

	if err := audit.LogCertIssued(
		ca.Certificate.Subject.CommonName,
		sn.String(),
		cert.Subject.String(),
		cert.SignatureAlgorithm.String(),
		true,
	); err != nil {
		return nil, err
	}

	return cert, nil
}

// buildTemplate assembles the leaf template from the CSR, the host
// identity and the configured validity window.
func (i *Issuer) buildTemplate(csr *x509.CertificateRequest, host hostinfo.HostInfo, sn serial.SerialNumber) (*x509.Certificate, error) {
	subject := csr.Subject
	if subject.CommonName == "" {
		subject.CommonName = host.Name
	}

	now := time.Now().UTC()
	template := &x509.Certificate{
		SerialNumber:          sn.BigInt(),
		Subject:               subject,
		NotBefore:             now,
		NotAfter:              now.Add(i.validity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  false,
		DNSNames:              csr.DNSNames,
		IPAddresses:           csr.IPAddresses,
	}

	// Enrich the SAN with the host identity from the directory.
	if host.Name != "" && !containsString(template.DNSNames, host.Name) {
		template.DNSNames = append(template.DNSNames, host.Name)
	}
	if host.IP != nil && !containsIP(template.IPAddresses, host.IP) {
		template.IPAddresses = append(template.IPAddresses, host.IP)
	}

	skid, err := subjectKeyID(csr)
	if err != nil {
		return nil, err
	}
	template.SubjectKeyId = skid

	return template, nil
}

// requestsCACapability reports whether the CSR carries a basicConstraints
// extension with CA=true.
func requestsCACapability(csr *x509.CertificateRequest) (bool, error) {
	for _, ext := range csr.Extensions {
		if !ext.Id.Equal(oidBasicConstraints) {
			continue
		}
		var bc struct {
			IsCA       bool `asn1:"optional"`
			MaxPathLen int  `asn1:"optional,default:-1"`
		}
		if _, err := asn1.Unmarshal(ext.Value, &bc); err != nil {
			return false, fmt.Errorf("malformed basicConstraints extension: %w", err)
		}
		return bc.IsCA, nil
	}
	return false, nil
}

// subjectKeyID computes the RFC 5280 key identifier (SHA-1 of the subject
// public key bits).
func subjectKeyID(csr *x509.CertificateRequest) ([]byte, error) {
	spki, err := x509.MarshalPKIXPublicKey(csr.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal subject public key: %w", err)
	}

	var decoded struct {
		Algorithm        pkix.AlgorithmIdentifier
		SubjectPublicKey asn1.BitString
	}
	if _, err := asn1.Unmarshal(spki, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode subject public key info: %w", err)
	}

	sum := sha1.Sum(decoded.SubjectPublicKey.Bytes) //nolint:gosec
	return sum[:], nil
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsIP(list []net.IP, v net.IP) bool {
	for _, ip := range list {
		if ip.Equal(v) {
			return true
		}
	}
	return false
}
