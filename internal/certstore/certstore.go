// Package certstore locates CA signing certificates in a trust store.
//
// The trust engine issues leaves and CRLs with a single issuing CA whose
// certificate and private key live in a configured store, looked up by
// subject common name.
package certstore

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sentinel errors for trust store lookups.
var (
	// ErrCANotFound indicates no certificate matched the common name.
	ErrCANotFound = errors.New("CA certificate not found")
)

// Identity is a certificate together with its private key.
// The trust engine never uses a CA certificate without its key, so a
// lookup either returns both or fails.
type Identity struct {
	Certificate *x509.Certificate
	Key         crypto.Signer
}

// TrustStore finds certificate identities by subject common name.
type TrustStore interface {
	FindBySubjectName(commonName string) ([]*Identity, error)
}

// Provider resolves the configured issuing CA from a trust store.
type Provider struct {
	store      TrustStore
	commonName string
}

// NewProvider creates a Provider for the CA with the given common name.
func NewProvider(store TrustStore, commonName string) *Provider {
	return &Provider{store: store, commonName: commonName}
}

// IssuerCertificate returns the issuing CA's certificate and private key.
// It fails with ErrCANotFound (naming the common name) when no match exists
// and wraps any store access failure.
func (p *Provider) IssuerCertificate() (*Identity, error) {
	identities, err := p.store.FindBySubjectName(p.commonName)
	if err != nil {
		return nil, fmt.Errorf("trust store lookup for %q failed: %w", p.commonName, err)
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("%w: common name %q", ErrCANotFound, p.commonName)
	}
	return identities[0], nil
}

// CommonName returns the configured CA common name.
func (p *Provider) CommonName() string {
	return p.commonName
}

// FileTrustStore reads identities from a directory of PEM files.
// Each identity is a pair {name}.crt / {name}.key; pairs missing either
// half are skipped, never returned partially.
type FileTrustStore struct {
	dir        string
	passphrase []byte // optional, for encrypted key PEM blocks
}

var _ TrustStore = (*FileTrustStore)(nil)

// NewFileTrustStore creates a trust store over the given directory.
func NewFileTrustStore(dir string, passphrase []byte) *FileTrustStore {
	return &FileTrustStore{dir: dir, passphrase: passphrase}
}

// FindBySubjectName returns every identity whose certificate subject CN
// matches commonName.
func (s *FileTrustStore) FindBySubjectName(commonName string) ([]*Identity, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read trust store directory: %w", err)
	}

	var matches []*Identity
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".crt") {
			continue
		}

		certPath := filepath.Join(s.dir, entry.Name())
		cert, err := loadCert(certPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load certificate %s: %w", certPath, err)
		}
		if cert.Subject.CommonName != commonName {
			continue
		}

		keyPath := strings.TrimSuffix(certPath, ".crt") + ".key"
		key, err := loadKey(keyPath, s.passphrase)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue // certificate without a key is unusable for signing
			}
			return nil, fmt.Errorf("failed to load key %s: %w", keyPath, err)
		}

		matches = append(matches, &Identity{Certificate: cert, Key: key})
	}

	return matches, nil
}

// loadCert loads a certificate from a PEM file.
func loadCert(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("no certificate found in %s", path)
	}

	return x509.ParseCertificate(block.Bytes)
}

// loadKey loads a private key from a PEM file, decrypting it if needed.
func loadKey(path string, passphrase []byte) (crypto.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in %s", path)
	}

	keyBytes := block.Bytes
	if x509.IsEncryptedPEMBlock(block) { //nolint:staticcheck // legacy encrypted CA keys
		if len(passphrase) == 0 {
			return nil, fmt.Errorf("key is encrypted but no passphrase provided")
		}
		keyBytes, err = x509.DecryptPEMBlock(block, passphrase) //nolint:staticcheck
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt key: %w", err)
		}
	}

	var parsed any
	switch block.Type {
	case "PRIVATE KEY":
		parsed, err = x509.ParsePKCS8PrivateKey(keyBytes)
	case "EC PRIVATE KEY":
		parsed, err = x509.ParseECPrivateKey(keyBytes)
	case "RSA PRIVATE KEY":
		parsed, err = x509.ParsePKCS1PrivateKey(keyBytes)
	default:
		return nil, fmt.Errorf("unsupported key PEM type %q", block.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	signer, ok := parsed.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("key type %T cannot sign", parsed)
	}
	return signer, nil
}
