package certstore

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeCA generates a self-signed CA and writes {name}.crt/{name}.key
// into dir. Returns the certificate.
func writeCA(t *testing.T, dir, name, commonName string, withKey bool) *x509.Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: commonName},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".crt"), certPEM, 0o644))

	if withKey {
		keyDER, err := x509.MarshalPKCS8PrivateKey(key)
		require.NoError(t, err)
		keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".key"), keyPEM, 0o600))
	}

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert
}

func TestProvider_IssuerCertificate(t *testing.T) {
	dir := t.TempDir()
	want := writeCA(t, dir, "root", "RemoteMaster Root CA", true)
	writeCA(t, dir, "other", "Unrelated CA", true)

	provider := NewProvider(NewFileTrustStore(dir, nil), "RemoteMaster Root CA")
	identity, err := provider.IssuerCertificate()
	require.NoError(t, err)
	assert.Equal(t, want.Subject.String(), identity.Certificate.Subject.String())
	require.NotNil(t, identity.Key)
}

func TestProvider_NotFound(t *testing.T) {
	dir := t.TempDir()
	writeCA(t, dir, "other", "Unrelated CA", true)

	provider := NewProvider(NewFileTrustStore(dir, nil), "RemoteMaster Root CA")
	_, err := provider.IssuerCertificate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCANotFound)
	assert.Contains(t, err.Error(), "RemoteMaster Root CA")
}

func TestProvider_SkipsCertWithoutKey(t *testing.T) {
	dir := t.TempDir()
	// Certificate present but its private key is missing: the lookup
	// must not return a partial identity.
	writeCA(t, dir, "root", "RemoteMaster Root CA", false)

	provider := NewProvider(NewFileTrustStore(dir, nil), "RemoteMaster Root CA")
	_, err := provider.IssuerCertificate()
	assert.ErrorIs(t, err, ErrCANotFound)
}

func TestProvider_StoreFailure(t *testing.T) {
	provider := NewProvider(NewFileTrustStore(filepath.Join(t.TempDir(), "missing"), nil), "Any CA")
	_, err := provider.IssuerCertificate()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCANotFound)
}
