package handler_test

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remotemaster/trustengine/internal/api/dto"
	"github.com/remotemaster/trustengine/internal/api/handler"
	"github.com/remotemaster/trustengine/internal/api/router"
	"github.com/remotemaster/trustengine/internal/certstore"
	"github.com/remotemaster/trustengine/internal/claims"
	"github.com/remotemaster/trustengine/internal/crl"
	"github.com/remotemaster/trustengine/internal/hostinfo"
	"github.com/remotemaster/trustengine/internal/issuer"
	"github.com/remotemaster/trustengine/internal/signingkey"
	"github.com/remotemaster/trustengine/internal/storage"
	"github.com/remotemaster/trustengine/internal/store"
	"github.com/remotemaster/trustengine/internal/token"
)

const testCACommonName = "RemoteMaster Root CA"

type testEnv struct {
	server  *httptest.Server
	fs      *storage.Mem
	baseDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	caDir := t.TempDir()
	writeTestCA(t, caDir)
	provider := certstore.NewProvider(certstore.NewFileTrustStore(caDir, nil), testCACommonName)

	s, err := store.Open(filepath.Join(t.TempDir(), "trust.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	fs := storage.NewMem()
	keys := signingkey.New(fs, "/keys", []byte("passphrase"), 1024)
	require.NoError(t, keys.EnsureKeys())

	hosts := hostinfo.Static{Host: hostinfo.HostInfo{Name: "host-01"}}
	cp := claims.Static{Users: map[string][]claims.Claim{
		"user1": {{Type: claims.TypeRole, Value: "operator"}},
	}}

	iss := issuer.New(provider, hosts, 24*time.Hour)
	ledger := crl.NewLedger(s, testCACommonName)
	builder := crl.NewBuilder(s, provider, 24*time.Hour)
	tokens := token.NewIssuer(keys, s, cp, token.Config{
		Issuer:     "trustengine",
		Audience:   "remotemaster",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	})

	h := router.New(router.Handlers{
		Health: handler.NewHealthHandler("test", nil),
		Cert:   handler.NewCertHandler(iss, ledger),
		CRL:    handler.NewCRLHandler(builder, crl.NewPublisher(fs), "/published"),
		Token:  handler.NewTokenHandler(tokens),
	})

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &testEnv{server: srv, fs: fs, baseDir: "/published"}
}

func writeTestCA(t *testing.T, dir string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: testCACommonName},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ca.crt"), certPEM, 0o644))
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ca.key"), keyPEM, 0o600))
}

func (e *testEnv) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(e.server.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func newCSR(t *testing.T) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.CreateCertificateRequest(rand.Reader, &x509.CertificateRequest{
		Subject: pkix.Name{CommonName: "server.example.com"},
	}, key)
	require.NoError(t, err)
	return der
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.server.URL + "/health")
	require.NoError(t, err)
	body := decodeJSON[dto.HealthResponse](t, resp)
	assert.Equal(t, "ok", body.Status)
}

func TestCertIssueAndRevoke(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, "/api/v1/certs/issue", dto.CertIssueRequest{
		CSR: &dto.BinaryData{Data: base64.StdEncoding.EncodeToString(newCSR(t))},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	issued := decodeJSON[dto.CertIssueResponse](t, resp)
	assert.Regexp(t, "^[0-9A-F]{40}$", issued.Serial)
	assert.Contains(t, issued.Issuer, testCACommonName)

	resp = env.postJSON(t, "/api/v1/certs/"+issued.Serial+"/revoke", dto.CertRevokeRequest{
		Reason: "keyCompromise",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	revoked := decodeJSON[dto.CertRevokeResponse](t, resp)
	assert.Equal(t, "revoked", revoked.Status)

	// Repeat revocation is idempotent.
	resp = env.postJSON(t, "/api/v1/certs/"+issued.Serial+"/revoke", dto.CertRevokeRequest{
		Reason: "superseded",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestCertIssue_PEMEncodedCSR(t *testing.T) {
	env := newTestEnv(t)

	csrPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: newCSR(t)})
	resp := env.postJSON(t, "/api/v1/certs/issue", dto.CertIssueRequest{
		CSR: &dto.BinaryData{Data: string(csrPEM), Encoding: "pem"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	issued := decodeJSON[dto.CertIssueResponse](t, resp)
	assert.Contains(t, issued.Subject, "server.example.com")
}

func TestCertIssue_BadSerialOnRevoke(t *testing.T) {
	env := newTestEnv(t)
	resp := env.postJSON(t, "/api/v1/certs/not-hex!/revoke", dto.CertRevokeRequest{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestCRLGenerateAndMetadata(t *testing.T) {
	env := newTestEnv(t)

	// Metadata before first generation is a 404.
	resp, err := http.Get(env.server.URL + "/api/v1/crl/metadata")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = env.postJSON(t, "/api/v1/crl/generate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	gen := decodeJSON[dto.CRLGenerateResponse](t, resp)
	assert.Equal(t, "1", gen.Number)
	assert.True(t, gen.Published)

	// The CRL landed at the well-known location.
	published, err := env.fs.ReadFile("/published/RemoteMaster/list.crl")
	require.NoError(t, err)
	der, err := base64.StdEncoding.DecodeString(gen.CRL)
	require.NoError(t, err)
	assert.Equal(t, der, published)

	resp, err = http.Get(env.server.URL + "/api/v1/crl/metadata")
	require.NoError(t, err)
	meta := decodeJSON[dto.CRLMetadataResponse](t, resp)
	assert.Equal(t, "1", meta.Number)
}

func TestTokenLifecycle(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, "/api/v1/tokens/issue", dto.TokenIssueRequest{UserID: "user1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	pair := decodeJSON[dto.TokenResponse](t, resp)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	resp = env.postJSON(t, "/api/v1/tokens/validate", dto.TokenValidateRequest{AccessToken: pair.AccessToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	valid := decodeJSON[dto.TokenValidateResponse](t, resp)
	assert.True(t, valid.Valid)

	resp = env.postJSON(t, "/api/v1/tokens/refresh", dto.TokenRefreshRequest{RefreshToken: pair.RefreshToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rotated := decodeJSON[dto.TokenResponse](t, resp)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// The rotated-out token is no longer exchangeable.
	resp = env.postJSON(t, "/api/v1/tokens/refresh", dto.TokenRefreshRequest{RefreshToken: pair.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = env.postJSON(t, "/api/v1/tokens/revoke", dto.TokenRevokeAllRequest{UserID: "user1", Reason: "logged_out"})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = env.postJSON(t, "/api/v1/tokens/refresh", dto.TokenRefreshRequest{RefreshToken: rotated.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}
