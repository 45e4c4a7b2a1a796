package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trustengine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_addr: ":9443"
ca:
  common_name: "RemoteMaster Root CA"
  trust_store_dir: /etc/trustengine/ca
  cert_validity: 2160h
crl:
  validity: 72h
  publish_base: /var/www
keys:
  dir: /etc/trustengine/keys
  bits: 3072
  passphrase: secret
tokens:
  issuer: trustengine
  audience: remotemaster
  access_ttl: 10m
  refresh_ttl: 168h
  claims:
    user1:
      roles: [operator]
      permissions: ["hosts:connect"]
data_file: /var/lib/trustengine/trust.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9443", cfg.Server.ListenAddr)
	assert.Equal(t, "RemoteMaster Root CA", cfg.CA.CommonName)
	assert.Equal(t, 2160*time.Hour, cfg.CA.CertValidity)
	assert.Equal(t, 72*time.Hour, cfg.CRL.Validity)
	assert.Equal(t, 3072, cfg.Keys.Bits)
	assert.Equal(t, []byte("secret"), cfg.KeyPassphrase())
	assert.Equal(t, 10*time.Minute, cfg.Tokens.AccessTTL)
	assert.Equal(t, []string{"operator"}, cfg.Tokens.Claims["user1"].Roles)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
ca:
  common_name: "RemoteMaster Root CA"
  trust_store_dir: /etc/trustengine/ca
crl:
  publish_base: /var/www
keys:
  dir: /etc/trustengine/keys
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultListenAddr, cfg.Server.ListenAddr)
	assert.Equal(t, DefaultKeyBits, cfg.Keys.Bits)
	assert.Equal(t, DefaultCertValidity, cfg.CA.CertValidity)
	assert.Equal(t, DefaultCRLValidity, cfg.CRL.Validity)
	assert.Equal(t, DefaultAccessTTL, cfg.Tokens.AccessTTL)
	assert.Equal(t, DefaultRefreshTTL, cfg.Tokens.RefreshTTL)
	assert.Equal(t, DefaultTokenIssuer, cfg.Tokens.Issuer)
	assert.Equal(t, DefaultDataFile, cfg.DataFile)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing common name",
			body: "ca:\n  trust_store_dir: /ca\ncrl:\n  publish_base: /w\nkeys:\n  dir: /k\n",
			want: "ca.common_name",
		},
		{
			name: "missing publish base",
			body: "ca:\n  common_name: X\n  trust_store_dir: /ca\nkeys:\n  dir: /k\n",
			want: "crl.publish_base",
		},
		{
			name: "weak key size",
			body: "ca:\n  common_name: X\n  trust_store_dir: /ca\ncrl:\n  publish_base: /w\nkeys:\n  dir: /k\n  bits: 1024\n",
			want: "keys.bits",
		},
		{
			name: "refresh not longer than access",
			body: "ca:\n  common_name: X\n  trust_store_dir: /ca\ncrl:\n  publish_base: /w\nkeys:\n  dir: /k\ntokens:\n  access_ttl: 1h\n  refresh_ttl: 30m\n",
			want: "refresh_ttl",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestKeyPassphrase_EnvOverride(t *testing.T) {
	cfg := Default()
	cfg.Keys.Passphrase = "inline"
	cfg.Keys.PassphraseEnv = "TRUSTENGINE_TEST_KEY_PASSPHRASE"

	t.Setenv("TRUSTENGINE_TEST_KEY_PASSPHRASE", "from-env")
	assert.Equal(t, []byte("from-env"), cfg.KeyPassphrase())

	t.Setenv("TRUSTENGINE_TEST_KEY_PASSPHRASE", "")
	assert.Equal(t, []byte("inline"), cfg.KeyPassphrase())
}
