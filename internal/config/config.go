// Package config holds the trust engine's YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Load when the file leaves fields unset.
const (
	DefaultListenAddr    = ":8443"
	DefaultDataFile      = "trustengine.db"
	DefaultKeyBits       = 2048
	DefaultCertValidity  = 365 * 24 * time.Hour
	DefaultCRLValidity   = 7 * 24 * time.Hour
	DefaultAccessTTL     = 15 * time.Minute
	DefaultRefreshTTL    = 30 * 24 * time.Hour
	DefaultTokenIssuer   = "trustengine"
	DefaultTokenAudience = "remotemaster"
)

// Config is the root configuration document.
type Config struct {
	Server ServerConfig `yaml:"server"`
	CA     CAConfig     `yaml:"ca"`
	CRL    CRLConfig    `yaml:"crl"`
	Keys   KeysConfig   `yaml:"keys"`
	Tokens TokensConfig `yaml:"tokens"`

	// DataFile is the path of the persistent store (bbolt).
	DataFile string `yaml:"data_file"`

	// AuditLog is the path of the append-only audit trail. Empty
	// disables auditing.
	AuditLog string `yaml:"audit_log"`
}

// ServerConfig configures the REST listener.
type ServerConfig struct {
	ListenAddr   string        `yaml:"listen_addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// CAConfig locates the issuing CA and sets leaf validity.
type CAConfig struct {
	// CommonName selects the CA certificate inside the trust store.
	CommonName string `yaml:"common_name"`

	// TrustStoreDir holds the CA certificate/key PEM pairs.
	TrustStoreDir string `yaml:"trust_store_dir"`

	// TrustStorePassphrase decrypts legacy encrypted CA keys.
	TrustStorePassphrase string `yaml:"trust_store_passphrase"`

	CertValidity time.Duration `yaml:"cert_validity"`
}

// CRLConfig configures CRL generation and publication.
type CRLConfig struct {
	// Validity is the window between this-update and next-update.
	Validity time.Duration `yaml:"validity"`

	// PublishBase is the base directory the CRL is published under.
	PublishBase string `yaml:"publish_base"`
}

// KeysConfig configures the token signing-key store.
type KeysConfig struct {
	Dir        string `yaml:"dir"`
	Bits       int    `yaml:"bits"`
	Passphrase string `yaml:"passphrase"`

	// PassphraseEnv names an environment variable that overrides
	// Passphrase when set.
	PassphraseEnv string `yaml:"passphrase_env"`
}

// TokensConfig configures token issuance.
type TokensConfig struct {
	Issuer     string        `yaml:"issuer"`
	Audience   string        `yaml:"audience"`
	AccessTTL  time.Duration `yaml:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`

	// Claims statically maps user ids to role/permission claims.
	Claims map[string]UserClaims `yaml:"claims"`
}

// UserClaims lists a user's static role and permission claims.
type UserClaims struct {
	Roles       []string `yaml:"roles"`
	Permissions []string `yaml:"permissions"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and validates a YAML configuration file, applying defaults
// for unset fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.DataFile == "" {
		c.DataFile = DefaultDataFile
	}
	if c.CA.CertValidity == 0 {
		c.CA.CertValidity = DefaultCertValidity
	}
	if c.CRL.Validity == 0 {
		c.CRL.Validity = DefaultCRLValidity
	}
	if c.Keys.Bits == 0 {
		c.Keys.Bits = DefaultKeyBits
	}
	if c.Tokens.Issuer == "" {
		c.Tokens.Issuer = DefaultTokenIssuer
	}
	if c.Tokens.Audience == "" {
		c.Tokens.Audience = DefaultTokenAudience
	}
	if c.Tokens.AccessTTL == 0 {
		c.Tokens.AccessTTL = DefaultAccessTTL
	}
	if c.Tokens.RefreshTTL == 0 {
		c.Tokens.RefreshTTL = DefaultRefreshTTL
	}
}

// Validate checks cross-field constraints that defaults cannot fix.
func (c *Config) Validate() error {
	if c.CA.CommonName == "" {
		return fmt.Errorf("ca.common_name is required")
	}
	if c.CA.TrustStoreDir == "" {
		return fmt.Errorf("ca.trust_store_dir is required")
	}
	if c.Keys.Dir == "" {
		return fmt.Errorf("keys.dir is required")
	}
	if c.Keys.Bits < 2048 {
		return fmt.Errorf("keys.bits must be at least 2048, got %d", c.Keys.Bits)
	}
	if c.CRL.PublishBase == "" {
		return fmt.Errorf("crl.publish_base is required")
	}
	if c.Tokens.AccessTTL < 0 || c.Tokens.RefreshTTL < 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if c.Tokens.RefreshTTL <= c.Tokens.AccessTTL {
		return fmt.Errorf("tokens.refresh_ttl must exceed tokens.access_ttl")
	}
	return nil
}

// KeyPassphrase resolves the signing-key passphrase, preferring the
// configured environment variable over the inline value.
func (c *Config) KeyPassphrase() []byte {
	if c.Keys.PassphraseEnv != "" {
		if v := os.Getenv(c.Keys.PassphraseEnv); v != "" {
			return []byte(v)
		}
	}
	if c.Keys.Passphrase == "" {
		return nil
	}
	return []byte(c.Keys.Passphrase)
}
