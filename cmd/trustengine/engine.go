package main

import (
	"fmt"

	"github.com/remotemaster/trustengine/internal/audit"
	"github.com/remotemaster/trustengine/internal/certstore"
	"github.com/remotemaster/trustengine/internal/claims"
	"github.com/remotemaster/trustengine/internal/config"
	"github.com/remotemaster/trustengine/internal/crl"
	"github.com/remotemaster/trustengine/internal/hostinfo"
	"github.com/remotemaster/trustengine/internal/issuer"
	"github.com/remotemaster/trustengine/internal/signingkey"
	"github.com/remotemaster/trustengine/internal/storage"
	"github.com/remotemaster/trustengine/internal/store"
	"github.com/remotemaster/trustengine/internal/token"
)

// engine bundles the wired trust-engine components for the CLI.
type engine struct {
	cfg       *config.Config
	store     *store.Store
	provider  *certstore.Provider
	issuer    *issuer.Issuer
	ledger    *crl.Ledger
	builder   *crl.Builder
	publisher *crl.Publisher
	keys      *signingkey.Store
	tokens    *token.Issuer
}

// newEngine loads the configuration and wires every component.
func newEngine() (*engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	// Config may name the audit log when the flag and env are silent.
	if auditLogPath == "" && cfg.AuditLog != "" {
		if err := audit.InitFile(cfg.AuditLog); err != nil {
			return nil, fmt.Errorf("failed to initialize audit log: %w", err)
		}
	}

	s, err := store.Open(cfg.DataFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open data store: %w", err)
	}

	var trustPass []byte
	if cfg.CA.TrustStorePassphrase != "" {
		trustPass = []byte(cfg.CA.TrustStorePassphrase)
	}
	provider := certstore.NewProvider(
		certstore.NewFileTrustStore(cfg.CA.TrustStoreDir, trustPass),
		cfg.CA.CommonName,
	)

	fs := storage.OS{}
	keys := signingkey.New(fs, cfg.Keys.Dir, cfg.KeyPassphrase(), cfg.Keys.Bits)

	users := make(map[string][]claims.Claim, len(cfg.Tokens.Claims))
	for userID, uc := range cfg.Tokens.Claims {
		var list []claims.Claim
		for _, role := range uc.Roles {
			list = append(list, claims.Claim{Type: claims.TypeRole, Value: role})
		}
		for _, perm := range uc.Permissions {
			list = append(list, claims.Claim{Type: claims.TypePermission, Value: perm})
		}
		users[userID] = list
	}

	return &engine{
		cfg:       cfg,
		store:     s,
		provider:  provider,
		issuer:    issuer.New(provider, hostinfo.Local{}, cfg.CA.CertValidity),
		ledger:    crl.NewLedger(s, cfg.CA.CommonName),
		builder:   crl.NewBuilder(s, provider, cfg.CRL.Validity),
		publisher: crl.NewPublisher(fs),
		keys:      keys,
		tokens: token.NewIssuer(keys, s, claims.Static{Users: users}, token.Config{
			Issuer:     cfg.Tokens.Issuer,
			Audience:   cfg.Tokens.Audience,
			AccessTTL:  cfg.Tokens.AccessTTL,
			RefreshTTL: cfg.Tokens.RefreshTTL,
		}),
	}, nil
}

func (e *engine) Close() error {
	return e.store.Close()
}
