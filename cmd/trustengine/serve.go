package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/remotemaster/trustengine/internal/api/handler"
	"github.com/remotemaster/trustengine/internal/api/router"
	"github.com/remotemaster/trustengine/internal/api/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the trust engine REST API",
	Long: `Start the REST API serving certificate issuance, revocation, CRL and
session-token endpoints. The token signing key pair is created on first
start if it does not exist yet.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	// The signing keys must exist before any token operation.
	if err := eng.keys.EnsureKeys(); err != nil {
		return fmt.Errorf("failed to prepare signing keys: %w", err)
	}

	h := router.New(router.Handlers{
		Health: handler.NewHealthHandler(version, func() bool {
			_, err := eng.store.CountRevocations()
			return err == nil
		}),
		Cert:   handler.NewCertHandler(eng.issuer, eng.ledger),
		CRL:    handler.NewCRLHandler(eng.builder, eng.publisher, eng.cfg.CRL.PublishBase),
		Token:  handler.NewTokenHandler(eng.tokens),
	})

	fmt.Printf("trustengine %s listening on %s\n", version, eng.cfg.Server.ListenAddr)

	srv := server.New(server.Config{
		Addr:         eng.cfg.Server.ListenAddr,
		ReadTimeout:  eng.cfg.Server.ReadTimeout,
		WriteTimeout: eng.cfg.Server.WriteTimeout,
	}, h)
	return srv.Start()
}
