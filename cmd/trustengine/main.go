// Command trustengine manages the RemoteMaster trust engine: host
// certificate issuance, revocation lists and session tokens.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/remotemaster/trustengine/internal/audit"
)

// Build-time variables (injected by GoReleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags
var (
	configPath   string
	auditLogPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "trustengine",
	Short: "RemoteMaster trust engine - certificates, CRLs and session tokens",
	Long: `trustengine is the trust backbone of a RemoteMaster deployment. It issues
leaf certificates for managed hosts, maintains the revocation ledger and
publishes CRLs, and mints the signed access / opaque refresh token pairs
used for operator sessions.

Examples:
  # Start the REST API
  trustengine serve --config /etc/trustengine/trustengine.yaml

  # Generate the token signing key pair
  trustengine keys init --config trustengine.yaml

  # Revoke a certificate and republish the CRL
  trustengine revoke 04AD31... --reason keyCompromise
  trustengine crl generate --publish`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if auditLogPath == "" {
			auditLogPath = os.Getenv("TRUSTENGINE_AUDIT_LOG")
		}
		if auditLogPath != "" {
			if err := audit.InitFile(auditLogPath); err != nil {
				return fmt.Errorf("failed to initialize audit log: %w", err)
			}
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return audit.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "trustengine.yaml",
		"Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&auditLogPath, "audit-log", "",
		"Path to audit log file (or set TRUSTENGINE_AUDIT_LOG env var)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(revokeCmd)
	rootCmd.AddCommand(crlCmd)
	rootCmd.AddCommand(tokenCmd)
}
