package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/remotemaster/trustengine/internal/crl"
	"github.com/remotemaster/trustengine/internal/serial"
)

var revokeCmd = &cobra.Command{
	Use:   "revoke [serial]",
	Short: "Revoke a certificate",
	Long: `Revoke a certificate by its serial number. Revoking an already-revoked
serial is a no-op.

Revocation reasons:
  unspecified         - No specific reason (default)
  keyCompromise       - Private key was compromised
  caCompromise        - CA's private key was compromised
  affiliationChanged  - Subject's name or affiliation changed
  superseded          - Certificate was replaced by a new one
  cessation           - Certificate is no longer needed
  hold                - Certificate is temporarily on hold

Examples:
  # Revoke by serial
  trustengine revoke 04AD31E2...

  # Revoke with reason and republish the CRL
  trustengine revoke 04AD31E2... --reason superseded --gen-crl`,
	Args: cobra.ExactArgs(1),
	RunE: runRevoke,
}

var (
	revokeReason string
	revokeGenCRL bool
)

func init() {
	flags := revokeCmd.Flags()
	flags.StringVarP(&revokeReason, "reason", "r", "unspecified", "Revocation reason")
	flags.BoolVar(&revokeGenCRL, "gen-crl", false, "Generate and publish a new CRL after revocation")
}

func runRevoke(cmd *cobra.Command, args []string) error {
	sn, err := serial.Parse(args[0])
	if err != nil {
		return err
	}
	reason, err := crl.ParseRevocationReason(revokeReason)
	if err != nil {
		return err
	}

	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.ledger.Revoke(sn, reason); err != nil {
		return fmt.Errorf("failed to revoke %s: %w", sn, err)
	}
	fmt.Printf("Revoked %s (%s)\n", sn, reason)

	if revokeGenCRL {
		der, err := eng.builder.Generate(context.Background())
		if err != nil {
			return fmt.Errorf("failed to generate CRL: %w", err)
		}
		if !eng.publisher.Publish(der, eng.cfg.CRL.PublishBase) {
			fmt.Println("Warning: CRL publish failed; regenerate and republish later")
			return nil
		}
		fmt.Printf("CRL published to %s\n", crl.PublishPath(eng.cfg.CRL.PublishBase))
	}
	return nil
}
