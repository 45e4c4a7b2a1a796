package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/remotemaster/trustengine/internal/crl"
)

var crlCmd = &cobra.Command{
	Use:   "crl",
	Short: "Generate and publish certificate revocation lists",
}

var crlGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new CRL",
	Long: `Build and sign a CRL covering every revoked serial. Each generation
increments the CRL number by one.`,
	RunE: runCRLGenerate,
}

var crlInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show current CRL metadata",
	RunE:  runCRLInfo,
}

var (
	crlOut     string
	crlPublish bool
)

func init() {
	flags := crlGenerateCmd.Flags()
	flags.StringVarP(&crlOut, "out", "o", "", "Write the DER CRL to a file")
	flags.BoolVar(&crlPublish, "publish", false, "Publish the CRL to its well-known location")

	crlCmd.AddCommand(crlGenerateCmd)
	crlCmd.AddCommand(crlInfoCmd)
}

func runCRLGenerate(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	der, err := eng.builder.Generate(context.Background())
	if err != nil {
		return err
	}

	meta, err := eng.builder.Metadata()
	if err != nil {
		return err
	}
	fmt.Printf("Generated CRL #%s (%d revoked, next update %s)\n",
		meta.Info.Number, meta.RevokedCount, meta.Info.NextUpdate.Format(time.RFC3339))

	if crlOut != "" {
		if err := os.WriteFile(crlOut, der, 0o644); err != nil {
			return fmt.Errorf("failed to write CRL: %w", err)
		}
	}
	if crlPublish {
		if !eng.publisher.Publish(der, eng.cfg.CRL.PublishBase) {
			fmt.Println("Warning: CRL publish failed; regenerate and republish later")
			return nil
		}
		fmt.Printf("CRL published to %s\n", crl.PublishPath(eng.cfg.CRL.PublishBase))
	}
	return nil
}

func runCRLInfo(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	meta, err := eng.builder.Metadata()
	if err != nil {
		return err
	}
	fmt.Printf("CRL number:    %s\n", meta.Info.Number)
	fmt.Printf("Next update:   %s\n", meta.Info.NextUpdate.Format(time.RFC3339))
	fmt.Printf("Body hash:     %s\n", meta.Info.Hash)
	fmt.Printf("Revoked count: %d\n", meta.RevokedCount)
	return nil
}
