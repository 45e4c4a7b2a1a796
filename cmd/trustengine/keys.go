package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage the token signing key pair",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the signing key pair if it does not exist",
	Long: `Generate the RSA key pair used to sign access tokens and write it to
the configured key directory. The private half is encrypted with the
configured passphrase. Existing key files are never overwritten.`,
	RunE: runKeysInit,
}

var keysExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the token verification public key (PEM)",
	RunE:  runKeysExport,
}

var keysExportOut string

func init() {
	keysExportCmd.Flags().StringVarP(&keysExportOut, "out", "o", "",
		"Write the public key to a file instead of stdout")

	keysCmd.AddCommand(keysInitCmd)
	keysCmd.AddCommand(keysExportCmd)
}

func runKeysInit(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.keys.EnsureKeys(); err != nil {
		return err
	}
	fmt.Printf("Signing keys ready in %s\n", eng.cfg.Keys.Dir)
	return nil
}

func runKeysExport(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	pemBytes, err := eng.keys.PublicKeyPEM()
	if err != nil {
		return err
	}

	if keysExportOut != "" {
		return os.WriteFile(keysExportOut, pemBytes, 0o644)
	}
	_, err = os.Stdout.Write(pemBytes)
	return err
}
