package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/remotemaster/trustengine/internal/store"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage session tokens",
}

var tokenRevokeAllCmd = &cobra.Command{
	Use:   "revoke-all [user-id]",
	Short: "Revoke every active refresh token of a user",
	Long: `Mark every active refresh token belonging to the user as revoked.
Already-revoked and expired tokens are untouched; re-running is a no-op.`,
	Args: cobra.ExactArgs(1),
	RunE: runTokenRevokeAll,
}

var tokenRevokeReason string

func init() {
	tokenRevokeAllCmd.Flags().StringVarP(&tokenRevokeReason, "reason", "r", "admin",
		"Revocation reason (logged_out, admin)")

	tokenCmd.AddCommand(tokenRevokeAllCmd)
}

func runTokenRevokeAll(cmd *cobra.Command, args []string) error {
	reason := store.RevokeReason(tokenRevokeReason)
	switch reason {
	case store.RevokeReasonLoggedOut, store.RevokeReasonAdmin:
	default:
		return fmt.Errorf("unknown revocation reason: %s", tokenRevokeReason)
	}

	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	userID := args[0]
	if err := eng.tokens.RevokeAll(context.Background(), userID, reason); err != nil {
		return err
	}
	fmt.Printf("Revoked all active refresh tokens for %s\n", userID)
	return nil
}
