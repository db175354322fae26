package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var authorizeCmd = &cobra.Command{
	Use:   "authorize <user-id>",
	Short: "Allow an enrolled user to authenticate",
	Long: `Copy the user's current enrollment record into the authorized store.

The copy is a snapshot: re-enrolling later does not change what is authorized
until the user is authorized again.`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthorize,
}

var revokeCmd = &cobra.Command{
	Use:   "revoke <user-id>",
	Short: "Remove a user's authorization",
	Long:  `Remove the user from the authorized store. The enrollment is kept.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runRevoke,
}

func init() {
	rootCmd.AddCommand(authorizeCmd)
	rootCmd.AddCommand(revokeCmd)
}

func runAuthorize(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	rec, err := a.auth.Authorize(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Authorized %s (%d samples)\n", rec.UserID, rec.SampleCount)
	return nil
}

func runRevoke(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	removed, err := a.auth.Revoke(ctx, args[0])
	if err != nil {
		return err
	}
	if removed {
		fmt.Fprintf(cmd.OutOrStdout(), "Revoked %s\n", args[0])
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s was not authorized\n", args[0])
	}
	return nil
}
