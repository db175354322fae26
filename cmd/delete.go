package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <user-id>",
	Short: "Delete a user's enrollment",
	Long: `Delete the user's enrollment record. An existing authorization is not
touched; use "face-auth revoke" to remove it.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	if err := a.enroll.Remove(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted enrollment of %s\n", args[0])

	if _, err := a.auth.Load(ctx, args[0]); err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Note: %s is still authorized\n", args[0])
	}
	return nil
}
