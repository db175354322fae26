package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/faceauth/internal/enrollment"
)

var exportCmd = &cobra.Command{
	Use:   "export <user-id>",
	Short: "Export a user's enrollment to a portable file",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import an exported enrollment",
	Long: `Import a file written by "face-auth export" into the enrollment store.
An existing enrollment for the same user is only replaced with --force.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)

	exportCmd.Flags().String("file", "", "Output file (default: <export_dir>/<user>_credentials_<time>.json)")
	importCmd.Flags().Bool("force", false, "Overwrite an existing enrollment")
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	env, err := a.enroll.Export(ctx, args[0])
	if err != nil {
		return err
	}

	path := mustGetString(cmd, "file")
	if path == "" {
		name, err := enrollment.ExportFileName(env.UserID, env.ExportedAt)
		if err != nil {
			return err
		}
		path = filepath.Join(a.cfg.Store.ExportDir, name)
	}

	if err := enrollment.WriteExport(path, env); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", env.UserID, path)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	env, err := enrollment.ReadExport(args[0])
	if err != nil {
		return err
	}

	rec, err := a.enroll.Import(ctx, env, mustGetBool(cmd, "force"))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%d samples)\n", rec.UserID, rec.SampleCount)
	return nil
}
