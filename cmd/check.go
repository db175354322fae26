package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/faceauth/internal/database"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check stores and the feature extractor",
	Long: `Report the state of the enrollment and authorization stores and try
every configured extractor provider until one works.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	out := cmd.OutOrStdout()
	reportStore(ctx, out, "Enrollment store", a.cfg.Store.EnrollDir, a.enroll.Records())
	reportStore(ctx, out, "Authorization store", a.cfg.Store.AuthDir, a.auth.Records())

	dim, err := a.enroll.Dimension(ctx)
	switch {
	case err != nil:
		fmt.Fprintf(out, "Feature dimension: unknown (%v)\n", err)
	case dim == 0:
		fmt.Fprintln(out, "Feature dimension: not established yet")
	default:
		fmt.Fprintf(out, "Feature dimension: %d\n", dim)
	}

	p, err := a.newExtractor().Acquire(ctx)
	if err != nil {
		fmt.Fprintf(out, "Extractor: unavailable\n%v\n", err)
		return fmt.Errorf("no working feature extractor")
	}
	fmt.Fprintf(out, "Extractor: %s\n", p.Name())
	return nil
}

func reportStore(ctx context.Context, out io.Writer, label, dir string, r database.RecordReader) {
	if !r.Exists() {
		fmt.Fprintf(out, "%s: %s (not created)\n", label, dir)
		return
	}
	all, err := r.All(ctx)
	if err != nil {
		fmt.Fprintf(out, "%s: %s (error: %v)\n", label, dir, err)
		return
	}
	fmt.Fprintf(out, "%s: %s (%d users)\n", label, dir, len(all))
}
