package cmd

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/faceauth/internal/database"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled or authorized users",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show <user-id>",
	Short: "Show a user's record",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)

	listCmd.Flags().Bool("authorized", false, "List authorized users instead of enrolled users")
	showCmd.Flags().Bool("authorized", false, "Show the authorized snapshot instead of the enrollment")
}

// recordSource picks the enrollment or authorization side.
func (a *app) recordSource(authorized bool) (database.RecordReader, string) {
	if authorized {
		return a.auth.Records(), "authorized"
	}
	return a.enroll.Records(), "enrolled"
}

func formatTime(ts database.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format(time.DateTime)
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	src, label := a.recordSource(mustGetBool(cmd, "authorized"))
	out := cmd.OutOrStdout()

	if !src.Exists() {
		fmt.Fprintf(out, "No %s users (store not created yet)\n", label)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USER\tSAMPLES\tENROLLED")

	count := 0
	for userID, err := range src.Keys(ctx) {
		if err != nil {
			if errors.Is(err, database.ErrCorruptRecord) {
				fmt.Fprintf(w, "?\t-\t%v\n", err)
				continue
			}
			return err
		}
		count++
		printListRow(ctx, w, src, userID)
	}
	_ = w.Flush()

	fmt.Fprintf(out, "\nTotal %s users: %d\n", label, count)
	return nil
}

func printListRow(ctx context.Context, w *tabwriter.Writer, src database.RecordReader, userID string) {
	rec, err := src.Get(ctx, userID)
	if err != nil {
		fmt.Fprintf(w, "%s\t-\t%v\n", userID, err)
		return
	}
	fmt.Fprintf(w, "%s\t%d\t%s\n", rec.UserID, rec.SampleCount, formatTime(rec.EnrollmentDate))
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	src, label := a.recordSource(mustGetBool(cmd, "authorized"))
	rec, err := src.Get(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "User:       %s (%s)\n", rec.UserID, label)
	fmt.Fprintf(out, "Enrolled:   %s\n", formatTime(rec.EnrollmentDate))
	fmt.Fprintf(out, "Samples:    %d\n", rec.SampleCount)
	fmt.Fprintf(out, "Dimension:  %d\n\n", rec.Dim())

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SAMPLE\tCAPTURED\tIMAGE")
	for _, s := range rec.Samples {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, formatTime(s.CapturedAt), s.ImagePath)
	}
	return w.Flush()
}
