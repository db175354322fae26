package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kozaktomas/faceauth/internal/facematch"
)

var authenticateCmd = &cobra.Command{
	Use:   "authenticate",
	Short: "Check a face image against the authorized users",
	Long: `Extract a face from the image and compare it with every authorized user.
The nearest user is accepted when their distance is within the tolerance.
A rejected attempt exits with status 1.

Examples:
  face-auth authenticate --image probe.jpg
  face-auth authenticate --image probe.jpg --tolerance 0.5 --consensus weighted --json`,
	Args: cobra.NoArgs,
	RunE: runAuthenticate,
}

func init() {
	rootCmd.AddCommand(authenticateCmd)

	authenticateCmd.Flags().String("image", "", "Face image to authenticate")
	authenticateCmd.Flags().Float64("tolerance", -1, "Maximum accepted distance (default from config, 0.6)")
	authenticateCmd.Flags().String("consensus", "", "Per-user distance: min, mean or weighted (default from config)")
	authenticateCmd.Flags().Bool("json", false, "Print the result as JSON")
	authenticateCmd.Flags().Bool("verbose", false, "Print the distance to every authorized user")
	_ = authenticateCmd.MarkFlagRequired("image")
}

type authenticateOutput struct {
	Accepted   bool            `json:"accepted"`
	UserID     string          `json:"user_id"`
	Distance   float64         `json:"distance"`
	Tolerance  float64         `json:"tolerance"`
	Confidence float64         `json:"confidence"`
	Consensus  string          `json:"consensus"`
	Candidates []candidateJSON `json:"candidates"`
}

type candidateJSON struct {
	UserID   string  `json:"user_id"`
	SampleID string  `json:"sample_id"`
	Distance float64 `json:"distance"`
}

func runAuthenticate(cmd *cobra.Command, args []string) error {
	imagePath := mustGetString(cmd, "image")
	tolerance := mustGetFloat64(cmd, "tolerance")
	consensusName := mustGetString(cmd, "consensus")
	asJSON := mustGetBool(cmd, "json")
	verbose := mustGetBool(cmd, "verbose")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	if !cmd.Flags().Changed("tolerance") {
		tolerance = a.cfg.Match.Tolerance
	}
	if consensusName == "" {
		consensusName = a.cfg.Match.Consensus
	}
	consensus, err := facematch.ParseConsensus(consensusName)
	if err != nil {
		return err
	}
	if err := facematch.ValidateTolerance(tolerance); err != nil {
		return err
	}

	probe, err := a.extractFile(ctx, a.newExtractor(), imagePath)
	if err != nil {
		return err
	}

	dim, err := a.enroll.Dimension(ctx)
	if err != nil {
		return fmt.Errorf("failed to establish feature dimension: %w", err)
	}

	matcher := facematch.NewMatcher(a.auth.Records(), dim, consensus, a.log)
	result, err := matcher.Authenticate(ctx, probe, tolerance)
	if err != nil {
		return err
	}

	a.log.Info("authentication attempt",
		zap.String("user_id", result.UserID),
		zap.Bool("accepted", result.Accepted),
		zap.Float64("distance", result.Distance))

	if asJSON {
		if err := printResultJSON(cmd, result); err != nil {
			return err
		}
	} else {
		printResult(cmd, result, verbose)
	}

	if !result.Accepted {
		return errAccessDenied
	}
	return nil
}

func printResultJSON(cmd *cobra.Command, r *facematch.MatchResult) error {
	out := authenticateOutput{
		Accepted:   r.Accepted,
		UserID:     r.UserID,
		Distance:   r.Distance,
		Tolerance:  r.Tolerance,
		Confidence: r.Confidence,
		Consensus:  string(r.Consensus),
		Candidates: make([]candidateJSON, 0, len(r.Distances)),
	}
	for _, d := range r.Distances {
		out.Candidates = append(out.Candidates, candidateJSON{UserID: d.UserID, SampleID: d.SampleID, Distance: d.Distance})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}

func printResult(cmd *cobra.Command, r *facematch.MatchResult, verbose bool) {
	out := cmd.OutOrStdout()
	if r.Accepted {
		fmt.Fprintf(out, "ACCEPTED: %s (distance %.4f, tolerance %.4f, confidence %.1f%%)\n",
			r.UserID, r.Distance, r.Tolerance, r.Confidence*100)
	} else {
		fmt.Fprintf(out, "REJECTED: closest user %s at distance %.4f exceeds tolerance %.4f\n",
			r.UserID, r.Distance, r.Tolerance)
	}

	if !verbose {
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USER\tSAMPLE\tDISTANCE")
	for _, d := range r.Distances {
		fmt.Fprintf(w, "%s\t%s\t%.4f\n", d.UserID, d.SampleID, d.Distance)
	}
	_ = w.Flush()
}
