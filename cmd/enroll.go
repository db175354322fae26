package cmd

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kozaktomas/faceauth/internal/constants"
	"github.com/kozaktomas/faceauth/internal/database"
	"github.com/kozaktomas/faceauth/internal/enrollment"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <user-id>",
	Short: "Enroll a user from face images",
	Long: `Extract one face sample from each image and store them as the user's
enrollment record, replacing any previous enrollment.

Enrollment does not grant access; run "face-auth authorize" afterwards.

Examples:
  # Enroll with the default number of samples (3)
  face-auth enroll alice --image a1.jpg --image a2.jpg --image a3.jpg

  # Enroll with 5 samples and refuse if the face resembles another user
  face-auth enroll bob --image b1.jpg,b2.jpg,b3.jpg,b4.jpg,b5.jpg --samples 5 --strict`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().StringSlice("image", nil, "Face image to sample (repeatable)")
	enrollCmd.Flags().Int("samples", 0, "Number of samples to capture (default from config, 3)")
	enrollCmd.Flags().Bool("strict", false, "Fail instead of warning when the face matches another enrolled user")
	_ = enrollCmd.MarkFlagRequired("image")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	userID := args[0]
	images := mustGetStringSlice(cmd, "image")
	sampleCount := mustGetInt(cmd, "samples")
	strict := mustGetBool(cmd, "strict")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	if sampleCount == 0 {
		sampleCount = a.cfg.Enroll.Samples
	}
	if sampleCount < 1 || sampleCount > constants.MaxSampleCount {
		return fmt.Errorf("--samples must be between 1 and %d", constants.MaxSampleCount)
	}
	if _, err := database.SanitizeUserID(userID); err != nil {
		return err
	}
	if len(images) < sampleCount {
		return fmt.Errorf("need %d images for %d samples, got %d", sampleCount, sampleCount, len(images))
	}
	if len(images) > sampleCount {
		a.log.Warn("ignoring extra images", zap.Int("provided", len(images)), zap.Int("samples", sampleCount))
		images = images[:sampleCount]
	}

	out := cmd.OutOrStdout()
	ex := a.newExtractor()

	bar := progressbar.NewOptions(len(images),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("Capturing samples"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("samples"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	samples := make([]database.Sample, 0, len(images))
	for _, path := range images {
		vec, err := a.extractFile(ctx, ex, path)
		if err != nil {
			_ = bar.Exit()
			return fmt.Errorf("enrollment aborted: %w", err)
		}
		samples = append(samples, enrollment.NewSample(vec, path, time.Now()))
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	fmt.Fprintln(cmd.ErrOrStderr())

	if a.cfg.Enroll.DuplicateCheck {
		hits, err := a.enroll.FindLookalikes(ctx, userID, samples, a.cfg.Match.Tolerance)
		if err != nil {
			return fmt.Errorf("duplicate check failed: %w", err)
		}
		for _, h := range hits {
			a.log.Warn("face resembles another enrolled user",
				zap.String("user_id", userID),
				zap.String("other_user_id", h.UserID),
				zap.Float64("distance", h.Distance))
		}
		if strict && len(hits) > 0 {
			return fmt.Errorf("face of %q is within tolerance of %q (distance %.4f)", userID, hits[0].UserID, hits[0].Distance)
		}
	}

	rec, err := a.enroll.Enroll(ctx, userID, samples)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Enrolled %s with %d samples (dimension %d)\n", rec.UserID, rec.SampleCount, rec.Dim())
	fmt.Fprintf(out, "Run 'face-auth authorize %s' to allow authentication.\n", rec.UserID)
	return nil
}
