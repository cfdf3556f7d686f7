package cmd

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var reembedCmd = &cobra.Command{
	Use:   "reembed",
	Short: "Recompute all face profiles with the current model",
	Long: `Recompute every stored face profile from its enrollment photo using
the currently configured extractor model. Run this after switching
EXTRACTOR_MODEL; embeddings from different models are not comparable.`,
	RunE: runReembed,
}

func init() {
	rootCmd.AddCommand(reembedCmd)

	reembedCmd.Flags().Bool("yes", false, "Skip the confirmation prompt")
}

func runReembed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	svc, err := initServices(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	count, err := svc.enrollment.EnrolledCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to count profiles: %w", err)
	}
	if count == 0 {
		fmt.Println("No face profiles to re-embed")
		return nil
	}

	if !mustGetBool(cmd, "yes") {
		fmt.Printf("Re-embed %d face profiles with model %q? [y/N] ", count, svc.detector.Model())
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted")
			return nil
		}
	}

	bar := progressbar.Default(int64(count), "re-embedding")
	summary, err := svc.enrollment.ReembedAll(ctx, func(done, total int) {
		_ = bar.Set(done)
	})
	if err != nil {
		return err
	}
	_ = bar.Finish()

	fmt.Printf("\nDone: %d updated, %d skipped, %d failed (of %d)\n",
		summary.Updated, summary.Skipped, summary.Failed, summary.Total)
	if summary.Skipped > 0 {
		fmt.Println("Skipped profiles kept their old embeddings; re-enroll those students")
	}
	return nil
}
