package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var identifyCmd = &cobra.Command{
	Use:   "identify <photo-file>",
	Short: "Identify the faces in a photo against enrolled students",
	Long: `Detect every face in a photo and list the closest enrolled students
for each, ranked by embedding similarity. Useful for putting a name to
a face a scan could not match. Does not record attendance.`,
	Args: cobra.ExactArgs(1),
	RunE: runIdentify,
}

func init() {
	identifyCmd.Flags().IntP("top", "t", 3, "number of candidates to show per face")
	rootCmd.AddCommand(identifyCmd)
}

func runIdentify(cmd *cobra.Command, args []string) error {
	topK := mustGetInt(cmd, "top")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read photo file: %w", err)
	}

	ctx := context.Background()
	svc, err := initServices(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	identities, err := svc.enrollment.Identify(ctx, data, topK)
	if err != nil {
		return err
	}

	fmt.Printf("Detected %d face(s)\n", len(identities))
	for _, identity := range identities {
		fmt.Printf("Face %d:\n", identity.FaceIndex)
		if len(identity.Candidates) == 0 {
			fmt.Println("  no enrolled students to compare against")
			continue
		}
		for _, c := range identity.Candidates {
			fmt.Printf("  %.3f  %s (student %d)\n", c.Similarity, c.Student.FullName, c.Student.ID)
		}
	}
	return nil
}
