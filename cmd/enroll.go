package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <student-id> <photo-file>",
	Short: "Enroll a student from a reference photo",
	Long: `Register a student's face profile from a photo file.
The photo must show exactly one face. Re-enrolling a student replaces
the active profile; the previous one is kept for audit.`,
	Args: cobra.ExactArgs(2),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)
}

func runEnroll(cmd *cobra.Command, args []string) error {
	var studentID int64
	if _, err := fmt.Sscanf(args[0], "%d", &studentID); err != nil || studentID <= 0 {
		return fmt.Errorf("invalid student ID %q", args[0])
	}

	data, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to read photo file: %w", err)
	}

	ctx := context.Background()
	svc, err := initServices(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	profile, err := svc.enrollment.Enroll(ctx, studentID, data)
	if err != nil {
		return err
	}

	fmt.Printf("Enrolled student %d\n", profile.StudentID)
	fmt.Printf("  Profile:   %d\n", profile.ProfileID)
	fmt.Printf("  Model:     %s (%d dimensions)\n", profile.Model, profile.Dim)
	fmt.Printf("  Photo:     %s\n", profile.PhotoPath)
	fmt.Printf("  Det score: %.3f\n", profile.DetScore)
	return nil
}
