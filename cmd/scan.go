package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/classlens/classlens/internal/database"
	"github.com/classlens/classlens/internal/scan"
)

var scanCmd = &cobra.Command{
	Use:   "scan <class-id>",
	Short: "Take attendance for a class",
	Long: `Run an attendance scan for a class.
By default the scan grabs a frame from the class camera. With --photo,
attendance is taken from a group photo file instead. Matched students
are marked present, the rest of the roster absent. Records corrected
by a teacher are never overwritten.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().String("photo", "", "Group photo file instead of the class camera")
	scanCmd.Flags().String("date", "", "Attendance date YYYY-MM-DD (default today)")
}

func runScan(cmd *cobra.Command, args []string) error {
	var classID int64
	if _, err := fmt.Sscanf(args[0], "%d", &classID); err != nil || classID <= 0 {
		return fmt.Errorf("invalid class ID %q", args[0])
	}

	date := time.Now().UTC().Truncate(24 * time.Hour)
	if raw := mustGetString(cmd, "date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
		}
		date = parsed
	}

	ctx := context.Background()
	svc, err := initServices(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	var result *scan.Result
	if photoFile := mustGetString(cmd, "photo"); photoFile != "" {
		data, err := os.ReadFile(photoFile)
		if err != nil {
			return fmt.Errorf("failed to read photo file: %w", err)
		}
		result, err = svc.orchestrator.ScanPhoto(ctx, classID, date, data, database.SourcePhotoUpload)
		if err != nil {
			return err
		}
	} else {
		result, err = svc.orchestrator.ScanFeed(ctx, classID, date)
		if err != nil {
			return err
		}
	}

	printScanResult(result)
	return nil
}

func printScanResult(result *scan.Result) {
	fmt.Printf("Scan %s (class %d, %s)\n", result.ScanID, result.ClassID, result.Date)
	fmt.Printf("Faces: %d detected, %d matched, %d unmatched\n",
		result.FacesDetected, result.FacesMatched, result.FacesUnmatched)
	fmt.Println()

	for _, student := range result.Students {
		switch student.Status {
		case scan.OutcomePresent:
			fmt.Printf("  present    %-30s %.0f%%\n", student.Name, *student.Confidence*100)
		case scan.OutcomeAbsent:
			fmt.Printf("  absent     %s\n", student.Name)
		case scan.OutcomeUnenrolled:
			fmt.Printf("  no profile %s\n", student.Name)
		}
	}

	fmt.Println()
	fmt.Printf("%d present, %d absent", result.PresentCount, result.AbsentCount)
	if result.Unenrolled > 0 {
		fmt.Printf(", %d without a face profile", result.Unenrolled)
	}
	fmt.Printf(" (%s)\n", result.Duration.Round(time.Millisecond))
}
