package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "classlens",
	Short: "Face-recognition attendance for classrooms",
	Long: `ClassLens takes class attendance from photos. Students are enrolled
with a reference photo; group photos or classroom camera snapshots are
then matched against the class roster and attendance is recorded
automatically. Teachers keep the last word: their manual corrections
are never overwritten by a scan.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
