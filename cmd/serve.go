package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/classlens/classlens/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attendance API server",
	Long: `Start the ClassLens HTTP API.
The API covers student enrollment, camera and photo scans, and
attendance management for teachers.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	svc, err := initServices(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	count, err := svc.enrollment.EnrolledCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to count enrolled students: %w", err)
	}
	fmt.Printf("Face profiles loaded: %d students enrolled\n", count)
	fmt.Printf("Extractor: %s (threshold %.2f)\n", svc.detector.Model(), svc.cfg.MatchThreshold())
	if svc.cfg.Web.APIToken == "" {
		fmt.Println("Warning: API_TOKEN is not set, authentication is disabled")
	}

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(svc.cfg, port, host, web.Deps{
		Enrollment:   svc.enrollment,
		Orchestrator: svc.orchestrator,
		Recorder:     svc.recorder,
		SIS:          svc.sis,
		Profiles:     svc.profiles,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting ClassLens API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
