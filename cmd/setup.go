package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/classlens/classlens/internal/attendance"
	"github.com/classlens/classlens/internal/config"
	"github.com/classlens/classlens/internal/database/mariadb"
	"github.com/classlens/classlens/internal/database/postgres"
	"github.com/classlens/classlens/internal/enrollment"
	"github.com/classlens/classlens/internal/extractor"
	"github.com/classlens/classlens/internal/scan"
	"github.com/classlens/classlens/internal/storage"
)

// services bundles everything a command needs, with a single Close.
type services struct {
	cfg          *config.Config
	pool         *postgres.Pool
	sis          *mariadb.SIS
	profiles     *postgres.ProfileRepository
	attendance   *postgres.AttendanceRepository
	detector     *extractor.Client
	enrollment   *enrollment.Store
	recorder     *attendance.Recorder
	orchestrator *scan.Orchestrator
}

// initServices connects both databases, runs migrations and wires the
// service layer. Every command that touches data goes through this.
func initServices(ctx context.Context) (*services, error) {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	if cfg.SIS.DatabaseURL == "" {
		return nil, errors.New("SIS_DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	sis, err := mariadb.NewSIS(cfg.SIS.DatabaseURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to SIS database: %w", err)
	}

	photoDir := cfg.Storage.PhotoDir
	if photoDir == "" {
		photoDir = "./photos"
	}
	photos, err := storage.NewPhotoStore(photoDir)
	if err != nil {
		pool.Close()
		sis.Close()
		return nil, err
	}

	detector := extractor.NewClient(cfg.Extractor.URL, cfg.Extractor.Model,
		time.Duration(cfg.Extractor.TimeoutSeconds)*time.Second)

	profiles := postgres.NewProfileRepository(pool)
	attendanceRepo := postgres.NewAttendanceRepository(pool)
	store := enrollment.NewStore(detector, profiles, sis, photos)
	recorder := attendance.NewRecorder(attendanceRepo)
	grabber := scan.NewHTTPFrameGrabber(time.Duration(cfg.Extractor.TimeoutSeconds) * time.Second)
	orchestrator := scan.NewOrchestrator(detector, store, recorder, sis, grabber, cfg.MatchThreshold())

	return &services{
		cfg:          cfg,
		pool:         pool,
		sis:          sis,
		profiles:     profiles,
		attendance:   attendanceRepo,
		detector:     detector,
		enrollment:   store,
		recorder:     recorder,
		orchestrator: orchestrator,
	}, nil
}

func (s *services) Close() {
	s.pool.Close()
	if err := s.sis.Close(); err != nil {
		fmt.Printf("Warning: failed to close SIS connection: %v\n", err)
	}
}
