package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/classlens/classlens/internal/web/handlers"
	"github.com/classlens/classlens/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	enrollHandler := handlers.NewEnrollHandler(s.deps.Enrollment)
	scanHandler := handlers.NewScanHandler(s.deps.Orchestrator)
	attendanceHandler := handlers.NewAttendanceHandler(s.deps.Recorder)
	studentsHandler := handlers.NewStudentsHandler(s.deps.SIS, s.deps.Profiles, s.deps.Enrollment)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireToken(s.config.Web.APIToken))
		r.Use(middleware.WithOperator())

		// Enrollment
		r.Post("/students/{id}/upload-photo", enrollHandler.UploadPhoto)
		r.Post("/load-students", studentsHandler.LoadStudents)
		r.Post("/facial-recognition/re-embed", studentsHandler.Reembed)

		// Scans
		r.Post("/facial-recognition/scan-class/{id}", scanHandler.ScanClass)
		r.Post("/upload-class-photo/{id}", scanHandler.UploadClassPhoto)

		// Attendance
		r.Get("/attendance", attendanceHandler.List)
		r.Put("/attendance/{id}", attendanceHandler.Update)
		r.Get("/attendance/stats/{studentId}", attendanceHandler.Stats)
	})
}
