// Package handlers implements the HTTP API: student enrollment, class
// scans and attendance management.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/classlens/classlens/internal/attendance"
	"github.com/classlens/classlens/internal/enrollment"
	"github.com/classlens/classlens/internal/extractor"
	"github.com/classlens/classlens/internal/scan"
)

// maxUploadSize bounds multipart photo uploads.
const maxUploadSize = 25 << 20 // 25 MB

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondDomainError maps known pipeline errors to HTTP statuses. Unknown
// errors become a 500 with a generic message so internals do not leak.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scan.ErrInvalidInput),
		errors.Is(err, attendance.ErrInvalidStatus),
		errors.Is(err, attendance.ErrFutureDate):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, enrollment.ErrNoFaceDetected),
		errors.Is(err, enrollment.ErrMultipleFacesDetected):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, enrollment.ErrStudentNotFound),
		errors.Is(err, scan.ErrClassNotFound),
		errors.Is(err, attendance.ErrRecordNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, scan.ErrRosterEmpty),
		errors.Is(err, scan.ErrNoCamera):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, extractor.ErrTimeout):
		respondError(w, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, extractor.ErrUnavailable),
		errors.Is(err, scan.ErrFeedUnavailable):
		respondError(w, http.StatusBadGateway, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// idParam parses a positive integer URL parameter.
func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// readUploadedPhoto extracts the photo file from a multipart form. The
// form field is named "file"; "photo" is accepted as an alias.
func readUploadedPhoto(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, errors.New("invalid multipart form")
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		file, _, err = r.FormFile("photo")
	}
	if err != nil {
		return nil, errors.New("missing photo file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		return nil, errors.New("failed to read photo")
	}
	if len(data) == 0 {
		return nil, errors.New("empty photo file")
	}
	return data, nil
}

// parseAttendanceDate parses an optional YYYY-MM-DD form value, defaulting
// to today.
func parseAttendanceDate(value string) (time.Time, error) {
	if value == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	date, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, errors.New("invalid date, expected YYYY-MM-DD")
	}
	return date, nil
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
