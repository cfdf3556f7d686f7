package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/classlens/classlens/internal/attendance"
	"github.com/classlens/classlens/internal/enrollment"
	"github.com/classlens/classlens/internal/extractor"
	"github.com/classlens/classlens/internal/scan"
)

func TestRespondJSON_SetsContentType(t *testing.T) {
	recorder := httptest.NewRecorder()
	data := map[string]string{"status": "ok"}

	respondJSON(recorder, http.StatusOK, data)

	contentType := recorder.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected Content-Type 'application/json', got '%s'", contentType)
	}
}

func TestRespondError_EncodesMessage(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondError(recorder, http.StatusBadRequest, "bad input")

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", recorder.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if body["error"] != "bad input" {
		t.Errorf("expected error message, got %+v", body)
	}
}

func TestRespondDomainError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"InvalidInput", scan.ErrInvalidInput, http.StatusBadRequest},
		{"FutureDate", attendance.ErrFutureDate, http.StatusBadRequest},
		{"NoFace", enrollment.ErrNoFaceDetected, http.StatusUnprocessableEntity},
		{"MultipleFaces", enrollment.ErrMultipleFacesDetected, http.StatusUnprocessableEntity},
		{"StudentNotFound", enrollment.ErrStudentNotFound, http.StatusNotFound},
		{"ClassNotFound", scan.ErrClassNotFound, http.StatusNotFound},
		{"RosterEmpty", scan.ErrRosterEmpty, http.StatusConflict},
		{"ExtractorTimeout", extractor.ErrTimeout, http.StatusGatewayTimeout},
		{"ExtractorUnavailable", extractor.ErrUnavailable, http.StatusBadGateway},
		{"FeedUnavailable", scan.ErrFeedUnavailable, http.StatusBadGateway},
		{"Unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondDomainError(recorder, tc.err)

			if recorder.Code != tc.want {
				t.Errorf("expected status %d, got %d", tc.want, recorder.Code)
			}
		})
	}
}

func TestRespondDomainErrorHidesInternals(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondDomainError(recorder, errors.New("pq: password authentication failed"))

	if recorder.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", recorder.Code)
	}
	var body map[string]string
	parseJSONResponse(t, recorder, &body)
	if body["error"] != "internal error" {
		t.Errorf("internal details must not leak: %+v", body)
	}
}

func TestSanitizeForLog(t *testing.T) {
	got := sanitizeForLog("line1\nline2\rline3")
	if got != "line1line2line3" {
		t.Errorf("expected newlines stripped, got %q", got)
	}
}

func TestHealthCheck(t *testing.T) {
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)

	HealthCheck(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var body map[string]string
	parseJSONResponse(t, recorder, &body)
	if body["status"] != "ok" {
		t.Errorf("unexpected health body: %+v", body)
	}
}
