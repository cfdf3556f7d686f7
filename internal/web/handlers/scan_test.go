package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/classlens/classlens/internal/database"
	"github.com/classlens/classlens/internal/extractor"
	"github.com/classlens/classlens/internal/facematch"
	"github.com/classlens/classlens/internal/scan"
)

func TestUploadClassPhoto(t *testing.T) {
	env := newTestEnv(t)
	env.detector.faces = []facematch.Detection{
		{FaceIndex: 0, Embedding: studentEmbedding(1), DetScore: 0.98},
	}
	handler := NewScanHandler(env.orchestrator())

	req := multipartPhotoRequest(t, http.MethodPost, "/upload-class-photo/7", testJPEG(t),
		map[string]string{"attendance_date": "2026-03-10"})
	req = requestWithChiParams(req, map[string]string{"id": "7"})
	recorder := httptest.NewRecorder()

	handler.UploadClassPhoto(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var result scan.Result
	parseJSONResponse(t, recorder, &result)
	if result.Date != "2026-03-10" {
		t.Errorf("expected backdated scan, got %q", result.Date)
	}
	if result.PresentCount != 1 || result.AbsentCount != 1 || result.Unenrolled != 1 {
		t.Errorf("unexpected result: %+v", result)
	}

	records, _ := env.attendance.ListByClassDate(req.Context(), 7, "2026-03-10")
	if len(records) != 2 {
		t.Errorf("expected 2 attendance records, got %d", len(records))
	}
	for _, rec := range records {
		if rec.Source != database.SourcePhotoUpload {
			t.Errorf("expected photo_upload source, got %q", rec.Source)
		}
	}
}

func TestUploadClassPhotoBadDate(t *testing.T) {
	env := newTestEnv(t)
	handler := NewScanHandler(env.orchestrator())

	req := multipartPhotoRequest(t, http.MethodPost, "/upload-class-photo/7", testJPEG(t),
		map[string]string{"attendance_date": "10.03.2026"})
	req = requestWithChiParams(req, map[string]string{"id": "7"})
	recorder := httptest.NewRecorder()

	handler.UploadClassPhoto(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
}

func TestUploadClassPhotoUnknownClass(t *testing.T) {
	env := newTestEnv(t)
	handler := NewScanHandler(env.orchestrator())

	req := multipartPhotoRequest(t, http.MethodPost, "/upload-class-photo/999", testJPEG(t), nil)
	req = requestWithChiParams(req, map[string]string{"id": "999"})
	recorder := httptest.NewRecorder()

	handler.UploadClassPhoto(recorder, req)

	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestUploadClassPhotoExtractorTimeout(t *testing.T) {
	env := newTestEnv(t)
	env.detector.err = extractor.ErrTimeout
	handler := NewScanHandler(env.orchestrator())

	req := multipartPhotoRequest(t, http.MethodPost, "/upload-class-photo/7", testJPEG(t), nil)
	req = requestWithChiParams(req, map[string]string{"id": "7"})
	recorder := httptest.NewRecorder()

	handler.UploadClassPhoto(recorder, req)

	assertStatusCode(t, recorder, http.StatusGatewayTimeout)
}

func TestScanClass(t *testing.T) {
	frame := testJPEG(t)
	camera := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(frame)
	}))
	defer camera.Close()

	env := newTestEnv(t)
	env.sis.AddClass(database.Class{ID: 7, Name: "3A", CameraURL: camera.URL})
	env.detector.faces = []facematch.Detection{
		{FaceIndex: 0, Embedding: studentEmbedding(2), DetScore: 0.97},
	}
	handler := NewScanHandler(env.orchestrator())

	req := httptest.NewRequest(http.MethodPost, "/facial-recognition/scan-class/7", nil)
	req = requestWithChiParams(req, map[string]string{"id": "7"})
	recorder := httptest.NewRecorder()

	handler.ScanClass(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var result scan.Result
	parseJSONResponse(t, recorder, &result)
	if result.PresentCount != 1 {
		t.Errorf("expected 1 present, got %+v", result)
	}
}

func TestScanClassNoCamera(t *testing.T) {
	env := newTestEnv(t)
	handler := NewScanHandler(env.orchestrator())

	req := httptest.NewRequest(http.MethodPost, "/facial-recognition/scan-class/7", nil)
	req = requestWithChiParams(req, map[string]string{"id": "7"})
	recorder := httptest.NewRecorder()

	handler.ScanClass(recorder, req)

	assertStatusCode(t, recorder, http.StatusConflict)
}
