package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/classlens/classlens/internal/attendance"
	"github.com/classlens/classlens/internal/database"
	"github.com/classlens/classlens/internal/database/mock"
	"github.com/classlens/classlens/internal/enrollment"
	"github.com/classlens/classlens/internal/extractor"
	"github.com/classlens/classlens/internal/facematch"
	"github.com/classlens/classlens/internal/scan"
)

// fakeDetector returns preset detections regardless of input.
type fakeDetector struct {
	faces []facematch.Detection
	err   error
}

func (d *fakeDetector) DetectFaces(ctx context.Context, imageData []byte) (*extractor.Result, error) {
	if d.err != nil {
		return nil, d.err
	}
	return &extractor.Result{FacesCount: len(d.faces), Faces: d.faces, Model: "arcface"}, nil
}

func (d *fakeDetector) Model() string { return "arcface" }

type memPhotoStore struct {
	photos  map[string][]byte
	counter int
}

func newMemPhotoStore() *memPhotoStore {
	return &memPhotoStore{photos: make(map[string][]byte)}
}

func (s *memPhotoStore) Save(studentID int64, data []byte) (string, error) {
	s.counter++
	path := fmt.Sprintf("%d/photo-%d.jpg", studentID, s.counter)
	s.photos[path] = data
	return path, nil
}

func (s *memPhotoStore) Load(relPath string) ([]byte, error) {
	data, ok := s.photos[relPath]
	if !ok {
		return nil, fmt.Errorf("photo %s not found", relPath)
	}
	return data, nil
}

// testEnv bundles the mocked services most handler tests need.
type testEnv struct {
	detector   *fakeDetector
	profiles   *mock.MockProfileRepo
	attendance *mock.MockAttendanceRepo
	sis        *mock.MockSIS
	store      *enrollment.Store
	recorder   *attendance.Recorder
}

// newTestEnv seeds one class (7) with two face-enrolled students (1, 2)
// and one without a profile (3).
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		detector:   &fakeDetector{},
		profiles:   mock.NewMockProfileRepo(),
		attendance: mock.NewMockAttendanceRepo(),
		sis:        mock.NewMockSIS(),
	}

	env.sis.AddClass(database.Class{ID: 7, Name: "3A"})
	for id := int64(1); id <= 3; id++ {
		env.sis.AddStudent(database.Student{ID: id, FullName: fmt.Sprintf("Student %d", id)})
		env.sis.Enroll(7, id)
	}
	for id := int64(1); id <= 2; id++ {
		env.profiles.AddProfile(database.StoredProfile{
			StudentID: id, Embedding: studentEmbedding(id), Model: "arcface", Dim: 512,
		})
	}

	env.store = enrollment.NewStore(env.detector, env.profiles, env.sis, newMemPhotoStore())
	env.recorder = attendance.NewRecorder(env.attendance)
	return env
}

func (env *testEnv) orchestrator() *scan.Orchestrator {
	return scan.NewOrchestrator(env.detector, env.store, env.recorder, env.sis, scan.NewHTTPFrameGrabber(5*time.Second), 0.6)
}

// studentEmbedding builds a distinct unit vector per student.
func studentEmbedding(studentID int64) []float32 {
	emb := make([]float32, 512)
	emb[studentID%512] = 1
	return emb
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

// multipartPhotoRequest builds a multipart request carrying a photo and
// optional extra form fields.
func multipartPhotoRequest(t *testing.T, method, path string, photo []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "photo.jpg")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(photo); err != nil {
		t.Fatalf("failed to write photo: %v", err)
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed to write field %s: %v", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse unmarshals the recorded response body into target
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse response body: %v", err)
	}
}

// assertStatusCode fails the test if the recorded status differs
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d: %s", expected, recorder.Code, recorder.Body.String())
	}
}
