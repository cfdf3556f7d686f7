package enrollment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/classlens/classlens/internal/database"
	"github.com/classlens/classlens/internal/database/mock"
	"github.com/classlens/classlens/internal/extractor"
	"github.com/classlens/classlens/internal/facematch"
)

// fakeDetector returns a fixed number of faces, or an injected error.
type fakeDetector struct {
	faces int
	err   error
	calls int
}

func (d *fakeDetector) DetectFaces(ctx context.Context, imageData []byte) (*extractor.Result, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	faces := make([]facematch.Detection, d.faces)
	for i := range faces {
		emb := make([]float32, 512)
		emb[i%512] = 1
		faces[i] = facematch.Detection{FaceIndex: i, Embedding: emb, DetScore: 0.99}
	}
	return &extractor.Result{FacesCount: d.faces, Faces: faces, Model: "arcface"}, nil
}

func (d *fakeDetector) Model() string { return "arcface" }

// memPhotoStore keeps photos in memory.
type memPhotoStore struct {
	photos  map[string][]byte
	counter int
	saveErr error
}

func newMemPhotoStore() *memPhotoStore {
	return &memPhotoStore{photos: make(map[string][]byte)}
}

func (s *memPhotoStore) Save(studentID int64, data []byte) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
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

func newTestStore(detector Detector) (*Store, *mock.MockProfileRepo, *mock.MockSIS, *memPhotoStore) {
	profiles := mock.NewMockProfileRepo()
	sis := mock.NewMockSIS()
	photos := newMemPhotoStore()
	return NewStore(detector, profiles, sis, photos), profiles, sis, photos
}

func TestEnroll(t *testing.T) {
	store, profiles, sis, photos := newTestStore(&fakeDetector{faces: 1})
	sis.AddStudent(database.Student{ID: 1, Username: "jnovak", FullName: "Jan Novák"})

	profile, err := store.Enroll(context.Background(), 1, testJPEG(t))
	if err != nil {
		t.Fatalf("Enroll failed: %v", err)
	}
	if profile.StudentID != 1 || profile.Model != "arcface" || profile.Dim != 512 {
		t.Errorf("unexpected profile: %+v", profile)
	}
	if len(profiles.ReplacePrimaryCalls) != 1 {
		t.Errorf("expected one ReplacePrimary call, got %d", len(profiles.ReplacePrimaryCalls))
	}
	if _, err := photos.Load(profile.PhotoPath); err != nil {
		t.Errorf("enrollment photo was not stored: %v", err)
	}
}

func TestEnrollUnknownStudent(t *testing.T) {
	store, _, _, _ := newTestStore(&fakeDetector{faces: 1})

	_, err := store.Enroll(context.Background(), 999, testJPEG(t))
	if !errors.Is(err, ErrStudentNotFound) {
		t.Errorf("expected ErrStudentNotFound, got %v", err)
	}
}

func TestEnrollNoFace(t *testing.T) {
	store, _, sis, _ := newTestStore(&fakeDetector{faces: 0})
	sis.AddStudent(database.Student{ID: 1, FullName: "Jan Novák"})

	_, err := store.Enroll(context.Background(), 1, testJPEG(t))
	if !errors.Is(err, ErrNoFaceDetected) {
		t.Errorf("expected ErrNoFaceDetected, got %v", err)
	}
}

func TestEnrollMultipleFaces(t *testing.T) {
	store, profiles, sis, _ := newTestStore(&fakeDetector{faces: 3})
	sis.AddStudent(database.Student{ID: 1, FullName: "Jan Novák"})

	_, err := store.Enroll(context.Background(), 1, testJPEG(t))
	if !errors.Is(err, ErrMultipleFacesDetected) {
		t.Errorf("expected ErrMultipleFacesDetected, got %v", err)
	}
	if len(profiles.ReplacePrimaryCalls) != 0 {
		t.Error("no profile must be written for an ambiguous photo")
	}
}

func TestEnrollInvalidImage(t *testing.T) {
	store, _, sis, _ := newTestStore(&fakeDetector{faces: 1})
	sis.AddStudent(database.Student{ID: 1, FullName: "Jan Novák"})

	_, err := store.Enroll(context.Background(), 1, []byte("not an image"))
	if err == nil {
		t.Error("expected error for undecodable image")
	}
}

func TestEnrollExtractorDown(t *testing.T) {
	store, _, sis, _ := newTestStore(&fakeDetector{err: extractor.ErrUnavailable})
	sis.AddStudent(database.Student{ID: 1, FullName: "Jan Novák"})

	_, err := store.Enroll(context.Background(), 1, testJPEG(t))
	if !errors.Is(err, extractor.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestEnrollReplacesPrimary(t *testing.T) {
	store, profiles, sis, _ := newTestStore(&fakeDetector{faces: 1})
	sis.AddStudent(database.Student{ID: 1, FullName: "Jan Novák"})

	ctx := context.Background()
	if _, err := store.Enroll(ctx, 1, testJPEG(t)); err != nil {
		t.Fatalf("first Enroll failed: %v", err)
	}
	if _, err := store.Enroll(ctx, 1, testJPEG(t)); err != nil {
		t.Fatalf("second Enroll failed: %v", err)
	}

	count, _ := profiles.CountPrimary(ctx)
	if count != 1 {
		t.Errorf("expected one primary profile, got %d", count)
	}
	if profiles.DemotedCount() != 1 {
		t.Errorf("expected the old profile to be demoted, got %d", profiles.DemotedCount())
	}
}

func TestClassRoster(t *testing.T) {
	store, profiles, sis, _ := newTestStore(&fakeDetector{faces: 1})
	sis.AddClass(database.Class{ID: 7, Name: "3A"})
	for id := int64(1); id <= 3; id++ {
		sis.AddStudent(database.Student{ID: id, FullName: fmt.Sprintf("Student %d", id)})
		sis.Enroll(7, id)
	}
	// Only two of the three students have a face profile.
	emb := make([]float32, 512)
	emb[0] = 1
	profiles.AddProfile(database.StoredProfile{StudentID: 1, Embedding: emb, Model: "arcface", Dim: 512})
	profiles.AddProfile(database.StoredProfile{StudentID: 2, Embedding: emb, Model: "arcface", Dim: 512})

	index, err := store.ClassRoster(context.Background(), 7)
	if err != nil {
		t.Fatalf("ClassRoster failed: %v", err)
	}
	if index.Roster.Len() != 2 {
		t.Errorf("expected 2 roster entries, got %d", index.Roster.Len())
	}
	if len(index.Unenrolled) != 1 || index.Unenrolled[0].ID != 3 {
		t.Errorf("expected student 3 unenrolled, got %+v", index.Unenrolled)
	}
}

func TestClassRosterReflectsNewEnrollment(t *testing.T) {
	store, _, sis, _ := newTestStore(&fakeDetector{faces: 1})
	sis.AddClass(database.Class{ID: 7, Name: "3A"})
	sis.AddStudent(database.Student{ID: 1, FullName: "Jan Novák"})
	sis.Enroll(7, 1)

	ctx := context.Background()
	before, err := store.ClassRoster(ctx, 7)
	if err != nil {
		t.Fatalf("ClassRoster failed: %v", err)
	}
	if before.Roster.Len() != 0 {
		t.Fatalf("expected empty roster before enrollment, got %d", before.Roster.Len())
	}

	if _, err := store.Enroll(ctx, 1, testJPEG(t)); err != nil {
		t.Fatalf("Enroll failed: %v", err)
	}

	after, err := store.ClassRoster(ctx, 7)
	if err != nil {
		t.Fatalf("ClassRoster failed: %v", err)
	}
	if after.Roster.Len() != 1 {
		t.Errorf("new face profile must appear in the next roster, got %d entries", after.Roster.Len())
	}
}

func TestClassRosterReflectsSISChanges(t *testing.T) {
	store, _, sis, _ := newTestStore(&fakeDetector{faces: 1})
	sis.AddClass(database.Class{ID: 7, Name: "3A"})
	sis.AddStudent(database.Student{ID: 1, FullName: "Jan Novák"})
	sis.Enroll(7, 1)

	ctx := context.Background()
	if _, err := store.ClassRoster(ctx, 7); err != nil {
		t.Fatalf("ClassRoster failed: %v", err)
	}

	// A student joins the class in the SIS after the first roster build.
	sis.AddStudent(database.Student{ID: 2, FullName: "Eva Malá"})
	sis.Enroll(7, 2)

	index, err := store.ClassRoster(ctx, 7)
	if err != nil {
		t.Fatalf("ClassRoster failed: %v", err)
	}
	total := index.Roster.Len() + len(index.Unenrolled)
	if total != 2 {
		t.Fatalf("roster must see students newly enrolled in the SIS, got %d of 2", total)
	}
	if len(index.Unenrolled) != 2 {
		t.Errorf("expected both students unenrolled (no profiles yet), got %d", len(index.Unenrolled))
	}
}

func TestReembedAll(t *testing.T) {
	detector := &fakeDetector{faces: 1}
	store, profiles, sis, photos := newTestStore(detector)
	sis.AddStudent(database.Student{ID: 1, FullName: "Jan Novák"})
	sis.AddStudent(database.Student{ID: 2, FullName: "Eva Malá"})

	ctx := context.Background()
	for id := int64(1); id <= 2; id++ {
		path, _ := photos.Save(id, testJPEG(t))
		emb := make([]float32, 512)
		emb[0] = 1
		profiles.AddProfile(database.StoredProfile{StudentID: id, Embedding: emb, Model: "facenet512", Dim: 512, PhotoPath: path})
	}

	var progressCalls int
	summary, err := store.ReembedAll(ctx, func(done, total int) { progressCalls++ })
	if err != nil {
		t.Fatalf("ReembedAll failed: %v", err)
	}
	if summary.Total != 2 || summary.Updated != 2 || summary.Skipped != 0 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if progressCalls != 2 {
		t.Errorf("expected 2 progress callbacks, got %d", progressCalls)
	}
	if len(profiles.UpdateEmbeddingCalls) != 2 {
		t.Errorf("expected 2 UpdateEmbedding calls, got %d", len(profiles.UpdateEmbeddingCalls))
	}
}

func TestReembedAllAbortsWhenExtractorDown(t *testing.T) {
	detector := &fakeDetector{err: extractor.ErrUnavailable}
	store, profiles, sis, photos := newTestStore(detector)
	sis.AddStudent(database.Student{ID: 1, FullName: "Jan Novák"})

	path, _ := photos.Save(1, testJPEG(t))
	emb := make([]float32, 512)
	emb[0] = 1
	profiles.AddProfile(database.StoredProfile{StudentID: 1, Embedding: emb, Model: "arcface", Dim: 512, PhotoPath: path})

	_, err := store.ReembedAll(context.Background(), nil)
	if !errors.Is(err, extractor.ErrUnavailable) {
		t.Errorf("expected abort on unavailable extractor, got %v", err)
	}
}
