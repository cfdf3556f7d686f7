package enrollment

import (
	"context"
	"errors"
	"testing"

	"github.com/classlens/classlens/internal/database"
)

func TestIdentify(t *testing.T) {
	store, profiles, sis, _ := newTestStore(&fakeDetector{faces: 1})
	sis.AddStudent(database.Student{ID: 1, Username: "jnovak", FullName: "Jan Novák"})
	sis.AddStudent(database.Student{ID: 2, Username: "emala", FullName: "Eva Malá"})

	// Student 1 matches the detected face exactly, student 2 is orthogonal.
	exact := make([]float32, 512)
	exact[0] = 1
	other := make([]float32, 512)
	other[1] = 1
	profiles.AddProfile(database.StoredProfile{StudentID: 1, Embedding: exact, Model: "arcface", Dim: 512})
	profiles.AddProfile(database.StoredProfile{StudentID: 2, Embedding: other, Model: "arcface", Dim: 512})

	identities, err := store.Identify(context.Background(), testJPEG(t), 3)
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if len(identities) != 1 {
		t.Fatalf("expected 1 face identity, got %d", len(identities))
	}
	if len(identities[0].Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(identities[0].Candidates))
	}
	best := identities[0].Candidates[0]
	if best.Student.ID != 1 || best.Similarity < 0.99 {
		t.Errorf("expected student 1 as top candidate, got %+v", best)
	}
	if identities[0].Candidates[1].Similarity > best.Similarity {
		t.Error("candidates must be ordered by descending similarity")
	}
}

func TestIdentifyNoFaces(t *testing.T) {
	store, _, _, _ := newTestStore(&fakeDetector{faces: 0})

	_, err := store.Identify(context.Background(), testJPEG(t), 3)
	if !errors.Is(err, ErrNoFaceDetected) {
		t.Errorf("expected ErrNoFaceDetected, got %v", err)
	}
}

func TestIdentifySkipsRemovedStudents(t *testing.T) {
	store, profiles, _, _ := newTestStore(&fakeDetector{faces: 1})

	// A profile exists but its student is gone from the SIS.
	emb := make([]float32, 512)
	emb[0] = 1
	profiles.AddProfile(database.StoredProfile{StudentID: 42, Embedding: emb, Model: "arcface", Dim: 512})

	identities, err := store.Identify(context.Background(), testJPEG(t), 3)
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if len(identities) != 1 || len(identities[0].Candidates) != 0 {
		t.Errorf("expected one face with no candidates, got %+v", identities)
	}
}
