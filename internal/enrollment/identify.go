package enrollment

import (
	"context"
	"fmt"

	"github.com/classlens/classlens/internal/database"
	"github.com/classlens/classlens/internal/extractor"
)

// Candidate is one possible identity for a detected face.
type Candidate struct {
	Student    database.Student `json:"student"`
	Similarity float64          `json:"similarity"`
}

// FaceIdentity lists the closest enrolled students for one detected face.
type FaceIdentity struct {
	FaceIndex  int         `json:"face_index"`
	Candidates []Candidate `json:"candidates"`
}

// Identify names the faces in a photo by searching stored profiles
// school-wide, ranked by embedding similarity. A diagnostic helper for
// faces a scan could not match; it never writes attendance.
func (s *Store) Identify(ctx context.Context, imageData []byte, topK int) ([]FaceIdentity, error) {
	if topK <= 0 {
		topK = 3
	}

	if _, _, err := extractor.ValidateImage(imageData); err != nil {
		return nil, err
	}
	prepared, err := extractor.PrepareImage(imageData)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare photo: %w", err)
	}

	result, err := s.detector.DetectFaces(ctx, prepared)
	if err != nil {
		return nil, err
	}
	if result.FacesCount == 0 {
		return nil, ErrNoFaceDetected
	}

	identities := make([]FaceIdentity, 0, len(result.Faces))
	for _, face := range result.Faces {
		matches, err := s.profiles.SearchNearest(ctx, face.Embedding, topK)
		if err != nil {
			return nil, fmt.Errorf("failed to search profiles: %w", err)
		}

		identity := FaceIdentity{FaceIndex: face.FaceIndex}
		for _, m := range matches {
			student, err := s.sis.GetStudent(ctx, m.StudentID)
			if err != nil {
				return nil, fmt.Errorf("failed to look up student %d: %w", m.StudentID, err)
			}
			if student == nil {
				// Profile for a student since removed from the SIS.
				continue
			}
			identity.Candidates = append(identity.Candidates, Candidate{
				Student:    *student,
				Similarity: m.Similarity,
			})
		}
		identities = append(identities, identity)
	}
	return identities, nil
}
