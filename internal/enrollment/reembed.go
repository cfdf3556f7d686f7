package enrollment

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/classlens/classlens/internal/extractor"
)

// ReembedSummary reports the outcome of a bulk re-embedding run.
type ReembedSummary struct {
	Total   int `json:"total"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// ReembedAll recomputes every primary profile's embedding from its stored
// photo using the current extractor model. Profiles whose photo no longer
// yields exactly one face are skipped and keep their old embedding.
// The progress callback, if non-nil, is invoked after each profile.
func (s *Store) ReembedAll(ctx context.Context, progress func(done, total int)) (*ReembedSummary, error) {
	profiles, err := s.profiles.GetAllPrimary(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}

	summary := &ReembedSummary{Total: len(profiles)}
	for i, profile := range profiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := s.reembedOne(ctx, profile.ID, profile.StudentID, profile.PhotoPath); err != nil {
			if errors.Is(err, extractor.ErrTimeout) || errors.Is(err, extractor.ErrUnavailable) {
				return nil, fmt.Errorf("re-embedding aborted at profile %d: %w", profile.ID, err)
			}
			if errors.Is(err, ErrNoFaceDetected) || errors.Is(err, ErrMultipleFacesDetected) {
				log.Printf("Skipping profile %d (student %d): %v", profile.ID, profile.StudentID, err)
				summary.Skipped++
			} else {
				log.Printf("Failed to re-embed profile %d (student %d): %v", profile.ID, profile.StudentID, err)
				summary.Failed++
			}
		} else {
			summary.Updated++
		}

		if progress != nil {
			progress(i+1, summary.Total)
		}
	}

	return summary, nil
}

func (s *Store) reembedOne(ctx context.Context, profileID, studentID int64, photoPath string) error {
	data, err := s.photos.Load(photoPath)
	if err != nil {
		return err
	}

	result, err := s.detector.DetectFaces(ctx, data)
	if err != nil {
		return err
	}

	switch {
	case result.FacesCount == 0:
		return ErrNoFaceDetected
	case result.FacesCount > 1:
		return fmt.Errorf("%w: found %d", ErrMultipleFacesDetected, result.FacesCount)
	}

	face := result.Faces[0]
	return s.profiles.UpdateEmbedding(ctx, profileID, face.Embedding, result.Model, len(face.Embedding))
}
