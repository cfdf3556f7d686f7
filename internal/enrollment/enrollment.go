// Package enrollment manages reference face profiles: registering a
// student's photo, building per-class rosters for matching, and bulk
// re-embedding after a model change.
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/classlens/classlens/internal/database"
	"github.com/classlens/classlens/internal/extractor"
	"github.com/classlens/classlens/internal/facematch"
)

// Enrollment photos must contain exactly one face. Anything else is the
// caller's mistake, not an infrastructure failure.
var (
	// ErrNoFaceDetected means the enrollment photo contains no detectable face.
	ErrNoFaceDetected = errors.New("no face detected in photo")

	// ErrMultipleFacesDetected means the enrollment photo contains more than
	// one face, so there is no unambiguous reference.
	ErrMultipleFacesDetected = errors.New("multiple faces detected in photo")

	// ErrStudentNotFound means the student does not exist in the SIS.
	ErrStudentNotFound = errors.New("student not found")
)

// Detector computes face embeddings for an image.
type Detector interface {
	DetectFaces(ctx context.Context, imageData []byte) (*extractor.Result, error)
	Model() string
}

// PhotoStore persists enrollment photos.
type PhotoStore interface {
	Save(studentID int64, data []byte) (string, error)
	Load(relPath string) ([]byte, error)
}

// Store wires face detection, photo persistence and the profile
// repository into the enrollment workflow.
type Store struct {
	detector Detector
	profiles database.ProfileWriter
	sis      database.SISReader
	photos   PhotoStore
}

// RosterIndex is a class roster ready for matching, split into students
// with a usable face profile and students still waiting for one.
type RosterIndex struct {
	Roster     *facematch.Roster
	Unenrolled []database.Student
}

// Profile is the result of a successful enrollment.
type Profile struct {
	ProfileID int64   `json:"profile_id"`
	StudentID int64   `json:"student_id"`
	Model     string  `json:"model"`
	Dim       int     `json:"dim"`
	PhotoPath string  `json:"photo_path"`
	DetScore  float64 `json:"detection_score"`
}

func NewStore(detector Detector, profiles database.ProfileWriter, sis database.SISReader, photos PhotoStore) *Store {
	return &Store{
		detector: detector,
		profiles: profiles,
		sis:      sis,
		photos:   photos,
	}
}

// Enroll registers a reference photo for a student. The photo must contain
// exactly one face. Re-enrolling replaces the student's primary profile;
// the previous one is kept for audit.
func (s *Store) Enroll(ctx context.Context, studentID int64, imageData []byte) (*Profile, error) {
	student, err := s.sis.GetStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up student %d: %w", studentID, err)
	}
	if student == nil {
		return nil, fmt.Errorf("%w: %d", ErrStudentNotFound, studentID)
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

	switch {
	case result.FacesCount == 0:
		return nil, ErrNoFaceDetected
	case result.FacesCount > 1:
		return nil, fmt.Errorf("%w: found %d", ErrMultipleFacesDetected, result.FacesCount)
	}

	face := result.Faces[0]
	photoPath, err := s.photos.Save(studentID, prepared)
	if err != nil {
		return nil, fmt.Errorf("failed to store photo: %w", err)
	}

	profileID, err := s.profiles.ReplacePrimary(ctx, database.StoredProfile{
		StudentID: studentID,
		Embedding: face.Embedding,
		Model:     result.Model,
		Dim:       len(face.Embedding),
		PhotoPath: photoPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store profile: %w", err)
	}

	log.Printf("Enrolled student %d (%s), profile %d", studentID, student.FullName, profileID)

	return &Profile{
		ProfileID: profileID,
		StudentID: studentID,
		Model:     result.Model,
		Dim:       len(face.Embedding),
		PhotoPath: photoPath,
		DetScore:  face.DetScore,
	}, nil
}

// ClassRoster builds the matching roster for a class, listing enrolled
// students with their reference embeddings. Students without a face
// profile are reported separately so scans can flag them. Built fresh on
// every call: class membership changes in the SIS without notice, so a
// cached roster would miss newly enrolled students.
func (s *Store) ClassRoster(ctx context.Context, classID int64) (*RosterIndex, error) {
	students, err := s.sis.GetEnrolledStudents(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to load class %d roster: %w", classID, err)
	}

	ids := make([]int64, len(students))
	for i, student := range students {
		ids[i] = student.ID
	}

	profiles, err := s.profiles.GetPrimaryByStudents(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load face profiles: %w", err)
	}

	byStudent := make(map[int64][][]float32, len(profiles))
	for _, p := range profiles {
		byStudent[p.StudentID] = append(byStudent[p.StudentID], p.Embedding)
	}

	var entries []facematch.RosterEntry
	var unenrolled []database.Student
	for _, student := range students {
		embeddings, ok := byStudent[student.ID]
		if !ok {
			unenrolled = append(unenrolled, student)
			continue
		}
		entries = append(entries, facematch.RosterEntry{
			StudentID:  student.ID,
			Name:       student.FullName,
			Embeddings: embeddings,
		})
	}

	return &RosterIndex{
		Roster:     facematch.NewRoster(entries),
		Unenrolled: unenrolled,
	}, nil
}

// EnrolledCount returns the number of students with a face profile.
func (s *Store) EnrolledCount(ctx context.Context) (int, error) {
	return s.profiles.CountPrimary(ctx)
}
