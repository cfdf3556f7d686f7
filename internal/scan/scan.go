// Package scan orchestrates a class attendance scan: validate the photo,
// extract face embeddings, match them against the class roster and record
// the outcome. Each scan moves through the phases in order and stops at
// the first failing phase, so attendance is never written from a partial
// pipeline.
package scan

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/classlens/classlens/internal/attendance"
	"github.com/classlens/classlens/internal/database"
	"github.com/classlens/classlens/internal/enrollment"
	"github.com/classlens/classlens/internal/extractor"
	"github.com/classlens/classlens/internal/facematch"
)

// Scan phases, in pipeline order.
const (
	PhaseValidating = "validating"
	PhaseExtracting = "extracting"
	PhaseMatching   = "matching"
	PhaseRecording  = "recording"
	PhaseCompleted  = "completed"
)

// Student outcome statuses within a scan result.
const (
	OutcomePresent    = "present"
	OutcomeAbsent     = "absent"
	OutcomeUnenrolled = "unenrolled" // enrolled in class but has no face profile
)

// StudentOutcome is one student's result within a scan.
type StudentOutcome struct {
	StudentID  int64    `json:"student_id"`
	Name       string   `json:"name"`
	Status     string   `json:"status"`
	Confidence *float64 `json:"confidence,omitempty"`
	FaceIndex  *int     `json:"face_index,omitempty"`
}

// PresentStudent is the response projection of a matched student. The
// frontend reads name and confidence from each entry.
type PresentStudent struct {
	StudentID  int64   `json:"student_id"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// AbsentStudent is the response projection of an enrolled student with no
// accepted match.
type AbsentStudent struct {
	StudentID int64  `json:"student_id"`
	Name      string `json:"name"`
}

// Result is the complete outcome of one scan.
type Result struct {
	ScanID         string                  `json:"scan_id"`
	ClassID        int64                   `json:"class_id"`
	Date           string                  `json:"date"`
	Message        string                  `json:"message"`
	FacesDetected  int                     `json:"faces_detected"`
	FacesMatched   int                     `json:"faces_matched"`
	FacesUnmatched int                     `json:"faces_unmatched"`
	Students       []StudentOutcome        `json:"students"`
	Present        []PresentStudent        `json:"present"`
	Absent         []AbsentStudent         `json:"absent"`
	Summary        *database.UpsertSummary `json:"-"`
	PresentCount   int                     `json:"present_count"`
	AbsentCount    int                     `json:"absent_count"`
	Unenrolled     int                     `json:"unenrolled_count"`
	Duration       time.Duration           `json:"-"`
	DurationMS     int64                   `json:"duration_ms"`
}

// FrameGrabber fetches a single frame from a class camera.
type FrameGrabber interface {
	Grab(ctx context.Context, cameraURL string) ([]byte, error)
}

// Orchestrator runs the scan pipeline.
type Orchestrator struct {
	detector  enrollment.Detector
	enrolled  *enrollment.Store
	recorder  *attendance.Recorder
	sis       database.SISReader
	grabber   FrameGrabber
	threshold float64
}

func NewOrchestrator(detector enrollment.Detector, enrolled *enrollment.Store, recorder *attendance.Recorder, sis database.SISReader, grabber FrameGrabber, threshold float64) *Orchestrator {
	return &Orchestrator{
		detector:  detector,
		enrolled:  enrolled,
		recorder:  recorder,
		sis:       sis,
		grabber:   grabber,
		threshold: threshold,
	}
}

// ScanPhoto runs the full pipeline on an uploaded group photo. Matched
// students are marked present, unmatched roster students absent. Zero
// detected faces is a valid outcome (an empty classroom), not an error.
func (o *Orchestrator) ScanPhoto(ctx context.Context, classID int64, date time.Time, imageData []byte, source string) (*Result, error) {
	scanID := uuid.New().String()
	start := time.Now()
	log.Printf("Scan %s: class %d, date %s", scanID, classID, database.DateOnly(date))

	// Validating. The date check comes first: a future date must be
	// rejected before any embedding extraction happens.
	if err := attendance.ValidateDate(date); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if len(imageData) == 0 {
		return nil, fmt.Errorf("%w: empty photo", ErrInvalidInput)
	}
	if _, _, err := extractor.ValidateImage(imageData); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	class, err := o.sis.GetClass(ctx, classID)
	if err != nil {
		return nil, o.phaseErr(scanID, PhaseValidating, err)
	}
	if class == nil {
		return nil, fmt.Errorf("%w: %d", ErrClassNotFound, classID)
	}

	index, err := o.enrolled.ClassRoster(ctx, classID)
	if err != nil {
		return nil, o.phaseErr(scanID, PhaseValidating, err)
	}
	if index.Roster.Len() == 0 {
		return nil, fmt.Errorf("%w: class %d", ErrRosterEmpty, classID)
	}

	// Extracting
	prepared, err := extractor.PrepareImage(imageData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	detected, err := o.detector.DetectFaces(ctx, prepared)
	if err != nil {
		return nil, o.phaseErr(scanID, PhaseExtracting, err)
	}
	if detected.FacesCount == 0 {
		log.Printf("Scan %s: no faces detected, marking all students absent", scanID)
	}

	// Matching
	matched := facematch.MatchRoster(detected.Faces, index.Roster, o.threshold)

	outcomes := buildOutcomes(index, matched)

	// Recording
	marks := make([]attendance.Mark, 0, len(outcomes))
	for _, outcome := range outcomes {
		if outcome.Status == OutcomeUnenrolled {
			continue
		}
		marks = append(marks, attendance.Mark{
			StudentID:  outcome.StudentID,
			Status:     outcome.Status,
			Confidence: outcome.Confidence,
		})
	}
	summary, err := o.recorder.Record(ctx, classID, date, marks, source)
	if err != nil {
		return nil, o.phaseErr(scanID, PhaseRecording, err)
	}

	// Completed
	result := &Result{
		ScanID:         scanID,
		ClassID:        classID,
		Date:           database.DateOnly(date),
		FacesDetected:  detected.FacesCount,
		FacesMatched:   len(matched.Matches),
		FacesUnmatched: len(matched.Unmatched),
		Students:       outcomes,
		Summary:        summary,
		Duration:       time.Since(start),
	}
	result.Present = make([]PresentStudent, 0)
	result.Absent = make([]AbsentStudent, 0)
	for _, outcome := range outcomes {
		switch outcome.Status {
		case OutcomePresent:
			result.PresentCount++
			result.Present = append(result.Present, PresentStudent{
				StudentID:  outcome.StudentID,
				Name:       outcome.Name,
				Confidence: *outcome.Confidence,
			})
		case OutcomeAbsent:
			result.AbsentCount++
			result.Absent = append(result.Absent, AbsentStudent{
				StudentID: outcome.StudentID,
				Name:      outcome.Name,
			})
		case OutcomeUnenrolled:
			result.Unenrolled++
		}
	}
	result.Message = result.summary()
	result.DurationMS = result.Duration.Milliseconds()

	log.Printf("Scan %s completed in %s: %d present, %d absent, %d unenrolled, %d unmatched faces",
		scanID, result.Duration.Round(time.Millisecond),
		result.PresentCount, result.AbsentCount, result.Unenrolled, result.FacesUnmatched)
	return result, nil
}

// ScanFeed grabs a single frame from the class camera and runs the photo
// pipeline on it.
func (o *Orchestrator) ScanFeed(ctx context.Context, classID int64, date time.Time) (*Result, error) {
	class, err := o.sis.GetClass(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up class %d: %w", classID, err)
	}
	if class == nil {
		return nil, fmt.Errorf("%w: %d", ErrClassNotFound, classID)
	}
	if class.CameraURL == "" {
		return nil, fmt.Errorf("%w: class %d", ErrNoCamera, classID)
	}

	frame, err := o.grabber.Grab(ctx, class.CameraURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}

	return o.ScanPhoto(ctx, classID, date, frame, database.SourceScan)
}

// summary builds the human-readable scan outcome shown by the frontend.
func (r *Result) summary() string {
	msg := fmt.Sprintf("Attendance scanned. %d students present, %d absent.",
		r.PresentCount, r.AbsentCount)
	if r.FacesDetected == 0 {
		msg = fmt.Sprintf("No faces detected. All %d enrolled students marked absent.", r.AbsentCount)
	}
	if r.Unenrolled > 0 {
		msg += fmt.Sprintf(" %d students have no face profile and were not marked.", r.Unenrolled)
	}
	return msg
}

func (o *Orchestrator) phaseErr(scanID, phase string, err error) error {
	log.Printf("Scan %s failed during %s: %v", scanID, phase, err)
	return fmt.Errorf("scan failed during %s: %w", phase, err)
}

// buildOutcomes folds the match result over the class roster: matched
// students are present, the rest of the roster absent, and students
// without a face profile are flagged unenrolled. Ordered by student ID,
// unenrolled last.
func buildOutcomes(index *enrollment.RosterIndex, matched facematch.Result) []StudentOutcome {
	byStudent := make(map[int64]facematch.Match, len(matched.Matches))
	for _, m := range matched.Matches {
		byStudent[m.StudentID] = m
	}

	var outcomes []StudentOutcome
	for _, entry := range index.Roster.Entries() {
		if m, ok := byStudent[entry.StudentID]; ok {
			confidence := m.Confidence
			faceIndex := m.Detection.FaceIndex
			outcomes = append(outcomes, StudentOutcome{
				StudentID:  entry.StudentID,
				Name:       entry.Name,
				Status:     OutcomePresent,
				Confidence: &confidence,
				FaceIndex:  &faceIndex,
			})
		} else {
			outcomes = append(outcomes, StudentOutcome{
				StudentID: entry.StudentID,
				Name:      entry.Name,
				Status:    OutcomeAbsent,
			})
		}
	}
	for _, student := range index.Unenrolled {
		outcomes = append(outcomes, StudentOutcome{
			StudentID: student.ID,
			Name:      student.FullName,
			Status:    OutcomeUnenrolled,
		})
	}
	return outcomes
}
