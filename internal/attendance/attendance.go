// Package attendance turns scan results into persisted attendance records
// and applies teachers' manual corrections.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/classlens/classlens/internal/database"
)

var (
	// ErrFutureDate means the attendance date lies in the future.
	ErrFutureDate = errors.New("attendance date cannot be in the future")

	// ErrRecordNotFound means the attendance record does not exist.
	ErrRecordNotFound = errors.New("attendance record not found")

	// ErrInvalidStatus means the status is not a known attendance status.
	ErrInvalidStatus = errors.New("invalid attendance status")
)

// Mark is one student's attendance outcome from a scan.
type Mark struct {
	StudentID  int64
	Status     string
	Confidence *float64
}

// Recorder writes scan outcomes and manual edits through the attendance
// repository.
type Recorder struct {
	repo database.AttendanceWriter
}

func NewRecorder(repo database.AttendanceWriter) *Recorder {
	return &Recorder{repo: repo}
}

// Record persists one scan's outcome for a class and date. All marks are
// written in a single transaction keyed by (student, class, date), so
// re-running a scan updates records instead of duplicating them. Records
// previously edited by a teacher are left untouched.
func (r *Recorder) Record(ctx context.Context, classID int64, date time.Time, marks []Mark, source string) (*database.UpsertSummary, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}

	records := make([]database.AttendanceRecord, 0, len(marks))
	for _, mark := range marks {
		if mark.Status != database.StatusPresent && mark.Status != database.StatusAbsent {
			return nil, fmt.Errorf("%w: %q for student %d", ErrInvalidStatus, mark.Status, mark.StudentID)
		}
		records = append(records, database.AttendanceRecord{
			StudentID:  mark.StudentID,
			ClassID:    classID,
			Date:       date,
			Status:     mark.Status,
			Confidence: mark.Confidence,
			Source:     source,
			MarkedBy:   "system",
		})
	}

	if len(records) == 0 {
		return &database.UpsertSummary{}, nil
	}

	summary, err := r.repo.UpsertBatch(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("failed to record attendance: %w", err)
	}

	log.Printf("Recorded attendance for class %d on %s: %d created, %d updated, %d protected",
		classID, database.DateOnly(date), summary.Created, summary.Updated, summary.Protected)
	return summary, nil
}

// Edit applies a teacher's correction to an existing record. The record
// becomes authoritative: later scans will not overwrite it.
func (r *Recorder) Edit(ctx context.Context, recordID int64, status, notes string) (*database.AttendanceRecord, error) {
	if status != database.StatusPresent && status != database.StatusAbsent {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	existing, err := r.repo.Get(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to load record %d: %w", recordID, err)
	}
	if existing == nil {
		return nil, fmt.Errorf("%w: %d", ErrRecordNotFound, recordID)
	}

	if err := r.repo.UpdateManual(ctx, recordID, status, notes, database.ActorTeacher); err != nil {
		return nil, fmt.Errorf("failed to update record %d: %w", recordID, err)
	}

	updated, err := r.repo.Get(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload record %d: %w", recordID, err)
	}
	return updated, nil
}

// List retrieves attendance records matching the filter.
func (r *Recorder) List(ctx context.Context, filter database.AttendanceFilter) ([]database.AttendanceRecord, error) {
	return r.repo.List(ctx, filter)
}

// ClassDay retrieves all records for one class and date.
func (r *Recorder) ClassDay(ctx context.Context, classID int64, date time.Time) ([]database.AttendanceRecord, error) {
	return r.repo.ListByClassDate(ctx, classID, database.DateOnly(date))
}

// Stats summarizes a student's attendance, optionally scoped to a class.
func (r *Recorder) Stats(ctx context.Context, studentID, classID int64) (*database.AttendanceStats, error) {
	return r.repo.Stats(ctx, studentID, classID)
}

// ValidateDate rejects future dates. Comparison is date-granular so a scan
// running late in the day still passes in any timezone. Exported so callers
// can fail fast before doing expensive work on a date that will be rejected.
func ValidateDate(date time.Time) error {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if date.UTC().Truncate(24 * time.Hour).After(today) {
		return fmt.Errorf("%w: %s", ErrFutureDate, database.DateOnly(date))
	}
	return nil
}
