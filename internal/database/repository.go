package database

import (
	"context"
)

// ProfileReader provides read-only access to stored face profiles.
type ProfileReader interface {
	// GetPrimary retrieves a student's primary profile, nil if none exists.
	GetPrimary(ctx context.Context, studentID int64) (*StoredProfile, error)
	// GetPrimaryByStudents retrieves primary profiles for a set of students.
	// Students without a profile are simply missing from the result.
	GetPrimaryByStudents(ctx context.Context, studentIDs []int64) ([]StoredProfile, error)
	// GetAllPrimary retrieves every primary profile, ordered by student ID.
	GetAllPrimary(ctx context.Context) ([]StoredProfile, error)
	// CountPrimary returns the number of students with a primary profile.
	CountPrimary(ctx context.Context) (int, error)
	// SearchNearest retrieves the primary profiles closest to the query
	// embedding, most similar first.
	SearchNearest(ctx context.Context, embedding []float32, limit int) ([]ProfileMatch, error)
}

// ProfileWriter provides write access to face profiles.
type ProfileWriter interface {
	ProfileReader

	// ReplacePrimary stores a new primary profile for the student, demoting
	// any existing primary to a non-primary audit row in the same
	// transaction. Returns the new profile ID.
	ReplacePrimary(ctx context.Context, profile StoredProfile) (int64, error)

	// UpdateEmbedding recomputes the embedding of an existing profile in
	// place. Used by bulk re-embedding; the photo reference is unchanged.
	UpdateEmbedding(ctx context.Context, profileID int64, embedding []float32, model string, dim int) error
}

// AttendanceReader provides read-only access to attendance records.
type AttendanceReader interface {
	// Get retrieves a record by ID, nil if not found.
	Get(ctx context.Context, id int64) (*AttendanceRecord, error)
	// List retrieves records matching the filter, newest date first.
	List(ctx context.Context, filter AttendanceFilter) ([]AttendanceRecord, error)
	// ListByClassDate retrieves all records for one class and date.
	ListByClassDate(ctx context.Context, classID int64, date string) ([]AttendanceRecord, error)
	// Stats summarizes a student's attendance, optionally scoped to a class.
	Stats(ctx context.Context, studentID, classID int64) (*AttendanceStats, error)
}

// AttendanceWriter provides write access to attendance records.
type AttendanceWriter interface {
	AttendanceReader

	// UpsertBatch writes all records in a single transaction, keyed by
	// (student, class, date). Rows whose existing record was written by a
	// teacher are left untouched and counted as protected. Either every
	// row is applied or none are.
	UpsertBatch(ctx context.Context, records []AttendanceRecord) (*UpsertSummary, error)

	// UpdateManual applies a teacher's edit to an existing record, marking
	// it authoritative against future scans.
	UpdateManual(ctx context.Context, id int64, status, notes, actor string) error
}

// SISReader provides read-only lookups against the school's student
// information system. The engine never writes to the SIS.
type SISReader interface {
	// GetStudent retrieves a student by ID, nil if not found.
	GetStudent(ctx context.Context, id int64) (*Student, error)
	// GetClass retrieves a class by ID, nil if not found.
	GetClass(ctx context.Context, id int64) (*Class, error)
	// GetEnrolledStudents retrieves all students enrolled in a class,
	// ordered by student ID.
	GetEnrolledStudents(ctx context.Context, classID int64) ([]Student, error)
	// GetAllStudents retrieves every student, ordered by student ID.
	GetAllStudents(ctx context.Context) ([]Student, error)
}
