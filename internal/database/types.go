// Package database defines the stored types and repository interfaces for
// the attendance engine: face profiles owned by this service in PostgreSQL,
// and read-only student/class data from the school's SIS.
package database

import (
	"time"
)

// Attendance status values.
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
)

// Attendance record sources.
const (
	SourceScan        = "scan"
	SourcePhotoUpload = "photo_upload"
	SourceManual      = "manual"
)

// ActorTeacher marks records written by a teacher's manual edit. Such
// records are authoritative and never overwritten by an automated scan.
const ActorTeacher = "teacher"

// StoredProfile is one reference embedding for a student. A student has at
// most one primary profile used for matching; replaced profiles are kept
// non-primary for audit.
type StoredProfile struct {
	ID        int64
	StudentID int64
	Embedding []float32
	Model     string
	Dim       int
	PhotoPath string
	IsPrimary bool
	CreatedAt time.Time
}

// ProfileMatch is a stored profile scored against a query embedding.
type ProfileMatch struct {
	StoredProfile
	Similarity float64
}

// AttendanceRecord is one persisted attendance row, unique per
// (student, class, date).
type AttendanceRecord struct {
	ID         int64     `json:"id"`
	StudentID  int64     `json:"student_id"`
	ClassID    int64     `json:"class_id"`
	Date       time.Time `json:"date"`
	Status     string    `json:"status"`
	Confidence *float64  `json:"confidence,omitempty"`
	Source     string    `json:"source"`
	MarkedBy   string    `json:"marked_by"`
	MarkedAt   time.Time `json:"marked_at"`
	Notes      string    `json:"notes,omitempty"`
}

// AttendanceFilter narrows attendance queries.
type AttendanceFilter struct {
	ClassID   int64
	StudentID int64
	StartDate time.Time
	EndDate   time.Time
}

// AttendanceStats summarizes a student's attendance.
type AttendanceStats struct {
	Total      int     `json:"total_classes"`
	Present    int     `json:"present_count"`
	Absent     int     `json:"absent_count"`
	Percentage float64 `json:"attendance_percentage"`
}

// UpsertSummary reports what an attendance upsert batch changed.
type UpsertSummary struct {
	Created   int
	Updated   int
	Protected int // rows skipped because a teacher edit is authoritative
}

// Student is a read-only projection of a SIS student record.
type Student struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"name"`
}

// Class is a read-only projection of a SIS class record.
type Class struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CameraURL string `json:"-"` // snapshot URL for live scans, may be empty
}

// DateOnly formats a time as the attendance date key.
func DateOnly(t time.Time) string {
	return t.Format("2006-01-02")
}
