package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/classlens/classlens/internal/database"
)

// AttendanceRepository provides PostgreSQL-backed attendance storage with
// keyed, teacher-protected upserts.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

const attendanceColumns = "id, student_id, class_id, attendance_date, status, confidence, source, marked_by, marked_at, notes"

// scanRecord reads one attendance row.
func scanRecord(row interface{ Scan(...any) error }) (*database.AttendanceRecord, error) {
	var rec database.AttendanceRecord
	var confidence sql.NullFloat64
	err := row.Scan(&rec.ID, &rec.StudentID, &rec.ClassID, &rec.Date, &rec.Status,
		&confidence, &rec.Source, &rec.MarkedBy, &rec.MarkedAt, &rec.Notes)
	if err != nil {
		return nil, err
	}
	if confidence.Valid {
		rec.Confidence = &confidence.Float64
	}
	return &rec, nil
}

func scanRecords(rows *sql.Rows) ([]database.AttendanceRecord, error) {
	var records []database.AttendanceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance records: %w", err)
	}
	return records, nil
}

// Get retrieves a record by ID, nil if not found.
func (r *AttendanceRepository) Get(ctx context.Context, id int64) (*database.AttendanceRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM attendance WHERE id = $1", attendanceColumns)

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query attendance record: %w", err)
	}
	return rec, nil
}

// List retrieves records matching the filter, newest date first.
func (r *AttendanceRepository) List(ctx context.Context, filter database.AttendanceFilter) ([]database.AttendanceRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM attendance WHERE 1=1", attendanceColumns)
	var args []any

	if filter.ClassID != 0 {
		args = append(args, filter.ClassID)
		query += fmt.Sprintf(" AND class_id = $%d", len(args))
	}
	if filter.StudentID != 0 {
		args = append(args, filter.StudentID)
		query += fmt.Sprintf(" AND student_id = $%d", len(args))
	}
	if !filter.StartDate.IsZero() {
		args = append(args, database.DateOnly(filter.StartDate))
		query += fmt.Sprintf(" AND attendance_date >= $%d", len(args))
	}
	if !filter.EndDate.IsZero() {
		args = append(args, database.DateOnly(filter.EndDate))
		query += fmt.Sprintf(" AND attendance_date <= $%d", len(args))
	}
	query += " ORDER BY attendance_date DESC, student_id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance list: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListByClassDate retrieves all records for one class and date.
func (r *AttendanceRepository) ListByClassDate(ctx context.Context, classID int64, date string) ([]database.AttendanceRecord, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM attendance WHERE class_id = $1 AND attendance_date = $2 ORDER BY student_id",
		attendanceColumns,
	)

	rows, err := r.pool.Query(ctx, query, classID, date)
	if err != nil {
		return nil, fmt.Errorf("query attendance by class and date: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Stats summarizes a student's attendance, optionally scoped to a class.
func (r *AttendanceRepository) Stats(ctx context.Context, studentID, classID int64) (*database.AttendanceStats, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'present')
		FROM attendance
		WHERE student_id = $1 AND ($2 = 0 OR class_id = $2)
	`

	var stats database.AttendanceStats
	if err := r.pool.QueryRow(ctx, query, studentID, classID).Scan(&stats.Total, &stats.Present); err != nil {
		return nil, fmt.Errorf("query attendance stats: %w", err)
	}
	stats.Absent = stats.Total - stats.Present
	if stats.Total > 0 {
		stats.Percentage = float64(stats.Present) / float64(stats.Total) * 100
	}
	return &stats, nil
}

// upsertQuery writes one record keyed by (student, class, date). The WHERE
// clause on the conflict update is what protects teacher edits: if the
// existing row was marked by a teacher no row is returned and nothing
// changes. RETURNING xmax = 0 distinguishes inserts from updates.
const upsertQuery = `
	INSERT INTO attendance (student_id, class_id, attendance_date, status, confidence, source, marked_by, marked_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	ON CONFLICT (student_id, class_id, attendance_date)
	DO UPDATE SET
		status = EXCLUDED.status,
		confidence = EXCLUDED.confidence,
		source = EXCLUDED.source,
		marked_by = EXCLUDED.marked_by,
		marked_at = NOW()
	WHERE attendance.marked_by <> 'teacher'
	RETURNING (xmax = 0)
`

// UpsertBatch writes all records in a single transaction. Either every row
// is applied or none are; partial attendance writes would be worse than none.
func (r *AttendanceRepository) UpsertBatch(ctx context.Context, records []database.AttendanceRecord) (*database.UpsertSummary, error) {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertQuery)
	if err != nil {
		return nil, fmt.Errorf("prepare attendance upsert: %w", err)
	}
	defer stmt.Close()

	var summary database.UpsertSummary
	for _, rec := range records {
		var confidence sql.NullFloat64
		if rec.Confidence != nil {
			confidence = sql.NullFloat64{Float64: *rec.Confidence, Valid: true}
		}

		var inserted bool
		err := stmt.QueryRowContext(ctx,
			rec.StudentID, rec.ClassID, database.DateOnly(rec.Date),
			rec.Status, confidence, rec.Source, rec.MarkedBy,
		).Scan(&inserted)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// Existing teacher edit is authoritative for this key.
			summary.Protected++
		case err != nil:
			return nil, fmt.Errorf("upsert attendance for student %d: %w", rec.StudentID, err)
		case inserted:
			summary.Created++
		default:
			summary.Updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit attendance upserts: %w", err)
	}
	return &summary, nil
}

// UpdateManual applies a teacher's edit to an existing record. The actor is
// recorded as 'teacher' which makes the row authoritative against scans.
func (r *AttendanceRepository) UpdateManual(ctx context.Context, id int64, status, notes, actor string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE attendance
		SET status = $1, notes = $2, source = $3, marked_by = $4, confidence = NULL, marked_at = NOW()
		WHERE id = $5
	`, status, notes, database.SourceManual, actor, id)
	if err != nil {
		return fmt.Errorf("update attendance record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update attendance result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("attendance record %d not found", id)
	}
	return nil
}
