// Package mariadb reads student, class and enrollment records straight
// from the school information system's MariaDB database. Access is
// strictly read-only.
package mariadb

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/classlens/classlens/internal/database"
)

type SIS struct {
	db *sql.DB
}

// NewSIS connects to the school information system using a standard
// MySQL DSN, e.g. "user:pass@tcp(sis-db:3306)/school?parseTime=true".
func NewSIS(dsn string) (*SIS, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open SIS database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("could not connect to SIS database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	return &SIS{db: db}, nil
}

func (s *SIS) Close() error {
	return s.db.Close()
}

func (s *SIS) GetStudent(ctx context.Context, id int64) (*database.Student, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, full_name FROM students WHERE id = ?`, id)

	var student database.Student
	if err := row.Scan(&student.ID, &student.Username, &student.FullName); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("could not query student %d: %w", id, err)
	}

	return &student, nil
}

func (s *SIS) GetClass(ctx context.Context, id int64) (*database.Class, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, COALESCE(camera_url, '') FROM classes WHERE id = ?`, id)

	var class database.Class
	if err := row.Scan(&class.ID, &class.Name, &class.CameraURL); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("could not query class %d: %w", id, err)
	}

	return &class, nil
}

func (s *SIS) GetEnrolledStudents(ctx context.Context, classID int64) ([]database.Student, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.username, s.full_name
		FROM students s
		JOIN enrollments e ON e.student_id = s.id
		WHERE e.class_id = ?
		ORDER BY s.id`, classID)
	if err != nil {
		return nil, fmt.Errorf("could not query enrollments for class %d: %w", classID, err)
	}
	defer rows.Close()

	return scanStudents(rows)
}

func (s *SIS) GetAllStudents(ctx context.Context) ([]database.Student, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, full_name FROM students ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("could not query students: %w", err)
	}
	defer rows.Close()

	return scanStudents(rows)
}

func scanStudents(rows *sql.Rows) ([]database.Student, error) {
	var students []database.Student
	for rows.Next() {
		var student database.Student
		if err := rows.Scan(&student.ID, &student.Username, &student.FullName); err != nil {
			return nil, fmt.Errorf("could not scan student row: %w", err)
		}
		students = append(students, student)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating student rows: %w", err)
	}

	return students, nil
}
