package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/classlens/classlens/internal/database"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// ProfileRepository provides PostgreSQL-backed face profile storage.
type ProfileRepository struct {
	pool *Pool
}

// NewProfileRepository creates a new PostgreSQL profile repository.
func NewProfileRepository(pool *Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

const profileColumns = "id, student_id, embedding, model, dim, photo_path, is_primary, created_at"

// scanProfile reads one profile row.
func scanProfile(row interface{ Scan(...any) error }) (*database.StoredProfile, error) {
	var p database.StoredProfile
	var vec pgvector.Vector
	err := row.Scan(&p.ID, &p.StudentID, &vec, &p.Model, &p.Dim, &p.PhotoPath, &p.IsPrimary, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Embedding = vec.Slice()
	return &p, nil
}

// scanProfiles reads all profile rows from a result set.
func scanProfiles(rows *sql.Rows) ([]database.StoredProfile, error) {
	var profiles []database.StoredProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return profiles, nil
}

// GetPrimary retrieves a student's primary profile, nil if none exists.
func (r *ProfileRepository) GetPrimary(ctx context.Context, studentID int64) (*database.StoredProfile, error) {
	query := fmt.Sprintf("SELECT %s FROM face_profiles WHERE student_id = $1 AND is_primary", profileColumns)

	p, err := scanProfile(r.pool.QueryRow(ctx, query, studentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query primary profile: %w", err)
	}
	return p, nil
}

// GetPrimaryByStudents retrieves primary profiles for a set of students.
func (r *ProfileRepository) GetPrimaryByStudents(ctx context.Context, studentIDs []int64) ([]database.StoredProfile, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(
		"SELECT %s FROM face_profiles WHERE student_id = ANY($1) AND is_primary ORDER BY student_id",
		profileColumns,
	)

	rows, err := r.pool.Query(ctx, query, pq.Array(studentIDs))
	if err != nil {
		return nil, fmt.Errorf("query profiles by students: %w", err)
	}
	defer rows.Close()

	return scanProfiles(rows)
}

// GetAllPrimary retrieves every primary profile, ordered by student ID.
func (r *ProfileRepository) GetAllPrimary(ctx context.Context) ([]database.StoredProfile, error) {
	query := fmt.Sprintf("SELECT %s FROM face_profiles WHERE is_primary ORDER BY student_id", profileColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all primary profiles: %w", err)
	}
	defer rows.Close()

	return scanProfiles(rows)
}

// CountPrimary returns the number of students with a primary profile.
func (r *ProfileRepository) CountPrimary(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM face_profiles WHERE is_primary").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count primary profiles: %w", err)
	}
	return count, nil
}

// SearchNearest retrieves the primary profiles closest to the query
// embedding using pgvector cosine distance, most similar first.
func (r *ProfileRepository) SearchNearest(ctx context.Context, embedding []float32, limit int) ([]database.ProfileMatch, error) {
	if limit <= 0 {
		limit = 5
	}
	query := fmt.Sprintf(
		"SELECT %s, 1 - (embedding <=> $1) FROM face_profiles WHERE is_primary ORDER BY embedding <=> $1 LIMIT $2",
		profileColumns,
	)

	rows, err := r.pool.Query(ctx, query, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("query nearest profiles: %w", err)
	}
	defer rows.Close()

	var matches []database.ProfileMatch
	for rows.Next() {
		var m database.ProfileMatch
		var vec pgvector.Vector
		err := rows.Scan(&m.ID, &m.StudentID, &vec, &m.Model, &m.Dim, &m.PhotoPath, &m.IsPrimary, &m.CreatedAt, &m.Similarity)
		if err != nil {
			return nil, fmt.Errorf("scan nearest profile: %w", err)
		}
		m.Embedding = vec.Slice()
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nearest profiles: %w", err)
	}
	return matches, nil
}

// ReplacePrimary stores a new primary profile for the student, demoting any
// existing primary in the same transaction. The old row stays for audit but
// is no longer used for matching.
func (r *ProfileRepository) ReplacePrimary(ctx context.Context, profile database.StoredProfile) (int64, error) {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"UPDATE face_profiles SET is_primary = FALSE WHERE student_id = $1 AND is_primary",
		profile.StudentID,
	); err != nil {
		return 0, fmt.Errorf("demote previous primary: %w", err)
	}

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO face_profiles (student_id, embedding, model, dim, photo_path, is_primary)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING id
	`, profile.StudentID, pgvector.NewVector(profile.Embedding), profile.Model, profile.Dim, profile.PhotoPath).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert primary profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit profile replacement: %w", err)
	}
	return id, nil
}

// UpdateEmbedding recomputes the embedding of an existing profile in place.
func (r *ProfileRepository) UpdateEmbedding(ctx context.Context, profileID int64, embedding []float32, model string, dim int) error {
	result, err := r.pool.Exec(ctx,
		"UPDATE face_profiles SET embedding = $1, model = $2, dim = $3 WHERE id = $4",
		pgvector.NewVector(embedding), model, dim, profileID,
	)
	if err != nil {
		return fmt.Errorf("update embedding: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update embedding result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("profile %d not found", profileID)
	}
	return nil
}
