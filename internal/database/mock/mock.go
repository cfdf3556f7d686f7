// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/classlens/classlens/internal/database"
	"github.com/classlens/classlens/internal/facematch"
)

// MockProfileRepo is a mock implementation of database.ProfileWriter
type MockProfileRepo struct {
	mu       sync.RWMutex
	profiles map[int64]*database.StoredProfile // primary profile keyed by student ID
	history  []database.StoredProfile          // demoted profiles
	counter  int64

	// Track calls
	ReplacePrimaryCalls  []database.StoredProfile
	UpdateEmbeddingCalls []int64

	// Error injection
	GetPrimaryError      error
	GetAllError          error
	CountError           error
	SearchNearestError   error
	ReplacePrimaryError  error
	UpdateEmbeddingError error
}

// NewMockProfileRepo creates a new mock profile repository
func NewMockProfileRepo() *MockProfileRepo {
	return &MockProfileRepo{
		profiles: make(map[int64]*database.StoredProfile),
	}
}

// AddProfile seeds a primary profile for a student
func (m *MockProfileRepo) AddProfile(profile database.StoredProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	profile.ID = m.counter
	profile.IsPrimary = true
	m.profiles[profile.StudentID] = &profile
}

// GetPrimary retrieves a student's primary profile
func (m *MockProfileRepo) GetPrimary(ctx context.Context, studentID int64) (*database.StoredProfile, error) {
	if m.GetPrimaryError != nil {
		return nil, m.GetPrimaryError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profiles[studentID], nil
}

// GetPrimaryByStudents retrieves primary profiles for a set of students
func (m *MockProfileRepo) GetPrimaryByStudents(ctx context.Context, studentIDs []int64) ([]database.StoredProfile, error) {
	if m.GetPrimaryError != nil {
		return nil, m.GetPrimaryError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []database.StoredProfile
	for _, id := range studentIDs {
		if p, ok := m.profiles[id]; ok {
			results = append(results, *p)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].StudentID < results[j].StudentID })
	return results, nil
}

// GetAllPrimary retrieves every primary profile ordered by student ID
func (m *MockProfileRepo) GetAllPrimary(ctx context.Context) ([]database.StoredProfile, error) {
	if m.GetAllError != nil {
		return nil, m.GetAllError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []database.StoredProfile
	for _, p := range m.profiles {
		results = append(results, *p)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].StudentID < results[j].StudentID })
	return results, nil
}

// CountPrimary returns the number of students with a primary profile
func (m *MockProfileRepo) CountPrimary(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.profiles), nil
}

// SearchNearest retrieves the primary profiles closest to the query embedding
func (m *MockProfileRepo) SearchNearest(ctx context.Context, embedding []float32, limit int) ([]database.ProfileMatch, error) {
	if m.SearchNearestError != nil {
		return nil, m.SearchNearestError
	}
	if limit <= 0 {
		limit = 5
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []database.ProfileMatch
	for _, p := range m.profiles {
		matches = append(matches, database.ProfileMatch{
			StoredProfile: *p,
			Similarity:    facematch.Confidence(facematch.CosineSimilarity(embedding, p.Embedding)),
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].StudentID < matches[j].StudentID
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// ReplacePrimary stores a new primary profile, demoting any existing one
func (m *MockProfileRepo) ReplacePrimary(ctx context.Context, profile database.StoredProfile) (int64, error) {
	if m.ReplacePrimaryError != nil {
		return 0, m.ReplacePrimaryError
	}
	m.ReplacePrimaryCalls = append(m.ReplacePrimaryCalls, profile)
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.profiles[profile.StudentID]; ok {
		demoted := *old
		demoted.IsPrimary = false
		m.history = append(m.history, demoted)
	}
	m.counter++
	profile.ID = m.counter
	profile.IsPrimary = true
	m.profiles[profile.StudentID] = &profile
	return profile.ID, nil
}

// UpdateEmbedding recomputes an existing profile's embedding in place
func (m *MockProfileRepo) UpdateEmbedding(ctx context.Context, profileID int64, embedding []float32, model string, dim int) error {
	if m.UpdateEmbeddingError != nil {
		return m.UpdateEmbeddingError
	}
	m.UpdateEmbeddingCalls = append(m.UpdateEmbeddingCalls, profileID)
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.profiles {
		if p.ID == profileID {
			p.Embedding = embedding
			p.Model = model
			p.Dim = dim
			return nil
		}
	}
	return nil
}

// DemotedCount returns the number of profiles demoted by ReplacePrimary
func (m *MockProfileRepo) DemotedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.history)
}

// MockAttendanceRepo is a mock implementation of database.AttendanceWriter
type MockAttendanceRepo struct {
	mu      sync.RWMutex
	records map[string]*database.AttendanceRecord // keyed by student/class/date
	counter int64

	// Track calls
	UpsertBatchCalls  [][]database.AttendanceRecord
	UpdateManualCalls []int64

	// Error injection
	GetError          error
	ListError         error
	StatsError        error
	UpsertBatchError  error
	UpdateManualError error
}

// NewMockAttendanceRepo creates a new mock attendance repository
func NewMockAttendanceRepo() *MockAttendanceRepo {
	return &MockAttendanceRepo{
		records: make(map[string]*database.AttendanceRecord),
	}
}

func recordKey(rec database.AttendanceRecord) string {
	return fmt.Sprintf("%d/%d/%s", rec.StudentID, rec.ClassID, database.DateOnly(rec.Date))
}

// Get retrieves a record by ID
func (m *MockAttendanceRepo) Get(ctx context.Context, id int64) (*database.AttendanceRecord, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rec := range m.records {
		if rec.ID == id {
			found := *rec
			return &found, nil
		}
	}
	return nil, nil
}

// List retrieves records matching the filter
func (m *MockAttendanceRepo) List(ctx context.Context, filter database.AttendanceFilter) ([]database.AttendanceRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []database.AttendanceRecord
	for _, rec := range m.records {
		if filter.ClassID != 0 && rec.ClassID != filter.ClassID {
			continue
		}
		if filter.StudentID != 0 && rec.StudentID != filter.StudentID {
			continue
		}
		if !filter.StartDate.IsZero() && rec.Date.Before(filter.StartDate) {
			continue
		}
		if !filter.EndDate.IsZero() && rec.Date.After(filter.EndDate) {
			continue
		}
		results = append(results, *rec)
	}
	sort.Slice(results, func(i, j int) bool {
		if !results[i].Date.Equal(results[j].Date) {
			return results[i].Date.After(results[j].Date)
		}
		return results[i].StudentID < results[j].StudentID
	})
	return results, nil
}

// ListByClassDate retrieves all records for one class and date
func (m *MockAttendanceRepo) ListByClassDate(ctx context.Context, classID int64, date string) ([]database.AttendanceRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []database.AttendanceRecord
	for _, rec := range m.records {
		if rec.ClassID == classID && database.DateOnly(rec.Date) == date {
			results = append(results, *rec)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].StudentID < results[j].StudentID })
	return results, nil
}

// Stats summarizes a student's attendance
func (m *MockAttendanceRepo) Stats(ctx context.Context, studentID, classID int64) (*database.AttendanceStats, error) {
	if m.StatsError != nil {
		return nil, m.StatsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &database.AttendanceStats{}
	for _, rec := range m.records {
		if rec.StudentID != studentID {
			continue
		}
		if classID != 0 && rec.ClassID != classID {
			continue
		}
		stats.Total++
		if rec.Status == database.StatusPresent {
			stats.Present++
		} else {
			stats.Absent++
		}
	}
	if stats.Total > 0 {
		stats.Percentage = float64(stats.Present) / float64(stats.Total) * 100
	}
	return stats, nil
}

// UpsertBatch writes all records, honoring teacher-edit protection
func (m *MockAttendanceRepo) UpsertBatch(ctx context.Context, records []database.AttendanceRecord) (*database.UpsertSummary, error) {
	if m.UpsertBatchError != nil {
		return nil, m.UpsertBatchError
	}
	m.UpsertBatchCalls = append(m.UpsertBatchCalls, records)
	m.mu.Lock()
	defer m.mu.Unlock()

	summary := &database.UpsertSummary{}
	for _, rec := range records {
		key := recordKey(rec)
		existing, ok := m.records[key]
		if !ok {
			m.counter++
			rec.ID = m.counter
			stored := rec
			m.records[key] = &stored
			summary.Created++
			continue
		}
		if existing.MarkedBy == database.ActorTeacher {
			summary.Protected++
			continue
		}
		rec.ID = existing.ID
		stored := rec
		m.records[key] = &stored
		summary.Updated++
	}
	return summary, nil
}

// UpdateManual applies a teacher's edit to an existing record
func (m *MockAttendanceRepo) UpdateManual(ctx context.Context, id int64, status, notes, actor string) error {
	if m.UpdateManualError != nil {
		return m.UpdateManualError
	}
	m.UpdateManualCalls = append(m.UpdateManualCalls, id)
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range m.records {
		if rec.ID == id {
			rec.Status = status
			rec.Notes = notes
			rec.MarkedBy = actor
			rec.Source = database.SourceManual
			rec.Confidence = nil
			return nil
		}
	}
	return nil
}

// MockSIS is a mock implementation of database.SISReader
type MockSIS struct {
	mu          sync.RWMutex
	students    map[int64]*database.Student
	classes     map[int64]*database.Class
	enrollments map[int64][]int64 // class ID -> student IDs

	// Error injection
	GetStudentError  error
	GetClassError    error
	GetEnrolledError error
	GetAllError      error
}

// NewMockSIS creates a new mock SIS reader
func NewMockSIS() *MockSIS {
	return &MockSIS{
		students:    make(map[int64]*database.Student),
		classes:     make(map[int64]*database.Class),
		enrollments: make(map[int64][]int64),
	}
}

// AddStudent adds a student to the mock SIS
func (m *MockSIS) AddStudent(student database.Student) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[student.ID] = &student
}

// AddClass adds a class to the mock SIS
func (m *MockSIS) AddClass(class database.Class) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classes[class.ID] = &class
}

// Enroll adds a student to a class
func (m *MockSIS) Enroll(classID, studentID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrollments[classID] = append(m.enrollments[classID], studentID)
}

// GetStudent retrieves a student by ID
func (m *MockSIS) GetStudent(ctx context.Context, id int64) (*database.Student, error) {
	if m.GetStudentError != nil {
		return nil, m.GetStudentError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.students[id], nil
}

// GetClass retrieves a class by ID
func (m *MockSIS) GetClass(ctx context.Context, id int64) (*database.Class, error) {
	if m.GetClassError != nil {
		return nil, m.GetClassError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.classes[id], nil
}

// GetEnrolledStudents retrieves all students enrolled in a class
func (m *MockSIS) GetEnrolledStudents(ctx context.Context, classID int64) ([]database.Student, error) {
	if m.GetEnrolledError != nil {
		return nil, m.GetEnrolledError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []database.Student
	for _, id := range m.enrollments[classID] {
		if s, ok := m.students[id]; ok {
			results = append(results, *s)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

// GetAllStudents retrieves every student
func (m *MockSIS) GetAllStudents(ctx context.Context) ([]database.Student, error) {
	if m.GetAllError != nil {
		return nil, m.GetAllError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []database.Student
	for _, s := range m.students {
		results = append(results, *s)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

// Verify interface compliance
var _ database.ProfileWriter = (*MockProfileRepo)(nil)
var _ database.AttendanceWriter = (*MockAttendanceRepo)(nil)
var _ database.SISReader = (*MockSIS)(nil)
