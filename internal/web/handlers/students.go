package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/classlens/classlens/internal/database"
	"github.com/classlens/classlens/internal/enrollment"
	"github.com/classlens/classlens/internal/facematch"
)

// StudentsHandler exposes the SIS student list with enrollment state and
// runs bulk re-embedding.
type StudentsHandler struct {
	sis      database.SISReader
	profiles database.ProfileReader
	store    *enrollment.Store
}

func NewStudentsHandler(sis database.SISReader, profiles database.ProfileReader, store *enrollment.Store) *StudentsHandler {
	return &StudentsHandler{sis: sis, profiles: profiles, store: store}
}

type studentEntry struct {
	database.Student
	Enrolled bool   `json:"enrolled"`
	Model    string `json:"model,omitempty"`
}

// LoadStudents handles POST /load-students: the full SIS student list,
// each flagged with whether a face profile exists. An optional "q" query
// parameter filters by name, ignoring case and diacritics so "novak"
// finds "Novák".
func (h *StudentsHandler) LoadStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.sis.GetAllStudents(r.Context())
	if err != nil {
		log.Printf("Failed to load students from SIS: %v", err)
		respondDomainError(w, err)
		return
	}

	if q := r.URL.Query().Get("q"); q != "" {
		needle := facematch.NormalizeStudentName(q)
		var filtered []database.Student
		for _, student := range students {
			if strings.Contains(facematch.NormalizeStudentName(student.FullName), needle) ||
				strings.Contains(facematch.NormalizeStudentName(student.Username), needle) {
				filtered = append(filtered, student)
			}
		}
		students = filtered
	}

	profiles, err := h.profiles.GetAllPrimary(r.Context())
	if err != nil {
		log.Printf("Failed to load face profiles: %v", err)
		respondDomainError(w, err)
		return
	}
	byStudent := make(map[int64]database.StoredProfile, len(profiles))
	for _, p := range profiles {
		byStudent[p.StudentID] = p
	}

	entries := make([]studentEntry, 0, len(students))
	enrolled := 0
	for _, student := range students {
		entry := studentEntry{Student: student}
		if p, ok := byStudent[student.ID]; ok {
			entry.Enrolled = true
			entry.Model = p.Model
			enrolled++
		}
		entries = append(entries, entry)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"students":       entries,
		"total":          len(entries),
		"enrolled_count": enrolled,
	})
}

// Reembed handles POST /facial-recognition/re-embed: recompute every
// stored profile's embedding with the current extractor model. Runs
// synchronously; the next scan picks up the new embeddings.
func (h *StudentsHandler) Reembed(w http.ResponseWriter, r *http.Request) {
	summary, err := h.store.ReembedAll(r.Context(), nil)
	if err != nil {
		log.Printf("Bulk re-embedding failed: %v", err)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}
