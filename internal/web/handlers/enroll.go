package handlers

import (
	"log"
	"net/http"

	"github.com/classlens/classlens/internal/enrollment"
)

// EnrollHandler registers student reference photos.
type EnrollHandler struct {
	store *enrollment.Store
}

func NewEnrollHandler(store *enrollment.Store) *EnrollHandler {
	return &EnrollHandler{store: store}
}

// UploadPhoto handles POST /students/{id}/upload-photo. The multipart
// photo must contain exactly one face; it becomes the student's primary
// face profile.
func (h *EnrollHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	studentID, err := idParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := readUploadedPhoto(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.store.Enroll(r.Context(), studentID, data)
	if err != nil {
		log.Printf("Enrollment failed for student %d: %v", studentID, err)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, profile)
}
