package handlers

import (
	"log"
	"net/http"

	"github.com/classlens/classlens/internal/database"
	"github.com/classlens/classlens/internal/scan"
)

// ScanHandler runs attendance scans over camera feeds and uploaded
// group photos.
type ScanHandler struct {
	orchestrator *scan.Orchestrator
}

func NewScanHandler(orchestrator *scan.Orchestrator) *ScanHandler {
	return &ScanHandler{orchestrator: orchestrator}
}

// ScanClass handles POST /facial-recognition/scan-class/{id}: grab one
// frame from the class camera and take attendance from it. An optional
// "attendance_date" query parameter backdates the scan.
func (h *ScanHandler) ScanClass(w http.ResponseWriter, r *http.Request) {
	classID, err := idParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	date, err := parseAttendanceDate(r.URL.Query().Get("attendance_date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.orchestrator.ScanFeed(r.Context(), classID, date)
	if err != nil {
		log.Printf("Feed scan failed for class %d: %v", classID, err)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// UploadClassPhoto handles POST /upload-class-photo/{id}: take attendance
// from an uploaded group photo. The multipart form carries the photo and
// an optional "attendance_date" field.
func (h *ScanHandler) UploadClassPhoto(w http.ResponseWriter, r *http.Request) {
	classID, err := idParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := readUploadedPhoto(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	date, err := parseAttendanceDate(r.FormValue("attendance_date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.orchestrator.ScanPhoto(r.Context(), classID, date, data, database.SourcePhotoUpload)
	if err != nil {
		log.Printf("Photo scan failed for class %d: %v", classID, err)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
