package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/classlens/classlens/internal/attendance"
	"github.com/classlens/classlens/internal/database"
	"github.com/classlens/classlens/internal/web/middleware"
)

// AttendanceHandler reads and corrects attendance records.
type AttendanceHandler struct {
	recorder *attendance.Recorder
}

func NewAttendanceHandler(recorder *attendance.Recorder) *AttendanceHandler {
	return &AttendanceHandler{recorder: recorder}
}

// List handles GET /attendance. Supported query parameters: class_id,
// student_id, start_date, end_date (YYYY-MM-DD).
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.recorder.List(r.Context(), filter)
	if err != nil {
		log.Printf("Failed to list attendance: %v", err)
		respondDomainError(w, err)
		return
	}
	if records == nil {
		records = []database.AttendanceRecord{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"count":   len(records),
	})
}

// updateRequest is a teacher's manual correction.
type updateRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// Update handles PUT /attendance/{id}. The edited record becomes
// authoritative: later scans will not overwrite it.
func (h *AttendanceHandler) Update(w http.ResponseWriter, r *http.Request) {
	recordID, err := idParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	updated, err := h.recorder.Edit(r.Context(), recordID, req.Status, req.Notes)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if operator := middleware.OperatorFromContext(r.Context()); operator != "" {
		log.Printf("Attendance record %d corrected to %s by %s", recordID, updated.Status, sanitizeForLog(operator))
	}
	respondJSON(w, http.StatusOK, updated)
}

// Stats handles GET /attendance/stats/{studentId}. An optional class_id
// query parameter scopes the summary to one class.
func (h *AttendanceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	studentID, err := idParam(r, "studentId")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var classID int64
	if raw := r.URL.Query().Get("class_id"); raw != "" {
		classID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid class_id")
			return
		}
	}

	stats, err := h.recorder.Stats(r.Context(), studentID, classID)
	if err != nil {
		log.Printf("Failed to compute stats for student %d: %v", studentID, err)
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

func parseFilter(r *http.Request) (database.AttendanceFilter, error) {
	var filter database.AttendanceFilter
	q := r.URL.Query()

	for _, p := range []struct {
		name string
		dst  *int64
	}{
		{"class_id", &filter.ClassID},
		{"student_id", &filter.StudentID},
	} {
		if raw := q.Get(p.name); raw != "" {
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || v <= 0 {
				return filter, errParam(p.name)
			}
			*p.dst = v
		}
	}

	for _, p := range []struct {
		name string
		dst  *time.Time
	}{
		{"start_date", &filter.StartDate},
		{"end_date", &filter.EndDate},
	} {
		if raw := q.Get(p.name); raw != "" {
			v, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return filter, errParam(p.name)
			}
			*p.dst = v
		}
	}

	return filter, nil
}

type errParam string

func (e errParam) Error() string { return "invalid " + string(e) }
