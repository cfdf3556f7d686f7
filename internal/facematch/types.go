// Package facematch implements the roster matcher: pure in-memory matching
// of detected face embeddings against a class roster. It never persists
// anything; absence is derived by the caller from the full roster.
package facematch

// Detection is one face found in a submitted image.
type Detection struct {
	FaceIndex int       `json:"face_index"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2] in raw pixel coordinates
	Embedding []float32 `json:"embedding"`
	DetScore  float64   `json:"det_score"`
}

// RosterEntry is one enrolled student with their reference embeddings.
// Multiple embeddings per student are matched best-of-N.
type RosterEntry struct {
	StudentID  int64
	Name       string
	Embeddings [][]float32
}

// Match pairs a detection with the enrolled student it was accepted for.
type Match struct {
	StudentID  int64
	Name       string
	Detection  Detection
	Confidence float64
}

// Result is the outcome of matching one image against a roster.
// Roster students without an accepted match are implicitly absent; that
// set difference is computed by the orchestrator, not here.
type Result struct {
	Matches   []Match
	Unmatched []Detection
}
