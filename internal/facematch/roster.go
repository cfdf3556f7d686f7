package facematch

import (
	"sort"

	"github.com/coder/hnsw"
)

const (
	// hnswMaxNeighbors (M) is the maximum number of neighbors per node.
	hnswMaxNeighbors = 16

	// hnswMinEmbeddings is the roster size at which an HNSW graph is built.
	// Small rosters are matched exhaustively; the graph only pays off once
	// a class has enough enrolled embeddings.
	hnswMinEmbeddings = 64

	// hnswSearchK is the number of nearest neighbors requested per query.
	// Candidates are re-scored exactly, so a small pool is enough.
	hnswSearchK = 10

	// hnswEfSearch is the search candidate pool size.
	hnswEfSearch = 100

	// hnswVerifyFloor guards against graph search failures. The greedy
	// search can miss the true neighborhood entirely, returning candidates
	// that re-score near zero while a genuine match exists in the roster.
	// When every candidate re-scores below this floor the graph result is
	// discarded and the roster is scanned exhaustively, so a student who is
	// in the photo is never silently marked absent. Genuine face matches
	// score well above this; unrelated faces well below.
	hnswVerifyFloor = 0.5
)

// rosterRef points an index node back to its roster entry and embedding.
type rosterRef struct {
	entry     int
	embedding int
}

// Roster is the searchable index over a class's enrolled embeddings.
// Entries are kept sorted by student ID so iteration order, and therefore
// tie-breaking, is deterministic for the same input.
type Roster struct {
	entries []RosterEntry
	graph   *hnsw.Graph[int64]
	refs    []rosterRef
}

// NewRoster builds a roster index from enrolled students. Entries without
// any embedding are dropped; callers surface those students separately.
func NewRoster(entries []RosterEntry) *Roster {
	kept := make([]RosterEntry, 0, len(entries))
	for _, e := range entries {
		if len(e.Embeddings) > 0 {
			kept = append(kept, e)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].StudentID < kept[j].StudentID })

	r := &Roster{entries: kept}

	total := 0
	for _, e := range kept {
		total += len(e.Embeddings)
	}
	if total < hnswMinEmbeddings {
		return r
	}

	g := hnsw.NewGraph[int64]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.EfSearch = hnswEfSearch
	g.Distance = hnsw.CosineDistance

	r.refs = make([]rosterRef, 0, total)
	for ei := range kept {
		for vi, vec := range kept[ei].Embeddings {
			if len(vec) == 0 {
				continue
			}
			id := int64(len(r.refs))
			g.Add(hnsw.MakeNode(id, vec))
			r.refs = append(r.refs, rosterRef{entry: ei, embedding: vi})
		}
	}
	r.graph = g
	return r
}

// Entries returns the indexed roster entries in stable student ID order.
func (r *Roster) Entries() []RosterEntry {
	return r.entries
}

// Len returns the number of indexed students.
func (r *Roster) Len() int {
	return len(r.entries)
}

// StudentIDs returns the IDs of all indexed students in ascending order.
func (r *Roster) StudentIDs() []int64 {
	ids := make([]int64, len(r.entries))
	for i, e := range r.entries {
		ids[i] = e.StudentID
	}
	return ids
}

// bestMatch finds the enrolled student whose embeddings are closest to the
// query, best-of-N over each student's reference set. Ties in confidence
// resolve to the lower student ID via the stable entry order.
func (r *Roster) bestMatch(query []float32) (entry int, confidence float64, ok bool) {
	if len(r.entries) == 0 || len(query) == 0 {
		return 0, 0, false
	}
	if r.graph != nil {
		return r.bestMatchHNSW(query)
	}
	return r.bestMatchExhaustive(query)
}

func (r *Roster) bestMatchExhaustive(query []float32) (int, float64, bool) {
	best := -1
	bestConf := 0.0
	for ei := range r.entries {
		for _, vec := range r.entries[ei].Embeddings {
			c := Confidence(CosineSimilarity(query, vec))
			if best < 0 || c > bestConf {
				best = ei
				bestConf = c
			}
		}
	}
	if best < 0 {
		return 0, 0, false
	}
	return best, bestConf, true
}

// bestMatchHNSW narrows candidates with the graph, then re-scores them
// exactly. A candidate pool whose best exact score is below the
// verification floor means the graph missed the query's neighborhood, so
// the roster is scanned exhaustively instead.
func (r *Roster) bestMatchHNSW(query []float32) (int, float64, bool) {
	k := hnswSearchK
	if k > len(r.refs) {
		k = len(r.refs)
	}
	neighbors := r.graph.Search(query, k)

	best := -1
	bestConf := 0.0
	for _, n := range neighbors {
		if n.Key < 0 || int(n.Key) >= len(r.refs) {
			continue
		}
		ref := r.refs[n.Key]
		c := Confidence(CosineSimilarity(query, r.entries[ref.entry].Embeddings[ref.embedding]))
		if best < 0 || c > bestConf || (c == bestConf && ref.entry < best) {
			best = ref.entry
			bestConf = c
		}
	}
	if best < 0 || bestConf < hnswVerifyFloor {
		return r.bestMatchExhaustive(query)
	}
	return best, bestConf, true
}
