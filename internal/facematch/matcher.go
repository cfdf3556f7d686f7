package facematch

import "sort"

// candidate is a detection's best roster match before conflict resolution.
type candidate struct {
	detection  Detection
	entry      int
	confidence float64
}

// MatchRoster matches detected faces against a class roster with a
// confidence threshold.
//
// Each detection is scored against every enrolled student (best-of-N over
// that student's reference embeddings) and assigned its highest-scoring
// student. Assignment is globally one-to-one: when two detections both
// best-match the same student, only the higher-confidence one keeps the
// match and the loser joins the unmatched set. Detections below the
// threshold are never forced onto the nearest student. Ties resolve by
// ascending student ID, then ascending face index, so identical inputs
// always produce identical results.
func MatchRoster(detections []Detection, roster *Roster, threshold float64) Result {
	var result Result
	if roster == nil || roster.Len() == 0 {
		result.Unmatched = append(result.Unmatched, detections...)
		return result
	}

	// Per-student winner; losing detections fall through to unmatched.
	winners := make(map[int]candidate)
	for _, det := range detections {
		entry, conf, ok := roster.bestMatch(det.Embedding)
		if !ok || conf < threshold {
			result.Unmatched = append(result.Unmatched, det)
			continue
		}

		prev, taken := winners[entry]
		if !taken {
			winners[entry] = candidate{detection: det, entry: entry, confidence: conf}
			continue
		}
		if conf > prev.confidence ||
			(conf == prev.confidence && det.FaceIndex < prev.detection.FaceIndex) {
			winners[entry] = candidate{detection: det, entry: entry, confidence: conf}
			result.Unmatched = append(result.Unmatched, prev.detection)
		} else {
			result.Unmatched = append(result.Unmatched, det)
		}
	}

	entries := roster.Entries()
	for entry, c := range winners {
		result.Matches = append(result.Matches, Match{
			StudentID:  entries[entry].StudentID,
			Name:       entries[entry].Name,
			Detection:  c.detection,
			Confidence: c.confidence,
		})
	}
	sort.Slice(result.Matches, func(i, j int) bool {
		return result.Matches[i].StudentID < result.Matches[j].StudentID
	})
	sort.Slice(result.Unmatched, func(i, j int) bool {
		return result.Unmatched[i].FaceIndex < result.Unmatched[j].FaceIndex
	})
	return result
}
