package simindex

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/linnemanlabs/sift/internal/intake"
)

// Similarity converts a non-negative distance to a similarity in (0,1],
// strictly decreasing in distance, rounded to 3 decimal places.
// Distance 0 means identical.
func Similarity(distance float64) float64 {
	return math.Round(1/(1+distance)*1000) / 1000
}

// Distance is the Euclidean distance between two vectors. Mismatched
// lengths yield +Inf so the pair can never rank as a neighbor.
func Distance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Candidate is an index entry considered for ranking.
type Candidate struct {
	ID       string
	Subject  string
	Category intake.Category
	Priority intake.Priority
	Vector   []float32
}

// Rank scores candidates against the query vector and returns at most
// topK neighbors with similarity >= minSimilarity, ordered by similarity
// descending, excluding excludeID.
func Rank(queryVec []float32, candidates []Candidate, excludeID string, topK int, minSimilarity float64) []intake.SimilarItem {
	neighbors := []intake.SimilarItem{}

	for _, c := range candidates {
		if c.ID == excludeID {
			continue
		}
		sim := Similarity(Distance(queryVec, c.Vector))
		if sim < minSimilarity {
			continue
		}
		neighbors = append(neighbors, intake.SimilarItem{
			ID:         c.ID,
			Similarity: sim,
			Subject:    c.Subject,
			Category:   c.Category,
			Priority:   c.Priority,
		})
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Similarity > neighbors[j].Similarity
	})

	if topK > 0 && len(neighbors) > topK {
		neighbors = neighbors[:topK]
	}
	return neighbors
}

// EncodeVector packs a vector as little-endian float32 bytes for storage.
func EncodeVector(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

// DecodeVector unpacks a vector encoded by EncodeVector.
func DecodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d not a multiple of 4", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}
