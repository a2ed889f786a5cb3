package embed

import (
	"encoding/binary"
	"math"

	"github.com/go-crypt/x/blake2b"
)

// NormalizeVector scales v to unit length.
// Returns a new vector. If the input is a zero vector, returns a zero vector.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	magnitude := norm(v)
	result := make([]float32, len(v))
	if magnitude == 0 {
		return result
	}
	for i, val := range v {
		result[i] = val / magnitude
	}
	return result
}

// Cosine returns the cosine similarity of a and b, or 0 if either is zero.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na, nb := norm(a), norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot / (na * nb)
}

func norm(v []float32) float32 {
	var sum float32
	for _, val := range v {
		sum += val * val
	}
	return float32(math.Sqrt(float64(sum)))
}

// indexEntry is one non-zero component of an index vector.
type indexEntry struct {
	pos  int
	sign float32
}

// indexVector derives the sparse ternary vector of word. It depends only on
// the word, the seed and the dimension, so it is never stored.
func indexVector(word string, seed uint64, dim, nonZero int) []indexEntry {
	h, _ := blake2b.New(64, nil)
	var seedBytes [8]byte
	binary.LittleEndian.PutUint64(seedBytes[:], seed)
	h.Write(seedBytes[:])
	h.Write([]byte(word))
	sum := h.Sum(nil)

	nonZero = min(nonZero, dim, len(sum)/3)
	entries := make([]indexEntry, 0, nonZero)
	used := make(map[int]struct{}, nonZero)
	for i := 0; len(entries) < nonZero && i+3 <= len(sum); i += 3 {
		pos := int(binary.LittleEndian.Uint16(sum[i:])) % dim
		if _, dup := used[pos]; dup {
			continue
		}
		used[pos] = struct{}{}
		sign := float32(1)
		if sum[i+2]&1 == 1 {
			sign = -1
		}
		entries = append(entries, indexEntry{pos: pos, sign: sign})
	}
	return entries
}
