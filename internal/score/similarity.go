// Package score holds the stateless similarity measures used by
// reconciliation and consolidation.
package score

import (
	"math"

	"github.com/pmezard/go-difflib/difflib"
)

// Semantic is the dot product of two vectors. For unit vectors this equals
// cosine similarity. Vectors of different length score 0.
func Semantic(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// Fuzzy is the SequenceMatcher ratio 2*M/T between two strings, taking the
// better of both argument orders so the result is symmetric. It is 1 only
// for identical strings.
func Fuzzy(a, b string) float64 {
	if a == b {
		return 1
	}
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	sa, sb := runeStrings(ra), runeStrings(rb)
	forward := difflib.NewMatcher(sa, sb).Ratio()
	backward := difflib.NewMatcher(sb, sa).Ratio()
	return math.Max(forward, backward)
}

func runeStrings(rs []rune) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}

// Unit scales v to unit length in place and returns it. A zero vector is
// returned unchanged.
func Unit(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}

// Mean returns the arithmetic mean of equal-length vectors, or nil when there
// are none. Vectors whose length differs from the first are ignored.
func Mean(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	sum := make([]float64, dim)
	n := 0
	for _, v := range vectors {
		if len(v) != dim {
			continue
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
		n++
	}
	out := make([]float32, dim)
	for i := range sum {
		out[i] = float32(sum[i] / float64(n))
	}
	return out
}
