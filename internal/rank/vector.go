// Package rank converts parsed pages into normalized term vectors.
package rank

import (
	"math"
	"sort"
)

// Vector maps a stemmed term to its weight.
type Vector map[string]float64

// Term is a single vector entry.
type Term struct {
	Term   string
	Weight float64
}

// Max returns the largest weight, or 0 for an empty vector.
func (v Vector) Max() float64 {
	max := 0.0
	for _, w := range v {
		if w > max {
			max = w
		}
	}
	return max
}

// Terms returns the entries ordered by descending weight, then term.
func (v Vector) Terms() []Term {
	terms := make([]Term, 0, len(v))
	for term, w := range v {
		terms = append(terms, Term{Term: term, Weight: w})
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Weight != terms[j].Weight {
			return terms[i].Weight > terms[j].Weight
		}
		return terms[i].Term < terms[j].Term
	})
	return terms
}

// Top returns at most n entries of Terms.
func (v Vector) Top(n int) []Term {
	terms := v.Terms()
	if n >= 0 && len(terms) > n {
		terms = terms[:n]
	}
	return terms
}

// Merge returns a new vector holding the sum of a and b.
func Merge(a, b Vector) Vector {
	merged := make(Vector, len(a)+len(b))
	for term, w := range a {
		merged[term] = w
	}
	for term, w := range b {
		merged[term] = round4(merged[term] + w)
	}
	return merged
}

// normalize divides every weight by the maximum and rounds to four
// decimals. Weights that would round to zero are kept at the smallest
// representable value.
func normalize(acc map[string]float64) Vector {
	max := 0.0
	for _, w := range acc {
		if w > max {
			max = w
		}
	}

	v := make(Vector, len(acc))
	for term, w := range acc {
		n := round4(w / max)
		if n <= 0 {
			n = minWeight
		}
		v[term] = n
	}
	return v
}

const minWeight = 0.0001

func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}
