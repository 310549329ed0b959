package cluster

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// ErrDegenerateLabels is returned when a labelling has too few distinct
// clusters in the scored sample for a silhouette to be defined.
var ErrDegenerateLabels = errors.New("silhouette undefined for labelling")

// Silhouette returns the mean silhouette coefficient of a random sample of
// at most sampleSize points (all points when sampleSize <= 0). For each
// sampled point, a is its mean distance to the other sampled members of its
// cluster and b the smallest mean distance to another cluster's sampled
// members; the coefficient is (b-a)/max(a, b), and 0 for singletons.
func Silhouette(points []Vector, labels []int, k int, sampleSize int, seed uint64) (float64, error) {
	if len(points) != len(labels) {
		return 0, fmt.Errorf("silhouette: %d points but %d labels", len(points), len(labels))
	}

	idx := sampleIndices(len(points), sampleSize, seed)
	n := len(idx)

	counts := make([]int, k)
	distinct := 0
	for _, i := range idx {
		if counts[labels[i]] == 0 {
			distinct++
		}
		counts[labels[i]]++
	}
	if distinct < 2 || distinct > n-1 {
		return 0, fmt.Errorf("%w: %d distinct labels in %d samples", ErrDegenerateLabels, distinct, n)
	}

	// sums[s*k+c] accumulates distances from sample s to members of cluster c
	sums := make([]float64, n*k)
	for s := 0; s < n; s++ {
		ps := points[idx[s]]
		for t := s + 1; t < n; t++ {
			pt := points[idx[t]]
			d := floats.Distance(ps[:], pt[:], 2)
			sums[s*k+labels[idx[t]]] += d
			sums[t*k+labels[idx[s]]] += d
		}
	}

	var total float64
	for s := 0; s < n; s++ {
		own := labels[idx[s]]
		if counts[own] <= 1 {
			continue
		}
		a := sums[s*k+own] / float64(counts[own]-1)
		b := -1.0
		for c := 0; c < k; c++ {
			if c == own || counts[c] == 0 {
				continue
			}
			if m := sums[s*k+c] / float64(counts[c]); b < 0 || m < b {
				b = m
			}
		}
		if denom := max(a, b); denom > 0 {
			total += (b - a) / denom
		}
	}
	return total / float64(n), nil
}

// sampleIndices draws min(n, size) distinct indices without replacement
func sampleIndices(n, size int, seed uint64) []int {
	if size <= 0 || size >= n {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	// partial Fisher-Yates
	for i := 0; i < size; i++ {
		j := i + rng.IntN(n-i)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm[:size]
}
