// Package cluster partitions feature vectors with seeded Lloyd k-means and
// chooses the cluster count by silhouette score.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// Dim is the number of synthetic bands in a feature vector
const Dim = 3

// Vector is one pixel's (optical, infrared, x-ray) response
type Vector [Dim]float64

// ErrInfeasibleK is returned when k is not smaller than the number of vectors
var ErrInfeasibleK = errors.New("cluster count infeasible for vector count")

// Config controls a k-means fit
type Config struct {
	// NInit is the number of independent initializations; the lowest
	// inertia run wins.
	NInit int
	// MaxIter caps Lloyd iterations per initialization.
	MaxIter int
	// Tol is relative to the mean per-dimension variance of the data.
	Tol float64
	// Seed fixes initialization i to PCG(Seed, i).
	Seed uint64
	// Parallelism bounds concurrent initializations; <= 1 runs them inline.
	Parallelism int
}

// DefaultConfig mirrors the classic n_init=10, max_iter=300, tol=1e-4 setup
func DefaultConfig() Config {
	return Config{
		NInit:       10,
		MaxIter:     300,
		Tol:         1e-4,
		Seed:        0,
		Parallelism: 1,
	}
}

// Result is the outcome of a k-means fit
type Result struct {
	K          int
	Labels     []int
	Centroids  []Vector
	Inertia    float64
	Iterations int
}

// Sizes returns the number of members per cluster
func (r *Result) Sizes() []int {
	sizes := make([]int, r.K)
	for _, l := range r.Labels {
		sizes[l]++
	}
	return sizes
}

// KMeans fits k clusters to points. The fit is a pure function of
// (points, k, cfg): parallel and sequential runs return identical results.
func KMeans(ctx context.Context, points []Vector, k int, cfg Config) (*Result, error) {
	if k < 1 || k >= len(points) {
		return nil, fmt.Errorf("%w: k=%d, vectors=%d", ErrInfeasibleK, k, len(points))
	}
	if cfg.NInit < 1 {
		cfg.NInit = 1
	}
	if cfg.MaxIter < 1 {
		cfg.MaxIter = 1
	}
	tol := absoluteTolerance(points, cfg.Tol)

	runs := make([]*Result, cfg.NInit)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, cfg.Parallelism))
	for i := 0; i < cfg.NInit; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(cfg.Seed, uint64(i)))
			r, err := lloyd(gctx, points, k, cfg.MaxIter, tol, rng)
			runs[i] = r
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	best := runs[0]
	for _, r := range runs[1:] {
		if r.Inertia < best.Inertia {
			best = r
		}
	}
	return best, nil
}

// absoluteTolerance scales tol by the mean per-dimension variance
func absoluteTolerance(points []Vector, tol float64) float64 {
	if tol <= 0 {
		return 0
	}
	col := make([]float64, len(points))
	var sum float64
	for d := 0; d < Dim; d++ {
		for i := range points {
			col[i] = points[i][d]
		}
		_, v := stat.PopMeanVariance(col, nil)
		sum += v
	}
	return tol * sum / Dim
}

// cancelCheckInterval is how many Lloyd iterations run between context checks
const cancelCheckInterval = 8

// lloyd runs one seeded k-means++ initialization followed by Lloyd
// iterations until labels stop changing, centroids move less than tol, or
// maxIter is reached. It stops early with the context error.
func lloyd(ctx context.Context, points []Vector, k, maxIter int, tol float64, rng *rand.Rand) (*Result, error) {
	centroids := seedPlusPlus(points, k, rng)
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = -1
	}

	sums := make([]Vector, k)
	counts := make([]int, k)
	iter := 0
	for iter < maxIter {
		if iter%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		iter++
		changed := assign(points, centroids, labels)
		if !changed {
			break
		}

		for c := range sums {
			sums[c] = Vector{}
			counts[c] = 0
		}
		for i, p := range points {
			l := labels[i]
			counts[l]++
			for d := 0; d < Dim; d++ {
				sums[l][d] += p[d]
			}
		}

		var shift float64
		for c := range centroids {
			// empty clusters keep their previous centroid
			if counts[c] == 0 {
				continue
			}
			var next Vector
			for d := 0; d < Dim; d++ {
				next[d] = sums[c][d] / float64(counts[c])
			}
			shift += sqDist(next, centroids[c])
			centroids[c] = next
		}
		if shift <= tol {
			break
		}
	}
	// labels must match the final centroids
	assign(points, centroids, labels)

	var inertia float64
	for i, p := range points {
		inertia += sqDist(p, centroids[labels[i]])
	}

	return &Result{
		K:          k,
		Labels:     labels,
		Centroids:  centroids,
		Inertia:    inertia,
		Iterations: iter,
	}, nil
}

// assign moves every point to its nearest centroid, lowest index on ties
func assign(points []Vector, centroids []Vector, labels []int) bool {
	changed := false
	for i, p := range points {
		best, bestDist := 0, math.Inf(1)
		for c := range centroids {
			if d := sqDist(p, centroids[c]); d < bestDist {
				best, bestDist = c, d
			}
		}
		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}
	return changed
}

// seedPlusPlus picks k initial centroids with D^2 weighting
func seedPlusPlus(points []Vector, k int, rng *rand.Rand) []Vector {
	centroids := make([]Vector, 0, k)
	centroids = append(centroids, points[rng.IntN(len(points))])

	dist := make([]float64, len(points))
	for i, p := range points {
		dist[i] = sqDist(p, centroids[0])
	}

	for len(centroids) < k {
		var total float64
		for _, d := range dist {
			total += d
		}

		idx := 0
		if total == 0 {
			idx = rng.IntN(len(points))
		} else {
			target := rng.Float64() * total
			var acc float64
			idx = len(points) - 1
			for i, d := range dist {
				acc += d
				if acc > target {
					idx = i
					break
				}
			}
		}

		c := points[idx]
		centroids = append(centroids, c)
		for i, p := range points {
			if d := sqDist(p, c); d < dist[i] {
				dist[i] = d
			}
		}
	}
	return centroids
}

func sqDist(a, b Vector) float64 {
	d0 := a[0] - b[0]
	d1 := a[1] - b[1]
	d2 := a[2] - b[2]
	return d0*d0 + d1*d1 + d2*d2
}
