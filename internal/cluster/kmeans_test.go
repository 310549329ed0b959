package cluster

import (
	"context"
	"errors"
	"math/rand/v2"
	"reflect"
	"testing"
)

// blobs builds n points around each centre with a small deterministic jitter
func blobs(n int, centres ...Vector) []Vector {
	points := make([]Vector, 0, n*len(centres))
	state := uint32(7)
	jitter := func() float64 {
		state = state*1664525 + 1013904223
		return float64(state>>24)/255.0*6 - 3
	}
	for _, c := range centres {
		for i := 0; i < n; i++ {
			points = append(points, Vector{c[0] + jitter(), c[1] + jitter(), c[2] + jitter()})
		}
	}
	return points
}

func uniformPoints(n int, v Vector) []Vector {
	points := make([]Vector, n)
	for i := range points {
		points[i] = v
	}
	return points
}

func TestKMeans_SeparatesBlobs(t *testing.T) {
	points := blobs(40, Vector{20, 20, 20}, Vector{120, 130, 110}, Vector{230, 200, 240})

	res, err := KMeans(context.Background(), points, 3, DefaultConfig())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(res.Labels) != len(points) {
		t.Fatalf("Expected %d labels, got %d", len(points), len(res.Labels))
	}

	// every blob must map to a single, distinct label
	seen := map[int]bool{}
	for b := 0; b < 3; b++ {
		first := res.Labels[b*40]
		for i := b * 40; i < (b+1)*40; i++ {
			if res.Labels[i] != first {
				t.Fatalf("Blob %d split across clusters", b)
			}
		}
		if seen[first] {
			t.Fatalf("Two blobs share label %d", first)
		}
		seen[first] = true
	}

	for _, size := range res.Sizes() {
		if size != 40 {
			t.Errorf("Expected cluster size 40, got %d", size)
		}
	}
	if res.Inertia <= 0 {
		t.Errorf("Expected positive inertia, got %f", res.Inertia)
	}
}

func TestKMeans_LabelsInRange(t *testing.T) {
	points := blobs(25, Vector{0, 0, 0}, Vector{50, 50, 50}, Vector{100, 0, 100}, Vector{200, 200, 0})

	for k := 2; k <= 10; k++ {
		res, err := KMeans(context.Background(), points, k, DefaultConfig())
		if err != nil {
			t.Fatalf("k=%d: unexpected error: %v", k, err)
		}
		for i, l := range res.Labels {
			if l < 0 || l >= k {
				t.Fatalf("k=%d: label %d at %d out of range", k, l, i)
			}
		}
		if len(res.Centroids) != k {
			t.Errorf("k=%d: expected %d centroids, got %d", k, k, len(res.Centroids))
		}
	}
}

func TestKMeans_Deterministic(t *testing.T) {
	points := blobs(50, Vector{10, 40, 90}, Vector{90, 40, 10}, Vector{60, 60, 60})

	cfg := DefaultConfig()
	sequential, err := KMeans(context.Background(), points, 4, cfg)
	if err != nil {
		t.Fatal(err)
	}
	again, err := KMeans(context.Background(), points, 4, cfg)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Parallelism = 4
	parallel, err := KMeans(context.Background(), points, 4, cfg)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(sequential.Labels, again.Labels) {
		t.Error("Repeated fits produced different labels")
	}
	if !reflect.DeepEqual(sequential.Labels, parallel.Labels) || sequential.Inertia != parallel.Inertia {
		t.Error("Parallel fit differs from sequential fit")
	}
}

func TestKMeans_SameSeedSameCentroids(t *testing.T) {
	points := blobs(30, Vector{0, 0, 0}, Vector{255, 255, 255})
	cfg := DefaultConfig()
	cfg.NInit = 1

	a := lloydWithSeed(points, 2, cfg, 1)
	b := lloydWithSeed(points, 2, cfg, 1)
	if !reflect.DeepEqual(a.Centroids, b.Centroids) {
		t.Error("Same seed must give the same centroids")
	}
}

func lloydWithSeed(points []Vector, k int, cfg Config, seed uint64) *Result {
	cfg.Seed = seed
	res, _ := KMeans(context.Background(), points, k, cfg)
	return res
}

func TestKMeans_Infeasible(t *testing.T) {
	points := blobs(1, Vector{1, 2, 3}, Vector{4, 5, 6}, Vector{7, 8, 9})

	tests := []int{0, 3, 4, -1}
	for _, k := range tests {
		_, err := KMeans(context.Background(), points, k, DefaultConfig())
		if !errors.Is(err, ErrInfeasibleK) {
			t.Errorf("k=%d: expected ErrInfeasibleK, got %v", k, err)
		}
	}

	if _, err := KMeans(context.Background(), points, 2, DefaultConfig()); err != nil {
		t.Errorf("k=2 on 3 vectors should be feasible, got %v", err)
	}
}

func TestKMeans_UniformData(t *testing.T) {
	points := uniformPoints(120, Vector{80, 80, 80})

	res, err := KMeans(context.Background(), points, 3, DefaultConfig())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	sizes := res.Sizes()
	if sizes[0] != 120 || sizes[1] != 0 || sizes[2] != 0 {
		t.Errorf("Expected every point in cluster 0, got sizes %v", sizes)
	}
	if res.Inertia != 0 {
		t.Errorf("Expected zero inertia, got %f", res.Inertia)
	}
}

func TestKMeans_IterationCap(t *testing.T) {
	points := blobs(40, Vector{0, 0, 0}, Vector{40, 40, 40}, Vector{80, 80, 80})
	cfg := DefaultConfig()
	cfg.MaxIter = 1
	cfg.NInit = 2

	res, err := KMeans(context.Background(), points, 3, cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.Iterations != 1 {
		t.Errorf("Expected the cap to stop after 1 iteration, got %d", res.Iterations)
	}
}

func TestKMeans_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := KMeans(ctx, blobs(10, Vector{0, 0, 0}, Vector{9, 9, 9}), 2, DefaultConfig())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestLloyd_StopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	points := blobs(20, Vector{0, 0, 0}, Vector{90, 90, 90})
	rng := rand.New(rand.NewPCG(0, 0))
	if _, err := lloyd(ctx, points, 2, 300, 0, rng); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled from a running initialization, got %v", err)
	}

	res, err := lloyd(context.Background(), points, 2, 300, 0, rand.New(rand.NewPCG(0, 0)))
	if err != nil || res == nil || res.K != 2 {
		t.Errorf("Expected a fit with a live context, got %v, %v", res, err)
	}
}
