package cluster

import (
	"context"
	"sync"
)

// Selection methods
const (
	MethodOverride   = "override"
	MethodSilhouette = "silhouette"
	MethodDefault    = "default"
)

// Scheduler runs jobs asynchronously. Submit reports false when the job
// was not accepted, in which case the caller runs it itself.
type Scheduler interface {
	Submit(job func()) bool
}

// SelectorConfig bounds the cluster count search
type SelectorConfig struct {
	MinK       int
	MaxK       int
	DefaultK   int
	MinSamples int
	SampleSize int
	KMeans     Config
}

// DefaultSelectorConfig searches K in [2, 10] on sets of at least 50
// vectors, scoring a 2000-vector silhouette sample.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		MinK:       2,
		MaxK:       10,
		DefaultK:   3,
		MinSamples: 50,
		SampleSize: 2000,
		KMeans:     DefaultConfig(),
	}
}

// Selection is the chosen cluster count and how it was reached
type Selection struct {
	K      int
	Method string
	// Scores holds the silhouette of every candidate that scored
	Scores map[int]float64
	// Fit is the candidate clustering for K when the search produced one
	Fit *Result
}

// Selector chooses the number of clusters for a vector set
type Selector struct {
	cfg       SelectorConfig
	scheduler Scheduler
}

// NewSelector creates a selector; a nil scheduler scores candidates inline
func NewSelector(cfg SelectorConfig, scheduler Scheduler) *Selector {
	return &Selector{cfg: cfg, scheduler: scheduler}
}

// Clamp bounds k to the selector's [MinK, MaxK] range
func (s *Selector) Clamp(k int) int {
	return max(s.cfg.MinK, min(k, s.cfg.MaxK))
}

type candidate struct {
	fit   *Result
	score float64
	ok    bool
}

// Select returns the override clamped into range when one is given.
// Otherwise, for sets of at least MinSamples vectors, it clusters every K
// in range with K < len(points) and keeps the highest silhouette, the
// lowest K winning ties. Candidates that fail are skipped. Without a
// scoring candidate the result is DefaultK.
func (s *Selector) Select(ctx context.Context, points []Vector, override *int) (Selection, error) {
	if override != nil {
		return Selection{K: s.Clamp(*override), Method: MethodOverride}, nil
	}

	sel := Selection{K: s.cfg.DefaultK, Method: MethodDefault}
	if len(points) < s.cfg.MinSamples {
		return sel, nil
	}

	span := s.cfg.MaxK - s.cfg.MinK + 1
	if span <= 0 {
		return sel, nil
	}
	results := make([]candidate, span)

	var wg sync.WaitGroup
	for i := 0; i < span; i++ {
		k := s.cfg.MinK + i
		if len(points) <= k {
			continue
		}
		job := func() {
			defer wg.Done()
			results[i] = s.score(ctx, points, k)
		}
		wg.Add(1)
		if s.scheduler == nil || !s.scheduler.Submit(job) {
			job()
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return Selection{}, err
	}

	best := -1.0
	for i, c := range results {
		if !c.ok {
			continue
		}
		if sel.Scores == nil {
			sel.Scores = make(map[int]float64, span)
		}
		k := s.cfg.MinK + i
		sel.Scores[k] = c.score
		if c.score > best {
			best = c.score
			sel.K = k
			sel.Method = MethodSilhouette
			sel.Fit = c.fit
		}
	}
	return sel, nil
}

func (s *Selector) score(ctx context.Context, points []Vector, k int) candidate {
	cfg := s.cfg.KMeans
	// candidates already run concurrently
	cfg.Parallelism = 1
	fit, err := KMeans(ctx, points, k, cfg)
	if err != nil {
		return candidate{}
	}
	score, err := Silhouette(points, fit.Labels, k, s.cfg.SampleSize, cfg.Seed)
	if err != nil {
		return candidate{}
	}
	return candidate{fit: fit, score: score, ok: true}
}
