package analyzer

import (
	"go-cosmic-inspector/internal/cluster"
	"go-cosmic-inspector/pkg/models"
)

// AnalysisOptions provides flexible configuration for a segmentation run
type AnalysisOptions struct {
	// Rendering
	Mode models.Mode

	// Cluster count; nil selects automatically
	ClusterOverride *int
	MinClusters     int
	MaxClusters     int
	DefaultClusters int
	// Minimum pixel count for automatic selection
	MinSamples int

	// Clustering
	KMeansInit    int
	KMeansMaxIter int
	Tolerance     float64
	Seed          uint64

	// Silhouette sample; 0 scores every pixel
	SilhouetteSampleSize int

	// Performance options
	UseWorkerPool bool
	// Parallel initializations for the final fit; 0 uses the CPU count
	MaxWorkers int
}

// DefaultOptions returns default analysis options
func DefaultOptions() AnalysisOptions {
	sel := cluster.DefaultSelectorConfig()
	return AnalysisOptions{
		Mode:                 models.ModeOptical,
		MinClusters:          sel.MinK,
		MaxClusters:          sel.MaxK,
		DefaultClusters:      sel.DefaultK,
		MinSamples:           sel.MinSamples,
		KMeansInit:           sel.KMeans.NInit,
		KMeansMaxIter:        sel.KMeans.MaxIter,
		Tolerance:            sel.KMeans.Tol,
		Seed:                 sel.KMeans.Seed,
		SilhouetteSampleSize: sel.SampleSize,
		UseWorkerPool:        true,
		MaxWorkers:           0,
	}
}

// FastOptions trades selection accuracy for latency
func FastOptions() AnalysisOptions {
	opts := DefaultOptions()
	opts.KMeansInit = 3
	opts.KMeansMaxIter = 100
	opts.SilhouetteSampleSize = 500
	return opts
}

// WithMode sets the rendered view
func (opts AnalysisOptions) WithMode(mode models.Mode) AnalysisOptions {
	opts.Mode = mode
	return opts
}

// WithClusters fixes the cluster count; nil restores automatic selection
func (opts AnalysisOptions) WithClusters(k *int) AnalysisOptions {
	opts.ClusterOverride = k
	return opts
}

// WithKMeans sets the number of initializations and the iteration cap
func (opts AnalysisOptions) WithKMeans(nInit, maxIter int) AnalysisOptions {
	opts.KMeansInit = nInit
	opts.KMeansMaxIter = maxIter
	return opts
}

// WithSeed sets the base seed of every random choice
func (opts AnalysisOptions) WithSeed(seed uint64) AnalysisOptions {
	opts.Seed = seed
	return opts
}

// WithSampleSize sets the silhouette sample size
func (opts AnalysisOptions) WithSampleSize(n int) AnalysisOptions {
	opts.SilhouetteSampleSize = n
	return opts
}

// WithoutWorkerPool scores candidates on the calling goroutine
func (opts AnalysisOptions) WithoutWorkerPool() AnalysisOptions {
	opts.UseWorkerPool = false
	return opts
}

func (opts AnalysisOptions) kmeansConfig() cluster.Config {
	return cluster.Config{
		NInit:       opts.KMeansInit,
		MaxIter:     opts.KMeansMaxIter,
		Tol:         opts.Tolerance,
		Seed:        opts.Seed,
		Parallelism: opts.MaxWorkers,
	}
}

func (opts AnalysisOptions) selectorConfig() cluster.SelectorConfig {
	return cluster.SelectorConfig{
		MinK:       opts.MinClusters,
		MaxK:       opts.MaxClusters,
		DefaultK:   opts.DefaultClusters,
		MinSamples: opts.MinSamples,
		SampleSize: opts.SilhouetteSampleSize,
		KMeans:     opts.kmeansConfig(),
	}
}
