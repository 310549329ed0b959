package analyzer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"time"

	"go-cosmic-inspector/internal/cluster"
	apperrors "go-cosmic-inspector/internal/errors"
	"go-cosmic-inspector/internal/interpret"
	"go-cosmic-inspector/internal/logger"
	"go-cosmic-inspector/internal/render"
	"go-cosmic-inspector/internal/spectral"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// coreAnalyzer implements SegmentationAnalyzer and orchestrates all components
type coreAnalyzer struct {
	workerPool *WorkerPool
}

// NewSegmentationAnalyzer creates an analyzer backed by a pool of the given
// size; workers <= 0 uses the CPU count.
func NewSegmentationAnalyzer(workers int) (SegmentationAnalyzer, error) {
	workerPool := NewWorkerPool(workers)
	workerPool.Start()

	return &coreAnalyzer{
		workerPool: workerPool,
	}, nil
}

// Segment synthesizes the band maps, chooses K, clusters, interprets and
// renders. The mode view renders concurrently with clustering.
func (ca *coreAnalyzer) Segment(ctx context.Context, img *image.RGBA, options AnalysisOptions) (*SegmentationResult, error) {
	start := time.Now()

	if img == nil {
		return nil, apperrors.NewValidationError("Image has no pixels", spectral.ErrEmptyImage)
	}
	channels, err := spectral.Synthesize(img)
	if err != nil {
		return nil, apperrors.NewValidationError("Image has no pixels", err)
	}
	width, height := channels.Size()
	points := Features(channels)

	view := render.ViewFor(options.Mode)
	var modeView *image.RGBA
	var fit *cluster.Result
	var sel cluster.Selection

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		modeView = view.Render(img, channels)
		return nil
	})
	g.Go(func() error {
		var scheduler cluster.Scheduler
		if options.UseWorkerPool {
			scheduler = ca.workerPool
		}
		selector := cluster.NewSelector(options.selectorConfig(), scheduler)

		s, err := selector.Select(gctx, points, options.ClusterOverride)
		if err != nil {
			return err
		}
		sel = s
		if sel.Fit != nil {
			fit = sel.Fit
			return nil
		}

		cfg := options.kmeansConfig()
		if cfg.Parallelism <= 0 {
			cfg.Parallelism = runtime.NumCPU()
		}
		fit, err = cluster.KMeans(gctx, points, sel.K, cfg)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, classifyError(err)
	}

	logger.WithFields(logrus.Fields{
		"k":          sel.K,
		"selection":  sel.Method,
		"pixels":     len(points),
		"mode":       view.Name(),
		"iterations": fit.Iterations,
		"inertia":    fit.Inertia,
	}).Debug("Cluster count selected")

	return &SegmentationResult{
		K:                 fit.K,
		Selection:         sel.Method,
		Scores:            sel.Scores,
		Mode:              options.Mode,
		Width:             width,
		Height:            height,
		Labels:            fit.Labels,
		Clusters:          interpret.Interpret(points, fit.Labels, fit.K),
		ModeView:          modeView,
		SegmentationView:  render.SegmentationView(fit.Labels, width, height),
		Timestamp:         start,
		ProcessingTimeSec: time.Since(start).Seconds(),
	}, nil
}

// PoolStats reports worker pool activity
func (ca *coreAnalyzer) PoolStats() PoolStats {
	return ca.workerPool.GetStats()
}

// Close releases the worker pool
func (ca *coreAnalyzer) Close() error {
	ca.workerPool.Close()
	return nil
}

// Features flattens the band maps into one vector per pixel, row-major
func Features(ch *spectral.Channels) []cluster.Vector {
	points := make([]cluster.Vector, ch.Len())
	for i := range points {
		points[i] = cluster.Vector{ch.Optical.Data[i], ch.Infrared.Data[i], ch.XRay.Data[i]}
	}
	return points
}

// classifyError maps pipeline failures onto the application taxonomy
func classifyError(err error) error {
	switch {
	case errors.Is(err, cluster.ErrInfeasibleK):
		return apperrors.NewClusteringError("Cluster count is infeasible for this image", err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError("Segmentation timed out", err)
	case errors.Is(err, context.Canceled):
		return apperrors.NewProcessingError("Segmentation cancelled", err)
	default:
		return apperrors.NewInternalError(fmt.Sprintf("Segmentation failed: %v", err), err)
	}
}
