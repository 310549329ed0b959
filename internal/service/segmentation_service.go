package service

import (
	"context"
	"fmt"
	"image"
	"io"
	"time"

	"go-cosmic-inspector/internal/analyzer"
	apperrors "go-cosmic-inspector/internal/errors"
	"go-cosmic-inspector/internal/logger"
	"go-cosmic-inspector/internal/observer"
	"go-cosmic-inspector/internal/render"
	"go-cosmic-inspector/internal/repository"
	"go-cosmic-inspector/internal/spectral"
	"go-cosmic-inspector/internal/storage"
	"go-cosmic-inspector/pkg/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// SegmentationService runs the pipeline for uploads and remote images
type SegmentationService interface {
	ProcessUpload(ctx context.Context, r io.Reader, req models.ProcessRequest) (*models.ProcessResponse, error)
	ProcessURL(ctx context.Context, req models.ProcessRequest) (*models.ProcessResponse, error)
	Stats() Stats

	// Fetch returns a stored output by name
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// Stats is the document served by GET /stats
type Stats struct {
	Metrics    observer.Metrics   `json:"metrics"`
	WorkerPool analyzer.PoolStats `json:"worker_pool"`
	Storage    string             `json:"storage_backend"`
}

// Options configures the service
type Options struct {
	// MaxDimension bounds the longer side after resizing
	MaxDimension int
	// Analysis carries the clustering settings; mode and override are
	// replaced per request
	Analysis analyzer.AnalysisOptions
}

// segmentationService implements SegmentationService
type segmentationService struct {
	imageRepo repository.ImageRepository
	analyzer  analyzer.SegmentationAnalyzer
	store     storage.OutputStore
	events    observer.Subject
	metrics   *observer.MetricsObserver
	opts      Options
	now       func() time.Time
	newID     func() string
}

// NewSegmentationService creates a new segmentation service
func NewSegmentationService(
	imageRepository repository.ImageRepository,
	segmentationAnalyzer analyzer.SegmentationAnalyzer,
	store storage.OutputStore,
	events observer.Subject,
	metrics *observer.MetricsObserver,
	opts Options,
) SegmentationService {
	return &segmentationService{
		imageRepo: imageRepository,
		analyzer:  segmentationAnalyzer,
		store:     store,
		events:    events,
		metrics:   metrics,
		opts:      opts,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// ProcessUpload decodes an uploaded image and segments it
func (s *segmentationService) ProcessUpload(ctx context.Context, r io.Reader, req models.ProcessRequest) (*models.ProcessResponse, error) {
	start := s.now()
	s.publish(ctx, observer.SegmentationEvent{EventType: observer.SegmentationStarted, Source: repository.SourceUpload, Mode: string(req.Mode)})

	img, _, err := s.imageRepo.DecodeImage(r)
	if err != nil {
		return nil, s.fail(ctx, start, req, err)
	}
	return s.process(ctx, start, img, req)
}

// ProcessURL downloads the image named by req.ImageURL and segments it
func (s *segmentationService) ProcessURL(ctx context.Context, req models.ProcessRequest) (*models.ProcessResponse, error) {
	start := s.now()
	s.publish(ctx, observer.SegmentationEvent{EventType: observer.SegmentationStarted, Source: repository.SourceURL, ImageURL: req.ImageURL, Mode: string(req.Mode)})

	img, meta, err := s.imageRepo.FetchImage(ctx, req.ImageURL)
	if err != nil {
		s.publish(ctx, observer.SegmentationEvent{
			EventType:      observer.ImageFetchFailed,
			ImageURL:       req.ImageURL,
			ProcessingTime: s.now().Sub(start),
			ErrorMessage:   err.Error(),
		})
		return nil, s.fail(ctx, start, req, err)
	}
	s.publish(ctx, observer.SegmentationEvent{
		EventType:      observer.ImageFetched,
		ImageURL:       req.ImageURL,
		ProcessingTime: s.now().Sub(start),
		Success:        true,
		Metadata:       map[string]interface{}{"width": meta.Width, "height": meta.Height},
	})
	return s.process(ctx, start, img, req)
}

// Stats returns the aggregated metrics
func (s *segmentationService) Stats() Stats {
	stats := Stats{
		WorkerPool: s.analyzer.PoolStats(),
		Storage:    s.store.Backend(),
	}
	if s.metrics != nil {
		stats.Metrics = s.metrics.GetMetrics()
	}
	return stats
}

// Fetch returns a stored output by name
func (s *segmentationService) Fetch(ctx context.Context, name string) ([]byte, error) {
	return s.store.Fetch(ctx, name)
}

func (s *segmentationService) process(ctx context.Context, start time.Time, img image.Image, req models.ProcessRequest) (*models.ProcessResponse, error) {
	rgba, err := spectral.Resize(img, s.opts.MaxDimension)
	if err != nil {
		return nil, s.fail(ctx, start, req, apperrors.NewValidationError("Image has no pixels", err))
	}

	opts := s.opts.Analysis.WithMode(req.Mode).WithClusters(req.Clusters)
	result, err := s.analyzer.Segment(ctx, rgba, opts)
	if err != nil {
		return nil, s.fail(ctx, start, req, err)
	}

	processedURL, segmentedURL, err := s.saveOutputs(ctx, result)
	if err != nil {
		return nil, s.fail(ctx, start, req, err)
	}

	elapsed := s.now().Sub(start)
	response := &models.ProcessResponse{
		BestK:             result.K,
		Selection:         result.Selection,
		SilhouetteScores:  result.Scores,
		ProcessedURL:      processedURL,
		SegmentedURL:      segmentedURL,
		ClusterInfo:       result.ClusterInfo(),
		Mode:              result.Mode,
		Width:             result.Width,
		Height:            result.Height,
		ProcessingTimeSec: elapsed.Seconds(),
	}

	s.publish(ctx, observer.SegmentationEvent{
		EventType:      observer.SegmentationCompleted,
		ImageURL:       req.ImageURL,
		Mode:           string(result.Mode),
		K:              result.K,
		Selection:      result.Selection,
		ProcessingTime: elapsed,
		Success:        true,
		Metadata:       map[string]interface{}{"clusters": len(result.Clusters), "width": result.Width, "height": result.Height},
	})
	return response, nil
}

// saveOutputs encodes and stores both views under a shared name stem
func (s *segmentationService) saveOutputs(ctx context.Context, result *analyzer.SegmentationResult) (string, string, error) {
	stem := fmt.Sprintf("%d_%s", result.Timestamp.Unix(), s.newID()[:8])
	names := [2]string{"processed_" + stem + ".png", "segmented_" + stem + ".png"}
	views := [2]image.Image{result.ModeView, result.SegmentationView}
	var urls [2]string

	g, gctx := errgroup.WithContext(ctx)
	for i := range views {
		g.Go(func() error {
			data, err := render.EncodePNG(views[i])
			if err != nil {
				return apperrors.NewProcessingError("Failed to encode output", err)
			}
			url, err := s.store.Save(gctx, names[i], data)
			if err != nil {
				return apperrors.NewInternalError("Failed to store output", err)
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", "", err
	}
	return urls[0], urls[1], nil
}

func (s *segmentationService) fail(ctx context.Context, start time.Time, req models.ProcessRequest, err error) error {
	s.publish(ctx, observer.SegmentationEvent{
		EventType:      observer.SegmentationFailed,
		ImageURL:       req.ImageURL,
		Mode:           string(req.Mode),
		ProcessingTime: s.now().Sub(start),
		ErrorMessage:   err.Error(),
	})
	return err
}

func (s *segmentationService) publish(ctx context.Context, event observer.SegmentationEvent) {
	if s.events == nil {
		return
	}
	event.RequestID = logger.RequestID(ctx)
	s.events.NotifyObservers(ctx, event)
}
