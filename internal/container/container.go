package container

import (
	"context"
	"fmt"
	"net/http"

	"go-cosmic-inspector/internal/analyzer"
	"go-cosmic-inspector/internal/config"
	"go-cosmic-inspector/internal/factory"
	"go-cosmic-inspector/internal/logger"
	"go-cosmic-inspector/internal/observer"
	"go-cosmic-inspector/internal/repository"
	"go-cosmic-inspector/internal/service"
	"go-cosmic-inspector/internal/storage"
	"go-cosmic-inspector/internal/transport"
	"go-cosmic-inspector/pkg/validation"

	"github.com/sirupsen/logrus"
)

// Container holds all application dependencies
type Container struct {
	config              *config.Config
	imageFetcher        storage.ImageFetcher
	outputStore         storage.OutputStore
	segmentAnalyzer     analyzer.SegmentationAnalyzer
	imageRepository     repository.ImageRepository
	events              *observer.EventPublisher
	metrics             *observer.MetricsObserver
	segmentationService service.SegmentationService
	handler             http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger.SetLevel(cfg.LogLevel)
	components := factory.NewComponentFactory(cfg)

	imageFetcher := components.StorageFactory.CreateImageFetcher()
	validator := validation.NewURLValidatorWithOptions([]string{"http", "https"}, cfg.AllowedImageHosts)
	imageRepository := repository.NewImageRepository(imageFetcher, validator)

	outputStore, err := components.StorageFactory.CreateOutputStore(ctx, factory.StorageType(cfg.StorageBackend))
	if err != nil {
		return nil, fmt.Errorf("failed to create output store: %w", err)
	}

	segmentAnalyzer, err := components.AnalyzerFactory.CreateAnalyzer()
	if err != nil {
		return nil, fmt.Errorf("failed to create analyzer: %w", err)
	}

	metrics := observer.NewMetricsObserver()
	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	analysis := analyzer.DefaultOptions().
		WithKMeans(cfg.KMeansInit, cfg.KMeansMaxIter).
		WithSeed(cfg.RandomSeed).
		WithSampleSize(cfg.SilhouetteSampleSize)
	analysis.MaxWorkers = cfg.Workers

	segmentationService := service.NewSegmentationService(
		imageRepository,
		segmentAnalyzer,
		outputStore,
		events,
		metrics,
		service.Options{MaxDimension: cfg.MaxDimension, Analysis: analysis},
	)
	handler := transport.NewHandler(segmentationService, cfg)

	logger.WithFields(logrus.Fields{
		"storage": outputStore.Backend(),
		"workers": segmentAnalyzer.PoolStats().Workers,
		"seed":    cfg.RandomSeed,
	}).Info("Container initialized")

	return &Container{
		config:              cfg,
		imageFetcher:        imageFetcher,
		outputStore:         outputStore,
		segmentAnalyzer:     segmentAnalyzer,
		imageRepository:     imageRepository,
		events:              events,
		metrics:             metrics,
		segmentationService: segmentationService,
		handler:             handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the segmentation service
func (c *Container) Service() service.SegmentationService {
	return c.segmentationService
}

// Close stops the analyzer worker pool
func (c *Container) Close() error {
	return c.segmentAnalyzer.Close()
}
