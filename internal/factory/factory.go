package factory

import (
	"context"
	"fmt"

	"go-cosmic-inspector/internal/analyzer"
	"go-cosmic-inspector/internal/config"
	"go-cosmic-inspector/internal/storage"
)

// StorageType represents the output storage backends
type StorageType string

const (
	// LocalStorage writes outputs to the local file system
	LocalStorage StorageType = config.StorageLocal
	// AzureStorage uploads outputs to Azure blob storage
	AzureStorage StorageType = config.StorageAzure
)

// AnalyzerFactory creates segmentation analyzers
type AnalyzerFactory interface {
	CreateAnalyzer() (analyzer.SegmentationAnalyzer, error)
}

// StorageFactory creates output stores and image fetchers
type StorageFactory interface {
	CreateOutputStore(ctx context.Context, storageType StorageType) (storage.OutputStore, error)
	CreateImageFetcher() storage.ImageFetcher
}

// analyzerFactory implements AnalyzerFactory
type analyzerFactory struct {
	workers int
}

// NewAnalyzerFactory creates a new analyzer factory
func NewAnalyzerFactory(cfg *config.Config) AnalyzerFactory {
	return &analyzerFactory{workers: cfg.Workers}
}

// CreateAnalyzer creates an analyzer with its own worker pool
func (f *analyzerFactory) CreateAnalyzer() (analyzer.SegmentationAnalyzer, error) {
	return analyzer.NewSegmentationAnalyzer(f.workers)
}

// storageFactory implements StorageFactory
type storageFactory struct {
	cfg *config.Config
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config) StorageFactory {
	return &storageFactory{cfg: cfg}
}

// CreateOutputStore creates the output store for the given backend. The
// azure container is created when missing.
func (f *storageFactory) CreateOutputStore(ctx context.Context, storageType StorageType) (storage.OutputStore, error) {
	switch storageType {
	case LocalStorage:
		return storage.NewLocalStore(f.cfg.OutputDir, f.cfg.OutputURLPrefix)
	case AzureStorage:
		store, err := storage.NewAzureStore(f.cfg.AzureAccount, f.cfg.AzureKey, f.cfg.AzureContainer)
		if err != nil {
			return nil, fmt.Errorf("azure storage: %w", err)
		}
		if err := store.EnsureContainer(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// CreateImageFetcher creates the remote image fetcher
func (f *storageFactory) CreateImageFetcher() storage.ImageFetcher {
	return storage.NewHTTPImageFetcher(f.cfg.ImageFetchTimeout, f.cfg.MaxRequestBodySize)
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	AnalyzerFactory AnalyzerFactory
	StorageFactory  StorageFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{
		AnalyzerFactory: NewAnalyzerFactory(cfg),
		StorageFactory:  NewStorageFactory(cfg),
	}
}
