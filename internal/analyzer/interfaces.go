package analyzer

import (
	"context"
	"image"
)

// SegmentationAnalyzer defines the main interface for image segmentation
type SegmentationAnalyzer interface {
	// Segment runs the full pipeline on an already resized image
	Segment(ctx context.Context, img *image.RGBA, options AnalysisOptions) (*SegmentationResult, error)

	// PoolStats reports worker pool activity
	PoolStats() PoolStats

	// Lifecycle management
	Close() error
}
