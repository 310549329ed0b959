package analyzer

import (
	"image"
	"time"

	"go-cosmic-inspector/internal/interpret"
	"go-cosmic-inspector/pkg/models"
)

// SegmentationResult is the output of one pipeline run
type SegmentationResult struct {
	K         int
	Selection string
	// Scores holds the silhouette of each candidate that scored
	Scores map[int]float64
	Mode   models.Mode
	Width  int
	Height int
	// Labels is the row-major cluster assignment grid
	Labels   []int
	Clusters []interpret.Record

	ModeView         *image.RGBA
	SegmentationView *image.RGBA

	Timestamp         time.Time
	ProcessingTimeSec float64
}

// ClusterInfo converts the interpretation records to the response shape
func (r *SegmentationResult) ClusterInfo() map[int]models.ClusterInfo {
	info := make(map[int]models.ClusterInfo, len(r.Clusters))
	for _, rec := range r.Clusters {
		info[rec.ClusterID] = models.ClusterInfo{
			Label:       rec.Label,
			Description: rec.Description,
			Icon:        rec.Icon,
			AvgOptical:  rec.Means.Optical,
			AvgInfrared: rec.Means.Infrared,
			AvgXRay:     rec.Means.XRay,
			Pixels:      rec.Pixels,
		}
	}
	return info
}
