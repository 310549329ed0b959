package models

// Mode selects the processed view rendered next to the segmentation
type Mode string

const (
	ModeOptical  Mode = "optical"
	ModeInfrared Mode = "infrared"
	ModeXRay     Mode = "xray"
)

// ParseMode maps a request value onto a Mode. Matching is exact; anything
// unrecognized renders like optical.
func ParseMode(raw string) Mode {
	switch Mode(raw) {
	case ModeInfrared:
		return ModeInfrared
	case ModeXRay:
		return ModeXRay
	default:
		return ModeOptical
	}
}

// ProcessRequest carries the per-request knobs of a segmentation run
type ProcessRequest struct {
	Mode     Mode
	Clusters *int
	ImageURL string
}

// ClusterInfo is the interpretation of one non-empty cluster
type ClusterInfo struct {
	Label       string  `json:"label"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	AvgOptical  float64 `json:"avg_optical"`
	AvgInfrared float64 `json:"avg_infrared"`
	AvgXRay     float64 `json:"avg_xray"`
	Pixels      int     `json:"pixels"`
}

// ProcessResponse is the JSON document returned by POST /process
type ProcessResponse struct {
	BestK             int                 `json:"best_k"`
	Selection         string              `json:"selection"`
	SilhouetteScores  map[int]float64     `json:"silhouette_scores,omitempty"`
	ProcessedURL      string              `json:"processed_url"`
	SegmentedURL      string              `json:"segmented_url"`
	ClusterInfo       map[int]ClusterInfo `json:"cluster_info"`
	Mode              Mode                `json:"mode"`
	Width             int                 `json:"width"`
	Height            int                 `json:"height"`
	ProcessingTimeSec float64             `json:"processing_time_sec"`
}
