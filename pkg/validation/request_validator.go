package validation

import (
	"errors"
	"strconv"
	"strings"

	"go-cosmic-inspector/pkg/models"
)

// ParseClusterOverride reads the optional clusters form field. Empty or
// non-integer values yield nil, which selects the count automatically.
// Integers beyond the int range saturate; clamping is left to the selector.
func ParseClusterOverride(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	k, err := strconv.Atoi(raw)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return nil
	}
	return &k
}

// ParseProcessRequest builds the request knobs from raw form values
func ParseProcessRequest(mode, clusters, imageURL string) models.ProcessRequest {
	return models.ProcessRequest{
		Mode:     models.ParseMode(mode),
		Clusters: ParseClusterOverride(clusters),
		ImageURL: strings.TrimSpace(imageURL),
	}
}
