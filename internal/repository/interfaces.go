package repository

import (
	"context"
	"image"
	"io"
)

// ImageRepository defines the interface for image source access
type ImageRepository interface {
	// DecodeImage decodes an uploaded image
	DecodeImage(r io.Reader) (image.Image, *ImageMetadata, error)

	// FetchImage retrieves an image from a URL
	FetchImage(ctx context.Context, imageURL string) (image.Image, *ImageMetadata, error)

	// ValidateImageURL validates if the provided URL is acceptable
	ValidateImageURL(imageURL string) error
}

// ImageMetadata contains metadata about a decoded image
type ImageMetadata struct {
	Source string
	Format string
	Width  int
	Height int
}
