package repository

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	apperrors "go-cosmic-inspector/internal/errors"
	"go-cosmic-inspector/internal/storage"
	"go-cosmic-inspector/pkg/validation"

	_ "golang.org/x/image/webp"
)

// Image sources
const (
	SourceUpload = "upload"
	SourceURL    = "url"
)

// imageRepository implements ImageRepository over uploads and an HTTP fetcher
type imageRepository struct {
	fetcher   storage.ImageFetcher
	validator *validation.URLValidator
}

// NewImageRepository creates a repository; a nil validator accepts any
// http or https URL.
func NewImageRepository(fetcher storage.ImageFetcher, validator *validation.URLValidator) ImageRepository {
	if validator == nil {
		validator = validation.NewURLValidator()
	}
	return &imageRepository{
		fetcher:   fetcher,
		validator: validator,
	}
}

// DecodeImage decodes any registered format (png, jpeg, gif, webp)
func (r *imageRepository) DecodeImage(rd io.Reader) (image.Image, *ImageMetadata, error) {
	img, format, err := image.Decode(bufio.NewReader(rd))
	if err != nil {
		return nil, nil, apperrors.NewValidationError("Failed to read image", fmt.Errorf("%w: %v", ErrUndecodableImage, err))
	}
	return checked(img, SourceUpload, format)
}

// FetchImage validates the URL and downloads the image
func (r *imageRepository) FetchImage(ctx context.Context, imageURL string) (image.Image, *ImageMetadata, error) {
	if err := r.ValidateImageURL(imageURL); err != nil {
		return nil, nil, err
	}
	img, err := r.fetcher.FetchImage(ctx, imageURL)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrUndecodable):
		return nil, nil, apperrors.NewValidationError("Failed to read image", err)
	case errors.Is(err, storage.ErrImageTooLarge):
		return nil, nil, apperrors.NewValidationError("Image exceeds size limit", err)
	case ctx.Err() != nil:
		return nil, nil, apperrors.NewTimeoutError("Image download timed out", err)
	default:
		return nil, nil, apperrors.NewNetworkError("Failed to fetch image", err)
	}
	return checked(img, SourceURL, "")
}

// ValidateImageURL validates if the provided URL is acceptable
func (r *imageRepository) ValidateImageURL(imageURL string) error {
	return r.validator.ValidateImageURL(imageURL)
}

func checked(img image.Image, source, format string) (image.Image, *ImageMetadata, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, nil, apperrors.NewValidationError("Image has no pixels", ErrEmptyImage)
	}
	return img, &ImageMetadata{Source: source, Format: format, Width: b.Dx(), Height: b.Dy()}, nil
}
