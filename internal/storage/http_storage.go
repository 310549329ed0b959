package storage

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	_ "golang.org/x/image/webp"
)

var (
	// ErrImageTooLarge is returned when a remote image exceeds the size limit
	ErrImageTooLarge = errors.New("image exceeds size limit")

	// ErrUndecodable is returned when the body is not a supported image
	ErrUndecodable = errors.New("failed to decode image")
)

type ImageFetcher interface {
	FetchImage(ctx context.Context, imageURL string) (image.Image, error)
}

// HTTPImageFetcher downloads and decodes remote images with retries
type HTTPImageFetcher struct {
	client   *http.Client
	maxBytes int64
	attempts int
	backoff  time.Duration
}

// NewHTTPImageFetcher creates an HTTP image fetcher bounded by timeout and
// maxBytes; maxBytes <= 0 disables the size limit.
func NewHTTPImageFetcher(timeout time.Duration, maxBytes int64) *HTTPImageFetcher {
	transport := &http.Transport{
		// Connection pooling for single image downloads
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
	}

	return &HTTPImageFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,

			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		maxBytes: maxBytes,
		attempts: 3,
		backoff:  time.Second,
	}
}

func (h *HTTPImageFetcher) FetchImage(ctx context.Context, imageURL string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	req.Header.Set("Accept", "image/jpeg, image/png, image/webp, image/gif, */*")
	req.Header.Set("User-Agent", "Go-Cosmic-Inspector/1.0")

	// Only transient failures (transport errors and 5xx) are retried
	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt < h.attempts; attempt++ {
		resp, err = h.client.Do(req)
		if err != nil {
			lastErr = err
			resp = nil
			if ctx.Err() != nil {
				break
			}
		} else if resp.StatusCode == http.StatusOK {
			break
		} else {
			resp.Body.Close()
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				lastErr = fmt.Errorf("client error: status code %d", resp.StatusCode)
				resp = nil
				break
			}
			lastErr = fmt.Errorf("server error: status code %d", resp.StatusCode)
			resp = nil
		}

		if attempt < h.attempts-1 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("failed to fetch image: %w", ctx.Err())
			case <-time.After(time.Duration(attempt+1) * h.backoff):
			}
		}
	}

	if resp == nil {
		if lastErr != nil {
			return nil, fmt.Errorf("failed to fetch image after %d attempts: %w", h.attempts, lastErr)
		}
		return nil, fmt.Errorf("failed to fetch image after %d attempts: unknown error", h.attempts)
	}
	defer resp.Body.Close()

	if h.maxBytes > 0 && resp.ContentLength > h.maxBytes {
		return nil, ErrImageTooLarge
	}
	var body io.Reader = resp.Body
	if h.maxBytes > 0 {
		body = &limitedReader{r: io.LimitReader(resp.Body, h.maxBytes+1), remaining: h.maxBytes + 1}
	}

	img, _, err := image.Decode(body)
	if err != nil {
		if lr, ok := body.(*limitedReader); ok && lr.remaining == 0 {
			return nil, ErrImageTooLarge
		}
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	return img, nil
}

// limitedReader tracks how much of the limit is left
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	return n, err
}
