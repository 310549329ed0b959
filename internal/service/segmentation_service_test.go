package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go-cosmic-inspector/internal/analyzer"
	"go-cosmic-inspector/internal/cluster"
	apperrors "go-cosmic-inspector/internal/errors"
	"go-cosmic-inspector/internal/interpret"
	"go-cosmic-inspector/internal/logger"
	"go-cosmic-inspector/internal/observer"
	"go-cosmic-inspector/internal/repository"
	"go-cosmic-inspector/internal/storage"
	"go-cosmic-inspector/pkg/models"
)

type stubFetcher struct {
	img image.Image
	err error
}

func (s *stubFetcher) FetchImage(ctx context.Context, imageURL string) (image.Image, error) {
	return s.img, s.err
}

type recordingObserver struct {
	events []observer.SegmentationEvent
}

func (r *recordingObserver) OnEvent(ctx context.Context, event observer.SegmentationEvent) {
	r.events = append(r.events, event)
}

func (r *recordingObserver) GetObserverName() string { return "recorder" }

func (r *recordingObserver) types() []observer.EventType {
	out := make([]observer.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType
	}
	return out
}

type testEnv struct {
	svc      SegmentationService
	store    *storage.LocalStore
	metrics  *observer.MetricsObserver
	recorder *recordingObserver
}

func newTestEnv(t *testing.T, fetcher storage.ImageFetcher) *testEnv {
	t.Helper()

	a, err := analyzer.NewSegmentationAnalyzer(2)
	if err != nil {
		t.Fatalf("Failed to create analyzer: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	store, err := storage.NewLocalStore(t.TempDir(), "/outputs")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	metrics := observer.NewMetricsObserver()
	recorder := &recordingObserver{}
	publisher := observer.NewEventPublisher()
	publisher.Subscribe(metrics)
	publisher.Subscribe(recorder)

	svc := NewSegmentationService(
		repository.NewImageRepository(fetcher, nil),
		a,
		store,
		publisher,
		metrics,
		Options{MaxDimension: 20, Analysis: analyzer.FastOptions()},
	)
	return &testEnv{svc: svc, store: store, metrics: metrics, recorder: recorder}
}

func uniform(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func encode(t *testing.T, img image.Image) *bytes.Reader {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(buf.Bytes())
}

func TestProcessUpload_Success(t *testing.T) {
	env := newTestEnv(t, &stubFetcher{})
	white := uniform(20, 20, color.RGBA{255, 255, 255, 255})

	resp, err := env.svc.ProcessUpload(context.Background(), encode(t, white), models.ProcessRequest{Mode: models.ModeInfrared})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if resp.BestK != 3 || resp.Selection != cluster.MethodDefault {
		t.Errorf("Expected default K=3, got %d (%s)", resp.BestK, resp.Selection)
	}
	if resp.Mode != models.ModeInfrared {
		t.Errorf("Expected infrared mode, got %s", resp.Mode)
	}
	if resp.Width != 20 || resp.Height != 20 {
		t.Errorf("Expected 20x20, got %dx%d", resp.Width, resp.Height)
	}
	if len(resp.ClusterInfo) != 1 {
		t.Fatalf("Expected one cluster for a uniform image, got %d", len(resp.ClusterInfo))
	}
	for _, info := range resp.ClusterInfo {
		if info.Label != interpret.LabelBright || info.Pixels != 400 {
			t.Errorf("Unexpected cluster info %+v", info)
		}
	}

	for prefix, url := range map[string]string{"processed_": resp.ProcessedURL, "segmented_": resp.SegmentedURL} {
		name := strings.TrimPrefix(url, "/outputs/")
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".png") {
			t.Errorf("Unexpected output URL %q", url)
		}
		data, err := os.ReadFile(filepath.Join(env.store.Dir(), name))
		if err != nil {
			t.Fatalf("Output %q not written: %v", name, err)
		}
		decoded, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("Output %q is not a PNG: %v", name, err)
		}
		if decoded.Bounds().Dx() != 20 || decoded.Bounds().Dy() != 20 {
			t.Errorf("Output %q has bounds %v", name, decoded.Bounds())
		}
	}
	if strings.TrimPrefix(resp.ProcessedURL, "/outputs/processed_") != strings.TrimPrefix(resp.SegmentedURL, "/outputs/segmented_") {
		t.Errorf("Outputs should share a name stem: %q %q", resp.ProcessedURL, resp.SegmentedURL)
	}

	m := env.svc.Stats().Metrics
	if m.TotalRequests != 1 || m.Successful != 1 || m.Failed != 0 {
		t.Errorf("Unexpected metrics %+v", m)
	}
	if m.KDistribution[3] != 1 || m.Modes[string(models.ModeInfrared)] != 1 {
		t.Errorf("Unexpected distributions %+v", m)
	}
}

func TestProcessUpload_Override(t *testing.T) {
	env := newTestEnv(t, &stubFetcher{})
	img := uniform(20, 20, color.RGBA{0, 0, 0, 255})
	for y := 0; y < 20; y++ {
		for x := 10; x < 20; x++ {
			img.SetRGBA(x, y, color.RGBA{255, 255, 255, 255})
		}
	}
	k := 2

	resp, err := env.svc.ProcessUpload(context.Background(), encode(t, img), models.ProcessRequest{Mode: models.ModeOptical, Clusters: &k})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.BestK != 2 || resp.Selection != cluster.MethodOverride {
		t.Errorf("Expected override K=2, got %d (%s)", resp.BestK, resp.Selection)
	}
	if len(resp.SilhouetteScores) != 0 {
		t.Errorf("Override must skip scoring, got %v", resp.SilhouetteScores)
	}
	labels := map[string]int{}
	for _, info := range resp.ClusterInfo {
		labels[info.Label] += info.Pixels
	}
	if labels[interpret.LabelDarkSpace] != 200 || labels[interpret.LabelDust] != 200 {
		t.Errorf("Unexpected cluster split %v", labels)
	}
}

func TestProcessUpload_Undecodable(t *testing.T) {
	env := newTestEnv(t, &stubFetcher{})

	_, err := env.svc.ProcessUpload(context.Background(), strings.NewReader("not an image"), models.ProcessRequest{})
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if !errors.Is(err, repository.ErrUndecodableImage) {
		t.Errorf("Expected ErrUndecodableImage in chain, got %v", err)
	}

	m := env.svc.Stats().Metrics
	if m.TotalRequests != 1 || m.Failed != 1 || m.Successful != 0 {
		t.Errorf("Unexpected metrics %+v", m)
	}
	entries, _ := os.ReadDir(env.store.Dir())
	if len(entries) != 0 {
		t.Errorf("No outputs expected after a failure, found %d", len(entries))
	}
}

func TestProcessURL_Events(t *testing.T) {
	env := newTestEnv(t, &stubFetcher{img: uniform(10, 10, color.RGBA{30, 30, 30, 255})})
	ctx := logger.WithRequestID(context.Background(), "req-42")

	resp, err := env.svc.ProcessURL(ctx, models.ProcessRequest{ImageURL: "https://example.com/m42.png"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// 10x10 is fitted up to the 20 pixel bound
	if resp.Width != 20 || resp.Height != 20 {
		t.Errorf("Expected 20x20 after resize, got %dx%d", resp.Width, resp.Height)
	}

	want := []observer.EventType{observer.SegmentationStarted, observer.ImageFetched, observer.SegmentationCompleted}
	got := env.recorder.types()
	if len(got) != len(want) {
		t.Fatalf("Expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Event %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	for _, e := range env.recorder.events {
		if e.RequestID != "req-42" {
			t.Errorf("Event %s missing request id", e.EventType)
		}
	}

	m := env.svc.Stats().Metrics
	if m.ImageFetches != 1 || m.Successful != 1 {
		t.Errorf("Unexpected metrics %+v", m)
	}
}

func TestProcessURL_FetchFailure(t *testing.T) {
	env := newTestEnv(t, &stubFetcher{err: errors.New("connection refused")})

	_, err := env.svc.ProcessURL(context.Background(), models.ProcessRequest{ImageURL: "https://example.com/m42.png"})
	if !apperrors.IsType(err, apperrors.ErrorTypeNetwork) {
		t.Fatalf("Expected network error, got %v", err)
	}

	want := []observer.EventType{observer.SegmentationStarted, observer.ImageFetchFailed, observer.SegmentationFailed}
	got := env.recorder.types()
	if len(got) != len(want) {
		t.Fatalf("Expected events %v, got %v", want, got)
	}
	m := env.svc.Stats().Metrics
	if m.ImageFetchFailures != 1 || m.Failed != 1 {
		t.Errorf("Unexpected metrics %+v", m)
	}
}

func TestProcessURL_InvalidURL(t *testing.T) {
	env := newTestEnv(t, &stubFetcher{})

	_, err := env.svc.ProcessURL(context.Background(), models.ProcessRequest{ImageURL: "ftp://example.com/a.png"})
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Fatalf("Expected validation error, got %v", err)
	}
}

func TestProcessUpload_Cancelled(t *testing.T) {
	env := newTestEnv(t, &stubFetcher{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, err := env.svc.ProcessUpload(ctx, encode(t, uniform(20, 20, color.RGBA{90, 10, 200, 255})), models.ProcessRequest{})
	if err == nil {
		t.Fatal("Expected an error for an expired context")
	}
	if env.svc.Stats().Metrics.Failed != 1 {
		t.Error("Expected the failure to be counted")
	}
}

func TestStatsAndFetch(t *testing.T) {
	env := newTestEnv(t, &stubFetcher{})

	stats := env.svc.Stats()
	if stats.Storage != "local" {
		t.Errorf("Expected local backend, got %q", stats.Storage)
	}
	if stats.WorkerPool.Workers != 2 {
		t.Errorf("Expected 2 workers, got %d", stats.WorkerPool.Workers)
	}

	resp, err := env.svc.ProcessUpload(context.Background(), encode(t, uniform(8, 8, color.RGBA{200, 200, 200, 255})), models.ProcessRequest{})
	if err != nil {
		t.Fatal(err)
	}
	data, err := env.svc.Fetch(context.Background(), strings.TrimPrefix(resp.SegmentedURL, "/outputs/"))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Errorf("Fetched output is not a PNG: %v", err)
	}

	if _, err := env.svc.Fetch(context.Background(), "missing.png"); !errors.Is(err, storage.ErrOutputNotFound) {
		t.Errorf("Expected ErrOutputNotFound, got %v", err)
	}
}
