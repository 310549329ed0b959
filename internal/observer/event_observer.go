package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// SegmentationEvent represents a pipeline event
type SegmentationEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	RequestID      string                 `json:"request_id,omitempty"`
	Source         string                 `json:"source,omitempty"`
	ImageURL       string                 `json:"image_url,omitempty"`
	Mode           string                 `json:"mode,omitempty"`
	K              int                    `json:"k,omitempty"`
	Selection      string                 `json:"selection,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of pipeline event
type EventType string

const (
	// SegmentationStarted when a request enters the pipeline
	SegmentationStarted EventType = "segmentation_started"
	// SegmentationCompleted when both outputs are stored
	SegmentationCompleted EventType = "segmentation_completed"
	// SegmentationFailed when any stage fails
	SegmentationFailed EventType = "segmentation_failed"
	// ImageFetched when a remote image is downloaded
	ImageFetched EventType = "image_fetched"
	// ImageFetchFailed when a remote image download fails
	ImageFetchFailed EventType = "image_fetch_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event SegmentationEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event SegmentationEvent)
}

// LoggingObserver logs pipeline events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles pipeline events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event SegmentationEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	if event.Source != "" {
		fields["source"] = event.Source
	}
	if event.ImageURL != "" {
		fields["image_url"] = event.ImageURL
	}
	if event.Mode != "" {
		fields["mode"] = event.Mode
	}
	if event.K > 0 {
		fields["k"] = event.K
		fields["selection"] = event.Selection
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case SegmentationStarted:
		entry.Info("Segmentation started")
	case SegmentationCompleted:
		entry.Info("Segmentation completed")
	case SegmentationFailed:
		entry.Error("Segmentation failed")
	case ImageFetched:
		entry.Debug("Image fetched successfully")
	case ImageFetchFailed:
		entry.Error("Image fetch failed")
	default:
		entry.Info("Segmentation event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// Metrics is a snapshot of the metrics observer
type Metrics struct {
	TotalRequests       int64            `json:"total_requests"`
	Successful          int64            `json:"successful"`
	Failed              int64            `json:"failed"`
	ImageFetches        int64            `json:"image_fetches"`
	ImageFetchFailures  int64            `json:"image_fetch_failures"`
	TotalProcessingTime time.Duration    `json:"total_processing_time"`
	AvgProcessingTime   time.Duration    `json:"avg_processing_time"`
	KDistribution       map[int]int64    `json:"k_distribution"`
	SelectionMethods    map[string]int64 `json:"selection_methods"`
	Modes               map[string]int64 `json:"modes"`
}

// MetricsObserver collects metrics from pipeline events
type MetricsObserver struct {
	mu                  sync.RWMutex
	totalRequests       int64
	successful          int64
	failed              int64
	fetches             int64
	fetchFailures       int64
	totalProcessingTime time.Duration
	kCounts             map[int]int64
	selections          map[string]int64
	modes               map[string]int64
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{
		kCounts:    make(map[int]int64),
		selections: make(map[string]int64),
		modes:      make(map[string]int64),
	}
}

// OnEvent handles pipeline events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event SegmentationEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case SegmentationStarted:
		o.totalRequests++
	case SegmentationCompleted:
		o.successful++
		o.totalProcessingTime += event.ProcessingTime
		o.kCounts[event.K]++
		o.selections[event.Selection]++
		o.modes[event.Mode]++
	case SegmentationFailed:
		o.failed++
	case ImageFetched:
		o.fetches++
	case ImageFetchFailed:
		o.fetchFailures++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() Metrics {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgProcessingTime := time.Duration(0)
	if o.successful > 0 {
		avgProcessingTime = o.totalProcessingTime / time.Duration(o.successful)
	}

	return Metrics{
		TotalRequests:       o.totalRequests,
		Successful:          o.successful,
		Failed:              o.failed,
		ImageFetches:        o.fetches,
		ImageFetchFailures:  o.fetchFailures,
		TotalProcessingTime: o.totalProcessingTime,
		AvgProcessingTime:   avgProcessingTime,
		KDistribution:       copyMap(o.kCounts),
		SelectionMethods:    copyMap(o.selections),
		Modes:               copyMap(o.modes),
	}
}

func copyMap[K comparable](m map[K]int64) map[K]int64 {
	out := make(map[K]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers delivers the event to every observer concurrently and
// returns once all have handled it. A panicking observer is logged and
// does not affect the others.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event SegmentationEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	var wg sync.WaitGroup
	for _, observer := range observers {
		wg.Add(1)
		go func(obs Observer) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
	wg.Wait()
}
