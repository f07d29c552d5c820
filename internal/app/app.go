// Package app wires the hand detector, the gesture classifier and the optional
// history store and response cache into the request pipeline served over HTTP.
package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/store"
)

// ErrHistoryDisabled is returned by history queries when no store is configured.
var ErrHistoryDisabled = errors.New("gesture history is disabled")

// ResultCache stores serialized responses keyed by endpoint and image digest.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Config holds configuration options for the application.
type Config struct {
	Detector detector.Detector
	Store    *store.Store // optional
	Cache    ResultCache  // optional
}

// App runs detection requests against a shared detector.
type App struct {
	config   Config
	detector detector.Detector
	mu       sync.RWMutex
}

// New creates a new App instance with the given configuration.
// A nil detector is replaced with an empty mock detector.
func New(config Config) *App {
	d := config.Detector
	if d == nil {
		d = detector.NewMockDetector()
	}
	return &App{
		config:   config,
		detector: d,
	}
}

// OpenDetector returns the detector for the named backend. When MediaPipe is
// requested but unavailable it falls back to the mock detector.
func OpenDetector(backend string, opts detector.Config) detector.Detector {
	if backend == "mock" {
		log.Println("Using mock hand detection")
		return detector.NewMockDetector()
	}

	mp, err := detector.NewMediaPipeDetector(opts)
	if err != nil {
		log.Printf("MediaPipe not available (%v), using mock detector", err)
		return detector.NewMockDetector()
	}
	log.Println("Using MediaPipe hand detection")
	return mp
}

// SetDetector sets the hand detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// HistoryEnabled reports whether classified gestures are recorded.
func (a *App) HistoryEnabled() bool {
	return a.config.Store != nil
}

// History returns the most recent recorded detections.
func (a *App) History(limit int) ([]*store.Detection, error) {
	if a.config.Store == nil {
		return nil, ErrHistoryDisabled
	}
	return a.config.Store.Detections().List(limit)
}

// Stats returns the number of recorded detections per gesture label.
func (a *App) Stats() (map[string]int, error) {
	if a.config.Store == nil {
		return nil, ErrHistoryDisabled
	}
	return a.config.Store.Detections().CountByGesture()
}

// PruneHistory removes detections older than retention.
func (a *App) PruneHistory(retention time.Duration) (int64, error) {
	if a.config.Store == nil {
		return 0, ErrHistoryDisabled
	}
	return a.config.Store.Detections().DeleteBefore(time.Now().Add(-retention))
}

// RunPruner prunes the history every interval until ctx is cancelled.
func (a *App) RunPruner(ctx context.Context, retention, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if n, err := a.PruneHistory(retention); err != nil {
			log.Printf("Error pruning history: %v", err)
		} else if n > 0 {
			log.Printf("Pruned %d detections older than %s", n, retention)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Close releases the detector.
func (a *App) Close() error {
	return a.Detector().Close()
}
