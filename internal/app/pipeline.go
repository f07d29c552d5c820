package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/cache"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// Cache key namespaces, one per endpoint.
const (
	landmarksEndpoint = "landmarks"
	gesturesEndpoint  = "gestures"
)

// LandmarksResult is the raw landmark output for one image.
// Each landmark is [x_px, y_px, z, visibility]. Hands with non-finite
// coordinates cannot be written as JSON and are listed in Errors instead.
type LandmarksResult struct {
	Landmarks [][][4]float64 `json:"landmarks"`
	ImageSize capture.Size   `json:"image_size"`
	NumHands  int            `json:"num_hands"`
	Errors    []HandFailure  `json:"errors,omitempty"`
}

// HandFailure describes a detected hand that could not be classified.
type HandFailure struct {
	Index int    `json:"index"`
	Hand  string `json:"hand"`
	Error string `json:"error"`
}

// GesturesResult is the gesture output for one image.
// NumHands counts the hands that were classified.
type GesturesResult struct {
	Gestures []gesture.Result `json:"gestures"`
	NumHands int              `json:"num_hands"`
	Errors   []HandFailure    `json:"errors,omitempty"`
}

// DetectLandmarks decodes an image, runs hand detection and returns the
// landmarks scaled to pixel coordinates.
func (a *App) DetectLandmarks(ctx context.Context, image []byte) (*LandmarksResult, error) {
	key := cache.Key(landmarksEndpoint, image)
	var result LandmarksResult
	if a.cacheGet(ctx, key, &result) {
		return &result, nil
	}

	hands, size, err := a.detect(image)
	if err != nil {
		return nil, err
	}

	result = LandmarksResult{
		Landmarks: make([][][4]float64, 0, len(hands)),
		ImageSize: size,
	}
	for idx, h := range hands {
		scaled := h.Scaled(size.Width, size.Height)
		points := make([][4]float64, len(scaled))
		finite := true
		for i, p := range scaled {
			points[i] = [4]float64{p.X, p.Y, p.Z, p.Visibility}
			finite = finite && isFinite(points[i][:])
		}
		if !finite {
			result.Errors = append(result.Errors, HandFailure{
				Index: idx,
				Hand:  h.Handedness.Label,
				Error: "landmarks have non-finite coordinates",
			})
			continue
		}
		result.Landmarks = append(result.Landmarks, points)
	}
	result.NumHands = len(result.Landmarks)

	a.cachePut(ctx, key, &result)
	return &result, nil
}

// DetectGestures decodes an image, runs hand detection and classifies every
// detected hand. A hand with malformed landmarks is reported in Errors and
// does not affect the other hands. The classified hands are recorded under
// requestID when history is enabled.
func (a *App) DetectGestures(ctx context.Context, requestID string, image []byte) (*GesturesResult, error) {
	key := cache.Key(gesturesEndpoint, image)
	var result GesturesResult
	if !a.cacheGet(ctx, key, &result) {
		hands, _, err := a.detect(image)
		if err != nil {
			return nil, err
		}
		result = assemble(hands)
		a.cachePut(ctx, key, &result)
	}

	a.record(requestID, result.Gestures)
	return &result, nil
}

// assemble classifies the hands and packages the outcome.
func assemble(hands []detector.Hand) GesturesResult {
	results, failures := gesture.ClassifyHands(hands)

	out := GesturesResult{
		Gestures: results,
		NumHands: len(results),
	}
	for _, f := range failures {
		out.Errors = append(out.Errors, HandFailure{
			Index: f.Index,
			Hand:  f.Hand,
			Error: f.Error(),
		})
	}
	return out
}

func isFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (a *App) detect(image []byte) ([]detector.Hand, capture.Size, error) {
	frame, err := capture.DecodeFrame(image)
	if err != nil {
		return nil, capture.Size{}, err
	}
	defer frame.Close()

	hands, err := a.detectFrame(frame, image)
	if err != nil {
		return nil, capture.Size{}, err
	}
	return hands, frame.Size, nil
}

// detectFrame runs the detector on a decoded frame. Detectors that accept
// encoded bytes get the uploaded image unchanged instead.
func (a *App) detectFrame(frame *capture.Frame, image []byte) ([]detector.Hand, error) {
	var hands []detector.Hand
	var err error
	if ed, ok := a.Detector().(detector.EncodedDetector); ok && len(image) > 0 {
		hands, err = ed.DetectEncoded(image)
	} else {
		hands, err = a.Detector().Detect(&frame.Mat)
	}
	if err != nil {
		return nil, fmt.Errorf("detect hands: %w", err)
	}
	return hands, nil
}

// cacheGet loads a cached response into v. Cache failures count as misses.
func (a *App) cacheGet(ctx context.Context, key string, v any) bool {
	if a.config.Cache == nil {
		return false
	}

	data, ok, err := a.config.Cache.Get(ctx, key)
	if err != nil {
		log.Printf("Error reading cache: %v", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Printf("Error decoding cached result: %v", err)
		return false
	}
	return true
}

func (a *App) cachePut(ctx context.Context, key string, v any) {
	if a.config.Cache == nil {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Error encoding result for cache: %v", err)
		return
	}
	if err := a.config.Cache.Set(ctx, key, data); err != nil {
		log.Printf("Error writing cache: %v", err)
	}
}

// record saves classified hands to the history. Failures are logged only.
func (a *App) record(requestID string, results []gesture.Result) {
	if a.config.Store == nil || len(results) == 0 {
		return
	}
	if requestID == "" {
		requestID = uuid.New().String()
	}

	detections := make([]*store.Detection, len(results))
	for i, r := range results {
		detections[i] = &store.Detection{
			ID:         uuid.New().String(),
			RequestID:  requestID,
			HandIndex:  i,
			Hand:       r.Hand,
			Gesture:    string(r.Gesture),
			Confidence: r.Confidence,
		}
	}

	if err := a.config.Store.Detections().Create(detections); err != nil {
		log.Printf("Error recording detections for request %s: %v", requestID, err)
	}
}
