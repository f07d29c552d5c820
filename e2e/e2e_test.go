package e2e

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image/color"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
)

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *memoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func frame(t *testing.T, format imaging.Format, width, height int, shade uint8) string {
	t.Helper()
	img := imaging.New(width, height, color.NRGBA{R: shade, G: shade, B: shade, A: 255})
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		t.Fatalf("encode frame: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

type gesturesResponse struct {
	Gestures []struct {
		Hand       string  `json:"hand"`
		Gesture    string  `json:"gesture"`
		Confidence float64 `json:"confidence"`
	} `json:"gestures"`
	NumHands int  `json:"num_hands"`
	Success  bool `json:"success"`
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	mockDetector := detector.NewMockDetector()
	application := app.New(app.Config{
		Detector: mockDetector,
		Store:    s,
		Cache:    &memoryCache{data: make(map[string][]byte)},
	})
	defer application.Close()

	srv := server.New(server.Config{App: application})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	detect := func(t *testing.T, path, image string) *http.Response {
		t.Helper()
		body, _ := json.Marshal(map[string]string{"image": image})
		resp, err := client.Post(ts.URL+path, "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("POST %s error = %v", path, err)
		}
		return resp
	}

	t.Run("Health", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/health")
		if err != nil {
			t.Fatalf("health error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
	})

	// Each case uses a distinct frame so the cache never answers for a
	// different detector state.
	cases := []struct {
		name    string
		hand    detector.Hand
		format  imaging.Format
		shade   uint8
		gesture string
	}{
		{"ClosedFist", detector.ClosedFistLandmarks(), imaging.JPEG, 10, "closed_fist"},
		{"OpenHand", detector.OpenPalmLandmarks(), imaging.PNG, 40, "open_hand"},
		{"Peace", detector.PeaceLandmarks(), imaging.JPEG, 70, "peace"},
		{"Pointing", detector.PointingLandmarks(), imaging.PNG, 100, "pointing"},
		{"ThumbsUp", detector.ThumbsUpLandmarks(), imaging.JPEG, 130, "thumbs_up"},
	}

	for _, tc := range cases {
		t.Run("Detect"+tc.name, func(t *testing.T) {
			mockDetector.SetHands([]detector.Hand{tc.hand})

			resp := detect(t, "/detect_gesture", frame(t, tc.format, 48, 48, tc.shade))
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
			}

			var result gesturesResponse
			if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if !result.Success || result.NumHands != 1 {
				t.Fatalf("unexpected response %+v", result)
			}
			if result.Gestures[0].Gesture != tc.gesture {
				t.Errorf("gesture = %s, want %s", result.Gestures[0].Gesture, tc.gesture)
			}
			if result.Gestures[0].Hand != tc.hand.Handedness.Label {
				t.Errorf("hand = %s, want %s", result.Gestures[0].Hand, tc.hand.Handedness.Label)
			}
		})
	}

	t.Run("CachedFrame", func(t *testing.T) {
		mockDetector.SetHands([]detector.Hand{detector.OpenPalmLandmarks()})
		calls := mockDetector.Calls()

		// Same bytes as the ClosedFist case: answered from the cache.
		resp := detect(t, "/detect_gesture", frame(t, imaging.JPEG, 48, 48, 10))
		defer resp.Body.Close()

		var result gesturesResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if result.Gestures[0].Gesture != "closed_fist" {
			t.Errorf("gesture = %s, want cached closed_fist", result.Gestures[0].Gesture)
		}
		if mockDetector.Calls() != calls {
			t.Errorf("detector ran for a cached frame")
		}
	})

	t.Run("RawLandmarks", func(t *testing.T) {
		mockDetector.SetHands([]detector.Hand{detector.PeaceLandmarks(), detector.PointingLandmarks()})

		resp := detect(t, "/detect", frame(t, imaging.PNG, 320, 240, 200))
		defer resp.Body.Close()

		var result struct {
			Landmarks [][][4]float64 `json:"landmarks"`
			NumHands  int            `json:"num_hands"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if result.NumHands != 2 || len(result.Landmarks) != 2 {
			t.Fatalf("expected 2 hands, got %d", result.NumHands)
		}
		wrist := result.Landmarks[0][detector.Wrist]
		if wrist[0] != 160 || wrist[1] != 192 {
			t.Errorf("wrist = (%f, %f), want (160, 192)", wrist[0], wrist[1])
		}
	})

	t.Run("RejectsBadImage", func(t *testing.T) {
		resp := detect(t, "/detect_gesture", "%%%")
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
		}
	})

	t.Run("History", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/stats")
		if err != nil {
			t.Fatalf("stats error = %v", err)
		}
		defer resp.Body.Close()

		var stats struct {
			Counts map[string]int `json:"counts"`
			Total  int            `json:"total"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
			t.Fatalf("decode stats: %v", err)
		}

		// Five classified frames plus the cached repeat.
		if stats.Total != 6 {
			t.Errorf("total = %d, want 6", stats.Total)
		}
		if stats.Counts["closed_fist"] != 2 {
			t.Errorf("closed_fist = %d, want 2", stats.Counts["closed_fist"])
		}

		resp, err = client.Get(ts.URL + "/api/history?limit=3")
		if err != nil {
			t.Fatalf("history error = %v", err)
		}
		defer resp.Body.Close()

		var history struct {
			Detections []map[string]any `json:"detections"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
			t.Fatalf("decode history: %v", err)
		}
		if len(history.Detections) != 3 {
			t.Errorf("history length = %d, want 3", len(history.Detections))
		}
	})
}
