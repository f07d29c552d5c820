package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []Hand
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []Hand) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]Hand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// fingerTips lists the tip index of each finger, thumb first.
var fingerTips = [5]int{ThumbTip, IndexTip, MiddleTip, RingTip, PinkyTip}

// buildHand places the wrist and each fingertip, then spreads the three joints
// below every tip evenly along the line from the wrist.
func buildHand(label string, score float64, wrist Point3D, tips [5]Point3D) Hand {
	points := make([]Point3D, NumLandmarks)
	points[Wrist] = wrist
	for f, tipIdx := range fingerTips {
		tip := tips[f]
		for j := 1; j <= 4; j++ {
			frac := float64(j) / 4
			points[tipIdx-4+j] = Point3D{
				X:          wrist.X + frac*(tip.X-wrist.X),
				Y:          wrist.Y + frac*(tip.Y-wrist.Y),
				Z:          wrist.Z + frac*(tip.Z-wrist.Z),
				Visibility: 1,
			}
		}
	}
	points[Wrist].Visibility = 1
	return Hand{
		Landmarks:  points,
		Handedness: Handedness{Label: label, Score: score},
	}
}

// ClosedFistLandmarks returns a hand with every fingertip curled against the palm.
func ClosedFistLandmarks() Hand {
	wrist := Point3D{X: 0.5, Y: 0.8}
	return buildHand("Right", 0.93, wrist, [5]Point3D{
		{X: 0.53, Y: 0.78, Z: -0.01},
		{X: 0.52, Y: 0.77, Z: -0.02},
		{X: 0.50, Y: 0.77, Z: -0.02},
		{X: 0.48, Y: 0.77, Z: -0.02},
		{X: 0.47, Y: 0.78, Z: -0.01},
	})
}

// ThumbsUpLandmarks returns a hand with only the thumb extended.
func ThumbsUpLandmarks() Hand {
	wrist := Point3D{X: 0.5, Y: 0.8}
	return buildHand("Right", 0.95, wrist, [5]Point3D{
		{X: 0.52, Y: 0.55},
		{X: 0.52, Y: 0.78, Z: -0.02},
		{X: 0.50, Y: 0.78, Z: -0.02},
		{X: 0.49, Y: 0.78, Z: -0.02},
		{X: 0.48, Y: 0.79, Z: -0.01},
	})
}

// OpenPalmLandmarks returns a hand with all five fingers extended.
func OpenPalmLandmarks() Hand {
	wrist := Point3D{X: 0.5, Y: 0.8}
	return buildHand("Right", 0.95, wrist, [5]Point3D{
		{X: 0.73, Y: 0.60, Z: 0.03},
		{X: 0.58, Y: 0.35},
		{X: 0.50, Y: 0.28},
		{X: 0.42, Y: 0.35},
		{X: 0.34, Y: 0.42},
	})
}

// PeaceLandmarks returns a hand that satisfies the peace rule: index and pinky
// extended with the pinky tip farther from the palm than the index tip.
func PeaceLandmarks() Hand {
	wrist := Point3D{X: 0.5, Y: 0.8}
	return buildHand("Left", 0.91, wrist, [5]Point3D{
		{X: 0.51, Y: 0.80},
		{X: 0.50, Y: 0.60},
		{X: 0.51, Y: 0.80},
		{X: 0.51, Y: 0.80},
		{X: 0.50, Y: 0.50},
	})
}

// PointingLandmarks returns a hand with only the index finger extended.
func PointingLandmarks() Hand {
	wrist := Point3D{X: 0.5, Y: 0.8}
	return buildHand("Left", 0.88, wrist, [5]Point3D{
		{X: 0.52, Y: 0.79},
		{X: 0.55, Y: 0.50},
		{X: 0.50, Y: 0.78},
		{X: 0.49, Y: 0.78},
		{X: 0.48, Y: 0.79},
	})
}
