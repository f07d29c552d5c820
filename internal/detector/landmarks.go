// Package detector provides the hand landmark data model and the detectors that produce it.
package detector

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D is a landmark in the detector's normalized coordinate space.
// X and Y are conventionally in [0,1]; Z is relative to the wrist depth.
type Point3D struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Handedness is the detector's left/right classification of a hand.
type Handedness struct {
	Label string  `json:"label"` // "Left" or "Right"
	Score float64 `json:"score"`
}

// Hand is one detected hand: its landmarks in anatomical order and its handedness.
// Landmarks is a slice rather than an array so that malformed detector output
// reaches the classifier instead of being silently padded or truncated.
type Hand struct {
	Landmarks  []Point3D  `json:"landmarks"`
	Handedness Handedness `json:"handedness"`
}

// Scaled returns the landmarks with X and Y multiplied by the image width and height.
func (h Hand) Scaled(width, height int) []Point3D {
	points := make([]Point3D, len(h.Landmarks))
	for i, p := range h.Landmarks {
		points[i] = Point3D{
			X:          p.X * float64(width),
			Y:          p.Y * float64(height),
			Z:          p.Z,
			Visibility: p.Visibility,
		}
	}
	return points
}
