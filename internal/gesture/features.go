package gesture

import (
	"fmt"
	"math"

	"github.com/ayusman/mudra/internal/detector"
)

// Features holds the distance from each fingertip to the palm reference (the wrist).
type Features struct {
	Thumb  float64
	Index  float64
	Middle float64
	Ring   float64
	Pinky  float64
}

// ExtractFeatures measures the five fingertip to palm distances of a hand.
// It fails with ErrInvalidLandmarkSet unless there are exactly 21 landmarks
// with finite coordinates.
func ExtractFeatures(points []detector.Point3D) (Features, error) {
	if err := validate(points); err != nil {
		return Features{}, err
	}

	palm := points[detector.Wrist]
	return Features{
		Thumb:  distance3D(points[detector.ThumbTip], palm),
		Index:  distance3D(points[detector.IndexTip], palm),
		Middle: distance3D(points[detector.MiddleTip], palm),
		Ring:   distance3D(points[detector.RingTip], palm),
		Pinky:  distance3D(points[detector.PinkyTip], palm),
	}, nil
}

func validate(points []detector.Point3D) error {
	if len(points) != detector.NumLandmarks {
		return fmt.Errorf("%w: got %d landmarks, want %d", ErrInvalidLandmarkSet, len(points), detector.NumLandmarks)
	}
	for i, p := range points {
		if !finite(p.X) || !finite(p.Y) || !finite(p.Z) {
			return fmt.Errorf("%w: landmark %d has non-finite coordinates", ErrInvalidLandmarkSet, i)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// distance3D calculates the Euclidean distance between two 3D points.
func distance3D(a, b detector.Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
