package gesture

import "github.com/ayusman/mudra/internal/detector"

// Result is the classification of one hand.
type Result struct {
	Hand       string  `json:"hand"`
	Gesture    Label   `json:"gesture"`
	Confidence float64 `json:"confidence"`
}

// HandError reports a hand that could not be classified.
type HandError struct {
	Index int    `json:"index"`
	Hand  string `json:"hand"`
	Err   error  `json:"-"`
}

// Error implements the error interface.
func (e *HandError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying classification error.
func (e *HandError) Unwrap() error {
	return e.Err
}

// ClassifyLandmarks classifies a single landmark sequence.
func ClassifyLandmarks(points []detector.Point3D) (Label, error) {
	f, err := ExtractFeatures(points)
	if err != nil {
		return "", err
	}
	return Classify(f), nil
}

// ClassifyHand classifies one detected hand. The confidence is the detector's
// handedness score, attached unchanged.
func ClassifyHand(h detector.Hand) (Result, error) {
	label, err := ClassifyLandmarks(h.Landmarks)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Hand:       h.Handedness.Label,
		Gesture:    label,
		Confidence: h.Handedness.Score,
	}, nil
}

// ClassifyHands classifies each hand independently. Results keep detector order;
// a hand that fails is reported in the errors slice and does not stop the rest.
// Zero hands yields an empty, non-nil result slice.
func ClassifyHands(hands []detector.Hand) ([]Result, []*HandError) {
	results := make([]Result, 0, len(hands))
	var failures []*HandError

	for i, h := range hands {
		r, err := ClassifyHand(h)
		if err != nil {
			failures = append(failures, &HandError{
				Index: i,
				Hand:  h.Handedness.Label,
				Err:   err,
			})
			continue
		}
		results = append(results, r)
	}

	return results, failures
}
