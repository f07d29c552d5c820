package gesture

// rule pairs a predicate over features with the label it produces.
type rule struct {
	Label Label
	Match func(f Features) bool
}

// rules is the classification table, evaluated top to bottom.
// Later rules only see hands no earlier rule matched, so the order must not change.
var rules = []rule{
	{
		Label: ClosedFist,
		Match: func(f Features) bool {
			return f.extendedCount() == 0 && !f.thumbExtended()
		},
	},
	{
		Label: Peace,
		Match: func(f Features) bool {
			return f.extendedCount() == 2 && f.Index > f.Middle && f.Pinky > f.Index
		},
	},
	{
		Label: OpenHand,
		Match: func(f Features) bool {
			return f.extendedCount() == 4 && f.thumbExtended()
		},
	},
	{
		// Middle is compared with a strict < on purpose; a middle tip sitting
		// exactly on the threshold is not pointing.
		Label: Pointing,
		Match: func(f Features) bool {
			return f.extendedCount() == 1 && f.Index > ExtensionThreshold && f.Middle < ExtensionThreshold
		},
	},
	{
		Label: ThumbsUp,
		Match: func(f Features) bool {
			return f.thumbExtended() && f.extendedCount() == 0
		},
	},
}

// Classify returns the label of the first rule that matches f, or Unknown.
func Classify(f Features) Label {
	for _, r := range rules {
		if r.Match(f) {
			return r.Label
		}
	}
	return Unknown
}

// extendedCount counts the index, middle, ring and pinky fingers past the threshold.
func (f Features) extendedCount() int {
	n := 0
	for _, d := range [4]float64{f.Index, f.Middle, f.Ring, f.Pinky} {
		if d > ExtensionThreshold {
			n++
		}
	}
	return n
}

func (f Features) thumbExtended() bool {
	return f.Thumb > ExtensionThreshold
}
