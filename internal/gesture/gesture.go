// Package gesture turns hand landmarks into discrete gesture labels.
//
// Classification is a pure function of the landmarks: the five fingertip to
// palm distances are measured and then matched against an ordered rule table
// where the first matching rule wins. Nothing is cached or shared between
// calls, so every function here is safe for concurrent use.
package gesture

import "errors"

// ExtensionThreshold is the tip-to-palm distance above which a finger counts
// as extended. It is in the detector's normalized coordinate units.
const ExtensionThreshold = 0.05

// Label is a gesture category.
type Label string

const (
	ClosedFist Label = "closed_fist"
	Peace      Label = "peace"
	OpenHand   Label = "open_hand"
	Pointing   Label = "pointing"
	ThumbsUp   Label = "thumbs_up"
	Unknown    Label = "unknown"
)

// Labels lists every label the classifier can produce.
var Labels = []Label{ClosedFist, Peace, OpenHand, Pointing, ThumbsUp, Unknown}

// ErrInvalidLandmarkSet is returned for landmark input the classifier cannot use:
// a landmark count other than 21 or a non-finite coordinate.
var ErrInvalidLandmarkSet = errors.New("invalid landmark set")
