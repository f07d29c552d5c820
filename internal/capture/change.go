package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Frame differencing constants.
const (
	// BlurSize is the Gaussian kernel size applied before differencing.
	BlurSize = 21
	// PixelDiffThreshold is the grey-level difference at which a pixel counts as changed.
	PixelDiffThreshold = 25
)

// ChangeGate reports whether a frame differs enough from the previous one
// to be worth running hand detection on again. It compares blurred
// grayscale frames and counts the share of changed pixels.
type ChangeGate struct {
	threshold float64
	prev      gocv.Mat
	prevSize  Size
	primed    bool
	mu        sync.Mutex
}

// NewChangeGate creates a ChangeGate. threshold is the percentage of pixels
// that must change: 1.0 means 1% of the frame.
func NewChangeGate(threshold float64) *ChangeGate {
	return &ChangeGate{
		threshold: threshold,
		prev:      gocv.NewMat(),
	}
}

// Changed compares frame with the previous frame and stores it as the new
// baseline. It returns true for the first frame and whenever the frame size
// changes, along with the percentage of changed pixels.
func (g *ChangeGate) Changed(frame *gocv.Mat) (bool, float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if frame == nil || frame.Empty() {
		return true, 100
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: BlurSize, Y: BlurSize}, 0, 0, gocv.BorderDefault)

	size := Size{Width: blurred.Cols(), Height: blurred.Rows()}
	if !g.primed || size != g.prevSize {
		blurred.CopyTo(&g.prev)
		g.prevSize = size
		g.primed = true
		return true, 100
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, g.prev, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, PixelDiffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(thresh)) / float64(thresh.Rows()*thresh.Cols()) * 100.0
	blurred.CopyTo(&g.prev)

	return changed > g.threshold, changed
}

// Reset forgets the baseline so the next frame counts as changed.
func (g *ChangeGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.primed = false
}

// Close releases the stored baseline.
func (g *ChangeGate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.prev.Empty() {
		g.prev.Close()
		g.prev = gocv.NewMat()
	}
	g.primed = false
}
