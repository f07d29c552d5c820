package app

import "github.com/ayusman/mudra/internal/capture"

// Stream classifies a sequence of frames from one client. When a change
// threshold is set, a frame that barely differs from the previous one is
// answered with the previous result without running the detector.
type Stream struct {
	app       *App
	requestID string
	gate      *capture.ChangeGate // nil when gating is off
	last      *GesturesResult
}

// NewStream starts a stream whose detections are recorded under requestID.
// A changeThreshold of zero or less classifies every frame.
func (a *App) NewStream(requestID string, changeThreshold float64) *Stream {
	s := &Stream{app: a, requestID: requestID}
	if changeThreshold > 0 {
		s.gate = capture.NewChangeGate(changeThreshold)
	}
	return s
}

// Detect classifies one encoded frame. The boolean reports whether the
// previous result was reused.
func (s *Stream) Detect(image []byte) (*GesturesResult, bool, error) {
	frame, err := capture.DecodeFrame(image)
	if err != nil {
		return nil, false, err
	}
	defer frame.Close()

	if s.gate != nil {
		changed, _ := s.gate.Changed(&frame.Mat)
		if !changed && s.last != nil {
			return s.last, true, nil
		}
	}

	hands, err := s.app.detectFrame(frame, image)
	if err != nil {
		// The baseline now points at a frame with no result.
		s.last = nil
		if s.gate != nil {
			s.gate.Reset()
		}
		return nil, false, err
	}

	result := assemble(hands)
	s.last = &result
	s.app.record(s.requestID, result.Gestures)
	return &result, false, nil
}

// Close releases the stream's frame baseline.
func (s *Stream) Close() {
	if s.gate != nil {
		s.gate.Close()
	}
}
