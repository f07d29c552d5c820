// Package capture turns uploaded images into frames the hand detector can read.
package capture

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"gocv.io/x/gocv"
)

var (
	// ErrNoImage is returned when a request carries no image data.
	ErrNoImage = errors.New("no image provided")
	// ErrDecode is returned when image bytes cannot be decoded.
	ErrDecode = errors.New("could not decode image")
)

// Size is the pixel size of a decoded frame.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Frame is a decoded image. The caller must Close it.
type Frame struct {
	Mat  gocv.Mat
	Size Size
}

// Close releases the underlying Mat.
func (f *Frame) Close() error {
	return f.Mat.Close()
}

// DecodeBase64 decodes a base64 image payload. A data URL prefix
// ("data:image/jpeg;base64,") is accepted and stripped.
func DecodeBase64(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if i := strings.Index(payload, ","); i >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[i+1:]
	}
	if payload == "" {
		return nil, ErrNoImage
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(data) == 0 {
		return nil, ErrNoImage
	}
	return data, nil
}

// DecodeFrame decodes encoded image bytes (JPEG, PNG, ...) into a color frame.
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) == 0 {
		return nil, ErrNoImage
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if mat.Empty() {
		mat.Close()
		return nil, ErrDecode
	}

	return &Frame{
		Mat:  mat,
		Size: Size{Width: mat.Cols(), Height: mat.Rows()},
	}, nil
}
