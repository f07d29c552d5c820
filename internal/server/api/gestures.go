// Package api provides the HTTP handlers for hand landmark and gesture detection.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/store"
)

// GestureHandler serves detection and history requests.
type GestureHandler struct {
	app *app.App
}

// NewGestureHandler creates a new GestureHandler backed by the given app.
func NewGestureHandler(a *app.App) *GestureHandler {
	return &GestureHandler{app: a}
}

// Request and response types

// DetectRequest is the body of both detection endpoints.
type DetectRequest struct {
	Image string `json:"image"`
}

type landmarksResponse struct {
	app.LandmarksResult
	Success bool `json:"success"`
}

// GesturesResponse is the body returned by gesture detection.
type GesturesResponse struct {
	app.GesturesResult
	Success bool `json:"success"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Success bool   `json:"success"`
}

type detectionResponse struct {
	ID         string  `json:"id"`
	RequestID  string  `json:"request_id"`
	HandIndex  int     `json:"hand_index"`
	Hand       string  `json:"hand"`
	Gesture    string  `json:"gesture"`
	Confidence float64 `json:"confidence"`
	CreatedAt  string  `json:"created_at"`
}

type historyResponse struct {
	Detections []detectionResponse `json:"detections"`
}

type statsResponse struct {
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

// toResponse converts a store.Detection to a detectionResponse.
func toResponse(d *store.Detection) detectionResponse {
	return detectionResponse{
		ID:         d.ID,
		RequestID:  d.RequestID,
		HandIndex:  d.HandIndex,
		Hand:       d.Hand,
		Gesture:    d.Gesture,
		Confidence: d.Confidence,
		CreatedAt:  d.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// writeError writes a JSON error response.
func writeError(c echo.Context, status int, message string) error {
	return c.JSON(status, ErrorResponse{Error: message, Success: false})
}

// ErrorStatus maps a detection error to an HTTP status and client message.
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, capture.ErrNoImage):
		return http.StatusBadRequest, "No image provided"
	case errors.Is(err, capture.ErrDecode):
		return http.StatusBadRequest, "Could not decode image"
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// readImage decodes the request body and returns the raw image bytes.
func readImage(c echo.Context) ([]byte, error) {
	var req DetectRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return nil, capture.ErrNoImage
	}
	return capture.DecodeBase64(req.Image)
}

func (h *GestureHandler) fail(c echo.Context, route string, err error) error {
	status, msg := ErrorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("Error in %s: %v", route, err)
	}
	return writeError(c, status, msg)
}

// Detect handles POST /detect and returns the raw landmarks of every hand.
func (h *GestureHandler) Detect(c echo.Context) error {
	image, err := readImage(c)
	if err != nil {
		return h.fail(c, "detect", err)
	}

	result, err := h.app.DetectLandmarks(c.Request().Context(), image)
	if err != nil {
		return h.fail(c, "detect", err)
	}

	return c.JSON(http.StatusOK, landmarksResponse{LandmarksResult: *result, Success: true})
}

// DetectGesture handles POST /detect_gesture and returns a gesture per hand.
func (h *GestureHandler) DetectGesture(c echo.Context) error {
	image, err := readImage(c)
	if err != nil {
		return h.fail(c, "detect_gesture", err)
	}

	requestID := c.Response().Header().Get(echo.HeaderXRequestID)
	result, err := h.app.DetectGestures(c.Request().Context(), requestID, image)
	if err != nil {
		return h.fail(c, "detect_gesture", err)
	}

	return c.JSON(http.StatusOK, GesturesResponse{GesturesResult: *result, Success: true})
}

// History handles GET /api/history and returns recent detections.
func (h *GestureHandler) History(c echo.Context) error {
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return writeError(c, http.StatusBadRequest, "Invalid limit")
		}
		limit = n
	}

	detections, err := h.app.History(limit)
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "Failed to list history")
	}

	response := historyResponse{
		Detections: make([]detectionResponse, 0, len(detections)),
	}
	for _, d := range detections {
		response.Detections = append(response.Detections, toResponse(d))
	}

	return c.JSON(http.StatusOK, response)
}

// Stats handles GET /api/stats and returns detection counts per gesture.
func (h *GestureHandler) Stats(c echo.Context) error {
	counts, err := h.app.Stats()
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "Failed to load stats")
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	return c.JSON(http.StatusOK, statsResponse{Counts: counts, Total: total})
}
