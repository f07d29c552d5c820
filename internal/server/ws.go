package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/server/api"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// StreamHandler classifies frames sent over a WebSocket connection.
// Each text message carries one {"image": ...} request and gets one reply.
type StreamHandler struct {
	app             *app.App
	changeThreshold float64
}

// NewStreamHandler creates a new StreamHandler backed by the given app.
// changeThreshold is the percentage of changed pixels below which a frame
// reuses the previous reply; zero classifies every frame.
func NewStreamHandler(a *app.App, changeThreshold float64) *StreamHandler {
	return &StreamHandler{app: a, changeThreshold: changeThreshold}
}

// Serve upgrades the request and answers frames until the client disconnects.
// Detections from one connection share the connection's request ID.
func (h *StreamHandler) Serve(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return nil
	}
	defer conn.Close()

	stream := h.app.NewStream(c.Response().Header().Get(echo.HeaderXRequestID), h.changeThreshold)
	defer stream.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("websocket read error: %v", err)
			}
			return nil
		}

		if err := conn.WriteJSON(handleFrame(stream, msg)); err != nil {
			log.Printf("websocket write error: %v", err)
			return nil
		}
	}
}

// handleFrame classifies a single frame. Errors become error replies.
func handleFrame(stream *app.Stream, msg []byte) any {
	var req api.DetectRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		return api.ErrorResponse{Error: "Invalid message", Success: false}
	}

	image, err := capture.DecodeBase64(req.Image)
	if err == nil {
		var result *app.GesturesResult
		result, _, err = stream.Detect(image)
		if err == nil {
			return api.GesturesResponse{GesturesResult: *result, Success: true}
		}
	}

	status, message := api.ErrorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("Error in stream: %v", err)
	}
	return api.ErrorResponse{Error: message, Success: false}
}
