// Package server provides the HTTP server for the Mudra gesture recognition service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/server/api"
)

// DefaultBodyLimit caps request bodies when Config.BodyLimit is empty.
const DefaultBodyLimit = "16M"

// Config holds the server configuration.
type Config struct {
	App       *app.App
	BodyLimit string

	// StreamChangeThreshold gates re-detection on /api/stream; see StreamHandler.
	StreamChangeThreshold float64
}

// Server represents the HTTP server for the Mudra service.
type Server struct {
	config Config
	echo   *echo.Echo
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.App == nil {
		config.App = app.New(app.Config{})
	}
	if config.BodyLimit == "" {
		config.BodyLimit = DefaultBodyLimit
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handleError

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.New().String() },
	}))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(config.BodyLimit))

	s := &Server{
		config: config,
		echo:   e,
		start:  time.Now(),
	}
	s.routes()
	return s
}

// routes configures all HTTP routes for the server.
func (s *Server) routes() {
	s.echo.GET("/health", s.health)

	gestures := api.NewGestureHandler(s.config.App)
	s.echo.POST("/detect", gestures.Detect)
	s.echo.POST("/detect_gesture", gestures.DetectGesture)

	// History endpoints need a store
	if s.config.App.HistoryEnabled() {
		s.echo.GET("/api/history", gestures.History)
		s.echo.GET("/api/stats", gestures.Stats)
	}

	s.echo.GET("/api/stream", NewStreamHandler(s.config.App, s.config.StreamChangeThreshold).Serve)
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr and blocks until the server stops. It returns nil
// after a graceful shutdown.
func (s *Server) Start(addr string) error {
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// health handles GET requests to /health.
func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

// handleError renders routing and middleware errors in the API error shape.
func handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		message = fmt.Sprint(he.Message)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, api.ErrorResponse{Error: message, Success: false})
	}
	if err != nil {
		c.Logger().Error(err)
	}
}
