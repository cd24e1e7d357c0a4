package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/raine/trendgal/internal/fashion"
	"github.com/raine/trendgal/internal/service"
	"github.com/raine/trendgal/internal/storage"
	"github.com/rs/zerolog/log"
)

// Pipeline is the analysis pipeline the API exposes.
type Pipeline interface {
	AnalyzeImage(ctx context.Context, image []byte, persona fashion.Persona, progress service.Progress) (*service.Analysis, error)
	Recommend(ctx context.Context, items []fashion.DetectedItem, obs *fashion.Observation, persona fashion.Persona) (*service.Recommendation, error)
}

// HealthChecker reports whether the vision collaborator is reachable.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// History lists recorded runs.
type History interface {
	RecentRuns(limit int) ([]storage.RunSummary, error)
}

type Options struct {
	Pipeline Pipeline
	Vision   HealthChecker
	// History and Metrics are optional; their routes are only registered
	// when set.
	History        History
	Metrics        http.Handler
	DefaultPersona fashion.PersonaID
}

const (
	bodyLimit       = "20M"
	shutdownTimeout = 10 * time.Second
)

type Server struct {
	echo           *echo.Echo
	pipeline       Pipeline
	vision         HealthChecker
	history        History
	defaultPersona fashion.PersonaID
}

func New(opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:           e,
		pipeline:       opts.Pipeline,
		vision:         opts.Vision,
		history:        opts.History,
		defaultPersona: opts.DefaultPersona,
	}
	if s.defaultPersona == "" {
		s.defaultPersona = fashion.DefaultPersona
	}

	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := log.Info()
			if v.Error != nil {
				event = log.Warn().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType},
	}))

	api := e.Group("/api")
	api.POST("/analyze-vision", s.analyzeVision)
	api.GET("/analyze-vision", s.visionHealth)
	api.POST("/get-recommendations", s.getRecommendations)
	if s.history != nil {
		api.GET("/history", s.listHistory)
	}
	if opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(opts.Metrics))
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info().Msg("shutting down http server")
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(status)
		}
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("request failed")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, errorResponse{Success: false, Error: msg})
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to write error response")
	}
}

func badRequest(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}
