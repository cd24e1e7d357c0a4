package server

import (
	"encoding/base64"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/raine/trendgal/internal/fashion"
	"github.com/raine/trendgal/internal/service"
	"github.com/raine/trendgal/internal/storage"
	"github.com/rs/zerolog/log"
)

const maxHistoryLimit = 100

type analyzeRequest struct {
	ImageBase64 string `json:"imageBase64"`
	Filename    string `json:"filename"`
	Streaming   bool   `json:"streaming"`
	Persona     string `json:"persona"`
}

type analysisData struct {
	DetectedItems    []fashion.DetectedItem `json:"detectedItems"`
	OverallStyle     string                 `json:"overallStyle"`
	ColorPalette     []string               `json:"colorPalette"`
	ColorPaletteInfo []fashion.ColorInfo    `json:"colorPaletteInfo"`
	Confidence       float64                `json:"confidence"`
	ProgressStats    fashion.DetectionStats `json:"progressStats"`
}

type analysisResponse struct {
	Success      bool                `json:"success"`
	Data         analysisData        `json:"data"`
	VisionResult fashion.Observation `json:"visionResult"`
}

func newAnalysisResponse(a *service.Analysis) analysisResponse {
	return analysisResponse{
		Success: true,
		Data: analysisData{
			DetectedItems:    a.Items,
			OverallStyle:     a.OverallStyle,
			ColorPalette:     fashion.PaletteHexes(a.Palette),
			ColorPaletteInfo: a.Palette,
			Confidence:       a.Confidence,
			ProgressStats:    a.Stats,
		},
		VisionResult: a.Observation,
	}
}

func (s *Server) analyzeVision(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if strings.TrimSpace(req.ImageBase64) == "" {
		return badRequest("image data is required")
	}
	image, err := decodeImage(req.ImageBase64)
	if err != nil {
		return badRequest(err.Error())
	}

	persona := s.persona(req.Persona)
	ctx := service.WithSource(c.Request().Context(), service.SourceHTTP)

	log.Info().
		Str("filename", req.Filename).
		Int("bytes", len(image)).
		Bool("streaming", req.Streaming).
		Str("persona", string(persona.ID)).
		Msg("analyze vision request")

	if req.Streaming {
		return s.streamAnalysis(c, image, persona, req.Filename)
	}

	a, err := s.pipeline.AnalyzeImage(ctx, image, persona, service.Progress{})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newAnalysisResponse(a))
}

type progressEvent struct {
	Current     int    `json:"current"`
	Total       int    `json:"total"`
	Percentage  int    `json:"percentage"`
	CurrentItem string `json:"currentItem"`
}

func (s *Server) streamAnalysis(c echo.Context, image []byte, persona fashion.Persona, filename string) error {
	stream := newEventStream(c.Response())
	ctx := service.WithSource(c.Request().Context(), service.SourceHTTP)

	stream.send("start", map[string]string{"message": "vision analysis started", "filename": filename})

	a, err := s.pipeline.AnalyzeImage(ctx, image, persona, service.Progress{
		VisionComplete: func(obs fashion.Observation) {
			stream.send("vision-complete", map[string]int{
				"labelCount":  len(obs.Labels),
				"objectCount": len(obs.Objects),
				"colorCount":  len(obs.Colors),
			})
		},
		Item: func(current, total int, item string) {
			stream.send("progress", progressEvent{
				Current:     current,
				Total:       total,
				Percentage:  int(math.Round(float64(current) / float64(total) * 100)),
				CurrentItem: item,
			})
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("streaming analysis failed")
		stream.send("error", errorResponse{Success: false, Error: err.Error()})
		return nil
	}

	stream.send("complete", newAnalysisResponse(a))
	return nil
}

func (s *Server) visionHealth(c echo.Context) error {
	if err := s.vision.Check(c.Request().Context()); err != nil {
		log.Warn().Err(err).Msg("vision health check failed")
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Success: false, Error: err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "vision api is reachable",
	})
}

type recommendRequest struct {
	DetectedItems        []fashion.DetectedItem `json:"detectedItems"`
	VisionResult         *fashion.Observation   `json:"visionResult"`
	CharacterPersonality string                 `json:"characterPersonality"`
}

type recommendData struct {
	Recommendations []fashion.Product     `json:"recommendations"`
	Queries         []fashion.SearchQuery `json:"queries"`
	UsedMock        bool                  `json:"usedMock"`
}

type recommendResponse struct {
	Success bool          `json:"success"`
	Data    recommendData `json:"data"`
}

func (s *Server) getRecommendations(c echo.Context) error {
	var req recommendRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if len(req.DetectedItems) == 0 {
		return badRequest("detected items are required")
	}

	persona := s.persona(req.CharacterPersonality)
	ctx := service.WithSource(c.Request().Context(), service.SourceHTTP)

	rec, err := s.pipeline.Recommend(ctx, req.DetectedItems, req.VisionResult, persona)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, recommendResponse{
		Success: true,
		Data: recommendData{
			Recommendations: rec.Products,
			Queries:         rec.Queries,
			UsedMock:        rec.UsedMock,
		},
	})
}

func (s *Server) listHistory(c echo.Context) error {
	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return badRequest(fmt.Sprintf("invalid limit %q", raw))
		}
		limit = min(n, maxHistoryLimit)
	}

	runs, err := s.history.RecentRuns(limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data":    map[string][]storage.RunSummary{"runs": runs},
	})
}

func (s *Server) persona(id string) fashion.Persona {
	if p, ok := fashion.ParsePersona(id); ok {
		return p
	}
	return fashion.MustPersona(s.defaultPersona)
}

// decodeImage accepts raw base64 or a data URL.
func decodeImage(data string) ([]byte, error) {
	data = strings.TrimSpace(data)
	if strings.HasPrefix(data, "data:") {
		_, payload, ok := strings.Cut(data, ",")
		if !ok {
			return nil, fmt.Errorf("malformed data url")
		}
		data = payload
	}
	image, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("image is not valid base64: %w", err)
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("image data is required")
	}
	return image, nil
}
