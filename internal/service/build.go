package service

import (
	"context"
	"fmt"

	"github.com/raine/trendgal/internal/config"
	"github.com/raine/trendgal/internal/fashion"
	"github.com/raine/trendgal/internal/llm"
	"github.com/raine/trendgal/internal/metrics"
	"github.com/raine/trendgal/internal/shopping"
	"github.com/raine/trendgal/internal/storage"
	"github.com/raine/trendgal/internal/vision"
	"github.com/rs/zerolog/log"
)

// Components are the wired pipeline and the collaborators callers need
// directly.
type Components struct {
	Service *Service
	Vision  *vision.Client
	Metrics *metrics.Pipeline
}

// Build wires the pipeline from configuration. runs may be nil.
func Build(ctx context.Context, cfg *config.Config, runs storage.RunStore) (*Components, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := metrics.NewPipeline()

	visionClient, err := vision.NewClient(ctx, vision.ClientOpts{
		BaseURL:           cfg.VisionBaseURL,
		APIKey:            cfg.GoogleAPIKey,
		ServiceAccountKey: cfg.ServiceAccountKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}

	var regions fashion.RegionColorExtractor
	switch cfg.RegionColorSource {
	case config.RegionColorsLocal:
		regions = vision.NewRegionExtractor(vision.PaletteAnalyzer{})
	case config.RegionColorsNone:
		regions = fashion.NoRegionColors{}
	default:
		regions = vision.NewRegionExtractor(visionClient)
	}

	gen, err := llm.New(ctx, llm.Options{
		Provider:      cfg.LLMProvider,
		GeminiAPIKey:  cfg.GeminiAPIKey,
		GeminiModel:   cfg.GeminiModel,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIModel:   cfg.OpenAIModel,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create llm: %w", err)
	}

	var textGen fashion.TextGenerator
	if gen != nil {
		textGen = m.Instrument(gen)
		log.Info().Str("provider", gen.Name()).Msg("llm query synthesis enabled")
	} else {
		log.Info().Msg("llm disabled, using deterministic queries")
	}

	catalog, err := shopping.NewClient(shopping.ClientOpts{
		BaseURL:       cfg.YahooBaseURL,
		ClientID:      cfg.YahooClientID,
		RatePerSecond: cfg.SearchRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog client: %w", err)
	}

	svc := New(Deps{
		Annotator:   visionClient,
		Detector:    fashion.NewDetector(regions, fashion.WithDetectorObserver(m)),
		Synthesizer: fashion.NewSynthesizer(textGen, fashion.WithSynthesizerObserver(m)),
		Matcher:     fashion.NewMatcher(catalog, fashion.WithMatcherObserver(m)),
		Runs:        runs,
		Stages:      m,
	})

	return &Components{Service: svc, Vision: visionClient, Metrics: m}, nil
}
