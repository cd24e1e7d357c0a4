package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/raine/trendgal/internal/fashion"
	"github.com/raine/trendgal/internal/storage"
	"github.com/rs/zerolog/log"
)

// ErrEmptyImage is returned when AnalyzeImage gets no image bytes.
var ErrEmptyImage = errors.New("image is empty")

// Annotator runs the vision collaborator on an image.
type Annotator interface {
	Annotate(ctx context.Context, image []byte) (fashion.Observation, error)
}

// StageObserver records stage latencies.
type StageObserver interface {
	ObserveStage(stage string, d time.Duration)
}

// Pipeline stages.
const (
	StageVision     = "vision"
	StageDetect     = "detect"
	StageSynthesize = "synthesize"
	StageMatch      = "match"
)

// Where a run was started from.
const (
	SourceHTTP     = "http"
	SourceTelegram = "telegram"
	SourceCLI      = "cli"
)

type Deps struct {
	Annotator   Annotator
	Detector    *fashion.Detector
	Synthesizer *fashion.Synthesizer
	Matcher     *fashion.Matcher
	// Runs is optional.
	Runs storage.RunStore
	// Stages is optional.
	Stages StageObserver
}

// Service runs the analysis and recommendation pipeline. Detection and
// recommendation are separate calls so callers can show items before the
// slower search stage finishes.
type Service struct {
	annotator Annotator
	detector  *fashion.Detector
	synth     *fashion.Synthesizer
	matcher   *fashion.Matcher
	runs      storage.RunStore
	stages    StageObserver
	newID     func() string
	now       func() time.Time
}

func New(d Deps) *Service {
	return &Service{
		annotator: d.Annotator,
		detector:  d.Detector,
		synth:     d.Synthesizer,
		matcher:   d.Matcher,
		runs:      d.Runs,
		stages:    d.Stages,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// Progress receives advisory progress from AnalyzeImage. Either field may be
// nil.
type Progress struct {
	VisionComplete func(obs fashion.Observation)
	Item           fashion.ProgressFunc
}

// Analysis is the result of AnalyzeImage.
type Analysis struct {
	ID           string
	Persona      fashion.PersonaID
	Observation  fashion.Observation
	Items        []fashion.DetectedItem
	OverallStyle string
	Palette      []fashion.ColorInfo
	Confidence   float64
	Stats        fashion.DetectionStats
}

// Recommendation is the result of Recommend.
type Recommendation struct {
	ID       string
	Persona  fashion.PersonaID
	Queries  []fashion.SearchQuery
	Products []fashion.Product
	UsedMock bool
}

type sourceKey struct{}

// WithSource tags runs started with ctx with a source such as SourceHTTP.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

func sourceOf(ctx context.Context) string {
	if s, ok := ctx.Value(sourceKey{}).(string); ok && s != "" {
		return s
	}
	return SourceCLI
}

// AnalyzeImage annotates the image and detects fashion items in it. A vision
// failure is fatal since there is nothing to detect.
func (s *Service) AnalyzeImage(ctx context.Context, image []byte, persona fashion.Persona, progress Progress) (*Analysis, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}

	start := s.now()
	obs, err := s.annotator.Annotate(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("vision analysis failed: %w", err)
	}
	s.observe(StageVision, start)
	if progress.VisionComplete != nil {
		progress.VisionComplete(obs)
	}

	start = s.now()
	items := s.detector.Detect(ctx, obs, fashion.DetectOptions{Image: image, Progress: progress.Item})
	s.observe(StageDetect, start)

	a := &Analysis{
		ID:           s.newID(),
		Persona:      persona.ID,
		Observation:  obs,
		Items:        items,
		OverallStyle: fashion.OverallStyle(obs),
		Palette:      fashion.ColorPalette(obs),
		Confidence:   fashion.OverallConfidence(items),
		Stats:        fashion.ProgressStats(items),
	}

	log.Info().
		Str("runId", a.ID).
		Str("persona", string(persona.ID)).
		Int("items", len(items)).
		Str("overallStyle", a.OverallStyle).
		Msg("image analyzed")

	if s.runs != nil {
		err := s.runs.SaveAnalysis(&storage.AnalysisRun{
			ID:           a.ID,
			Source:       sourceOf(ctx),
			Persona:      string(persona.ID),
			ImageHash:    storage.Fingerprint(image),
			OverallStyle: a.OverallStyle,
			Confidence:   a.Confidence,
			Items:        items,
			CreatedAt:    s.now(),
		})
		if err != nil {
			log.Warn().Err(err).Str("runId", a.ID).Msg("failed to record analysis run")
		}
	}

	return a, nil
}

// Recommend synthesizes queries when an observation is given and matches
// products for them. Without an observation only the detected items drive
// the search.
func (s *Service) Recommend(ctx context.Context, items []fashion.DetectedItem, obs *fashion.Observation, persona fashion.Persona) (*Recommendation, error) {
	rec := &Recommendation{
		ID:      s.newID(),
		Persona: persona.ID,
		Queries: []fashion.SearchQuery{},
	}

	if obs != nil {
		start := s.now()
		rec.Queries = s.synth.Synthesize(ctx, items, *obs, persona)
		s.observe(StageSynthesize, start)
	}

	start := s.now()
	products, err := s.matcher.Match(ctx, rec.Queries, items)
	s.observe(StageMatch, start)
	if err != nil {
		var noProducts *fashion.NoProductsError
		failures := []string{err.Error()}
		if errors.As(err, &noProducts) {
			failures = noProducts.Failures
		}
		s.record(ctx, rec, len(items), failures)
		return nil, err
	}

	rec.Products = products
	for _, p := range products {
		if p.IsMock() {
			rec.UsedMock = true
			break
		}
	}

	log.Info().
		Str("runId", rec.ID).
		Str("persona", string(persona.ID)).
		Int("queries", len(rec.Queries)).
		Int("products", len(products)).
		Bool("usedMock", rec.UsedMock).
		Msg("recommendations ready")

	s.record(ctx, rec, len(items), nil)
	return rec, nil
}

func (s *Service) record(ctx context.Context, rec *Recommendation, itemCount int, failures []string) {
	if s.runs == nil {
		return
	}
	err := s.runs.SaveRecommendation(&storage.RecommendationRun{
		ID:           rec.ID,
		Source:       sourceOf(ctx),
		Persona:      string(rec.Persona),
		ItemCount:    itemCount,
		Queries:      rec.Queries,
		ProductCount: len(rec.Products),
		UsedMock:     rec.UsedMock,
		Failures:     failures,
		CreatedAt:    s.now(),
	})
	if err != nil {
		log.Warn().Err(err).Str("runId", rec.ID).Msg("failed to record recommendation run")
	}
}

func (s *Service) observe(stage string, start time.Time) {
	if s.stages != nil {
		s.stages.ObserveStage(stage, s.now().Sub(start))
	}
}
