package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/raine/trendgal/internal/fashion"
	"github.com/raine/trendgal/internal/service"
	"github.com/raine/trendgal/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePipeline struct {
	analyzeFn   func(ctx context.Context, image []byte, persona fashion.Persona, progress service.Progress) (*service.Analysis, error)
	recommendFn func(ctx context.Context, items []fashion.DetectedItem, obs *fashion.Observation, persona fashion.Persona) (*service.Recommendation, error)
}

func (f *fakePipeline) AnalyzeImage(ctx context.Context, image []byte, persona fashion.Persona, progress service.Progress) (*service.Analysis, error) {
	return f.analyzeFn(ctx, image, persona, progress)
}

func (f *fakePipeline) Recommend(ctx context.Context, items []fashion.DetectedItem, obs *fashion.Observation, persona fashion.Persona) (*service.Recommendation, error) {
	return f.recommendFn(ctx, items, obs, persona)
}

type fakeHealth struct {
	err error
}

func (f fakeHealth) Check(ctx context.Context) error { return f.err }

type fakeHistory struct {
	runs  []storage.RunSummary
	limit int
}

func (f *fakeHistory) RecentRuns(limit int) ([]storage.RunSummary, error) {
	f.limit = limit
	return f.runs, nil
}

func sweater() fashion.DetectedItem {
	return fashion.DetectedItem{
		ID:          "tops_0",
		Category:    fashion.CategoryTops,
		Label:       "Sweater",
		Description: "赤のSweater",
		Confidence:  0.9,
		Attributes:  fashion.ItemAttributes{Colors: []string{"#C80A0A"}},
	}
}

func testAnalysis() *service.Analysis {
	obs := fashion.Observation{
		Labels: []fashion.Label{{Description: "Sweater", Score: 0.9}},
		Colors: []fashion.DominantColor{{Red: 200, Green: 10, Blue: 10, PixelFraction: 0.6}},
	}
	items := []fashion.DetectedItem{sweater()}
	return &service.Analysis{
		ID:           "run-1",
		Observation:  obs,
		Items:        items,
		OverallStyle: "カジュアル",
		Palette:      fashion.ColorPalette(obs),
		Confidence:   0.9,
		Stats:        fashion.ProgressStats(items),
	}
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestAnalyzeVision(t *testing.T) {
	var gotImage []byte
	var gotPersona fashion.PersonaID
	pipeline := &fakePipeline{analyzeFn: func(ctx context.Context, image []byte, persona fashion.Persona, progress service.Progress) (*service.Analysis, error) {
		gotImage = image
		gotPersona = persona.ID
		return testAnalysis(), nil
	}}
	s := New(Options{Pipeline: pipeline, Vision: fakeHealth{}})
	img := base64.StdEncoding.EncodeToString([]byte("png-bytes"))

	rec := do(t, s, http.MethodPost, "/api/analyze-vision", `{"imageBase64":"data:image/png;base64,`+img+`","filename":"a.png","persona":"marin"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []byte("png-bytes"), gotImage)
	assert.Equal(t, fashion.PersonaMarin, gotPersona)

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, []any{"#C80A0A"}, data["colorPalette"])
	assert.Equal(t, "カジュアル", data["overallStyle"])
	assert.Equal(t, 0.9, data["confidence"])
	items := data["detectedItems"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "tops", items[0].(map[string]any)["type"])
	assert.Equal(t, float64(1), data["progressStats"].(map[string]any)["totalItemsDetected"])
	assert.NotNil(t, body["visionResult"].(map[string]any)["labels"])
}

func TestAnalyzeVision_BadRequests(t *testing.T) {
	pipeline := &fakePipeline{analyzeFn: func(ctx context.Context, image []byte, persona fashion.Persona, progress service.Progress) (*service.Analysis, error) {
		t.Fatal("pipeline should not be called")
		return nil, nil
	}}
	s := New(Options{Pipeline: pipeline, Vision: fakeHealth{}})

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing image", `{"filename":"a.png"}`, "image data is required"},
		{"invalid base64", `{"imageBase64":"!!!"}`, "image is not valid base64"},
		{"malformed json", `{"imageBase64":`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/analyze-vision", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Contains(t, body["error"], tt.want)
		})
	}
}

func TestAnalyzeVision_PipelineError(t *testing.T) {
	pipeline := &fakePipeline{analyzeFn: func(ctx context.Context, image []byte, persona fashion.Persona, progress service.Progress) (*service.Analysis, error) {
		return nil, errors.New("vision analysis failed: quota exceeded")
	}}
	s := New(Options{Pipeline: pipeline, Vision: fakeHealth{}})
	img := base64.StdEncoding.EncodeToString([]byte("x"))

	rec := do(t, s, http.MethodPost, "/api/analyze-vision", `{"imageBase64":"`+img+`"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]any{"success": false, "error": "vision analysis failed: quota exceeded"}, decode(t, rec))
}

type sseEvent struct {
	name string
	data string
}

func parseEvents(t *testing.T, body string) []sseEvent {
	t.Helper()
	var events []sseEvent
	for _, block := range strings.Split(strings.TrimSpace(body), "\n\n") {
		lines := strings.Split(block, "\n")
		require.Len(t, lines, 2, block)
		events = append(events, sseEvent{
			name: strings.TrimPrefix(lines[0], "event: "),
			data: strings.TrimPrefix(lines[1], "data: "),
		})
	}
	return events
}

func TestAnalyzeVision_Streaming(t *testing.T) {
	pipeline := &fakePipeline{analyzeFn: func(ctx context.Context, image []byte, persona fashion.Persona, progress service.Progress) (*service.Analysis, error) {
		a := testAnalysis()
		progress.VisionComplete(a.Observation)
		progress.Item(1, 3, "Sweater")
		progress.Item(2, 3, "Jeans")
		progress.Item(3, 3, "Sneakers")
		return a, nil
	}}
	s := New(Options{Pipeline: pipeline, Vision: fakeHealth{}})
	img := base64.StdEncoding.EncodeToString([]byte("x"))

	rec := do(t, s, http.MethodPost, "/api/analyze-vision", `{"imageBase64":"`+img+`","streaming":true,"filename":"a.png"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := parseEvents(t, rec.Body.String())
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.name
	}
	assert.Equal(t, []string{"start", "vision-complete", "progress", "progress", "progress", "complete"}, names)
	assert.JSONEq(t, `{"labelCount":1,"objectCount":0,"colorCount":1}`, events[1].data)
	assert.JSONEq(t, `{"current":1,"total":3,"percentage":33,"currentItem":"Sweater"}`, events[2].data)
	assert.JSONEq(t, `{"current":2,"total":3,"percentage":67,"currentItem":"Jeans"}`, events[3].data)

	var complete map[string]any
	require.NoError(t, json.Unmarshal([]byte(events[5].data), &complete))
	assert.Equal(t, true, complete["success"])
	assert.Equal(t, "カジュアル", complete["data"].(map[string]any)["overallStyle"])
}

func TestAnalyzeVision_StreamingError(t *testing.T) {
	pipeline := &fakePipeline{analyzeFn: func(ctx context.Context, image []byte, persona fashion.Persona, progress service.Progress) (*service.Analysis, error) {
		return nil, errors.New("vision analysis failed: boom")
	}}
	s := New(Options{Pipeline: pipeline, Vision: fakeHealth{}})
	img := base64.StdEncoding.EncodeToString([]byte("x"))

	rec := do(t, s, http.MethodPost, "/api/analyze-vision", `{"imageBase64":"`+img+`","streaming":true}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	events := parseEvents(t, rec.Body.String())
	require.Len(t, events, 2)
	assert.Equal(t, "error", events[1].name)
	assert.JSONEq(t, `{"success":false,"error":"vision analysis failed: boom"}`, events[1].data)
}

func TestVisionHealth(t *testing.T) {
	s := New(Options{Pipeline: &fakePipeline{}, Vision: fakeHealth{}})
	rec := do(t, s, http.MethodGet, "/api/analyze-vision", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["success"])

	s = New(Options{Pipeline: &fakePipeline{}, Vision: fakeHealth{err: errors.New("permission denied")}})
	rec = do(t, s, http.MethodGet, "/api/analyze-vision", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "permission denied", decode(t, rec)["error"])
}

func TestGetRecommendations(t *testing.T) {
	var gotItems []fashion.DetectedItem
	var gotObs *fashion.Observation
	var gotPersona fashion.PersonaID
	pipeline := &fakePipeline{recommendFn: func(ctx context.Context, items []fashion.DetectedItem, obs *fashion.Observation, persona fashion.Persona) (*service.Recommendation, error) {
		gotItems, gotObs, gotPersona = items, obs, persona.ID
		return &service.Recommendation{
			Queries:  []fashion.SearchQuery{{Text: "赤 セーター", Confidence: 0.9, InferredCategory: fashion.CategoryTops}},
			Products: []fashion.Product{{ID: "p1", Name: "赤ニット", Price: 2980, Category: fashion.CategoryTops, Tags: []string{}}},
		}, nil
	}}
	s := New(Options{Pipeline: pipeline, Vision: fakeHealth{}, DefaultPersona: fashion.PersonaMarin})
	items, err := json.Marshal([]fashion.DetectedItem{sweater()})
	require.NoError(t, err)

	rec := do(t, s, http.MethodPost, "/api/get-recommendations", `{"detectedItems":`+string(items)+`,"visionResult":{"labels":[{"description":"Sweater","score":0.9}]}}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, gotItems, 1)
	assert.Equal(t, fashion.CategoryTops, gotItems[0].Category)
	require.NotNil(t, gotObs)
	assert.Equal(t, "Sweater", gotObs.Labels[0].Description)
	assert.Equal(t, fashion.PersonaMarin, gotPersona)

	data := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, false, data["usedMock"])
	require.Len(t, data["recommendations"], 1)
	assert.Equal(t, "赤 セーター", data["queries"].([]any)[0].(map[string]any)["query"])
}

func TestGetRecommendations_Errors(t *testing.T) {
	pipeline := &fakePipeline{recommendFn: func(ctx context.Context, items []fashion.DetectedItem, obs *fashion.Observation, persona fashion.Persona) (*service.Recommendation, error) {
		assert.Nil(t, obs)
		assert.Equal(t, fashion.PersonaKurisu, persona.ID)
		return nil, &fashion.NoProductsError{}
	}}
	s := New(Options{Pipeline: pipeline, Vision: fakeHealth{}})

	rec := do(t, s, http.MethodPost, "/api/get-recommendations", `{"detectedItems":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "detected items are required", decode(t, rec)["error"])

	rec = do(t, s, http.MethodPost, "/api/get-recommendations", `{"detectedItems":[{"id":"x","type":"hats"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	items, err := json.Marshal([]fashion.DetectedItem{sweater()})
	require.NoError(t, err)
	rec = do(t, s, http.MethodPost, "/api/get-recommendations", `{"detectedItems":`+string(items)+`,"characterPersonality":"kurisu"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "no products found for detected items", decode(t, rec)["error"])
}

func TestHistory(t *testing.T) {
	history := &fakeHistory{runs: []storage.RunSummary{{ID: "r1", Kind: storage.KindAnalysis, CreatedAt: time.UnixMilli(0).UTC()}}}
	s := New(Options{Pipeline: &fakePipeline{}, Vision: fakeHealth{}, History: history})

	rec := do(t, s, http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20, history.limit)
	runs := decode(t, rec)["data"].(map[string]any)["runs"].([]any)
	assert.Equal(t, "r1", runs[0].(map[string]any)["id"])

	do(t, s, http.MethodGet, "/api/history?limit=500", "")
	assert.Equal(t, maxHistoryLimit, history.limit)

	rec = do(t, s, http.MethodGet, "/api/history?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOptionalRoutes(t *testing.T) {
	s := New(Options{Pipeline: &fakePipeline{}, Vision: fakeHealth{}})
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/history", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/metrics", "").Code)

	s = New(Options{Pipeline: &fakePipeline{}, Vision: fakeHealth{}, Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})})
	rec := do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestDecodeImage(t *testing.T) {
	got, err := decodeImage(" " + base64.StdEncoding.EncodeToString([]byte("abc")) + "\n")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	_, err = decodeImage("data:image/png;base64")
	assert.Error(t, err)
}
