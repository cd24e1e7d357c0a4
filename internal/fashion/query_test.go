package fashion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	generateFn func(ctx context.Context, prompt string) (string, error)
	prompts    []string
}

func (f *fakeGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.generateFn(ctx, prompt)
}

func outfitObservation() Observation {
	return Observation{
		Labels: []Label{
			{Description: "Person", Score: 0.99},
			{Description: "Sweater", Score: 0.95},
			{Description: "Jeans", Score: 0.9},
			{Description: "Sneakers", Score: 0.85},
			{Description: "Street fashion", Score: 0.6},
		},
		Colors: []DominantColor{
			{Red: 200, Green: 10, Blue: 10, PixelFraction: 0.45},
			{Red: 20, Green: 40, Blue: 120, PixelFraction: 0.3},
		},
		Objects: []LocalizedObject{{Name: "Jeans", Score: 0.8, Vertices: square(0.2, 0.5, 0.4, 0.5)}},
	}
}

func TestSynthesize_GeneratedQueries(t *testing.T) {
	gen := &fakeGenerator{generateFn: func(ctx context.Context, prompt string) (string, error) {
		return "```json\n" + `{"queries": [
			{"query": "デニム ワイドパンツ ストリート", "confidence": 0.8, "reasoning": "r1"},
			{"query": "赤 ニット セーター", "confidence": 0.95, "reasoning": "r2"},
			{"query": "秋 コーデ", "confidence": 0.99, "reasoning": "compound"},
			{"query": "白 スニーカー", "confidence": 0.7, "reasoning": "r3"},
			{"query": "ベーシック トレンチコート", "confidence": 0.75, "reasoning": "r4"},
			{"query": "赤 セットアップ", "confidence": 0.9, "reasoning": "compound"},
			{"query": "ショルダーバッグ 黒", "confidence": 0.6, "reasoning": "r5"},
			{"query": "大人 ブラウス", "confidence": 0.5, "reasoning": "r6"}
		]}` + "\n```", nil
	}}
	obs := outfitObservation()

	queries := NewSynthesizer(gen).Synthesize(context.Background(), nil, obs, MustPersona(PersonaMarin))

	require.Len(t, queries, MaxQueries)
	texts := make([]string, len(queries))
	for i, q := range queries {
		texts[i] = q.Text
	}
	assert.Equal(t, []string{
		"赤 ニット セーター",
		"デニム ワイドパンツ ストリート",
		"ベーシック トレンチコート",
		"白 スニーカー",
		"ショルダーバッグ 黒",
	}, texts)
	assert.Equal(t, CategoryTops, queries[0].InferredCategory)
	assert.Equal(t, CategoryBottoms, queries[1].InferredCategory)
	assert.Equal(t, CategoryOuter, queries[2].InferredCategory)
	assert.Equal(t, CategoryShoes, queries[3].InferredCategory)
	assert.Equal(t, CategoryAccessories, queries[4].InferredCategory)
	assert.Equal(t, "r2", queries[0].Reasoning)
}

func TestSynthesize_PromptCarriesPersonaAndObservation(t *testing.T) {
	gen := &fakeGenerator{generateFn: func(ctx context.Context, prompt string) (string, error) {
		return `{"queries": [{"query": "白 ブラウス", "confidence": 0.9, "reasoning": ""}]}`, nil
	}}

	NewSynthesizer(gen).Synthesize(context.Background(), nil, outfitObservation(), MustPersona(PersonaKurisu))

	require.Len(t, gen.prompts, 1)
	prompt := gen.prompts[0]
	assert.Contains(t, prompt, "クリス（AI研究員）")
	assert.Contains(t, prompt, "25-35歳の大人女性")
	assert.Contains(t, prompt, "中価格帯〜高価格帯")
	assert.Contains(t, prompt, "きれいめ")
	assert.Contains(t, prompt, "「コーデ」「セット」「セットアップ」")
	assert.Contains(t, prompt, `"description":"Sweater"`)
	assert.Contains(t, prompt, `"hex":"#C80A0A"`)
	assert.Contains(t, prompt, `"name":"Jeans"`)
	assert.NotContains(t, prompt, "%!")
}

func TestSynthesize_UnparseableResponseFallsBack(t *testing.T) {
	gen := &fakeGenerator{generateFn: func(ctx context.Context, prompt string) (string, error) {
		return "Sorry, I cannot help with that.", nil
	}}
	obs := outfitObservation()
	observer := &recordingObserver{}

	queries := NewSynthesizer(gen, WithSynthesizerObserver(observer)).Synthesize(context.Background(), nil, obs, MustPersona(PersonaKurisu))

	assert.NotEmpty(t, queries)
	assert.LessOrEqual(t, len(queries), MaxQueries)
	assert.Equal(t, FallbackQueries(nil, obs), queries)
	for _, q := range queries {
		assert.False(t, isCompoundQuery(q.Text), q.Text)
		_, ok := categoryOfQuery(q.Text)
		assert.True(t, ok, "query %q names no item", q.Text)
	}
	assert.Equal(t, []string{TierDeterministicQueries}, observer.fallbacks)
}

func TestSynthesize_FallbackCases(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
	}{
		{"generator error", "", errors.New("quota exceeded")},
		{"schema mismatch", `{"queries": [{"query": "白 シャツ", "confidence": "high"}]}`, nil},
		{"missing queries", `{"results": []}`, nil},
		{"broken json", `{"queries": [`, nil},
		{"only compound queries", `{"queries": [{"query": "夏コーデ", "confidence": 0.9}, {"query": "outfit set", "confidence": 0.8}]}`, nil},
		{"empty list", `{"queries": []}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{generateFn: func(ctx context.Context, prompt string) (string, error) {
				return tt.response, tt.err
			}}
			obs := outfitObservation()

			queries := NewSynthesizer(gen).Synthesize(context.Background(), nil, obs, MustPersona(PersonaMarin))

			assert.Equal(t, FallbackQueries(nil, obs), queries)
		})
	}
}

func TestSynthesize_NothingToQuery(t *testing.T) {
	gen := &fakeGenerator{generateFn: func(ctx context.Context, prompt string) (string, error) {
		t.Fatal("generator should not be called")
		return "", nil
	}}

	queries := NewSynthesizer(gen).Synthesize(context.Background(), nil, Observation{}, MustPersona(PersonaKurisu))

	assert.NotNil(t, queries)
	assert.Empty(t, queries)
}

func TestFallbackQueries(t *testing.T) {
	queries := FallbackQueries(nil, outfitObservation())

	require.Len(t, queries, 4)

	assert.Equal(t, "赤 セーター", queries[0].Text)
	assert.InDelta(t, 0.855, queries[0].Confidence, 1e-9)
	assert.Equal(t, CategoryTops, queries[0].InferredCategory)

	assert.Equal(t, "赤 ジーンズ", queries[1].Text)
	assert.InDelta(t, 0.81, queries[1].Confidence, 1e-9)
	assert.Equal(t, CategoryBottoms, queries[1].InferredCategory)

	assert.Equal(t, "秋 スニーカー 赤", queries[2].Text)
	assert.InDelta(t, 0.8, queries[2].Confidence, 1e-9)
	assert.Equal(t, CategoryShoes, queries[2].InferredCategory)

	assert.Equal(t, "セーター レディース おしゃれ", queries[3].Text)
	assert.InDelta(t, 0.7, queries[3].Confidence, 1e-9)
}

func TestFallbackQueries_SingleCategorySkipsSeasonQueries(t *testing.T) {
	obs := Observation{
		Labels: []Label{
			{Description: "Shirt", Score: 0.9},
			{Description: "Blouse", Score: 0.85},
			{Description: "T-shirt", Score: 0.8},
		},
	}

	queries := FallbackQueries(nil, obs)

	texts := make([]string, len(queries))
	for i, q := range queries {
		texts[i] = q.Text
	}
	assert.Equal(t, []string{"シャツ", "ブラウス", "シャツ レディース おしゃれ"}, texts)
}

func TestFallbackQueries_ThresholdIsStrict(t *testing.T) {
	obs := Observation{Labels: []Label{{Description: "Skirt", Score: 0.7}}}

	assert.Empty(t, FallbackQueries(nil, obs))
}

func TestFallbackQueries_UsesItemsWhenLabelsDoNotTranslate(t *testing.T) {
	items := []DetectedItem{{
		ID:          "object_0",
		Category:    CategoryShoes,
		Label:       "Footwear",
		Description: "黒のFootwear",
		Confidence:  0.8,
		Attributes:  ItemAttributes{Colors: []string{"#000000"}},
	}}
	obs := Observation{Labels: []Label{{Description: "Fashion", Score: 0.95}}}

	queries := FallbackQueries(items, obs)

	require.Len(t, queries, 2)
	assert.Equal(t, "黒 靴", queries[0].Text)
	assert.InDelta(t, 0.72, queries[0].Confidence, 1e-9)
	assert.Equal(t, CategoryShoes, queries[0].InferredCategory)
	assert.Equal(t, "靴 レディース おしゃれ", queries[1].Text)
}

func TestFallbackQueries_CappedAndOrdered(t *testing.T) {
	obs := Observation{
		Labels: []Label{
			{Description: "Coat", Score: 0.99},
			{Description: "Skirt", Score: 0.98},
			{Description: "Boots", Score: 0.97},
			{Description: "Handbag", Score: 0.96},
		},
		Colors: []DominantColor{{Red: 0, Green: 0, Blue: 0, PixelFraction: 0.5}},
	}

	queries := FallbackQueries(nil, obs)

	assert.LessOrEqual(t, len(queries), MaxQueries)
	for i := 1; i < len(queries); i++ {
		assert.GreaterOrEqual(t, queries[i-1].Confidence, queries[i].Confidence)
	}
	assert.Equal(t, "冬 ブーツ 黒", queries[2].Text)
}

func TestIsCompoundQuery(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"夏 コーデ", true},
		{"セットアップ 黒", true},
		{"3点セット", true},
		{"summer outfit", true},
		{"Set of 3 shirts", true},
		{"sunset dress", false},
		{"白 シャツ", false},
		{"ワンピース", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, isCompoundQuery(tt.query))
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	got, err := extractJSONObject("```json\n{\"a\": {\"b\": 1}}\n```")
	require.NoError(t, err)
	assert.Equal(t, `{"a": {"b": 1}}`, got)

	_, err = extractJSONObject("no json here")
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = extractJSONObject("} backwards {")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestParseGeneratedQueries_SchemaViolation(t *testing.T) {
	_, err := parseGeneratedQueries(`{"queries": [{"query": "", "confidence": 0.5}]}`)
	assert.ErrorIs(t, err, ErrInvalidQueries)

	_, err = parseGeneratedQueries(`{"queries": [{"query": "白 シャツ", "confidence": 1.5}]}`)
	assert.ErrorIs(t, err, ErrInvalidQueries)
}
