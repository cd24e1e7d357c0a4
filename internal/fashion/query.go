package fashion

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/lithammer/dedent"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

// MaxQueries caps the number of queries one synthesis returns.
const MaxQueries = 5

const fallbackConfidenceThreshold = 0.7

// TextGenerator is a generative text backend.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Synthesizer builds catalog search queries for detected items.
type Synthesizer struct {
	gen      TextGenerator
	observer Observer
}

type SynthesizerOption func(*Synthesizer)

func WithSynthesizerObserver(o Observer) SynthesizerOption {
	return func(s *Synthesizer) {
		if o != nil {
			s.observer = o
		}
	}
}

// NewSynthesizer creates a Synthesizer. A nil generator always uses the
// deterministic queries.
func NewSynthesizer(gen TextGenerator, opts ...SynthesizerOption) *Synthesizer {
	s := &Synthesizer{gen: gen, observer: nopObserver{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize returns at most MaxQueries single-item queries, most confident
// first. Generator failures fall back to deterministic queries built from the
// observation.
func (s *Synthesizer) Synthesize(ctx context.Context, items []DetectedItem, obs Observation, persona Persona) []SearchQuery {
	if obs.IsEmpty() && len(items) == 0 {
		return []SearchQuery{}
	}

	if s.gen != nil {
		queries, err := s.generate(ctx, items, obs, persona)
		if err == nil && len(queries) > 0 {
			return queries
		}
		if err != nil {
			log.Warn().Err(err).Str("persona", string(persona.ID)).Msg("query generation failed, using fallback queries")
		} else {
			log.Warn().Str("persona", string(persona.ID)).Msg("generator returned no usable queries, using fallback queries")
		}
	}

	s.observer.FallbackUsed(TierDeterministicQueries)
	return FallbackQueries(items, obs)
}

func (s *Synthesizer) generate(ctx context.Context, items []DetectedItem, obs Observation, persona Persona) ([]SearchQuery, error) {
	prompt, err := buildQueryPrompt(obs, persona)
	if err != nil {
		return nil, err
	}
	text, err := s.gen.GenerateText(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate queries: %w", err)
	}
	queries, err := parseGeneratedQueries(text)
	if err != nil {
		return nil, err
	}

	out := make([]SearchQuery, 0, len(queries))
	for _, q := range queries {
		if isCompoundQuery(q.Text) {
			log.Debug().Str("query", q.Text).Msg("dropping multi-item query")
			continue
		}
		q.InferredCategory = inferQueryCategory(q.Text, items)
		out = append(out, q)
	}
	return finalizeQueries(out), nil
}

const queryPromptTemplate = `
	あなたはファッションECサイトの検索クエリ生成の専門家です。
	画像解析結果から、ショッピングサイトで効果的に商品を検索するための日本語クエリを生成してください。

	【キャラクター設定】
	現在のキャラクター: %s
	ファッション志向: %s
	好みの傾向: %s
	重視するポイント: %s

	画像解析結果:
	- 検出されたラベル: %s
	- 検出された色: %s
	- 検出されたオブジェクト: %s

	【重要な要件】
	1. 信頼度スコアが高い順に5つの検索クエリを生成してください
	2. キャラクターの性格に合わせたクエリを生成すること:
	   - %sの場合: %s
	   - 検索キーワードに%sなどを含める
	3. 検索クエリは必ず単品アイテムで生成すること:
	   - 「コーデ」「セット」「セットアップ」などのワードは使用禁止
	   - 必ず具体的なアイテム名（シャツ、パンツ、ジャケット、スカート等）で検索
	   - 複数カテゴリが検出された場合も、それぞれ個別のアイテムとして検索クエリを作成
	4. クエリの形式:
	   - 色 + アイテム名 + キャラクター特徴
	   - 素材・シルエット + アイテム名
	   - ブランド系統 + アイテム名
	5. 考慮点:
	   - %sをターゲットとした商品を重視
	   - %sの価格帯を想定
	   - 各アイテムが単体で購入・着用できることを前提とする

	【キャラクター別例】
	%s

	以下のJSON形式で回答してください:
	{"queries": [{"query": "検索クエリ", "confidence": 0.95, "reasoning": "クエリ選定理由"}]}

	JSONオブジェクトのみを返してください。
`

type promptLabel struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

type promptColor struct {
	Hex           string  `json:"hex"`
	Name          string  `json:"name"`
	PixelFraction float64 `json:"pixelFraction"`
}

type promptObject struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func buildQueryPrompt(obs Observation, persona Persona) (string, error) {
	labels := make([]promptLabel, len(obs.Labels))
	for i, l := range obs.Labels {
		labels[i] = promptLabel{l.Description, l.Score}
	}
	colors := make([]promptColor, len(obs.Colors))
	for i, c := range obs.Colors {
		hex := c.Hex()
		colors[i] = promptColor{hex, ColorNameOf(hex).Japanese(), c.PixelFraction}
	}
	objects := make([]promptObject, len(obs.Objects))
	for i, o := range obs.Objects {
		objects[i] = promptObject{o.Name, o.Score}
	}

	labelsJSON, err := json.Marshal(labels)
	if err != nil {
		return "", fmt.Errorf("failed to marshal labels: %w", err)
	}
	colorsJSON, err := json.Marshal(colors)
	if err != nil {
		return "", fmt.Errorf("failed to marshal colors: %w", err)
	}
	objectsJSON, err := json.Marshal(objects)
	if err != nil {
		return "", fmt.Errorf("failed to marshal objects: %w", err)
	}

	examples := make([]string, len(persona.Examples))
	for i, ex := range persona.Examples {
		examples[i] = fmt.Sprintf("- \"%s\" (信頼度: %.2f) - %s", ex.Query, ex.Confidence, ex.Kind)
	}

	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(queryPromptTemplate)),
		persona.Name,
		persona.FashionStyle,
		strings.Join(persona.Preferences, "、"),
		strings.Join(persona.Priorities, "、"),
		labelsJSON,
		colorsJSON,
		objectsJSON,
		persona.Name,
		persona.QueryGuideline,
		strings.Join(persona.Keywords, "、"),
		persona.AgeGroup,
		persona.PriceRange,
		strings.Join(examples, "\n"),
	), nil
}

const queryResponseSchema = `{
	"type": "object",
	"required": ["queries"],
	"properties": {
		"queries": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["query", "confidence"],
				"properties": {
					"query": {"type": "string", "minLength": 1},
					"confidence": {"type": "number", "minimum": 0, "maximum": 1},
					"reasoning": {"type": "string"}
				}
			}
		}
	}
}`

var querySchema = func() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(queryResponseSchema))
	if err != nil {
		panic(fmt.Sprintf("invalid query response schema: %v", err))
	}
	return s
}()

// extractJSONObject extracts a JSON object from text that may contain markdown
// or other surrounding text.
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", ErrNoJSON
	}
	return text[start : end+1], nil
}

func parseGeneratedQueries(text string) ([]SearchQuery, error) {
	jsonStr, err := extractJSONObject(text)
	if err != nil {
		return nil, err
	}

	result, err := querySchema.Validate(gojsonschema.NewStringLoader(jsonStr))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQueries, err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidQueries, errs)
	}

	var resp struct {
		Queries []struct {
			Query      string  `json:"query"`
			Confidence float64 `json:"confidence"`
			Reasoning  string  `json:"reasoning"`
		} `json:"queries"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQueries, err)
	}
	out := make([]SearchQuery, 0, len(resp.Queries))
	for _, q := range resp.Queries {
		out = append(out, SearchQuery{
			Text:       strings.TrimSpace(q.Query),
			Confidence: q.Confidence,
			Reasoning:  q.Reasoning,
		})
	}
	return out, nil
}

var compoundWordsJapanese = []string{"コーデ", "セットアップ", "セット"}

var compoundWordsEnglish = []string{"outfit", "outfits", "set", "sets"}

// isCompoundQuery reports whether a query asks for a multi-item outfit or
// set rather than a single garment.
func isCompoundQuery(text string) bool {
	if containsAny(text, compoundWordsJapanese...) {
		return true
	}
	for _, w := range asciiWords(strings.ToLower(text)) {
		if slices.Contains(compoundWordsEnglish, w) {
			return true
		}
	}
	return false
}

func inferQueryCategory(text string, items []DetectedItem) Category {
	if c, ok := categoryOfQuery(text); ok {
		return c
	}
	return defaultCategory(items)
}

func defaultCategory(items []DetectedItem) Category {
	if len(items) > 0 && items[0].Category != CategoryUnknown {
		return items[0].Category
	}
	return CategoryTops
}

type fallbackPick struct {
	source   string
	item     string
	score    float64
	category Category
	color    ColorName
	hasColor bool
}

// FallbackQueries builds queries without a generator: color-qualified
// queries for the top labels, season-qualified queries for further items
// when several categories are present, and one broad query for the main item.
func FallbackQueries(items []DetectedItem, obs Observation) []SearchQuery {
	mainColor, hasMainColor := mainColorName(items, obs)
	picks := fallbackPicks(items, obs)

	queries := make([]SearchQuery, 0, MaxQueries)
	for _, p := range picks[:min(2, len(picks))] {
		text := joinWords(colorWord(mainColor, hasMainColor), p.item)
		queries = append(queries, SearchQuery{
			Text:             text,
			Confidence:       clamp01(p.score * 0.9),
			Reasoning:        fmt.Sprintf("単品検索: %sが検出されました", p.source),
			InferredCategory: p.category,
		})
	}

	categories := make(map[Category]bool)
	for _, p := range picks {
		categories[p.category] = true
	}
	if len(categories) >= 2 && len(picks) > 2 {
		for i, p := range picks[2:] {
			color, ok := p.color, p.hasColor
			if !ok {
				color, ok = mainColor, hasMainColor
			}
			season := SeasonUnknown
			if ok {
				season = seasonForColor(color)
			}
			queries = append(queries, SearchQuery{
				Text:             joinWords(season.Japanese(), p.item, colorWord(color, ok)),
				Confidence:       clamp01(0.8 - float64(i)*0.05),
				Reasoning:        fmt.Sprintf("追加単品検索: 複数カテゴリから%sを個別検索", p.item),
				InferredCategory: p.category,
			})
		}
	}

	if len(picks) > 0 {
		queries = append(queries, SearchQuery{
			Text:             joinWords(picks[0].item, "レディース", "おしゃれ"),
			Confidence:       0.7,
			Reasoning:        "特徴検索: メインアイテムで幅広い結果を取得",
			InferredCategory: picks[0].category,
		})
	}

	queries = slices.DeleteFunc(queries, func(q SearchQuery) bool { return isCompoundQuery(q.Text) })
	return finalizeQueries(queries)
}

// fallbackPicks chooses up to three items to query for: confident labels that
// translate to a known item, else the detected items themselves.
func fallbackPicks(items []DetectedItem, obs Observation) []fallbackPick {
	itemColors := make(map[string][]string)
	for _, it := range items {
		if it.Label != "" {
			itemColors[strings.ToLower(it.Label)] = it.Attributes.Colors
		}
	}

	labels := slices.Clone(obs.Labels)
	slices.SortStableFunc(labels, func(a, b Label) int { return cmp.Compare(b.Score, a.Score) })

	var picks []fallbackPick
	for _, l := range labels {
		if len(picks) == 3 {
			break
		}
		if l.Score <= fallbackConfidenceThreshold {
			continue
		}
		jp, cat, ok := TranslateItem(l.Description)
		if !ok {
			continue
		}
		p := fallbackPick{source: l.Description, item: jp, score: l.Score, category: cat}
		if cs := itemColors[strings.ToLower(l.Description)]; len(cs) > 0 {
			p.color, p.hasColor = ColorNameOf(cs[0]), true
		}
		picks = append(picks, p)
	}
	if len(picks) > 0 {
		return picks
	}

	for _, it := range items[:min(3, len(items))] {
		p := fallbackPick{source: it.Description, item: itemName(it), score: it.Confidence, category: it.Category}
		if len(it.Attributes.Colors) > 0 {
			p.color, p.hasColor = ColorNameOf(it.Attributes.Colors[0]), true
		}
		picks = append(picks, p)
	}
	return picks
}

func mainColorName(items []DetectedItem, obs Observation) (ColorName, bool) {
	if hexes := DominantHexColors(obs.Colors, 1); len(hexes) > 0 {
		return ColorNameOf(hexes[0]), true
	}
	for _, it := range items {
		if len(it.Attributes.Colors) > 0 {
			return ColorNameOf(it.Attributes.Colors[0]), true
		}
	}
	return ColorGray, false
}

func colorWord(c ColorName, ok bool) string {
	if !ok {
		return ""
	}
	return c.Japanese()
}

func finalizeQueries(queries []SearchQuery) []SearchQuery {
	slices.SortStableFunc(queries, func(a, b SearchQuery) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})
	if len(queries) > MaxQueries {
		queries = queries[:MaxQueries]
	}
	return queries
}

func joinWords(words ...string) string {
	out := words[:0:0]
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, w)
		}
	}
	return strings.Join(out, " ")
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
