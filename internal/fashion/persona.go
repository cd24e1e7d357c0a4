package fashion

import "strings"

// PersonaID names one of the supported shopper personas.
type PersonaID string

const (
	PersonaKurisu PersonaID = "kurisu"
	PersonaMarin  PersonaID = "marin"
)

// DefaultPersona is used when no persona or an unknown one is requested.
const DefaultPersona = PersonaKurisu

type ExampleQuery struct {
	Query      string
	Confidence float64
	Kind       string
}

// Lines are the persona's chat lines for each pipeline stage.
type Lines struct {
	Greeting       string
	Thinking       string
	Analysis       string
	Recommendation string
	Reaction       string
}

// Persona biases query synthesis toward a shopper archetype.
type Persona struct {
	ID             PersonaID
	Name           string
	FashionStyle   string
	Preferences    []string
	Priorities     []string
	Keywords       []string
	QueryGuideline string
	AgeGroup       string
	PriceRange     string
	Examples       []ExampleQuery
	Lines          Lines
}

var personas = map[PersonaID]Persona{
	PersonaKurisu: {
		ID:             PersonaKurisu,
		Name:           "クリス（AI研究員）",
		FashionStyle:   "知的で合理性のあるファッション",
		Preferences:    []string{"機能性", "シンプル", "上品", "知的"},
		Priorities:     []string{"品質", "着心地", "実用性", "コストパフォーマンス"},
		Keywords:       []string{"ベーシック", "シンプル", "きれいめ", "オフィス", "大人", "上品"},
		QueryGuideline: "機能性と実用性を重視し、知的で洗練された印象のアイテムを優先する",
		AgeGroup:       "25-35歳の大人女性",
		PriceRange:     "中価格帯〜高価格帯",
		Examples: []ExampleQuery{
			{"ベージュ テーラードジャケット きれいめ", 0.95, "知的単品検索"},
			{"白 シンプル ブラウス オフィス", 0.90, "合理的トップス検索"},
			{"大人 ベーシック トレンチコート", 0.85, "上品アウター検索"},
		},
		Lines: Lines{
			Greeting:       "ふむ...また新しい被験者ね。まあ、私のAIファッション解析システムで、あなたの趣味を分析してあげる。",
			Thinking:       "ちょっと待って...画像データを詳細に解析中よ。私の高精度アルゴリズムに任せておきなさい。",
			Analysis:       "なるほど...思ったより悪くないコーディネートじゃない。データ解析完了よ。",
			Recommendation: "はあ...仕方ないから、私が厳選した類似アイテムを教えてあげる。感謝しなさい！",
			Reaction:       "ちょっと！この類似度、私の予測を上回ってるじゃない...！",
		},
	},
	PersonaMarin: {
		ID:             PersonaMarin,
		Name:           "マリン（若者向けトレンド）",
		FashionStyle:   "若者が好むカジュアルで流行性の高いファッション",
		Preferences:    []string{"カジュアル", "トレンド", "プチプラ", "着回し", "リラックス"},
		Priorities:     []string{"トレンド感", "着心地", "コスパ", "日常使い", "親しみやすさ"},
		Keywords:       []string{"カジュアル", "プチプラ", "トレンド", "韓国", "ストリート", "ナチュラル"},
		QueryGuideline: "カジュアルで親しみやすく、トレンド感のある日常使いしやすいアイテムを優先する。ギャル系に限らず幅広いカジュアルスタイルに対応",
		AgeGroup:       "16-25歳の若い女性",
		PriceRange:     "低価格帯〜中価格帯",
		Examples: []ExampleQuery{
			{"ベージュ オーバーサイズ Tシャツ", 0.95, "カジュアル単品検索"},
			{"デニム ワイドパンツ ストリート", 0.90, "ボトムス単品検索"},
			{"カーキ ミリタリージャケット カジュアル", 0.85, "アウター単品検索"},
		},
		Lines: Lines{
			Greeting:       "やっほー♡ まりんだよ〜！今日はどんなキュートな服を見つけちゃおうかな？",
			Thinking:       "うーん、どんなコーデかな〜？まりんがバッチリ分析しちゃうから待ってて！",
			Analysis:       "わあああ！めっちゃ可愛いじゃん！このコーデ、まりん的にはかなり高得点だよ〜♡",
			Recommendation: "じゃじゃーん！まりんが選んだ超キュートなアイテムたち〜！絶対似合うと思う♡",
			Reaction:       "えええ！？この類似度やばくない！？まりんもびっくりしちゃった〜！",
		},
	},
}

// ParsePersona looks up a persona by id. Unknown or empty ids return the
// default persona and false.
func ParsePersona(id string) (Persona, bool) {
	p, ok := personas[PersonaID(strings.ToLower(strings.TrimSpace(id)))]
	if !ok {
		return personas[DefaultPersona], false
	}
	return p, true
}

// MustPersona returns the persona for a known id.
func MustPersona(id PersonaID) Persona {
	p, ok := personas[id]
	if !ok {
		panic("unknown persona " + string(id))
	}
	return p
}
