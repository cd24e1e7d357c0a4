package fashion

import (
	"encoding/json"
	"fmt"
)

// Category is the garment slot a detected item or product belongs to.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryTops
	CategoryBottoms
	CategoryDress
	CategoryShoes
	CategoryAccessories
	CategoryOuter
)

// Categories lists the concrete categories in detection order.
var Categories = []Category{
	CategoryTops,
	CategoryBottoms,
	CategoryDress,
	CategoryShoes,
	CategoryAccessories,
	CategoryOuter,
}

var categoryNames = map[Category]string{
	CategoryTops:        "tops",
	CategoryBottoms:     "bottoms",
	CategoryDress:       "dress",
	CategoryShoes:       "shoes",
	CategoryAccessories: "accessories",
	CategoryOuter:       "outer",
}

var categoryJapanese = map[Category]string{
	CategoryTops:        "トップス",
	CategoryBottoms:     "ボトムス",
	CategoryDress:       "ワンピース",
	CategoryShoes:       "靴",
	CategoryAccessories: "アクセサリー",
	CategoryOuter:       "アウター",
}

func (c Category) String() string {
	if s, ok := categoryNames[c]; ok {
		return s
	}
	return ""
}

// Japanese returns the catalog search term for the category.
func (c Category) Japanese() string {
	return categoryJapanese[c]
}

// ParseCategory parses the wire name of a category.
func ParseCategory(s string) (Category, bool) {
	for c, name := range categoryNames {
		if name == s {
			return c, true
		}
	}
	return CategoryUnknown, false
}

func (c Category) MarshalJSON() ([]byte, error) {
	return marshalEnum(c.String())
}

func (c *Category) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, "category", func(s string) bool {
		v, ok := ParseCategory(s)
		*c = v
		return ok
	})
}

// Style is the overall look of a single item.
type Style int

const (
	StyleCasual Style = iota
	StyleFormal
	StyleSporty
	StyleElegant
	StyleStreet
)

var styleNames = []string{"casual", "formal", "sporty", "elegant", "street"}

func (s Style) String() string {
	if int(s) < len(styleNames) {
		return styleNames[s]
	}
	return ""
}

func (s Style) MarshalJSON() ([]byte, error) { return marshalEnum(s.String()) }

func (s *Style) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, "style", func(v string) bool {
		i := indexOf(styleNames, v)
		*s = Style(max(i, 0))
		return i >= 0
	})
}

// Length is the garment length. LengthUnknown means not applicable or not detected.
type Length int

const (
	LengthUnknown Length = iota
	LengthShort
	LengthMedium
	LengthLong
)

var lengthNames = []string{"", "short", "medium", "long"}

func (l Length) String() string {
	if int(l) < len(lengthNames) {
		return lengthNames[l]
	}
	return ""
}

func (l Length) MarshalJSON() ([]byte, error) { return marshalEnum(l.String()) }

func (l *Length) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, "length", func(v string) bool {
		i := indexOf(lengthNames, v)
		*l = Length(max(i, 0))
		return i >= 0
	})
}

// Sleeve is the sleeve length. SleeveUnknown means not applicable or not detected.
type Sleeve int

const (
	SleeveUnknown Sleeve = iota
	SleeveSleeveless
	SleeveShort
	SleeveLong
)

var sleeveNames = []string{"", "sleeveless", "short", "long"}

func (s Sleeve) String() string {
	if int(s) < len(sleeveNames) {
		return sleeveNames[s]
	}
	return ""
}

func (s Sleeve) MarshalJSON() ([]byte, error) { return marshalEnum(s.String()) }

func (s *Sleeve) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, "sleeve", func(v string) bool {
		i := indexOf(sleeveNames, v)
		*s = Sleeve(max(i, 0))
		return i >= 0
	})
}

// Pattern is the surface pattern of an item.
type Pattern int

const (
	PatternSolid Pattern = iota
	PatternStriped
	PatternFloral
	PatternGeometric
	PatternAnimal
)

var patternNames = []string{"solid", "striped", "floral", "geometric", "animal"}

func (p Pattern) String() string {
	if int(p) < len(patternNames) {
		return patternNames[p]
	}
	return ""
}

func (p Pattern) MarshalJSON() ([]byte, error) { return marshalEnum(p.String()) }

func (p *Pattern) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, "pattern", func(v string) bool {
		i := indexOf(patternNames, v)
		*p = Pattern(max(i, 0))
		return i >= 0
	})
}

// Season is the season an item is best suited for. SeasonUnknown is only
// produced when decoding external data; inference always picks a season.
type Season int

const (
	SeasonUnknown Season = iota
	SeasonSpring
	SeasonSummer
	SeasonAutumn
	SeasonWinter
)

var seasonNames = []string{"", "spring", "summer", "autumn", "winter"}

var seasonJapanese = map[Season]string{
	SeasonSpring: "春",
	SeasonSummer: "夏",
	SeasonAutumn: "秋",
	SeasonWinter: "冬",
}

func (s Season) String() string {
	if int(s) < len(seasonNames) {
		return seasonNames[s]
	}
	return ""
}

// Japanese returns the season word used as a query prefix.
func (s Season) Japanese() string {
	if j, ok := seasonJapanese[s]; ok {
		return j
	}
	return "秋冬"
}

func (s Season) MarshalJSON() ([]byte, error) { return marshalEnum(s.String()) }

func (s *Season) UnmarshalJSON(b []byte) error {
	return unmarshalEnum(b, "season", func(v string) bool {
		i := indexOf(seasonNames, v)
		*s = Season(max(i, 0))
		return i >= 0
	})
}

// Label is a whole-image label reported by the vision service.
type Label struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// DominantColor is a color cluster with the fraction of the image it covers.
type DominantColor struct {
	Red           int     `json:"red"`
	Green         int     `json:"green"`
	Blue          int     `json:"blue"`
	Score         float64 `json:"score"`
	PixelFraction float64 `json:"pixelFraction"`
}

// Hex renders the color as #RRGGBB.
func (c DominantColor) Hex() string {
	return HexFromRGB(c.Red, c.Green, c.Blue)
}

// Vertex is a point in normalized [0,1] image coordinates.
type Vertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LocalizedObject is an object the vision service located in the image.
type LocalizedObject struct {
	Name     string   `json:"name"`
	Score    float64  `json:"score"`
	Vertices []Vertex `json:"normalizedVertices"`
}

// Observation is the vision service's view of one image.
type Observation struct {
	Labels  []Label           `json:"labels"`
	Colors  []DominantColor   `json:"colors"`
	Objects []LocalizedObject `json:"objects"`
}

// IsEmpty reports whether the observation carries no signal at all.
func (o Observation) IsEmpty() bool {
	return len(o.Labels) == 0 && len(o.Colors) == 0 && len(o.Objects) == 0
}

// BoundingBox is an axis-aligned box in normalized image coordinates.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ItemAttributes are the visual attributes inferred for a detected item.
type ItemAttributes struct {
	Colors  []string `json:"colors"`
	Style   Style    `json:"style"`
	Length  Length   `json:"length,omitempty"`
	Sleeve  Sleeve   `json:"sleeve,omitempty"`
	Pattern Pattern  `json:"pattern"`
	Season  Season   `json:"season,omitempty"`
}

// DetectedItem is a fashion item found in the image.
type DetectedItem struct {
	ID          string         `json:"id"`
	Category    Category       `json:"type"`
	Label       string         `json:"label,omitempty"`
	Description string         `json:"description"`
	Confidence  float64        `json:"confidence"`
	BoundingBox *BoundingBox   `json:"boundingBox,omitempty"`
	Attributes  ItemAttributes `json:"attributes"`
}

// SearchQuery is a catalog search query with its confidence.
type SearchQuery struct {
	Text             string   `json:"query"`
	Confidence       float64  `json:"confidence"`
	Reasoning        string   `json:"reasoning"`
	InferredCategory Category `json:"category"`
}

// Listing is a catalog search hit normalized from whichever response schema
// the catalog used.
type Listing struct {
	Code          string
	Name          string
	Price         int
	OriginalPrice int
	ImageURL      string
	ShopName      string
	ShopURL       string
	Rating        *float64
	ReviewCount   *int
}

// Product is a recommendation shown to the user.
type Product struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Price         int      `json:"price"`
	OriginalPrice *int     `json:"originalPrice,omitempty"`
	ImageURL      string   `json:"imageUrl"`
	ShopName      string   `json:"shopName"`
	ShopURL       string   `json:"shopUrl"`
	Category      Category `json:"category"`
	Tags          []string `json:"tags"`
	Similarity    *float64 `json:"similarity,omitempty"`
	Rating        *float64 `json:"rating,omitempty"`
	ReviewCount   *int     `json:"reviewCount,omitempty"`
}

func marshalEnum(s string) ([]byte, error) {
	return json.Marshal(s)
}

func unmarshalEnum(b []byte, kind string, set func(string) bool) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		set("")
		return nil
	}
	if !set(s) {
		return fmt.Errorf("unknown %s %q", kind, s)
	}
	return nil
}

func indexOf(names []string, v string) int {
	for i, n := range names {
		if n == v {
			return i
		}
	}
	return -1
}
