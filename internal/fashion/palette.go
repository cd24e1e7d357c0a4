package fashion

import (
	"cmp"
	"math"
	"slices"
	"strings"
)

const paletteSize = 5

type RGB struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// ColorInfo describes one palette entry.
type ColorInfo struct {
	Hex        string `json:"hex"`
	Name       string `json:"name"`
	Percentage int    `json:"percentage"`
	RGB        RGB    `json:"rgb"`
}

// ColorPalette returns the image's top colors by pixel fraction.
func ColorPalette(obs Observation) []ColorInfo {
	sorted := slices.Clone(obs.Colors)
	slices.SortStableFunc(sorted, func(a, b DominantColor) int {
		return cmp.Compare(b.PixelFraction, a.PixelFraction)
	})
	sorted = sorted[:min(paletteSize, len(sorted))]

	out := make([]ColorInfo, len(sorted))
	for i, c := range sorted {
		hex := c.Hex()
		out[i] = ColorInfo{
			Hex:        hex,
			Name:       ColorNameOf(hex).Japanese(),
			Percentage: int(math.Round(c.PixelFraction * 100)),
			RGB:        RGB{c.Red, c.Green, c.Blue},
		}
	}
	return out
}

// PaletteHexes is the hex-only view of a palette.
func PaletteHexes(palette []ColorInfo) []string {
	out := make([]string, len(palette))
	for i, c := range palette {
		out[i] = c.Hex
	}
	return out
}

type overallStyleRule struct {
	name     string
	keywords []string
}

var overallStyleRules = []overallStyleRule{
	{"ガーリーカジュアル", []string{"cute", "sweet", "girly", "casual"}},
	{"エレガント", []string{"elegant", "sophisticated", "formal", "classy"}},
	{"ストリート", []string{"street", "urban", "edgy", "hip"}},
	{"スポーティ", []string{"sport", "athletic", "active", "sporty"}},
	{"フェミニン", []string{"feminine", "soft", "delicate", "romantic"}},
}

const defaultOverallStyle = "カジュアル"

// OverallStyle names the look of the whole image from its labels.
func OverallStyle(obs Observation) string {
	texts := make([]string, len(obs.Labels))
	for i, l := range obs.Labels {
		texts[i] = strings.ToLower(l.Description)
	}
	joined := strings.Join(texts, " ")
	for _, rule := range overallStyleRules {
		if containsAny(joined, rule.keywords...) {
			return rule.name
		}
	}
	return defaultOverallStyle
}

// OverallConfidence is the mean item confidence rounded to two decimals.
func OverallConfidence(items []DetectedItem) float64 {
	if len(items) == 0 {
		return 0
	}
	var sum float64
	for _, it := range items {
		sum += it.Confidence
	}
	return math.Round(sum/float64(len(items))*100) / 100
}

// DetectionStats summarizes how much per-item information detection found.
type DetectionStats struct {
	TotalItemsDetected        int `json:"totalItemsDetected"`
	ItemsWithBoundingBox      int `json:"itemsWithBoundingBox"`
	ItemsWithIndividualColors int `json:"itemsWithIndividualColors"`
	ColorAnalysisSuccessRate  int `json:"colorAnalysisSuccessRate"`
}

func ProgressStats(items []DetectedItem) DetectionStats {
	s := DetectionStats{TotalItemsDetected: len(items)}
	for _, it := range items {
		if it.BoundingBox != nil {
			s.ItemsWithBoundingBox++
		}
		if len(it.Attributes.Colors) > 0 {
			s.ItemsWithIndividualColors++
		}
	}
	if len(items) > 0 {
		s.ColorAnalysisSuccessRate = int(math.Round(float64(s.ItemsWithIndividualColors) / float64(len(items)) * 100))
	}
	return s
}
