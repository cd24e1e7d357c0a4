package fashion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorPalette(t *testing.T) {
	obs := Observation{Colors: []DominantColor{
		{Red: 0, Green: 0, Blue: 0, PixelFraction: 0.05},
		{Red: 200, Green: 10, Blue: 10, PixelFraction: 0.4},
		{Red: 255, Green: 255, Blue: 255, PixelFraction: 0.2},
		{Red: 0, Green: 102, Blue: 204, PixelFraction: 0.15},
		{Red: 128, Green: 128, Blue: 128, PixelFraction: 0.1},
		{Red: 255, Green: 165, Blue: 0, PixelFraction: 0.08},
	}}

	palette := ColorPalette(obs)

	require.Len(t, palette, 5)
	assert.Equal(t, []string{"#C80A0A", "#FFFFFF", "#0066CC", "#808080", "#FFA500"}, PaletteHexes(palette))
	assert.Equal(t, ColorInfo{Hex: "#C80A0A", Name: "赤", Percentage: 40, RGB: RGB{200, 10, 10}}, palette[0])
}

func TestOverallStyle(t *testing.T) {
	tests := []struct {
		labels []string
		want   string
	}{
		{[]string{"Sweater", "Casual wear"}, "ガーリーカジュアル"},
		{[]string{"Formal wear", "Suit"}, "エレガント"},
		{[]string{"Street fashion"}, "ストリート"},
		{[]string{"Active pants", "Sportswear"}, "スポーティ"},
		{[]string{"Romantic", "Lace"}, "フェミニン"},
		{[]string{"Jeans"}, "カジュアル"},
		{nil, "カジュアル"},
	}
	for _, tt := range tests {
		labels := make([]Label, len(tt.labels))
		for i, l := range tt.labels {
			labels[i] = Label{Description: l, Score: 0.9}
		}
		assert.Equal(t, tt.want, OverallStyle(Observation{Labels: labels}), "%v", tt.labels)
	}
}

func TestOverallConfidence(t *testing.T) {
	assert.Equal(t, 0.0, OverallConfidence(nil))
	items := []DetectedItem{{Confidence: 0.9}, {Confidence: 0.8}, {Confidence: 0.75}}
	assert.Equal(t, 0.82, OverallConfidence(items))
}

func TestProgressStats(t *testing.T) {
	assert.Equal(t, DetectionStats{}, ProgressStats(nil))

	items := []DetectedItem{
		{BoundingBox: &BoundingBox{Width: 0.5, Height: 0.5}, Attributes: ItemAttributes{Colors: []string{"#000000"}}},
		{Attributes: ItemAttributes{Colors: []string{"#FFFFFF"}}},
		{Attributes: ItemAttributes{Colors: []string{}}},
	}
	assert.Equal(t, DetectionStats{
		TotalItemsDetected:        3,
		ItemsWithBoundingBox:      1,
		ItemsWithIndividualColors: 2,
		ColorAnalysisSuccessRate:  67,
	}, ProgressStats(items))
}
