package fashion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferAttributes_Style(t *testing.T) {
	tests := []struct {
		label string
		want  Style
	}{
		{"formal sporty jacket", StyleFormal},
		{"Blazer", StyleFormal},
		{"white sneaker", StyleSporty},
		{"evening gown", StyleElegant},
		{"denim jacket", StyleStreet},
		{"T-shirt", StyleCasual},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, InferAttributes(tt.label, nil, nil).Style)
		})
	}
}

func TestInferAttributes_LengthAndSleeve(t *testing.T) {
	tests := []struct {
		label  string
		length Length
		sleeve Sleeve
	}{
		{"mini skirt", LengthShort, SleeveUnknown},
		{"maxi dress", LengthLong, SleeveUnknown},
		{"midi skirt", LengthMedium, SleeveUnknown},
		{"tank top", LengthUnknown, SleeveSleeveless},
		{"t-shirt", LengthUnknown, SleeveShort},
		{"long sleeve shirt", LengthLong, SleeveLong},
		{"sweater", LengthUnknown, SleeveLong},
		{"jeans", LengthUnknown, SleeveUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			attrs := InferAttributes(tt.label, nil, nil)
			assert.Equal(t, tt.length, attrs.Length)
			assert.Equal(t, tt.sleeve, attrs.Sleeve)
		})
	}
}

func TestInferAttributes_Pattern(t *testing.T) {
	tests := []struct {
		name   string
		label  string
		labels []string
		want   Pattern
	}{
		{"label stripe", "striped shirt", nil, PatternStriped},
		{"corroborating label", "shirt", []string{"Stripe", "Sleeve"}, PatternStriped},
		{"flower label", "dress", []string{"Flower"}, PatternFloral},
		{"floral label", "floral dress", nil, PatternFloral},
		{"pattern label", "skirt", []string{"Pattern"}, PatternGeometric},
		{"leopard label", "coat", []string{"Leopard"}, PatternAnimal},
		{"default", "shirt", []string{"Sleeve", "Collar"}, PatternSolid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferAttributes(tt.label, nil, tt.labels).Pattern)
		})
	}
}

func TestInferAttributes_Season(t *testing.T) {
	tests := []struct {
		name   string
		label  string
		colors []string
		want   Season
	}{
		{"coat beats warm colors", "wool coat", []string{"#FFA500"}, SeasonWinter},
		{"sweater", "red sweater", []string{"#C80A0A"}, SeasonWinter},
		{"shorts", "denim shorts", []string{"#0066CC"}, SeasonSummer},
		{"tank", "tank top", nil, SeasonSummer},
		{"warm prefix", "shirt", []string{"#FFA500"}, SeasonAutumn},
		{"warm prefix lower case", "shirt", []string{"#ffa500"}, SeasonAutumn},
		{"warm wins over cool", "shirt", []string{"#0066CC", "#FF0000"}, SeasonAutumn},
		{"cool prefix", "shirt", []string{"#0066CC"}, SeasonWinter},
		{"no prefix", "shirt", []string{"#123456"}, SeasonSpring},
		{"no colors", "shirt", nil, SeasonSpring},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferAttributes(tt.label, tt.colors, nil).Season)
		})
	}
}

func TestInferAttributes_KeepsColors(t *testing.T) {
	attrs := InferAttributes("shirt", []string{"#C80A0A", "#FFFFFF"}, nil)
	assert.Equal(t, []string{"#C80A0A", "#FFFFFF"}, attrs.Colors)

	attrs = InferAttributes("shirt", nil, nil)
	assert.NotNil(t, attrs.Colors)
	assert.Empty(t, attrs.Colors)
}
