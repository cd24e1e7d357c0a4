package fashion

import (
	"fmt"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ColorName is one of the named colors used in descriptions and queries.
type ColorName int

const (
	ColorGray ColorName = iota
	ColorRed
	ColorGreen
	ColorBlue
	ColorYellow
	ColorOrange
	ColorPurple
	ColorPink
	ColorBlack
	ColorWhite
	ColorBrown
	ColorBeige
)

var colorNames = map[ColorName][2]string{
	ColorGray:   {"gray", "グレー"},
	ColorRed:    {"red", "赤"},
	ColorGreen:  {"green", "緑"},
	ColorBlue:   {"blue", "青"},
	ColorYellow: {"yellow", "黄色"},
	ColorOrange: {"orange", "オレンジ"},
	ColorPurple: {"purple", "紫"},
	ColorPink:   {"pink", "ピンク"},
	ColorBlack:  {"black", "黒"},
	ColorWhite:  {"white", "白"},
	ColorBrown:  {"brown", "茶色"},
	ColorBeige:  {"beige", "ベージュ"},
}

func (c ColorName) String() string { return colorNames[c][0] }

// Japanese returns the catalog-language color word.
func (c ColorName) Japanese() string { return colorNames[c][1] }

// IsAchromatic reports whether the color carries no hue.
func (c ColorName) IsAchromatic() bool {
	return c == ColorWhite || c == ColorBlack || c == ColorGray
}

type swatch struct {
	hex  string
	name ColorName
}

// referenceSwatches are the representative shades each color name is matched against.
var referenceSwatches = []swatch{
	{"#FF0000", ColorRed},
	{"#DC143C", ColorRed},
	{"#B22222", ColorRed},
	{"#00FF00", ColorGreen},
	{"#008000", ColorGreen},
	{"#228B22", ColorGreen},
	{"#0000FF", ColorBlue},
	{"#0066CC", ColorBlue},
	{"#4169E1", ColorBlue},
	{"#FFFF00", ColorYellow},
	{"#FFD700", ColorYellow},
	{"#FFA500", ColorOrange},
	{"#FF4500", ColorOrange},
	{"#800080", ColorPurple},
	{"#9370DB", ColorPurple},
	{"#FF1493", ColorPink},
	{"#FFB6C1", ColorPink},
	{"#FFC0CB", ColorPink},
	{"#FF69B4", ColorPink},
	{"#000000", ColorBlack},
	{"#2F2F2F", ColorBlack},
	{"#FFFFFF", ColorWhite},
	{"#F5F5F5", ColorWhite},
	{"#808080", ColorGray},
	{"#A9A9A9", ColorGray},
	{"#696969", ColorGray},
	{"#D3D3D3", ColorGray},
	{"#8B4513", ColorBrown},
	{"#A0522D", ColorBrown},
	{"#D2691E", ColorBrown},
	{"#F0E68C", ColorBeige},
	{"#DEB887", ColorBeige},
	{"#F5DEB3", ColorBeige},
}

var referenceColors = func() []colorful.Color {
	out := make([]colorful.Color, len(referenceSwatches))
	for i, s := range referenceSwatches {
		c, err := colorful.Hex(s.hex)
		if err != nil {
			panic(fmt.Sprintf("invalid reference swatch %s: %v", s.hex, err))
		}
		out[i] = c
	}
	return out
}()

// ColorNameOf maps a hex color to the nearest named color. Desaturated
// colors short-circuit to white, black or gray by lightness before any hue
// matching. Malformed input yields gray.
func ColorNameOf(hex string) ColorName {
	c, ok := parseHex(hex)
	if !ok {
		return ColorGray
	}

	_, s, l := c.Hsl()
	if s < 0.1 {
		switch {
		case l > 0.9:
			return ColorWhite
		case l < 0.1:
			return ColorBlack
		default:
			return ColorGray
		}
	}

	best := ColorGray
	minDistance := math.Inf(1)
	for i, ref := range referenceColors {
		// DistanceRgb works on 0..1 channels, which preserves the ordering
		// of plain 0..255 Euclidean distance.
		if d := c.DistanceRgb(ref); d < minDistance {
			minDistance = d
			best = referenceSwatches[i].name
		}
	}
	return best
}

// HexFromRGB renders 0..255 channels as upper-case #RRGGBB.
func HexFromRGB(r, g, b int) string {
	return fmt.Sprintf("#%02X%02X%02X", clampChannel(r), clampChannel(g), clampChannel(b))
}

func clampChannel(v int) int {
	return min(max(v, 0), 255)
}

func parseHex(hex string) (colorful.Color, bool) {
	hex = strings.TrimSpace(hex)
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	if len(hex) != 7 {
		return colorful.Color{}, false
	}
	for _, r := range hex[1:] {
		if !isHexDigit(r) {
			return colorful.Color{}, false
		}
	}
	c, err := colorful.Hex(strings.ToLower(hex))
	if err != nil {
		return colorful.Color{}, false
	}
	return c, true
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
