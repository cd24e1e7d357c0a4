package fashion

import "strings"

type styleRule struct {
	style    Style
	keywords []string
}

// styleRules are checked in order; the first match wins, so an item that is
// both "formal" and "sporty" is formal.
var styleRules = []styleRule{
	{StyleFormal, []string{"suit", "blazer", "formal"}},
	{StyleSporty, []string{"sport", "athletic", "sneaker"}},
	{StyleElegant, []string{"elegant", "dress", "gown"}},
	{StyleStreet, []string{"street", "urban", "denim"}},
}

var (
	warmHexPrefixes = []string{"#FF", "#FFA", "#FF6", "#FF9"}
	coolHexPrefixes = []string{"#00", "#66", "#99", "#CC"}
)

// InferAttributes derives the attribute bundle for one item from its label,
// its colors (largest area first) and the full set of vision labels.
func InferAttributes(label string, colors []string, visionLabels []string) ItemAttributes {
	name := strings.ToLower(label)
	if colors == nil {
		colors = []string{}
	}
	return ItemAttributes{
		Colors:  colors,
		Style:   inferStyle(name),
		Length:  inferLength(name),
		Sleeve:  inferSleeve(name),
		Pattern: inferPattern(name, visionLabels),
		Season:  inferSeason(name, colors),
	}
}

func inferStyle(name string) Style {
	for _, rule := range styleRules {
		if containsAny(name, rule.keywords...) {
			return rule.style
		}
	}
	return StyleCasual
}

func inferLength(name string) Length {
	switch {
	case containsAny(name, "short", "mini"):
		return LengthShort
	case containsAny(name, "long", "maxi"):
		return LengthLong
	case containsAny(name, "midi", "knee"):
		return LengthMedium
	}
	return LengthUnknown
}

func inferSleeve(name string) Sleeve {
	switch {
	case containsAny(name, "sleeveless", "tank"):
		return SleeveSleeveless
	case containsAny(name, "short sleeve", "t-shirt"):
		return SleeveShort
	case containsAny(name, "long sleeve", "sweater"):
		return SleeveLong
	}
	return SleeveUnknown
}

func inferPattern(name string, visionLabels []string) Pattern {
	all := strings.ToLower(strings.Join(visionLabels, " "))
	switch {
	case strings.Contains(name, "stripe") || strings.Contains(all, "stripe"):
		return PatternStriped
	case strings.Contains(name, "floral") || strings.Contains(all, "flower"):
		return PatternFloral
	case strings.Contains(name, "geometric") || strings.Contains(all, "pattern"):
		return PatternGeometric
	case strings.Contains(name, "animal") || containsAny(all, "leopard", "zebra"):
		return PatternAnimal
	}
	return PatternSolid
}

// inferSeason prefers lexical cues in the label. Without one it scans the
// literal hex strings for warm or cool prefixes. This is a rough heuristic
// on the hex text, not a hue computation.
func inferSeason(name string, colors []string) Season {
	switch {
	case containsAny(name, "coat", "sweater"):
		return SeasonWinter
	case containsAny(name, "shorts", "tank"):
		return SeasonSummer
	}

	if anyHexHasPrefix(colors, warmHexPrefixes) {
		return SeasonAutumn
	}
	if anyHexHasPrefix(colors, coolHexPrefixes) {
		return SeasonWinter
	}
	return SeasonSpring
}

// seasonForColor maps a named color to the season word used in fallback queries.
func seasonForColor(c ColorName) Season {
	switch c {
	case ColorPink, ColorYellow:
		return SeasonSpring
	case ColorWhite, ColorBlue:
		return SeasonSummer
	case ColorBrown, ColorBeige, ColorOrange, ColorRed:
		return SeasonAutumn
	case ColorBlack, ColorGray:
		return SeasonWinter
	}
	return SeasonUnknown
}

func anyHexHasPrefix(colors, prefixes []string) bool {
	for _, c := range colors {
		upper := strings.ToUpper(c)
		for _, p := range prefixes {
			if strings.HasPrefix(upper, p) {
				return true
			}
		}
	}
	return false
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
