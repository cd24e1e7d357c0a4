package fashion

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
)

// MaxDetectedItems caps the number of items one image yields.
const MaxDetectedItems = 6

// DetectOptions carries the optional inputs of Detect.
type DetectOptions struct {
	// Image is the encoded source image. When set, items with a bounding box
	// get colors from their own region.
	Image    []byte
	Progress ProgressFunc
}

// Detector turns a vision observation into typed fashion items.
type Detector struct {
	regions  RegionColorExtractor
	observer Observer
}

type DetectorOption func(*Detector)

func WithDetectorObserver(o Observer) DetectorOption {
	return func(d *Detector) {
		if o != nil {
			d.observer = o
		}
	}
}

// NewDetector creates a Detector. A nil extractor means NoRegionColors.
func NewDetector(regions RegionColorExtractor, opts ...DetectorOption) *Detector {
	if regions == nil {
		regions = NoRegionColors{}
	}
	d := &Detector{regions: regions, observer: nopObserver{}}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type candidate struct {
	id       string
	category Category
	label    string
	score    float64
	box      *BoundingBox
}

// Detect returns at most one item per category, highest confidence first,
// capped at MaxDetectedItems. Sparse or empty observations yield an empty
// slice.
func (d *Detector) Detect(ctx context.Context, obs Observation, opts DetectOptions) []DetectedItem {
	survivors := dedupeByCategory(collectCandidates(obs))

	labelTexts := make([]string, len(obs.Labels))
	for i, l := range obs.Labels {
		labelTexts[i] = l.Description
	}
	imageColors := DominantHexColors(obs.Colors, 3)

	items := make([]DetectedItem, 0, len(survivors))
	for i, c := range survivors {
		colors := imageColors
		if len(opts.Image) > 0 && c.box != nil {
			if regionColors := d.regions.ExtractColors(ctx, opts.Image, *c.box); len(regionColors) > 0 {
				colors = regionColors
			} else {
				log.Debug().Str("item", c.label).Msg("no region colors, using whole-image colors")
			}
		}
		colors = slices.Clone(colors)
		if len(colors) > 3 {
			colors = colors[:3]
		}

		attrs := InferAttributes(c.label, colors, labelTexts)
		items = append(items, DetectedItem{
			ID:          c.id,
			Category:    c.category,
			Label:       c.label,
			Description: describe(c.label, attrs.Colors),
			Confidence:  c.score,
			BoundingBox: c.box,
			Attributes:  attrs,
		})

		if opts.Progress != nil {
			opts.Progress(i+1, len(survivors), c.label)
		}
	}

	d.observer.ItemsDetected(len(items))
	return items
}

func collectCandidates(obs Observation) []candidate {
	var out []candidate
	for _, cat := range Categories {
		idx := 0
		for _, l := range obs.Labels {
			lower := strings.ToLower(l.Description)
			if !containsAny(lower, categoryKeywords[cat]...) {
				continue
			}
			out = append(out, candidate{
				id:       fmt.Sprintf("%s_%d", cat, idx),
				category: cat,
				label:    l.Description,
				score:    l.Score,
				box:      findBoundingBox(l.Description, obs.Objects),
			})
			idx++
		}
	}

	for i, obj := range obs.Objects {
		if represented(obj.Name, out) {
			continue
		}
		cat := categorizeObject(obj.Name)
		if cat == CategoryUnknown {
			continue
		}
		out = append(out, candidate{
			id:       fmt.Sprintf("object_%d", i),
			category: cat,
			label:    obj.Name,
			score:    obj.Score,
			box:      boxFromVertices(obj.Vertices),
		})
	}
	return out
}

// dedupeByCategory keeps the most confident candidate of each category.
// Equal confidences keep discovery order.
func dedupeByCategory(cands []candidate) []candidate {
	sorted := slices.Clone(cands)
	slices.SortStableFunc(sorted, func(a, b candidate) int {
		return cmp.Compare(b.score, a.score)
	})

	seen := make(map[Category]bool)
	out := make([]candidate, 0, MaxDetectedItems)
	for _, c := range sorted {
		if seen[c.category] {
			continue
		}
		seen[c.category] = true
		out = append(out, c)
		if len(out) == MaxDetectedItems {
			break
		}
	}
	return out
}

func represented(objectName string, cands []candidate) bool {
	name := strings.ToLower(objectName)
	for _, c := range cands {
		if strings.Contains(strings.ToLower(c.label), name) {
			return true
		}
	}
	return false
}

func findBoundingBox(label string, objects []LocalizedObject) *BoundingBox {
	lower := strings.ToLower(label)
	for _, obj := range objects {
		name := strings.ToLower(obj.Name)
		if name == "" {
			continue
		}
		if strings.Contains(name, lower) || strings.Contains(lower, name) {
			return boxFromVertices(obj.Vertices)
		}
	}
	return nil
}

func boxFromVertices(vs []Vertex) *BoundingBox {
	if len(vs) == 0 {
		return nil
	}
	minX, minY := vs[0].X, vs[0].Y
	maxX, maxY := minX, minY
	for _, v := range vs[1:] {
		minX, maxX = min(minX, v.X), max(maxX, v.X)
		minY, maxY = min(minY, v.Y), max(maxY, v.Y)
	}
	return &BoundingBox{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// DominantHexColors returns up to n hex colors by descending pixel fraction.
func DominantHexColors(colors []DominantColor, n int) []string {
	sorted := slices.Clone(colors)
	slices.SortStableFunc(sorted, func(a, b DominantColor) int {
		return cmp.Compare(b.PixelFraction, a.PixelFraction)
	})
	out := make([]string, 0, min(n, len(sorted)))
	for _, c := range sorted {
		if len(out) == n {
			break
		}
		out = append(out, c.Hex())
	}
	return out
}

func describe(label string, colors []string) string {
	if len(colors) == 0 {
		return label
	}
	names := make([]string, len(colors))
	for i, c := range colors {
		names[i] = ColorNameOf(c).Japanese()
	}
	return strings.Join(names, "・") + "の" + label
}
