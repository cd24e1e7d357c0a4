package vision

import (
	"bytes"
	"context"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/raine/trendgal/internal/fashion"
	"github.com/rs/zerolog/log"
)

const regionColors = 3

// RegionExtractor crops the source image to an item's bounding box and
// re-runs dominant color extraction on the crop.
type RegionExtractor struct {
	analyzer DominantColorAnalyzer
}

func NewRegionExtractor(analyzer DominantColorAnalyzer) *RegionExtractor {
	return &RegionExtractor{analyzer: analyzer}
}

// ExtractColors implements fashion.RegionColorExtractor. Failures are logged
// and reported as an empty list.
func (e *RegionExtractor) ExtractColors(ctx context.Context, data []byte, box fashion.BoundingBox) []string {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		log.Warn().Err(err).Msg("region colors: failed to decode image")
		return []string{}
	}

	rect, ok := pixelRect(img.Bounds(), box)
	if ok {
		img = imaging.Crop(img, rect)
	} else {
		log.Debug().
			Float64("x", box.X).
			Float64("y", box.Y).
			Float64("width", box.Width).
			Float64("height", box.Height).
			Msg("region colors: degenerate region, using full image")
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		log.Warn().Err(err).Msg("region colors: failed to encode crop")
		return []string{}
	}

	colors, err := e.analyzer.DominantColors(ctx, buf.Bytes())
	if err != nil {
		log.Warn().Err(err).Msg("region colors: analysis failed")
		return []string{}
	}
	return fashion.DominantHexColors(colors, regionColors)
}

// pixelRect converts a normalized box to pixel coordinates, flooring each
// value. ok is false when the rectangle is empty or leaves the image.
func pixelRect(bounds image.Rectangle, box fashion.BoundingBox) (image.Rectangle, bool) {
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	x := int(math.Floor(box.X * w))
	y := int(math.Floor(box.Y * h))
	cw := int(math.Floor(box.Width * w))
	ch := int(math.Floor(box.Height * h))

	if cw <= 0 || ch <= 0 || x < 0 || y < 0 || x+cw > bounds.Dx() || y+ch > bounds.Dy() {
		return image.Rectangle{}, false
	}
	origin := bounds.Min.Add(image.Pt(x, y))
	return image.Rectangle{Min: origin, Max: origin.Add(image.Pt(cw, ch))}, true
}
