package fashion

import "context"

// RegionColorExtractor narrows dominant-color extraction to a region of the
// source image. Implementations return hex colors, largest area first, at
// most three. An empty result means the color is unknown; it is not an error.
type RegionColorExtractor interface {
	ExtractColors(ctx context.Context, image []byte, box BoundingBox) []string
}

// NoRegionColors is used where no image processing is available.
type NoRegionColors struct{}

func (NoRegionColors) ExtractColors(context.Context, []byte, BoundingBox) []string {
	return []string{}
}

// ProgressFunc receives advisory progress while items are processed. current
// is strictly increasing and ends at total.
type ProgressFunc func(current, total int, item string)
