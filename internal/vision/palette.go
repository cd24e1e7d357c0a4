package vision

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"image"
	"slices"

	"github.com/disintegration/imaging"
	"github.com/raine/trendgal/internal/fashion"
)

// DominantColorAnalyzer extracts the dominant colors of an encoded image,
// largest area first.
type DominantColorAnalyzer interface {
	DominantColors(ctx context.Context, image []byte) ([]fashion.DominantColor, error)
}

const (
	paletteSampleSize = 96
	paletteMaxColors  = 10
	// Bits kept per channel when bucketing pixels.
	paletteBits = 3
)

// PaletteAnalyzer computes dominant colors locally from a quantized color
// histogram of a downscaled copy of the image.
type PaletteAnalyzer struct{}

type bucket struct {
	r, g, b uint64
	n       int
}

func (PaletteAnalyzer) DominantColors(ctx context.Context, data []byte) ([]fashion.DominantColor, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return paletteOf(img), nil
}

func paletteOf(img image.Image) []fashion.DominantColor {
	sample := imaging.Fit(img, paletteSampleSize, paletteSampleSize, imaging.Box)
	bounds := sample.Bounds()

	buckets := make(map[uint32]*bucket)
	total := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			i := sample.PixOffset(x, y)
			r, g, b, a := sample.Pix[i], sample.Pix[i+1], sample.Pix[i+2], sample.Pix[i+3]
			if a < 128 {
				continue
			}
			key := uint32(r>>(8-paletteBits))<<(2*paletteBits) | uint32(g>>(8-paletteBits))<<paletteBits | uint32(b>>(8-paletteBits))
			bk := buckets[key]
			if bk == nil {
				bk = &bucket{}
				buckets[key] = bk
			}
			bk.r += uint64(r)
			bk.g += uint64(g)
			bk.b += uint64(b)
			bk.n++
			total++
		}
	}
	if total == 0 {
		return []fashion.DominantColor{}
	}

	keys := make([]uint32, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b uint32) int {
		if c := cmp.Compare(buckets[b].n, buckets[a].n); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	colors := make([]fashion.DominantColor, 0, min(len(keys), paletteMaxColors))
	for _, k := range keys[:min(len(keys), paletteMaxColors)] {
		bk := buckets[k]
		fraction := float64(bk.n) / float64(total)
		colors = append(colors, fashion.DominantColor{
			Red:           int(bk.r / uint64(bk.n)),
			Green:         int(bk.g / uint64(bk.n)),
			Blue:          int(bk.b / uint64(bk.n)),
			Score:         fraction,
			PixelFraction: fraction,
		})
	}
	return colors
}
