package vision

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/raine/trendgal/internal/fashion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnalyzer struct {
	dominantColorsFn func(ctx context.Context, image []byte) ([]fashion.DominantColor, error)
	images           [][]byte
}

func (f *fakeAnalyzer) DominantColors(ctx context.Context, image []byte) ([]fashion.DominantColor, error) {
	f.images = append(f.images, image)
	return f.dominantColorsFn(ctx, image)
}

var (
	black = color.NRGBA{A: 255}
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

func TestRegionExtractor_CropsToBox(t *testing.T) {
	data := encodePNG(t, splitImage(40, 20, 10, white, black))
	extractor := NewRegionExtractor(PaletteAnalyzer{})

	colors := extractor.ExtractColors(context.Background(), data, fashion.BoundingBox{X: 0.5, Y: 0, Width: 0.5, Height: 1})

	assert.Equal(t, []string{"#000000"}, colors)
}

func TestRegionExtractor_DegenerateBoxUsesFullImage(t *testing.T) {
	data := encodePNG(t, splitImage(40, 20, 30, white, black))

	for _, box := range []fashion.BoundingBox{
		{X: 0.5, Y: 0.5, Width: 0, Height: 0.5},
		{X: 0.9, Y: 0, Width: 0.5, Height: 1},
		{X: -0.1, Y: 0, Width: 0.5, Height: 1},
		{X: 0.2, Y: 0.2, Width: 0.01, Height: 0.5},
	} {
		colors := NewRegionExtractor(PaletteAnalyzer{}).ExtractColors(context.Background(), data, box)
		assert.Equal(t, []string{"#FFFFFF", "#000000"}, colors, "%+v", box)
	}
}

func TestRegionExtractor_ReencodesCrop(t *testing.T) {
	data := encodePNG(t, splitImage(100, 50, 50, white, black))
	analyzer := &fakeAnalyzer{dominantColorsFn: func(ctx context.Context, image []byte) ([]fashion.DominantColor, error) {
		return []fashion.DominantColor{
			{Red: 10, Green: 10, Blue: 10, PixelFraction: 0.1},
			{Red: 200, Green: 0, Blue: 0, PixelFraction: 0.5},
			{Red: 0, Green: 0, Blue: 200, PixelFraction: 0.2},
			{Red: 0, Green: 200, Blue: 0, PixelFraction: 0.15},
		}, nil
	}}

	colors := NewRegionExtractor(analyzer).ExtractColors(context.Background(), data, fashion.BoundingBox{X: 0.255, Y: 0.1, Width: 0.5, Height: 0.5})

	assert.Equal(t, []string{"#C80000", "#0000C8", "#00C800"}, colors)
	require.Len(t, analyzer.images, 1)
	crop, err := imaging.Decode(bytes.NewReader(analyzer.images[0]))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 50, 25), crop.Bounds())
}

func TestRegionExtractor_FailuresYieldEmpty(t *testing.T) {
	failing := &fakeAnalyzer{dominantColorsFn: func(ctx context.Context, image []byte) ([]fashion.DominantColor, error) {
		return nil, errors.New("quota exceeded")
	}}
	box := fashion.BoundingBox{X: 0, Y: 0, Width: 1, Height: 1}

	colors := NewRegionExtractor(failing).ExtractColors(context.Background(), encodePNG(t, splitImage(4, 4, 2, white, black)), box)
	assert.NotNil(t, colors)
	assert.Empty(t, colors)

	colors = NewRegionExtractor(failing).ExtractColors(context.Background(), []byte("garbage"), box)
	assert.NotNil(t, colors)
	assert.Empty(t, colors)
	assert.Len(t, failing.images, 1)
}

func TestPixelRect(t *testing.T) {
	bounds := image.Rect(0, 0, 200, 100)

	rect, ok := pixelRect(bounds, fashion.BoundingBox{X: 0.125, Y: 0.333, Width: 0.5, Height: 0.5})
	assert.True(t, ok)
	assert.Equal(t, image.Rect(25, 33, 125, 83), rect)

	rect, ok = pixelRect(bounds, fashion.BoundingBox{X: 0, Y: 0, Width: 1, Height: 1})
	assert.True(t, ok)
	assert.Equal(t, bounds, rect)

	_, ok = pixelRect(bounds, fashion.BoundingBox{X: 0.5, Y: 0.5, Width: 0.6, Height: 0.1})
	assert.False(t, ok)

	_, ok = pixelRect(bounds, fashion.BoundingBox{X: 0.5, Y: 0.5, Width: 0.004, Height: 0.5})
	assert.False(t, ok)
}
