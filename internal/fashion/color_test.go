package fashion

import (
	"testing"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
)

func TestColorNameOf(t *testing.T) {
	tests := []struct {
		hex  string
		want ColorName
	}{
		{"#C80A0A", ColorRed},
		{"c80a0a", ColorRed},
		{"#0066cc", ColorBlue},
		{"#FFA500", ColorOrange},
		{"#FF69B4", ColorPink},
		{"#8B4513", ColorBrown},
		{"#F5DEB3", ColorBeige},
		{"#9370DB", ColorPurple},
		{"#228B22", ColorGreen},
		{"#FFFFFF", ColorWhite},
		{"#000000", ColorBlack},
		{"#808080", ColorGray},
		{"#787D82", ColorGray},
		{"", ColorGray},
		{"#12345", ColorGray},
		{"#GGGGGG", ColorGray},
		{"not a color", ColorGray},
	}

	for _, tt := range tests {
		t.Run(tt.hex, func(t *testing.T) {
			assert.Equal(t, tt.want, ColorNameOf(tt.hex))
		})
	}
}

func TestColorNameOf_LowSaturationIsAchromatic(t *testing.T) {
	for r := 0; r <= 255; r += 15 {
		for g := 0; g <= 255; g += 15 {
			for b := 0; b <= 255; b += 15 {
				hex := HexFromRGB(r, g, b)
				c, err := colorful.Hex(hex)
				if err != nil {
					t.Fatal(err)
				}
				if _, s, _ := c.Hsl(); s >= 0.1 {
					continue
				}
				name := ColorNameOf(hex)
				assert.True(t, name.IsAchromatic(), "%s classified as %s", hex, name)
			}
		}
	}
}

func TestColorName_Japanese(t *testing.T) {
	assert.Equal(t, "赤", ColorRed.Japanese())
	assert.Equal(t, "グレー", ColorGray.Japanese())
	assert.Equal(t, "white", ColorWhite.String())
}

func TestHexFromRGB(t *testing.T) {
	assert.Equal(t, "#C80A0A", HexFromRGB(200, 10, 10))
	assert.Equal(t, "#FF0000", HexFromRGB(300, -5, 0))
	assert.Equal(t, "#C80A0A", DominantColor{Red: 200, Green: 10, Blue: 10}.Hex())
}
