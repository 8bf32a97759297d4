package game

import (
	"errors"
	"math/rand"
)

// Theme selects the colour palette.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

var ErrInvalidTheme = errors.New("invalid theme")

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

// ParseTheme validates a theme received from outside the core.
func ParseTheme(s string) (Theme, error) {
	t := Theme(s)
	if !t.Valid() {
		return "", ErrInvalidTheme
	}
	return t, nil
}

var ballColors = map[Theme][]string{
	ThemeLight: {
		"#D32F2F", "#C2185B", "#7B1FA2", "#512DA8", "#303F9F",
		"#1976D2", "#0288D1", "#0097A7", "#00796B", "#388E3C",
		"#689F38", "#AFB42B", "#FBC02D", "#FFA000", "#F57C00",
		"#E64A19", "#5D4037", "#616161", "#455A64", "#8D6E63",
	},
	ThemeDark: {
		"#FF5252", "#FF4081", "#E040FB", "#7C4DFF", "#536DFE",
		"#448AFF", "#40C4FF", "#18FFFF", "#64FFDA", "#69F0AE",
		"#B2FF59", "#EEFF41", "#FFFF00", "#FFD740", "#FFAB40",
		"#FF6E40", "#FF80AB", "#EA80FC", "#8C9EFF", "#80D8FF",
	},
}

var shapeColors = map[Theme]map[ShapeKind]string{
	ThemeLight: {
		ShortLine:   "#E57373",
		MediumLine:  "#81C784",
		LongLine:    "#64B5F6",
		SmallSquare: "#FFB74D",
		LargeSquare: "#BA68C8",
	},
	ThemeDark: {
		ShortLine:   "#FF6B6B",
		MediumLine:  "#4ECDC4",
		LongLine:    "#45B7D1",
		SmallSquare: "#F7DC6F",
		LargeSquare: "#BB8FCE",
	},
}

// BallPalette returns the ball colours of a theme. Unknown themes fall back to
// the light palette.
func BallPalette(t Theme) []string {
	if p, ok := ballColors[t]; ok {
		return p
	}
	return ballColors[ThemeLight]
}

// RandomBallColor draws uniformly from the theme palette.
func RandomBallColor(rng *rand.Rand, t Theme) string {
	p := BallPalette(t)
	return p[rng.Intn(len(p))]
}

// ShapeColor returns the fill colour of a kind under a theme.
func ShapeColor(k ShapeKind, t Theme) string {
	if m, ok := shapeColors[t]; ok {
		return m[k]
	}
	return shapeColors[ThemeLight][k]
}
