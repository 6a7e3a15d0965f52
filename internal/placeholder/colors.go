package placeholder

import (
	"image/color"
	"unicode/utf16"
)

// palette is the fixed set of background colours a title can map to.
var palette = [...]color.RGBA{
	rgb(0x3498db), rgb(0x9b59b6), rgb(0xe74c3c), rgb(0xf39c12), rgb(0x1abc9c),
	rgb(0x5363e6), rgb(0xe056fd), rgb(0x8e44ad), rgb(0xd35400), rgb(0xc0392b),
	rgb(0x2c3e50), rgb(0x7f8c8d), rgb(0x16a085), rgb(0xf1c40f), rgb(0x636e72),
}

var (
	black = color.RGBA{A: 0xff}
	white = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

func rgb(v uint32) color.RGBA {
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

// Palette returns a copy of the background palette.
func Palette() []color.RGBA {
	return append([]color.RGBA(nil), palette[:]...)
}

// ColorIndex returns the palette index for title. The rolling hash runs over
// UTF-16 code units; the shifted term wraps to 32 bits while the accumulator
// does not, which reproduces the colours of the browser-rendered site.
func ColorIndex(title string) int {
	var h int64
	for _, c := range utf16Units(title) {
		h = int64(c) + int64(int32(h)<<5) - h
	}
	if h < 0 {
		h = -h
	}
	return int(h % int64(len(palette)))
}

// Background returns the background colour for title.
func Background(title string) color.RGBA {
	return palette[ColorIndex(title)]
}

// Brightness returns the perceived brightness of c in [0, 1].
func Brightness(c color.RGBA) float64 {
	return (0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)) / 255
}

// TextColor returns black on bright backgrounds and white otherwise.
func TextColor(bg color.RGBA) color.RGBA {
	if Brightness(bg) > 0.5 {
		return black
	}
	return white
}

// utf16Units returns s as UTF-16 code units, the unit title lengths are measured in.
func utf16Units(s string) []uint16 {
	return utf16.Encode([]rune(s))
}
