package placeholder

import (
	"image/color"
	"testing"
)

func TestColorIndex(t *testing.T) {
	tests := []struct {
		title string
		want  int
	}{
		{"", 0},
		{"a", 7},
		{"ab", 0},
		{"Investir dans l'immobilier locatif", 7},
		{"Comment réussir son premier achat immobilier en 2024 sans apport personnel", 6},
		{"Immoshift 🏠", 10},
	}
	for _, tt := range tests {
		if got := ColorIndex(tt.title); got != tt.want {
			t.Errorf("ColorIndex(%q) = %v, want %v", tt.title, got, tt.want)
		}
	}
}

func TestColorIndexDeterministic(t *testing.T) {
	titles := []string{"Acheter sa résidence principale", "LMNP", "", "x y z"}
	for _, title := range titles {
		first := ColorIndex(title)
		for i := 0; i < 10; i++ {
			if got := ColorIndex(title); got != first {
				t.Fatalf("ColorIndex(%q) = %v on call %d, want %v", title, got, i, first)
			}
		}
		if first < 0 || first >= len(palette) {
			t.Errorf("ColorIndex(%q) = %v, out of palette range", title, first)
		}
	}
}

func TestTextColorContrast(t *testing.T) {
	for _, bg := range Palette() {
		got := TextColor(bg)
		bright := Brightness(bg) > 0.5
		if bright && got != black {
			t.Errorf("TextColor(%v) = %v, want black on bright background", bg, got)
		}
		if !bright && got != white {
			t.Errorf("TextColor(%v) = %v, want white on dark background", bg, got)
		}
	}
}

func TestPaletteSize(t *testing.T) {
	if got := len(Palette()); got != 15 {
		t.Errorf("len(Palette()) = %v, want 15", got)
	}
}

func TestPaletteColours(t *testing.T) {
	p := Palette()
	if got, want := p[0], (color.RGBA{R: 0x34, G: 0x98, B: 0xdb, A: 0xff}); got != want {
		t.Errorf("Palette()[0] = %v, want %v", got, want)
	}
	if got, want := p[14], (color.RGBA{R: 0x63, G: 0x6e, B: 0x72, A: 0xff}); got != want {
		t.Errorf("Palette()[14] = %v, want %v", got, want)
	}
}
