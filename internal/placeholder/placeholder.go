// Package placeholder renders deterministic title cards used when an article
// has no image of its own.
package placeholder

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"math"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Default card dimensions used for article fallbacks.
const (
	DefaultWidth  = 600
	DefaultHeight = 340
)

// MaxDimension bounds either side of a rendered card.
const MaxDimension = 2000

const (
	fitRatio    = 0.85 // text wider than this share of the card is shrunk, then wrapped
	wrapRatio   = 0.8  // greedy wrap budget
	lineSpacing = 1.35
	minFontSize = 28
	chunkAbove  = 50 // titles longer than this are chunked instead of greedily wrapped
	chunkTarget = 25
)

// ErrInvalidSize is returned for non-positive or oversized dimensions.
var ErrInvalidSize = errors.New("placeholder: invalid dimensions")

// Generator rasterizes placeholder cards. The zero value is not usable; call New.
type Generator struct {
	once    sync.Once
	font    *opentype.Font
	fontErr error
}

// New returns a Generator using the Go Bold typeface.
func New() *Generator {
	return &Generator{}
}

func (g *Generator) loadFont() (*opentype.Font, error) {
	g.once.Do(func() {
		g.font, g.fontErr = opentype.Parse(gobold.TTF)
	})
	return g.font, g.fontErr
}

// face opens a face at size, in pixels.
func (g *Generator) face(size float64) (font.Face, error) {
	f, err := g.loadFont()
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, fmt.Errorf("open face at %.1fpx: %w", size, err)
	}
	return face, nil
}

// Layout is the computed text placement for a card.
type Layout struct {
	FontSize float64
	Lines    []string
	// Centers holds the vertical middle of each line, in pixels.
	Centers []float64
}

// Layout computes font size and line breaks for title on a w×h card.
func (g *Generator) Layout(title string, w, h int) (Layout, error) {
	if err := checkSize(w, h); err != nil {
		return Layout{}, err
	}
	n := float64(len(utf16Units(title)))
	base := math.Floor(float64(h) * 0.4)
	size := math.Max(base*(1-math.Min(n/70, 0.4)), base*0.5)

	face, err := g.face(size)
	if err != nil {
		return Layout{}, err
	}
	width := measure(face, title)
	for width > float64(w)*fitRatio && size > minFontSize {
		face.Close()
		size -= 2
		if face, err = g.face(size); err != nil {
			return Layout{}, err
		}
		width = measure(face, title)
	}
	defer face.Close()

	if width <= float64(w)*fitRatio {
		return Layout{FontSize: size, Lines: []string{title}, Centers: []float64{float64(h) / 2}}, nil
	}

	var lines []string
	if n > chunkAbove {
		lines = chunkLines(title)
	} else {
		lines = greedyLines(face, title, float64(w)*wrapRatio)
	}

	lineHeight := size * lineSpacing
	y := (float64(h)-float64(len(lines))*lineHeight)/2 + size/2
	centers := make([]float64, len(lines))
	for i := range lines {
		centers[i] = y
		y += lineHeight
	}
	return Layout{FontSize: size, Lines: lines, Centers: centers}, nil
}

// chunkLines splits title into lines of roughly equal character count,
// keeping words whole.
func chunkLines(title string) []string {
	n := float64(len(utf16Units(title)))
	perLine := int(math.Ceil(n / math.Ceil(n/chunkTarget)))

	var lines []string
	var cur strings.Builder
	count := 0
	for _, word := range strings.Split(title, " ") {
		wl := len(utf16Units(word))
		if count+wl+1 <= perLine || cur.Len() == 0 {
			if cur.Len() > 0 {
				cur.WriteByte(' ')
			}
			cur.WriteString(word)
			// the separator is counted even for the first word of a line
			count += wl + 1
			continue
		}
		lines = append(lines, cur.String())
		cur.Reset()
		cur.WriteString(word)
		count = wl
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

// greedyLines fills each line while it measures under budget.
func greedyLines(face font.Face, title string, budget float64) []string {
	words := strings.Split(title, " ")
	var lines []string
	cur := words[0]
	for _, word := range words[1:] {
		test := cur + " " + word
		if measure(face, test) < budget {
			cur = test
			continue
		}
		lines = append(lines, cur)
		cur = word
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

// Render returns the PNG encoding of the card for title.
func (g *Generator) Render(title string, w, h int) ([]byte, error) {
	l, err := g.Layout(title, w, h)
	if err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	bg := Background(title)
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	face, err := g.face(l.FontSize)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	m := face.Metrics()
	// shift from the em-box middle to the baseline
	offset := (float64(m.Ascent) - float64(m.Descent)) / 2 / 64
	d := &font.Drawer{Dst: img, Src: image.NewUniform(TextColor(bg)), Face: face}
	for i, line := range l.Lines {
		x := (float64(w) - measure(face, line)) / 2
		d.Dot = fixed.Point26_6{X: toFixed(x), Y: toFixed(l.Centers[i] + offset)}
		d.DrawString(line)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURI renders title as a base64 PNG data URI, or "" if rendering fails.
func (g *Generator) DataURI(title string, w, h int) string {
	b, err := g.Render(title, w, h)
	if err != nil {
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(b)
}

// ArticleImage returns url when set, otherwise a default-sized card for title.
func (g *Generator) ArticleImage(url, title string) string {
	if url != "" {
		return url
	}
	return g.DataURI(title, DefaultWidth, DefaultHeight)
}

func checkSize(w, h int) error {
	if w <= 0 || h <= 0 || w > MaxDimension || h > MaxDimension {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, w, h)
	}
	return nil
}

func measure(face font.Face, s string) float64 {
	return float64(font.MeasureString(face, s)) / 64
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}
