// Package render turns normalized paragraphs into view fragments and HTML.
package render

import (
	"math"
	"net/url"
	"strings"

	"github.com/immoshift/immoshift-web/internal/viewmodel"
)

// Bullet is the glyph that switches a content block into list mode.
const Bullet = "•"

// SlotKind identifies the media element of a fragment.
type SlotKind int

const (
	SlotNone SlotKind = iota
	SlotImage
	SlotEmbed
	SlotVideo
)

func (k SlotKind) String() string {
	switch k {
	case SlotImage:
		return "image"
	case SlotEmbed:
		return "embed"
	case SlotVideo:
		return "video"
	default:
		return "none"
	}
}

// MediaSlot is the media element of a fragment. Src is empty for SlotNone.
type MediaSlot struct {
	Kind   SlotKind
	Src    string
	Poster string
	Alt    string
}

// BlockKind identifies a text block.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockBullet
)

// Block is one rendered line of paragraph content.
type Block struct {
	Kind BlockKind
	Text string
}

// IsBullet reports whether b is a list row.
func (b Block) IsBullet() bool { return b.Kind == BlockBullet }

// Fragment is the view of one paragraph.
type Fragment struct {
	Title  string
	Media  MediaSlot
	Blocks []Block
}

// Paragraph maps p to its fragment.
func Paragraph(p viewmodel.Paragraph) Fragment {
	return Fragment{
		Title:  p.Title,
		Media:  Media(p.Media, p.Title),
		Blocks: Text(p.Content),
	}
}

// Media selects the slot for m. title is used as image alt text.
func Media(m viewmodel.Media, title string) MediaSlot {
	switch v := m.(type) {
	case viewmodel.ImageMedia:
		alt := title
		if alt == "" {
			alt = "Image"
		}
		return MediaSlot{Kind: SlotImage, Src: v.URL, Alt: alt}
	case viewmodel.VideoURLMedia:
		return MediaSlot{Kind: SlotEmbed, Src: EmbedURL(v.URL)}
	case viewmodel.VideoFileMedia:
		return MediaSlot{Kind: SlotVideo, Src: v.URL, Poster: v.Poster}
	case viewmodel.NoMedia, nil:
		return MediaSlot{Kind: SlotNone}
	default:
		panic("render: unhandled media variant")
	}
}

// Text splits content into blocks. When any line starts with the bullet
// glyph the whole content is rendered in list mode: bullet lines become
// BlockBullet without the glyph, other non-empty lines become paragraphs and
// empty lines are dropped. Otherwise every line, empty or not, is a paragraph.
func Text(content string) []Block {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")

	list := false
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), Bullet) {
			list = true
			break
		}
	}

	blocks := make([]Block, 0, len(lines))
	for _, line := range lines {
		if !list {
			blocks = append(blocks, Block{Kind: BlockParagraph, Text: strings.TrimSuffix(line, "\r")})
			continue
		}
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
		case strings.HasPrefix(trimmed, Bullet):
			blocks = append(blocks, Block{Kind: BlockBullet, Text: strings.TrimSpace(strings.TrimPrefix(trimmed, Bullet))})
		default:
			blocks = append(blocks, Block{Kind: BlockParagraph, Text: trimmed})
		}
	}
	return blocks
}

// Quote splits a testimonial quote into its non-empty paragraphs.
func Quote(quote string) []string {
	var out []string
	for _, line := range strings.Split(quote, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// StarCount is a five-star rating rounded to half stars.
type StarCount struct {
	Full, Half, Empty int
}

// Stars rounds rating to the nearest half and clamps it to [0, 5].
func Stars(rating float64) StarCount {
	if math.IsNaN(rating) {
		rating = 0
	}
	halves := int(math.Round(math.Max(0, math.Min(5, rating)) * 2))
	s := StarCount{Full: halves / 2, Half: halves % 2}
	s.Empty = 5 - s.Full - s.Half
	return s
}

// EmbedURL returns the player URL for YouTube and Vimeo links and raw
// unchanged for any other host.
func EmbedURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")

	switch host {
	case "youtube.com", "m.youtube.com":
		var id string
		switch {
		case segs[0] == "watch":
			id = u.Query().Get("v")
		case len(segs) == 2 && (segs[0] == "embed" || segs[0] == "shorts" || segs[0] == "live"):
			id = segs[1]
		}
		if id != "" {
			return "https://www.youtube.com/embed/" + url.PathEscape(id)
		}
	case "youtu.be":
		if segs[0] != "" {
			return "https://www.youtube.com/embed/" + url.PathEscape(segs[0])
		}
	case "vimeo.com":
		if id := segs[len(segs)-1]; isDigits(id) {
			return "https://player.vimeo.com/video/" + id
		}
	}
	return raw
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
