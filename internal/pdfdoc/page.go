package pdfdoc

import (
	"bytes"
	"fmt"

	"pdf-annotator/internal/domain"
)

// Page is a drawing surface over one page of a Document. Coordinates are
// in bottom-left page space relative to the page's media box.
type Page struct {
	doc    *Document
	number int
	space  domain.PageSpace
}

// Number returns the one-based page number.
func (p *Page) Number() int {
	return p.number
}

// Space returns the page size.
func (p *Page) Space() domain.PageSpace {
	return p.space
}

// op appends one self-contained drawing operation. Every operation runs
// inside its own q/Q pair so colors and opacity never leak into the
// next one.
func (p *Page) op(opacity float64, draw func(b *bytes.Buffer)) error {
	if err := p.doc.usable(); err != nil {
		return err
	}
	gs := p.doc.opacity(opacity)

	b := &p.doc.content
	b.WriteString("q\n")
	if gs != "" {
		writeName(b, gs)
		b.WriteString(" gs\n")
	}
	draw(b)
	b.WriteString("Q\n")
	return nil
}

func (p *Page) DrawText(text string, opts domain.TextOptions) error {
	font, ok := opts.Font.(*fontHandle)
	if !ok || font.doc != p.doc {
		return fmt.Errorf("font %v was not embedded in this document", opts.Font)
	}
	return p.op(1, func(b *bytes.Buffer) {
		fmt.Fprintf(b, "%s %s %s rg\n", formatNumber(opts.Color.R), formatNumber(opts.Color.G), formatNumber(opts.Color.B))
		b.WriteString("BT\n")
		writeName(b, font.resource)
		fmt.Fprintf(b, " %s Tf\n%s %s Td\n", formatNumber(opts.Size), formatNumber(opts.X), formatNumber(opts.Y))
		writeLiteral(b, winAnsi(text))
		b.WriteString(" Tj\nET\n")
	})
}

func (p *Page) DrawRectangle(opts domain.RectOptions) error {
	return p.op(opts.Opacity, func(b *bytes.Buffer) {
		fmt.Fprintf(b, "%s %s %s rg\n", formatNumber(opts.Color.R), formatNumber(opts.Color.G), formatNumber(opts.Color.B))
		fmt.Fprintf(b, "%s %s %s %s re\nf\n", formatNumber(opts.X), formatNumber(opts.Y), formatNumber(opts.Width), formatNumber(opts.Height))
	})
}

func (p *Page) DrawLine(opts domain.LineOptions) error {
	return p.op(opts.Opacity, func(b *bytes.Buffer) {
		fmt.Fprintf(b, "%s %s %s RG\n%s w\n", formatNumber(opts.Color.R), formatNumber(opts.Color.G), formatNumber(opts.Color.B), formatNumber(opts.Thickness))
		fmt.Fprintf(b, "%s %s m\n%s %s l\nS\n", formatNumber(opts.X1), formatNumber(opts.Y1), formatNumber(opts.X2), formatNumber(opts.Y2))
	})
}

func (p *Page) DrawImage(img domain.ImageHandle, opts domain.ImageOptions) error {
	h, ok := img.(*imageHandle)
	if !ok || p.doc.images[h.key] != h {
		return fmt.Errorf("image %v was not embedded in this document", img)
	}
	return p.op(opts.Opacity, func(b *bytes.Buffer) {
		fmt.Fprintf(b, "%s 0 0 %s %s %s cm\n", formatNumber(opts.Width), formatNumber(opts.Height), formatNumber(opts.X), formatNumber(opts.Y))
		writeName(b, h.resource)
		b.WriteString(" Do\n")
	})
}
