// Package preview rasterizes rendered documents for display.
package preview

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/image/draw"
)

// MaxWidth caps the requested preview width in pixels.
const MaxWidth = 4096

// Rasterizer turns the first page of a PDF into an image.
type Rasterizer struct {
	dpi float64
}

// NewRasterizer creates a rasterizer rendering at dpi.
func NewRasterizer(dpi float64) *Rasterizer {
	if dpi <= 0 {
		dpi = 72
	}
	return &Rasterizer{dpi: dpi}
}

// FirstPage renders page 1 of pdf at the configured resolution.
func (r *Rasterizer) FirstPage(pdf []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("failed to render preview: document has no pages")
	}
	img, err := doc.ImageDPI(0, r.dpi)
	if err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}
	return img, nil
}

// FirstPageText extracts the text of page 1 of pdf.
func (r *Rasterizer) FirstPageText(pdf []byte) (string, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	text, err := doc.Text(0)
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}
	return text, nil
}

// PNG renders page 1 of pdf as a PNG. A positive width scales the image
// to that many pixels, keeping the aspect ratio; widths above MaxWidth
// are clamped.
func (r *Rasterizer) PNG(pdf []byte, width int) ([]byte, error) {
	img, err := r.FirstPage(pdf)
	if err != nil {
		return nil, err
	}
	if width > 0 {
		img = Scale(img, min(width, MaxWidth))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

// Scale resizes img to the given width, keeping the aspect ratio.
func Scale(img image.Image, width int) image.Image {
	b := img.Bounds()
	if b.Dx() == 0 || width == b.Dx() {
		return img
	}
	height := max(1, b.Dy()*width/b.Dx())
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
