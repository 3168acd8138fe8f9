// Package testpdf builds small PDF and image fixtures for tests.
//
// It imports testing and fpdf, so it must only be imported from
// _test.go files.
package testpdf

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
	"time"

	"codeberg.org/go-pdf/fpdf"
)

// Letter page size in points.
const (
	LetterWidth  = 612.0
	LetterHeight = 792.0
)

// Blank returns a PDF of n empty letter-sized pages.
func Blank(t testing.TB, n int) []byte {
	t.Helper()
	return Sized(t, n, LetterWidth, LetterHeight)
}

// Sized returns a PDF of n pages of the given size. Each page carries a
// small page label in its top-left corner.
func Sized(t testing.TB, n int, width, height float64) []byte {
	t.Helper()

	pdf := fpdf.New("P", "pt", "", "")
	pdf.SetCreationDate(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))
	pdf.SetModificationDate(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Helvetica", "", 6)
	pdf.SetTextColor(128, 128, 128)
	for i := 1; i <= n; i++ {
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: width, Ht: height})
		pdf.Text(4, 8, fmt.Sprintf("p%d", i))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("build fixture pdf: %v", err)
	}
	return buf.Bytes()
}

// PNG returns a w x h PNG filled with c.
func PNG(t testing.TB, w, h int, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, fill(w, h, c)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// JPEG returns a w x h JPEG filled with c.
func JPEG(t testing.TB, w, h int, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, fill(w, h, c), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// DataURI wraps data in a base64 data URI of the given media type.
func DataURI(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// PNGDataURI returns a signature-like payload: a w x h PNG filled with c.
func PNGDataURI(t testing.TB, w, h int, c color.Color) string {
	t.Helper()
	return DataURI("image/png", PNG(t, w, h, c))
}

func fill(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}
