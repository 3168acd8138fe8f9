package preview

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"pdf-annotator/internal/testpdf"
)

func TestFirstPage(t *testing.T) {
	r := NewRasterizer(72)

	img, err := r.FirstPage(testpdf.Sized(t, 2, 200, 100))
	if err != nil {
		t.Fatalf("FirstPage: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 100 {
		t.Errorf("unexpected size %dx%d", b.Dx(), b.Dy())
	}
}

func TestFirstPage_Invalid(t *testing.T) {
	if _, err := NewRasterizer(72).FirstPage([]byte("not a pdf")); err == nil {
		t.Fatal("expected an error")
	}
}

func TestFirstPageText(t *testing.T) {
	text, err := NewRasterizer(72).FirstPageText(testpdf.Blank(t, 1))
	if err != nil {
		t.Fatalf("FirstPageText: %v", err)
	}
	if !strings.Contains(text, "p1") {
		t.Errorf("expected the page label, got %q", text)
	}
}

func TestPNG_Scaled(t *testing.T) {
	r := NewRasterizer(72)

	data, err := r.PNG(testpdf.Blank(t, 1), 306)
	if err != nil {
		t.Fatalf("PNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 306 || b.Dy() != 396 {
		t.Errorf("unexpected size %dx%d", b.Dx(), b.Dy())
	}
}

func TestScale(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			src.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}

	dst := Scale(src, 10)
	if b := dst.Bounds(); b.Dx() != 10 || b.Dy() != 5 {
		t.Fatalf("unexpected size %dx%d", b.Dx(), b.Dy())
	}
	if r, g, b, _ := dst.At(5, 2).RGBA(); r>>8 != 255 || g != 0 || b != 0 {
		t.Errorf("unexpected color %d,%d,%d", r>>8, g>>8, b>>8)
	}

	if Scale(src, 40) != image.Image(src) {
		t.Error("same width must return the source image")
	}
}
