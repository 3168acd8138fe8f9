package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pdf-annotator/internal/compositor"
	"pdf-annotator/internal/domain"
	"pdf-annotator/internal/pdfdoc"
	"pdf-annotator/internal/preview"
	"pdf-annotator/internal/store"
	"pdf-annotator/internal/testpdf"
)

type mockLogger struct{}

func (l *mockLogger) Info(msg string, fields ...interface{})            {}
func (l *mockLogger) Error(msg string, err error, fields ...interface{}) {}
func (l *mockLogger) Debug(msg string, fields ...interface{})           {}
func (l *mockLogger) Warn(msg string, fields ...interface{})            {}

func newTestPipeline() *Pipeline {
	logger := &mockLogger{}
	return NewPipeline(
		pdfdoc.NewCodec(pdfdoc.Options{Compress: true}, logger),
		compositor.New(compositor.DefaultStyle(), logger),
		logger,
	)
}

func highlight(id string, x, y, w, h int, c string) domain.Annotation {
	return domain.Annotation{
		ID:       id,
		Geometry: domain.Rect{X: x, Y: y, Width: w, Height: h},
		Mark:     domain.Highlight{Content: id, Color: c},
	}
}

// pixel samples the rasterized first page at a point given in
// bottom-left page space (72 dpi, so one pixel per point).
func pixel(t *testing.T, img image.Image, x, y int) (r, g, b uint8) {
	t.Helper()
	py := img.Bounds().Dy() - y
	c := color.NRGBAModel.Convert(img.At(x, py)).(color.NRGBA)
	return c.R, c.G, c.B
}

func rasterize(t *testing.T, pdf []byte) image.Image {
	t.Helper()
	img, err := preview.NewRasterizer(72).FirstPage(pdf)
	if err != nil {
		t.Fatalf("rasterize: %v", err)
	}
	return img
}

func within(v, want, tolerance uint8) bool {
	d := int(v) - int(want)
	return d >= -int(tolerance) && d <= int(tolerance)
}

func TestRender_Idempotent(t *testing.T) {
	p := newTestPipeline()
	src := testpdf.Blank(t, 1)
	committed := []domain.Annotation{
		highlight("1", 50, 50, 100, 20, "#FFFF00"),
		{ID: "2", Geometry: domain.Rect{X: 10, Y: 30, Width: 80}, Mark: domain.Underline{Content: "u", Color: "#FF0000"}},
		{ID: "3", Geometry: domain.Rect{X: 200, Y: 200}, Mark: domain.Signature{ImageData: testpdf.PNGDataURI(t, 30, 12, color.Black)}},
	}

	first, err := p.Render(context.Background(), src, committed, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	second, err := p.Render(context.Background(), src, committed, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if !bytes.Equal(first.PDF, second.PDF) {
		t.Fatal("rendering the same inputs twice produced different bytes")
	}
	if first.Fingerprint != second.Fingerprint || first.Fingerprint != Fingerprint(first.PDF) {
		t.Errorf("unexpected fingerprints %s, %s", first.Fingerprint, second.Fingerprint)
	}
}

func TestRender_OrderDeterminesStacking(t *testing.T) {
	p := newTestPipeline()
	src := testpdf.Blank(t, 1)
	red := highlight("red", 100, 100, 100, 50, "#FF0000")
	blue := highlight("blue", 100, 100, 100, 50, "#0000FF")

	redThenBlue, err := p.Render(context.Background(), src, []domain.Annotation{red, blue}, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	blueThenRed, err := p.Render(context.Background(), src, []domain.Annotation{blue, red}, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if bytes.Equal(redThenBlue.PDF, blueThenRed.PDF) {
		t.Fatal("different orders must produce different output")
	}

	r, _, b := pixel(t, rasterize(t, redThenBlue.PDF), 150, 125)
	if b <= r {
		t.Errorf("blue drawn last must dominate, got r=%d b=%d", r, b)
	}
	r, _, b = pixel(t, rasterize(t, blueThenRed.PDF), 150, 125)
	if r <= b {
		t.Errorf("red drawn last must dominate, got r=%d b=%d", r, b)
	}
}

func TestRender_DraftIsolation(t *testing.T) {
	p := newTestPipeline()
	s := store.New()
	s.Reset()
	s.Add(highlight("1", 50, 50, 100, 20, "#FFFF00"))
	s.SetDraft(&domain.Draft{Annotation: domain.Annotation{Geometry: domain.Rect{X: 10, Y: 10}, Mark: domain.Text{Content: "Hi"}}})
	before := s.Snapshot()

	if _, err := p.Render(context.Background(), testpdf.Blank(t, 1), before.Committed, before.DraftAnnotation()); err != nil {
		t.Fatalf("Render: %v", err)
	}

	after := s.Snapshot()
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("render changed the store (-before +after):\n%s", diff)
	}
	if _, ok := s.Draft(); !ok {
		t.Error("render must not promote the draft")
	}
	if s.Len() != 1 {
		t.Errorf("expected one committed annotation, got %d", s.Len())
	}
}

func TestRender_SkipsBrokenSignature(t *testing.T) {
	p := newTestPipeline()
	committed := []domain.Annotation{
		highlight("1", 50, 50, 100, 20, "#FFFF00"),
		{ID: "2", Geometry: domain.Rect{X: 300, Y: 300}, Mark: domain.Signature{ImageData: "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAA"}},
	}

	res, err := p.Render(context.Background(), testpdf.Blank(t, 1), committed, nil)
	if err != nil {
		t.Fatalf("a broken signature must not fail the render: %v", err)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].AnnotationID != "2" {
		t.Fatalf("unexpected skipped marks %+v", res.Skipped)
	}

	r, g, b := pixel(t, rasterize(t, res.PDF), 100, 60)
	if r < 245 || g < 245 || !within(b, 128, 12) {
		t.Errorf("expected the highlight to be drawn, got %d,%d,%d", r, g, b)
	}
}

func TestRender_EndToEnd(t *testing.T) {
	p := newTestPipeline()
	src := testpdf.Blank(t, 1)
	committed := []domain.Annotation{highlight("1", 50, 50, 100, 20, "#FFFF00")}
	draft := &domain.Annotation{ID: domain.DraftID, Geometry: domain.Rect{X: 10, Y: 10}, Mark: domain.Text{Content: "Hi"}}

	first, err := p.Render(context.Background(), src, committed, draft)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	second, err := p.Render(context.Background(), src, committed, draft)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.Equal(first.PDF, second.PDF) {
		t.Fatal("consecutive renders differ")
	}

	img := rasterize(t, second.PDF)

	// yellow at half opacity over white; a duplicated highlight would
	// push blue well below half
	r, g, b := pixel(t, img, 100, 60)
	if r < 245 || g < 245 || !within(b, 128, 12) {
		t.Errorf("expected a half transparent yellow highlight, got %d,%d,%d", r, g, b)
	}

	text, err := preview.NewRasterizer(72).FirstPageText(second.PDF)
	if err != nil {
		t.Fatalf("FirstPageText: %v", err)
	}
	if !strings.Contains(text, "Hi") {
		t.Errorf("expected the draft text in the page, got %q", text)
	}

	tinted := false
	for y := 10; y < 20 && !tinted; y++ {
		for x := 10; x < 26; x++ {
			r, _, b := pixel(t, img, x, y)
			if int(b)-int(r) > 30 {
				tinted = true
				break
			}
		}
	}
	if !tinted {
		t.Error("expected the draft text to be drawn in the navy tint")
	}
}

func TestRender_UncommittableDraftIsIgnored(t *testing.T) {
	p := newTestPipeline()
	src := testpdf.Blank(t, 1)
	committed := []domain.Annotation{highlight("1", 50, 50, 100, 20, "#FFFF00")}

	without, err := p.Render(context.Background(), src, committed, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	withEmpty, err := p.Render(context.Background(), src, committed, &domain.Annotation{ID: domain.DraftID, Mark: domain.Text{}})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.Equal(without.PDF, withEmpty.PDF) {
		t.Error("an empty draft must not change the output")
	}
}

func TestRender_DecodeError(t *testing.T) {
	res, err := newTestPipeline().Render(context.Background(), []byte("%PDF-1.4 nope"), nil, nil)
	var decodeErr *domain.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if res != nil {
		t.Error("no output must be produced")
	}
}

func TestRender_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestPipeline().Render(ctx, testpdf.Blank(t, 1), []domain.Annotation{highlight("1", 1, 1, 1, 1, "#000000")}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
