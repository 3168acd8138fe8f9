package compositor

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pdf-annotator/internal/domain"
)

type mockLogger struct {
	warnings []string
}

func (l *mockLogger) Info(msg string, fields ...interface{})            {}
func (l *mockLogger) Error(msg string, err error, fields ...interface{}) {}
func (l *mockLogger) Debug(msg string, fields ...interface{})           {}
func (l *mockLogger) Warn(msg string, fields ...interface{}) {
	l.warnings = append(l.warnings, msg)
}

type fontHandle string

func (f fontHandle) FontName() string { return string(f) }

type imageHandle struct {
	name string
}

func (h imageHandle) ResourceName() string    { return h.name }
func (h imageHandle) Bounds() (width, height int) { return 1, 1 }

// recordingCanvas logs every drawing call as a short string.
type recordingCanvas struct {
	ops []string
	err error
}

func (c *recordingCanvas) DrawText(text string, o domain.TextOptions) error {
	c.ops = append(c.ops, fmt.Sprintf("text %q at %g,%g size %g font %s color %.1f,%.1f,%.1f",
		text, o.X, o.Y, o.Size, o.Font.FontName(), o.Color.R, o.Color.G, o.Color.B))
	return c.err
}

func (c *recordingCanvas) DrawRectangle(o domain.RectOptions) error {
	c.ops = append(c.ops, fmt.Sprintf("rect %g,%g %gx%g color %.1f,%.1f,%.1f opacity %g",
		o.X, o.Y, o.Width, o.Height, o.Color.R, o.Color.G, o.Color.B, o.Opacity))
	return c.err
}

func (c *recordingCanvas) DrawLine(o domain.LineOptions) error {
	c.ops = append(c.ops, fmt.Sprintf("line %g,%g-%g,%g width %g color %.1f,%.1f,%.1f opacity %g",
		o.X1, o.Y1, o.X2, o.Y2, o.Thickness, o.Color.R, o.Color.G, o.Color.B, o.Opacity))
	return c.err
}

func (c *recordingCanvas) DrawImage(img domain.ImageHandle, o domain.ImageOptions) error {
	c.ops = append(c.ops, fmt.Sprintf("image %s at %g,%g %gx%g opacity %g",
		img.ResourceName(), o.X, o.Y, o.Width, o.Height, o.Opacity))
	return c.err
}

type mockEmbedder struct {
	calls int
	err   error
}

func (e *mockEmbedder) EmbedRasterImage(data []byte) (domain.ImageHandle, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return imageHandle{name: "sig"}, nil
}

func pngDataURI(t *testing.T) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.Black)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func newTestCompositor() (*Compositor, *mockLogger) {
	logger := &mockLogger{}
	return New(DefaultStyle(), logger), logger
}

func TestApply_DispatchesByKind(t *testing.T) {
	sig := pngDataURI(t)

	tests := []struct {
		name  string
		ann   domain.Annotation
		draft bool
		want  string
	}{
		{
			name: "Committed text",
			ann:  domain.Annotation{ID: "1", Geometry: domain.Rect{X: 10, Y: 20}, Mark: domain.Text{Content: "Hi"}},
			want: `text "Hi" at 10,20 size 12 font F1 color 0.0,0.0,0.0`,
		},
		{
			name:  "Draft text",
			ann:   domain.Annotation{ID: "1", Geometry: domain.Rect{X: 10, Y: 20}, Mark: domain.Text{Content: "Hi"}},
			draft: true,
			want:  `text "Hi" at 10,20 size 12 font F1 color 0.2,0.2,0.6`,
		},
		{
			name: "Comment",
			ann:  domain.Annotation{ID: "2", Geometry: domain.Rect{X: 5, Y: 6}, Mark: domain.Comment{Content: "note"}},
			want: `text "note" at 5,6 size 10 font F1 color 0.0,0.0,0.0`,
		},
		{
			name: "Committed highlight",
			ann: domain.Annotation{ID: "3", Geometry: domain.Rect{X: 50, Y: 50, Width: 100, Height: 20},
				Mark: domain.Highlight{Content: "h", Color: "#FFFF00"}},
			want: "rect 50,50 100x20 color 1.0,1.0,0.0 opacity 0.5",
		},
		{
			name: "Draft highlight",
			ann: domain.Annotation{ID: "3", Geometry: domain.Rect{X: 50, Y: 50, Width: 100, Height: 20},
				Mark: domain.Highlight{Content: "h", Color: "FFFF00"}},
			draft: true,
			want:  "rect 50,50 100x20 color 1.0,1.0,0.0 opacity 0.3",
		},
		{
			name: "Highlight with negative extent",
			ann: domain.Annotation{ID: "3", Geometry: domain.Rect{X: 150, Y: 70, Width: -100, Height: -20},
				Mark: domain.Highlight{Content: "h", Color: "#FFFF00"}},
			want: "rect 50,50 100x20 color 1.0,1.0,0.0 opacity 0.5",
		},
		{
			name: "Highlight with bad color falls back to black",
			ann: domain.Annotation{ID: "3", Geometry: domain.Rect{X: 1, Y: 1, Width: 2, Height: 2},
				Mark: domain.Highlight{Content: "h", Color: "ZZZZZZ"}},
			want: "rect 1,1 2x2 color 0.0,0.0,0.0 opacity 0.5",
		},
		{
			name: "Underline",
			ann: domain.Annotation{ID: "4", Geometry: domain.Rect{X: 10, Y: 30, Width: 80, Height: 5},
				Mark: domain.Underline{Content: "u", Color: "#FF0000"}},
			want: "line 10,30-90,30 width 2 color 1.0,0.0,0.0 opacity 1",
		},
		{
			name: "Draft underline",
			ann: domain.Annotation{ID: "4", Geometry: domain.Rect{X: 10, Y: 30, Width: 80},
				Mark: domain.Underline{Content: "u", Color: "#FF0000"}},
			draft: true,
			want:  "line 10,30-90,30 width 2 color 1.0,0.0,0.0 opacity 0.7",
		},
		{
			name: "Signature",
			ann:  domain.Annotation{ID: "5", Geometry: domain.Rect{X: 300, Y: 100}, Mark: domain.Signature{ImageData: sig}},
			want: "image sig at 300,100 150x60 opacity 1",
		},
		{
			name:  "Draft signature",
			ann:   domain.Annotation{ID: "5", Geometry: domain.Rect{X: 300, Y: 100}, Mark: domain.Signature{ImageData: sig}},
			draft: true,
			want:  "image sig at 300,100 150x60 opacity 0.7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCompositor()
			canvas := &recordingCanvas{}

			if err := c.Apply(&mockEmbedder{}, canvas, fontHandle("F1"), tt.ann, tt.draft); err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if diff := cmp.Diff([]string{tt.want}, canvas.ops); diff != "" {
				t.Errorf("unexpected drawing (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApply_TwiceDrawsTwice(t *testing.T) {
	c, _ := newTestCompositor()
	canvas := &recordingCanvas{}
	a := domain.Annotation{ID: "1", Geometry: domain.Rect{X: 1, Y: 1, Width: 1, Height: 1}, Mark: domain.Highlight{Content: "h", Color: "#00FF00"}}

	for i := 0; i < 2; i++ {
		if err := c.Apply(&mockEmbedder{}, canvas, fontHandle("F1"), a, false); err != nil {
			t.Fatalf("Apply: %v", err)
		}
	}
	if len(canvas.ops) != 2 {
		t.Fatalf("expected two marks, got %d", len(canvas.ops))
	}
}

func TestApply_SignatureFailures(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		embedErr error
	}{
		{name: "Not a data uri", payload: "garbage"},
		{name: "Not an image", payload: "data:text/plain;base64,aGVsbG8="},
		{name: "Empty data", payload: "data:image/png;base64,"},
		{name: "Embedder rejects bytes", payload: "data:image/png;base64,aGVsbG8=", embedErr: errors.New("bad png")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCompositor()
			canvas := &recordingCanvas{}
			a := domain.Annotation{ID: "42", Mark: domain.Signature{ImageData: tt.payload}}

			err := c.Apply(&mockEmbedder{err: tt.embedErr}, canvas, fontHandle("F1"), a, false)
			var embedErr *domain.EmbedError
			if !errors.As(err, &embedErr) {
				t.Fatalf("expected EmbedError, got %v", err)
			}
			if embedErr.AnnotationID != "42" {
				t.Errorf("expected annotation id 42, got %q", embedErr.AnnotationID)
			}
			if len(canvas.ops) != 0 {
				t.Errorf("nothing must be drawn, got %v", canvas.ops)
			}
		})
	}
}

func TestApply_CanvasErrorIsFatal(t *testing.T) {
	c, _ := newTestCompositor()
	boom := errors.New("boom")
	canvas := &recordingCanvas{err: boom}

	err := c.Apply(&mockEmbedder{}, canvas, fontHandle("F1"), domain.Annotation{ID: "1", Mark: domain.Text{Content: "x"}}, false)
	if !errors.Is(err, boom) {
		t.Fatalf("expected canvas error, got %v", err)
	}
}

func TestComposePage_OrderAndDraft(t *testing.T) {
	c, _ := newTestCompositor()
	canvas := &recordingCanvas{}
	committed := []domain.Annotation{
		{ID: "1", Geometry: domain.Rect{X: 50, Y: 50, Width: 100, Height: 20}, Mark: domain.Highlight{Content: "a", Color: "#FFFF00"}},
		{ID: "2", Geometry: domain.Rect{X: 60, Y: 55}, Mark: domain.Text{Content: "b"}},
	}
	draft := &domain.Annotation{ID: domain.DraftID, Geometry: domain.Rect{X: 10, Y: 10}, Mark: domain.Text{Content: "Hi"}}

	skipped, err := c.ComposePage(context.Background(), &mockEmbedder{}, canvas, fontHandle("F1"), committed, draft)
	if err != nil {
		t.Fatalf("ComposePage: %v", err)
	}
	if len(skipped) != 0 {
		t.Errorf("unexpected skipped marks: %v", skipped)
	}

	want := []string{
		"rect 50,50 100x20 color 1.0,1.0,0.0 opacity 0.5",
		`text "b" at 60,55 size 12 font F1 color 0.0,0.0,0.0`,
		`text "Hi" at 10,10 size 12 font F1 color 0.2,0.2,0.6`,
	}
	if diff := cmp.Diff(want, canvas.ops); diff != "" {
		t.Errorf("unexpected drawing order (-want +got):\n%s", diff)
	}
}

func TestComposePage_UncommittableDraftIsNotDrawn(t *testing.T) {
	c, _ := newTestCompositor()
	canvas := &recordingCanvas{}
	draft := &domain.Annotation{ID: domain.DraftID, Mark: domain.Text{}}

	if _, err := c.ComposePage(context.Background(), &mockEmbedder{}, canvas, fontHandle("F1"), nil, draft); err != nil {
		t.Fatalf("ComposePage: %v", err)
	}
	if len(canvas.ops) != 0 {
		t.Errorf("empty draft must not be drawn, got %v", canvas.ops)
	}
}

func TestComposePage_SkipsBrokenSignature(t *testing.T) {
	c, logger := newTestCompositor()
	canvas := &recordingCanvas{}
	committed := []domain.Annotation{
		{ID: "1", Geometry: domain.Rect{X: 50, Y: 50, Width: 100, Height: 20}, Mark: domain.Highlight{Content: "a", Color: "#FFFF00"}},
		{ID: "2", Geometry: domain.Rect{X: 10, Y: 10}, Mark: domain.Signature{ImageData: "data:image/png;base64,!!!"}},
		{ID: "3", Geometry: domain.Rect{X: 20, Y: 20}, Mark: domain.Comment{Content: "after"}},
	}

	skipped, err := c.ComposePage(context.Background(), &mockEmbedder{}, canvas, fontHandle("F1"), committed, nil)
	if err != nil {
		t.Fatalf("broken signature must not fail the page: %v", err)
	}
	if len(skipped) != 1 || skipped[0].AnnotationID != "2" || skipped[0].Kind != domain.KindSignature {
		t.Fatalf("unexpected skipped marks: %+v", skipped)
	}
	if len(canvas.ops) != 2 {
		t.Errorf("expected the highlight and the comment to be drawn, got %v", canvas.ops)
	}
	if len(logger.warnings) != 1 {
		t.Errorf("expected one warning, got %d", len(logger.warnings))
	}
	if got := SkippedIDs(skipped); got != "2" {
		t.Errorf("SkippedIDs = %q", got)
	}
}

func TestComposePage_StopsWhenCancelled(t *testing.T) {
	c, _ := newTestCompositor()
	canvas := &recordingCanvas{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ComposePage(ctx, &mockEmbedder{}, canvas, fontHandle("F1"),
		[]domain.Annotation{{ID: "1", Mark: domain.Text{Content: "x"}}}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(canvas.ops) != 0 {
		t.Errorf("nothing must be drawn after cancellation")
	}
}
