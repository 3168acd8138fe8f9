// Package compositor draws annotation marks onto a page.
//
// Every call to Apply draws exactly once; applying the same annotation
// twice leaves two overlapping marks. Callers must therefore start each
// render from a freshly decoded page.
package compositor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vincent-petithory/dataurl"

	"pdf-annotator/internal/domain"
)

// SkippedMark records an annotation that could not be drawn. Skipped
// marks do not fail the render.
type SkippedMark struct {
	AnnotationID string
	Kind         domain.Kind
	Err          error
}

// Compositor applies annotations to a page using a Style.
type Compositor struct {
	style  Style
	logger domain.Logger
}

// New creates a compositor with the given style.
func New(style Style, logger domain.Logger) *Compositor {
	return &Compositor{style: style, logger: logger}
}

// Style returns the style the compositor draws with.
func (c *Compositor) Style() Style {
	return c.style
}

// Apply draws a onto page. Signature images are embedded through doc.
// A signature whose payload cannot be decoded or embedded yields a
// *domain.EmbedError and nothing is drawn for it.
func (c *Compositor) Apply(doc domain.ImageEmbedder, page domain.Canvas, font domain.FontHandle, a domain.Annotation, draft bool) error {
	g := a.Geometry.Normalize()
	x, y := float64(g.X), float64(g.Y)

	var err error
	switch m := a.Mark.(type) {
	case domain.Text:
		err = page.DrawText(m.Content, domain.TextOptions{
			X: x, Y: y, Font: font, Size: c.style.TextSize, Color: c.textColor(draft),
		})
	case domain.Comment:
		err = page.DrawText(m.Content, domain.TextOptions{
			X: x, Y: y, Font: font, Size: c.style.CommentSize, Color: c.textColor(draft),
		})
	case domain.Highlight:
		err = page.DrawRectangle(domain.RectOptions{
			X: x, Y: y,
			Width:   float64(g.Width),
			Height:  float64(g.Height),
			Color:   domain.ParseColor(m.Color).Unit(),
			Opacity: c.style.HighlightOpacity.For(draft),
		})
	case domain.Underline:
		err = page.DrawLine(domain.LineOptions{
			X1: x, Y1: y,
			X2: x + float64(g.Width), Y2: y,
			Thickness: c.style.UnderlineThickness,
			Color:     domain.ParseColor(m.Color).Unit(),
			Opacity:   c.style.UnderlineOpacity.For(draft),
		})
	case domain.Signature:
		return c.applySignature(doc, page, a.ID, m, x, y, draft)
	case nil:
		return fmt.Errorf("annotation %s has no mark", a.ID)
	default:
		return fmt.Errorf("annotation %s: unsupported mark %T", a.ID, m)
	}

	if err != nil {
		return fmt.Errorf("draw %s annotation %s: %w", a.Kind(), a.ID, err)
	}
	return nil
}

func (c *Compositor) applySignature(doc domain.ImageEmbedder, page domain.Canvas, id string, m domain.Signature, x, y float64, draft bool) error {
	data, err := decodeImagePayload(m.ImageData)
	if err != nil {
		return &domain.EmbedError{AnnotationID: id, Err: err}
	}

	img, err := doc.EmbedRasterImage(data)
	if err != nil {
		var embedErr *domain.EmbedError
		if errors.As(err, &embedErr) {
			err = embedErr.Err
		}
		return &domain.EmbedError{AnnotationID: id, Err: err}
	}

	err = page.DrawImage(img, domain.ImageOptions{
		X: x, Y: y,
		Width:   c.style.SignatureWidth,
		Height:  c.style.SignatureHeight,
		Opacity: c.style.SignatureOpacity.For(draft),
	})
	if err != nil {
		return fmt.Errorf("draw signature annotation %s: %w", id, err)
	}
	return nil
}

// decodeImagePayload extracts the raster bytes from a data URI.
func decodeImagePayload(payload string) ([]byte, error) {
	if payload == "" {
		return nil, errors.New("empty image payload")
	}
	u, err := dataurl.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid data uri: %w", err)
	}
	if u.Type != "image" {
		return nil, fmt.Errorf("unsupported media type %q", u.ContentType())
	}
	if len(u.Data) == 0 {
		return nil, errors.New("empty image payload")
	}
	return u.Data, nil
}

func (c *Compositor) textColor(draft bool) domain.UnitRGB {
	if draft {
		return domain.ParseColor(c.style.DraftTextColor).Unit()
	}
	return domain.ParseColor(c.style.TextColor).Unit()
}

// ComposePage draws the committed annotations in order, then the draft
// on top of them when it is present and committable. Marks that fail
// with an *domain.EmbedError are skipped and reported; any other error
// aborts the composition. ctx is checked before every mark.
func (c *Compositor) ComposePage(ctx context.Context, doc domain.ImageEmbedder, page domain.Canvas, font domain.FontHandle, committed []domain.Annotation, draft *domain.Annotation) ([]SkippedMark, error) {
	var skipped []SkippedMark

	apply := func(a domain.Annotation, isDraft bool) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := c.Apply(doc, page, font, a, isDraft)
		var embedErr *domain.EmbedError
		if errors.As(err, &embedErr) {
			c.logger.Warn("Skipping annotation mark", "annotation_id", a.ID, "kind", a.Kind(), "error", embedErr.Err)
			skipped = append(skipped, SkippedMark{AnnotationID: a.ID, Kind: a.Kind(), Err: err})
			return nil
		}
		return err
	}

	for _, a := range committed {
		if err := apply(a, false); err != nil {
			return skipped, err
		}
	}

	if draft != nil && domain.CanCommit(*draft) {
		if err := apply(*draft, true); err != nil {
			return skipped, err
		}
	}
	return skipped, nil
}

// SkippedIDs returns the annotation ids of skipped marks, joined by commas.
func SkippedIDs(skipped []SkippedMark) string {
	ids := make([]string, len(skipped))
	for i, s := range skipped {
		ids[i] = s.AnnotationID
	}
	return strings.Join(ids, ",")
}
