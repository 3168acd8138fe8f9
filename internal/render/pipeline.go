// Package render turns a source document and a set of annotations into
// a new document. Rendering is a pure function of its inputs: it never
// mutates the source bytes or the annotations and always starts from a
// freshly decoded document.
package render

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"

	"pdf-annotator/internal/compositor"
	"pdf-annotator/internal/domain"
	"pdf-annotator/internal/pdfdoc"
)

// Result is the output of one render.
type Result struct {
	PDF         []byte
	Skipped     []compositor.SkippedMark
	Fingerprint string
}

// Pipeline runs decode, composite and encode.
type Pipeline struct {
	codec      *pdfdoc.Codec
	compositor *compositor.Compositor
	font       pdfdoc.StandardFont
	logger     domain.Logger
}

// NewPipeline creates a render pipeline drawing text in the reference font.
func NewPipeline(codec *pdfdoc.Codec, comp *compositor.Compositor, logger domain.Logger) *Pipeline {
	return &Pipeline{
		codec:      codec,
		compositor: comp,
		font:       pdfdoc.ReferenceFont,
		logger:     logger,
	}
}

// Render composites committed, then draft when it is non-nil and
// committable, onto the first page of source. A malformed source yields
// a *domain.DecodeError and no output. Signatures that cannot be
// embedded are skipped and listed in Result.Skipped.
func (p *Pipeline) Render(ctx context.Context, source []byte, committed []domain.Annotation, draft *domain.Annotation) (*Result, error) {
	start := time.Now()

	doc, err := p.codec.Decode(source)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page, err := doc.FirstPage()
	if err != nil {
		return nil, &domain.DecodeError{Err: err}
	}
	font, err := doc.EmbedFont(p.font)
	if err != nil {
		return nil, err
	}

	skipped, err := p.compositor.ComposePage(ctx, doc, page, font, committed, draft)
	if err != nil {
		return nil, fmt.Errorf("failed to compose page: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := p.codec.Encode(doc)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("Rendered document",
		"annotations", len(committed),
		"draft", draft != nil,
		"skipped", len(skipped),
		"bytes", len(out),
		"duration", time.Since(start))

	return &Result{
		PDF:         out,
		Skipped:     skipped,
		Fingerprint: Fingerprint(out),
	}, nil
}

// Fingerprint returns the hex BLAKE2b-256 digest of data.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
