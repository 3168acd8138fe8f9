// Package pdfdoc reads a PDF, embeds fonts and raster images into its
// first page and writes it back out.
//
// Sources are read with github.com/digitorus/pdf and never rewritten.
// Edits are appended as a single incremental update that replaces the
// first page object and adds the overlay content and resources. Output is reproducible: objects are
// numbered in a fixed order, dictionaries are written with sorted keys
// and the file identifier is derived from the content.
package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	"pdf-annotator/internal/domain"
)

// Options control encoding.
type Options struct {
	// Compress deflates the overlay content and the cross-reference
	// stream, when the source uses one.
	Compress bool
}

// Codec decodes and encodes documents. It is safe for concurrent use;
// every Decode produces an independent Document.
type Codec struct {
	opts   Options
	logger domain.Logger
}

// NewCodec creates a codec.
func NewCodec(opts Options, logger domain.Logger) *Codec {
	return &Codec{opts: opts, logger: logger}
}

// Inspect validates raw and returns the size of every page. Malformed
// input yields a *domain.DecodeError.
func (c *Codec) Inspect(raw []byte) ([]domain.PageSpace, error) {
	_, nodes, err := c.open(raw)
	if err != nil {
		return nil, err
	}
	pages := make([]domain.PageSpace, len(nodes))
	for i, n := range nodes {
		pages[i] = n.space
	}
	return pages, nil
}

// open parses raw and walks its page tree.
func (c *Codec) open(raw []byte) (*source, []pageNode, error) {
	var src *source
	var nodes []pageNode
	err := c.parse(func() error {
		var err error
		if src, err = openSource(raw); err != nil {
			return err
		}
		if nodes, err = src.pages(); err != nil {
			return err
		}
		if len(nodes) == 0 {
			return domain.ErrNoPages
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return src, nodes, nil
}

// parse runs fn against the reader and reports its failures as decode
// errors. The reader panics on some malformed input; those panics are
// recovered here.
func (c *Codec) parse(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("Recovered from panic while parsing document", "panic", r)
			err = &domain.DecodeError{Err: fmt.Errorf("parse document: %v", r)}
		}
	}()
	if err := fn(); err != nil {
		return &domain.DecodeError{Err: err}
	}
	return nil
}

// Decode parses raw into an editable document. Every source page is
// kept; only the first page can be drawn on. Malformed input yields a
// *domain.DecodeError; a document without pages yields a
// *domain.DecodeError wrapping domain.ErrNoPages.
func (c *Codec) Decode(raw []byte) (*Document, error) {
	src, nodes, err := c.open(slices.Clone(raw))
	if err != nil {
		return nil, err
	}

	var first editState
	err = c.parse(func() error {
		var err error
		first, err = src.editState(nodes[0])
		return err
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Decoded document", "pages", len(nodes), "xref_stream", src.xrefStream)

	return &Document{
		src:        src,
		pages:      nodes,
		update:     newUpdate(src),
		page:       first,
		resources:  first.resources.Clone(),
		categories: first.categories,
		copied:     make(map[Name]bool),
		fonts:      make(map[StandardFont]*fontHandle),
		images:     make(map[string]*imageHandle),
		alphas:     make(map[string]Name),
	}, nil
}

// Encode serializes doc. A document without drawing operations encodes
// to its source bytes. A document can be encoded once; drawing on it
// afterwards is an error.
func (c *Codec) Encode(doc *Document) ([]byte, error) {
	if doc.encoded {
		return nil, errors.New("document already encoded")
	}
	doc.encoded = true

	if doc.content.Len() == 0 {
		return slices.Clone(doc.src.data), nil
	}

	var overlay bytes.Buffer
	var contents Array
	if len(doc.page.contents) > 0 {
		// isolate the source's graphics state from the overlay
		contents = append(contents, doc.update.add(c.stream([]byte("q\n"))))
		contents = append(contents, doc.page.contents...)
		overlay.WriteString("Q\n")
	}
	if o := doc.pages[0].origin; o != [2]float64{} {
		fmt.Fprintf(&overlay, "1 0 0 1 %s %s cm\n", formatNumber(o[0]), formatNumber(o[1]))
	}
	overlay.Write(doc.content.Bytes())
	contents = append(contents, doc.update.add(c.stream(overlay.Bytes())))

	dict := doc.page.dict.Clone()
	dict["Contents"] = contents
	dict["Resources"] = doc.resources
	doc.update.replace(doc.pages[0].ref, dict)

	out := doc.update.write(c.opts.Compress)
	c.logger.Debug("Encoded document", "source_bytes", len(doc.src.data), "bytes", len(out))
	return out, nil
}

func (c *Codec) stream(data []byte) *Stream {
	if !c.opts.Compress {
		return &Stream{Dict: Dict{}, Data: data}
	}
	return &Stream{Dict: Dict{"Filter": Name("FlateDecode")}, Data: deflate(data)}
}
