package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"pdf-annotator/internal/domain"
)

// StandardFont names one of the core PDF fonts, which every reader
// provides without embedding font programs.
type StandardFont string

const (
	Helvetica        StandardFont = "Helvetica"
	HelveticaBold    StandardFont = "Helvetica-Bold"
	HelveticaOblique StandardFont = "Helvetica-Oblique"
	TimesRoman       StandardFont = "Times-Roman"
	TimesBold        StandardFont = "Times-Bold"
	Courier          StandardFont = "Courier"
	CourierBold      StandardFont = "Courier-Bold"
	ReferenceFont                 = Helvetica
)

var standardFonts = map[StandardFont]bool{
	Helvetica:        true,
	HelveticaBold:    true,
	HelveticaOblique: true,
	TimesRoman:       true,
	TimesBold:        true,
	Courier:          true,
	CourierBold:      true,
}

// Resource name prefixes. Names are numbered from 1 and skip any name
// the source page already uses.
const (
	fontPrefix   = "AnF"
	imagePrefix  = "AnIm"
	gstatePrefix = "AnGS"
)

type fontHandle struct {
	doc      *Document
	name     StandardFont
	resource Name
}

func (f *fontHandle) FontName() string { return string(f.name) }

// Document is a decoded document open for editing.
type Document struct {
	src    *source
	pages  []pageNode
	update *update

	// first page as read from the source
	page editState

	// resources of the first page; sub-dictionaries are copied before
	// their first change
	resources  Dict
	categories map[Name]Dict
	copied     map[Name]bool
	content    bytes.Buffer

	fonts   map[StandardFont]*fontHandle
	images  map[string]*imageHandle
	alphas  map[string]Name
	encoded bool
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return len(d.pages)
}

// EmbedFont makes a standard font available for drawing. Embedding a
// font twice returns the same handle.
func (d *Document) EmbedFont(font StandardFont) (domain.FontHandle, error) {
	if err := d.usable(); err != nil {
		return nil, err
	}
	if !standardFonts[font] {
		return nil, fmt.Errorf("unknown standard font %q", font)
	}
	if h, ok := d.fonts[font]; ok {
		return h, nil
	}

	sub, name := d.resourceName("Font", fontPrefix)
	sub[name] = d.update.add(Dict{
		"Type":     Name("Font"),
		"Subtype":  Name("Type1"),
		"BaseFont": Name(font),
		"Encoding": Name("WinAnsiEncoding"),
	})

	h := &fontHandle{doc: d, name: font, resource: name}
	d.fonts[font] = h
	return h, nil
}

// FirstPage returns the page annotations are drawn on.
func (d *Document) FirstPage() (*Page, error) {
	if len(d.pages) == 0 {
		return nil, domain.ErrNoPages
	}
	return &Page{doc: d, number: 1, space: d.pages[0].space}, nil
}

func (d *Document) usable() error {
	if d.encoded {
		return errors.New("document already encoded")
	}
	return nil
}

// category returns the writable resource sub-dictionary cat.
func (d *Document) category(cat Name) Dict {
	if d.copied[cat] {
		return d.resources[cat].(Dict)
	}
	sub := d.categories[cat].Clone()
	d.resources[cat] = sub
	d.copied[cat] = true
	return sub
}

// resourceName returns the writable sub-dictionary cat and the first
// name with prefix that is free in it. Nothing is stored under the name
// until the caller does so.
func (d *Document) resourceName(cat Name, prefix string) (Dict, Name) {
	sub := d.category(cat)
	for i := 1; ; i++ {
		name := Name(prefix + strconv.Itoa(i))
		if _, taken := sub[name]; !taken {
			return sub, name
		}
	}
}

// opacity returns the graphics state that sets both fill and stroke
// alpha to a, or "" when a leaves the page opaque.
func (d *Document) opacity(a float64) Name {
	if a >= 1 {
		return ""
	}
	a = max(a, 0)
	key := formatNumber(a)
	if name, ok := d.alphas[key]; ok {
		return name
	}
	sub, name := d.resourceName("ExtGState", gstatePrefix)
	sub[name] = Dict{
		"Type": Name("ExtGState"),
		"CA":   Real(a),
		"ca":   Real(a),
	}
	d.alphas[key] = name
	return name
}
