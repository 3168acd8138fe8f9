package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	pdflib "github.com/digitorus/pdf"

	"pdf-annotator/internal/domain"
)

// maxPageTreeDepth bounds the nesting of the page tree.
const maxPageTreeDepth = 32

var errEncrypted = errors.New("encrypted documents are not supported")

// Letter size is assumed for pages without a media box.
const (
	letterWidth  = 612.0
	letterHeight = 792.0
)

// editableCategories are the resource sub-dictionaries new resources
// are added to.
var editableCategories = []Name{"Font", "XObject", "ExtGState"}

// source is a read-only view over the original document bytes. Edits
// are written as an incremental update after them.
type source struct {
	data       []byte
	rdr        *pdflib.Reader
	trailer    pdflib.Value
	root       Reference
	info       *Reference
	startxref  int
	xrefStream bool
	size       int
}

// pageNode is a leaf of the page tree with its inheritable attributes
// resolved.
type pageNode struct {
	ref       Reference
	value     pdflib.Value
	resources pdflib.Value
	space     domain.PageSpace
	origin    [2]float64
}

// editState is what Encode needs of the first page, copied out of the
// source so encoding never goes back to the reader.
type editState struct {
	dict       Dict
	contents   Array
	resources  Dict
	categories map[Name]Dict
}

func openSource(data []byte) (*source, error) {
	rdr, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	s := &source{data: data, rdr: rdr, trailer: rdr.Trailer()}
	if s.trailer.Key("Encrypt").Kind() != pdflib.Null {
		return nil, errEncrypted
	}
	root := s.trailer.Key("Root")
	if root.Kind() != pdflib.Dict {
		return nil, errors.New("trailer has no document catalog")
	}
	s.root = refOf(root)
	if info := s.trailer.Key("Info"); info.Kind() == pdflib.Dict {
		ref := refOf(info)
		s.info = &ref
	}
	s.size = max(int(s.trailer.Key("Size").Int64()), 1)

	if s.startxref, err = lastStartXRef(data); err != nil {
		return nil, err
	}
	section := bytes.TrimLeft(data[s.startxref:], " \t\r\n\f\x00")
	s.xrefStream = !bytes.HasPrefix(section, []byte("xref"))
	return s, nil
}

// lastStartXRef returns the offset of the newest cross-reference section.
func lastStartXRef(data []byte) (int, error) {
	at := bytes.LastIndex(data, []byte("startxref"))
	if at < 0 {
		return 0, errors.New("missing startxref")
	}
	rest := bytes.TrimLeft(data[at+len("startxref"):], " \t\r\n\f\x00")
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	offset, err := strconv.Atoi(string(rest[:end]))
	if err != nil || offset >= len(data) {
		return 0, fmt.Errorf("invalid startxref %q", rest[:end])
	}
	return offset, nil
}

// refOf returns the indirect object v was read from. Direct values
// report the object that contains them.
func refOf(v pdflib.Value) Reference {
	ptr := v.GetPtr()
	return Reference{Number: int(ptr.GetID()), Generation: int(ptr.GetGen())}
}

// convert copies v for writing. Values stored as their own indirect
// object stay references; direct values are copied.
func (s *source) convert(v pdflib.Value, parent Reference) Object {
	if v.Kind() == pdflib.Stream {
		return refOf(v)
	}
	if ref := refOf(v); ref != parent && ref.Number != 0 {
		return ref
	}
	return s.direct(v)
}

// direct copies v itself, converting its elements.
func (s *source) direct(v pdflib.Value) Object {
	switch v.Kind() {
	case pdflib.Bool:
		return Bool(v.Bool())
	case pdflib.Integer:
		return Integer(v.Int64())
	case pdflib.Real:
		return Real(v.Float64())
	case pdflib.String:
		return String(v.RawString())
	case pdflib.Name:
		return Name(v.Name())
	case pdflib.Array:
		self := refOf(v)
		arr := make(Array, v.Len())
		for i := range arr {
			arr[i] = s.convert(v.Index(i), self)
		}
		return arr
	case pdflib.Dict:
		self := refOf(v)
		dict := make(Dict)
		for _, key := range v.Keys() {
			if obj := s.convert(v.Key(key), self); obj != nil {
				dict[Name(key)] = obj
			}
		}
		return dict
	case pdflib.Stream:
		return refOf(v)
	}
	return nil
}

// pages walks the page tree in document order.
func (s *source) pages() ([]pageNode, error) {
	tree := s.trailer.Key("Root").Key("Pages")
	if tree.Kind() != pdflib.Dict {
		return nil, errors.New("catalog has no page tree")
	}

	var out []pageNode
	seen := make(map[Reference]bool)
	var walk func(node, resources, mediaBox pdflib.Value, depth int) error
	walk = func(node, resources, mediaBox pdflib.Value, depth int) error {
		if depth > maxPageTreeDepth {
			return errors.New("page tree too deep")
		}
		if node.Kind() != pdflib.Dict {
			return nil
		}
		ref := refOf(node)
		if seen[ref] {
			return fmt.Errorf("page tree revisits object %d", ref.Number)
		}
		seen[ref] = true

		if v := node.Key("Resources"); v.Kind() == pdflib.Dict {
			resources = v
		}
		if v := node.Key("MediaBox"); v.Kind() == pdflib.Array {
			mediaBox = v
		}

		kids := node.Key("Kids")
		if node.Key("Type").Name() == "Page" || kids.Kind() != pdflib.Array {
			page, err := newPageNode(ref, node, resources, mediaBox)
			if err != nil {
				return err
			}
			out = append(out, page)
			return nil
		}
		for i := 0; i < kids.Len(); i++ {
			if err := walk(kids.Index(i), resources, mediaBox, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(tree, pdflib.Value{}, pdflib.Value{}, 0); err != nil {
		return nil, err
	}
	return out, nil
}

func newPageNode(ref Reference, node, resources, mediaBox pdflib.Value) (pageNode, error) {
	page := pageNode{
		ref:       ref,
		value:     node,
		resources: resources,
		space:     domain.PageSpace{Width: letterWidth, Height: letterHeight},
	}
	if mediaBox.Kind() != pdflib.Array || mediaBox.Len() != 4 {
		return page, nil
	}

	var v [4]float64
	for i := range v {
		e := mediaBox.Index(i)
		if k := e.Kind(); k != pdflib.Integer && k != pdflib.Real {
			return page, fmt.Errorf("page %d: invalid media box", ref.Number)
		}
		v[i] = e.Float64()
	}
	llx, urx := min(v[0], v[2]), max(v[0], v[2])
	lly, ury := min(v[1], v[3]), max(v[1], v[3])
	page.space = domain.PageSpace{Width: urx - llx, Height: ury - lly}
	page.origin = [2]float64{llx, lly}
	return page, nil
}

// editState copies what Encode rewrites of page out of the source.
func (s *source) editState(page pageNode) (editState, error) {
	dict, ok := s.direct(page.value).(Dict)
	if !ok {
		return editState{}, fmt.Errorf("page %d is not a dictionary", page.ref.Number)
	}

	var contents Array
	switch v := page.value.Key("Contents"); v.Kind() {
	case pdflib.Null:
	case pdflib.Stream:
		contents = Array{refOf(v)}
	case pdflib.Array:
		for i := 0; i < v.Len(); i++ {
			if e := v.Index(i); e.Kind() == pdflib.Stream {
				contents = append(contents, refOf(e))
			}
		}
	default:
		return editState{}, fmt.Errorf("page %d: invalid contents", page.ref.Number)
	}

	resources, _ := s.direct(page.resources).(Dict)
	if resources == nil {
		resources = Dict{}
	}
	categories := make(map[Name]Dict)
	for _, cat := range editableCategories {
		if sub, ok := s.direct(page.resources.Key(string(cat))).(Dict); ok {
			categories[cat] = sub
		}
	}

	return editState{dict: dict, contents: contents, resources: resources, categories: categories}, nil
}

// documentID returns the first element of the source's file identifier.
func (s *source) documentID() (String, bool) {
	id := s.trailer.Key("ID").Index(0)
	if id.Kind() != pdflib.String || id.RawString() == "" {
		return nil, false
	}
	return String(id.RawString()), true
}
