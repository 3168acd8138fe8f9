package domain

import (
	"fmt"
	"strings"
)

// DraftID is the reserved id carried by the in-progress annotation.
// It is never assigned to a committed annotation.
const DraftID = "__draft__"

// SignatureLabel is the fixed display label of signature marks.
const SignatureLabel = "Signature"

// Kind identifies the variant of an annotation mark.
type Kind int

const (
	KindText Kind = iota
	KindHighlight
	KindUnderline
	KindComment
	KindSignature
)

var kindNames = [...]string{
	KindText:      "text",
	KindHighlight: "highlight",
	KindUnderline: "underline",
	KindComment:   "comment",
	KindSignature: "signature",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind converts a wire name ("text", "highlight", ...) into a Kind.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == name {
			return Kind(k), nil
		}
	}
	return 0, &ValidationError{Field: "type", Message: fmt.Sprintf("unknown annotation type %q", s)}
}

// Mark is the visual payload of an annotation. The set of implementations
// is closed: Text, Highlight, Underline, Comment and Signature.
type Mark interface {
	Kind() Kind
	// Label returns the user-visible content of the mark.
	Label() string
	isMark()
}

// Text is a free-standing text note.
type Text struct {
	Content string
}

// Highlight is a translucent filled rectangle over the annotation geometry.
type Highlight struct {
	Content string
	Color   string // 6 hex digits, optional leading '#'
}

// Underline is a horizontal stroke along the bottom edge of the geometry.
type Underline struct {
	Content string
	Color   string
}

// Comment is a smaller text note.
type Comment struct {
	Content string
}

// Signature is a hand-drawn raster signature. ImageData holds a
// self-describing payload (a data URI) produced by the capture surface.
type Signature struct {
	ImageData string
}

func (Text) Kind() Kind      { return KindText }
func (Highlight) Kind() Kind { return KindHighlight }
func (Underline) Kind() Kind { return KindUnderline }
func (Comment) Kind() Kind   { return KindComment }
func (Signature) Kind() Kind { return KindSignature }

func (m Text) Label() string      { return m.Content }
func (m Highlight) Label() string { return m.Content }
func (m Underline) Label() string { return m.Content }
func (m Comment) Label() string   { return m.Content }
func (Signature) Label() string   { return SignatureLabel }

func (Text) isMark()      {}
func (Highlight) isMark() {}
func (Underline) isMark() {}
func (Comment) isMark()   {}
func (Signature) isMark() {}

// Annotation is a single user-authored mark placed on the page.
type Annotation struct {
	ID       string
	Geometry Rect
	Mark     Mark
}

// Kind returns the kind of the annotation's mark.
func (a Annotation) Kind() Kind {
	return a.Mark.Kind()
}

// WithPosition returns a copy of a moved to (x, y). Width and height are kept.
func (a Annotation) WithPosition(x, y int) Annotation {
	a.Geometry.X = x
	a.Geometry.Y = y
	return a
}

// Draft is the single in-progress annotation. EditingID names the
// committed annotation being edited, or is empty for a new annotation.
type Draft struct {
	Annotation
	EditingID string
}

// ValidateCommit checks the minimal-content rule an annotation must
// satisfy before it may join the committed sequence.
func ValidateCommit(a Annotation) error {
	switch m := a.Mark.(type) {
	case nil:
		return &InvalidCommitError{Reason: "annotation has no mark"}
	case Signature:
		if m.ImageData == "" {
			return &InvalidCommitError{Kind: KindSignature, Reason: "signature has not been captured"}
		}
	default:
		if m.Label() == "" {
			return &InvalidCommitError{Kind: m.Kind(), Reason: "content is required"}
		}
	}
	return nil
}

// CanCommit reports whether a satisfies the commit invariant.
func CanCommit(a Annotation) bool {
	return ValidateCommit(a) == nil
}
