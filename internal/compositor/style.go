package compositor

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"pdf-annotator/internal/domain"
)

// Opacity holds the committed and draft opacity of a mark.
type Opacity struct {
	Committed float64 `yaml:"committed"`
	Draft     float64 `yaml:"draft"`
}

// For returns the opacity to use for a committed or draft mark.
func (o Opacity) For(draft bool) float64 {
	if draft {
		return o.Draft
	}
	return o.Committed
}

// Style holds the visual constants used when compositing marks.
type Style struct {
	TextSize       float64 `yaml:"text_size"`
	CommentSize    float64 `yaml:"comment_size"`
	TextColor      string  `yaml:"text_color"`
	DraftTextColor string  `yaml:"draft_text_color"`

	HighlightOpacity      Opacity `yaml:"highlight_opacity"`
	DefaultHighlightColor string  `yaml:"default_highlight_color"`

	UnderlineOpacity      Opacity `yaml:"underline_opacity"`
	UnderlineThickness    float64 `yaml:"underline_thickness"`
	DefaultUnderlineColor string  `yaml:"default_underline_color"`

	SignatureOpacity Opacity `yaml:"signature_opacity"`
	SignatureWidth   float64 `yaml:"signature_width"`
	SignatureHeight  float64 `yaml:"signature_height"`
}

// DefaultStyle returns the reference look: black 12pt text, 10pt
// comments, a muted navy tint for draft text, half transparent
// highlights and 150x60 signatures.
func DefaultStyle() Style {
	return Style{
		TextSize:       12,
		CommentSize:    10,
		TextColor:      "#000000",
		DraftTextColor: "#333399",

		HighlightOpacity:      Opacity{Committed: 0.5, Draft: 0.3},
		DefaultHighlightColor: "#FFFF00",

		UnderlineOpacity:      Opacity{Committed: 1.0, Draft: 0.7},
		UnderlineThickness:    2,
		DefaultUnderlineColor: "#FF0000",

		SignatureOpacity: Opacity{Committed: 1.0, Draft: 0.7},
		SignatureWidth:   150,
		SignatureHeight:  60,
	}
}

// Validate checks that sizes are positive and opacities lie in [0, 1].
func (s Style) Validate() error {
	sizes := []struct {
		field string
		v     float64
	}{
		{"text_size", s.TextSize},
		{"comment_size", s.CommentSize},
		{"underline_thickness", s.UnderlineThickness},
		{"signature_width", s.SignatureWidth},
		{"signature_height", s.SignatureHeight},
	}
	for _, sz := range sizes {
		if sz.v <= 0 {
			return &domain.ValidationError{Field: sz.field, Message: "must be positive"}
		}
	}

	opacities := []struct {
		field string
		o     Opacity
	}{
		{"highlight_opacity", s.HighlightOpacity},
		{"underline_opacity", s.UnderlineOpacity},
		{"signature_opacity", s.SignatureOpacity},
	}
	for _, op := range opacities {
		if op.o.Committed < 0 || op.o.Committed > 1 || op.o.Draft < 0 || op.o.Draft > 1 {
			return &domain.ValidationError{Field: op.field, Message: "must be between 0 and 1"}
		}
	}
	return nil
}

// WithDefaults fills the color of a highlight or underline mark that
// arrived without one. Other marks are returned unchanged.
func (s Style) WithDefaults(m domain.Mark) domain.Mark {
	switch m := m.(type) {
	case domain.Highlight:
		if m.Color == "" {
			m.Color = s.DefaultHighlightColor
		}
		return m
	case domain.Underline:
		if m.Color == "" {
			m.Color = s.DefaultUnderlineColor
		}
		return m
	}
	return m
}

// LoadStyle decodes a YAML style profile. Keys missing from the profile
// keep their DefaultStyle value.
func LoadStyle(r io.Reader) (Style, error) {
	style := DefaultStyle()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&style); err != nil && !errors.Is(err, io.EOF) {
		return Style{}, fmt.Errorf("failed to decode style: %w", err)
	}
	if err := style.Validate(); err != nil {
		return Style{}, err
	}
	return style, nil
}

// LoadStyleFile reads a style profile from path. An empty path yields
// DefaultStyle.
func LoadStyleFile(path string) (Style, error) {
	if path == "" {
		return DefaultStyle(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Style{}, fmt.Errorf("failed to open style file: %w", err)
	}
	defer f.Close()
	return LoadStyle(f)
}
