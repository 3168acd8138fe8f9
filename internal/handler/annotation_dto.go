package handler

import (
	"pdf-annotator/internal/domain"
	"pdf-annotator/internal/service"
)

// annotationRequest is the wire form of an annotation sent by clients.
type annotationRequest struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Color     string `json:"color,omitempty"`
	ImageData string `json:"image_data,omitempty"`
	EditingID string `json:"editing_id,omitempty"`
}

// toAnnotation builds the mark variant named by Type. Fields that do
// not belong to the variant are ignored.
func (r annotationRequest) toAnnotation() (domain.Annotation, error) {
	kind, err := domain.ParseKind(r.Type)
	if err != nil {
		return domain.Annotation{}, err
	}

	var mark domain.Mark
	switch kind {
	case domain.KindText:
		mark = domain.Text{Content: r.Content}
	case domain.KindHighlight:
		mark = domain.Highlight{Content: r.Content, Color: r.Color}
	case domain.KindUnderline:
		mark = domain.Underline{Content: r.Content, Color: r.Color}
	case domain.KindComment:
		mark = domain.Comment{Content: r.Content}
	case domain.KindSignature:
		mark = domain.Signature{ImageData: r.ImageData}
	}

	return domain.Annotation{
		Geometry: domain.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height},
		Mark:     mark,
	}, nil
}

type annotationResponse struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Content   string `json:"content"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Color     string `json:"color,omitempty"`
	ImageData string `json:"image_data,omitempty"`
}

func newAnnotationResponse(a domain.Annotation) annotationResponse {
	resp := annotationResponse{
		ID:     a.ID,
		X:      a.Geometry.X,
		Y:      a.Geometry.Y,
		Width:  a.Geometry.Width,
		Height: a.Geometry.Height,
	}
	if a.Mark == nil {
		return resp
	}
	resp.Type = a.Kind().String()

	switch m := a.Mark.(type) {
	case domain.Highlight:
		resp.Content = m.Content
		resp.Color = domain.NormalizeColor(m.Color)
	case domain.Underline:
		resp.Content = m.Content
		resp.Color = domain.NormalizeColor(m.Color)
	case domain.Signature:
		resp.Content = m.Label()
		resp.ImageData = m.ImageData
	default:
		resp.Content = m.Label()
	}
	return resp
}

func newAnnotationList(list []domain.Annotation) []annotationResponse {
	out := make([]annotationResponse, 0, len(list))
	for _, a := range list {
		out = append(out, newAnnotationResponse(a))
	}
	return out
}

type draftResponse struct {
	annotationResponse
	EditingID string `json:"editing_id,omitempty"`
	// Committable reports whether the draft would be drawn and could be
	// committed as is.
	Committable bool `json:"committable"`
}

func newDraftResponse(d *domain.Draft) *draftResponse {
	if d == nil {
		return nil
	}
	return &draftResponse{
		annotationResponse: newAnnotationResponse(d.Annotation),
		EditingID:          d.EditingID,
		Committable:        domain.CanCommit(d.Annotation),
	}
}

type sessionResponse struct {
	ID          string               `json:"id"`
	Document    domain.DocumentInfo  `json:"document"`
	Version     uint64               `json:"version"`
	Annotations []annotationResponse `json:"annotations"`
	Draft       *draftResponse       `json:"draft"`
}

func newSessionResponse(s *service.SessionState) sessionResponse {
	return sessionResponse{
		ID:          s.ID,
		Document:    s.Info,
		Version:     s.Version,
		Annotations: newAnnotationList(s.Annotations),
		Draft:       newDraftResponse(s.Draft),
	}
}

type positionRequest struct {
	X *int `json:"x"`
	Y *int `json:"y"`
}

type commitResponse struct {
	Committed  bool                `json:"committed"`
	Annotation *annotationResponse `json:"annotation,omitempty"`
	Reason     string              `json:"reason,omitempty"`
}
