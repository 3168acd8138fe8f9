package domain

// Rect is an axis-aligned rectangle in page space. The origin is the
// bottom-left corner of the page, matching the PDF coordinate convention.
type Rect struct {
	X, Y          int
	Width, Height int
}

// Normalize returns r with non-negative width and height, keeping the
// covered area. It does not clamp r to any page box: off-page placement
// is valid.
func (r Rect) Normalize() Rect {
	if r.Width < 0 {
		r.X += r.Width
		r.Width = -r.Width
	}
	if r.Height < 0 {
		r.Y += r.Height
		r.Height = -r.Height
	}
	return r
}

// Overlaps reports whether r and o share a region of positive area.
func (r Rect) Overlaps(o Rect) bool {
	a, b := r.Normalize(), o.Normalize()
	return a.X < b.X+b.Width && b.X < a.X+a.Width &&
		a.Y < b.Y+b.Height && b.Y < a.Y+a.Height
}

// PageSpace describes the size of a page in points.
type PageSpace struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}
