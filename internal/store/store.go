// Package store holds the annotation state of one loaded document: the
// ordered sequence of committed annotations and at most one draft.
//
// The committed order is the compositing order, so later annotations are
// drawn on top of earlier ones. A Store is plain data; it is not safe for
// concurrent use and performs no I/O.
package store

import (
	"slices"

	"pdf-annotator/internal/domain"
)

// Store is the annotation store of a single document.
type Store struct {
	committed []domain.Annotation
	draft     *domain.Draft
	loaded    bool
	version   uint64
}

// New returns an empty store with no source document loaded.
func New() *Store {
	return &Store{}
}

// Reset discards all annotations and the draft and marks a new source
// document as loaded.
func (s *Store) Reset() {
	s.committed = nil
	s.draft = nil
	s.loaded = true
	s.version++
}

// Loaded reports whether a source document has been loaded.
func (s *Store) Loaded() bool {
	return s.loaded
}

// Version increases with every mutation of the store.
func (s *Store) Version() uint64 {
	return s.version
}

// Len returns the number of committed annotations.
func (s *Store) Len() int {
	return len(s.committed)
}

// Add appends a to the committed sequence. The id is trusted to be unique.
func (s *Store) Add(a domain.Annotation) {
	s.committed = append(s.committed, a)
	s.version++
}

// Get returns the committed annotation with the given id.
func (s *Store) Get(id string) (domain.Annotation, bool) {
	i := s.index(id)
	if i < 0 {
		return domain.Annotation{}, false
	}
	return s.committed[i], true
}

// Update replaces the annotation with the given id, keeping its position
// in the sequence and its original id.
func (s *Store) Update(id string, a domain.Annotation) error {
	i := s.index(id)
	if i < 0 {
		return domain.ErrAnnotationNotFound
	}
	a.ID = s.committed[i].ID
	s.committed[i] = a
	s.version++
	return nil
}

// Move changes the position of the annotation with the given id.
func (s *Store) Move(id string, x, y int) error {
	a, ok := s.Get(id)
	if !ok {
		return domain.ErrAnnotationNotFound
	}
	return s.Update(id, a.WithPosition(x, y))
}

// Remove deletes the annotation with the given id. If that annotation is
// being edited, the draft is cleared as well.
func (s *Store) Remove(id string) error {
	i := s.index(id)
	if i < 0 {
		return domain.ErrAnnotationNotFound
	}
	s.committed = slices.Delete(s.committed, i, i+1)
	if s.draft != nil && s.draft.EditingID == id {
		s.draft = nil
	}
	s.version++
	return nil
}

// Draft returns a copy of the current draft.
func (s *Store) Draft() (domain.Draft, bool) {
	if s.draft == nil {
		return domain.Draft{}, false
	}
	return *s.draft, true
}

// SetDraft replaces the draft slot. A nil draft clears it.
func (s *Store) SetDraft(d *domain.Draft) {
	if d == nil {
		s.draft = nil
	} else {
		cp := *d
		cp.ID = domain.DraftID
		s.draft = &cp
	}
	s.version++
}

// EditDraft loads the committed annotation id into the draft slot.
func (s *Store) EditDraft(id string) error {
	a, ok := s.Get(id)
	if !ok {
		return domain.ErrAnnotationNotFound
	}
	s.SetDraft(&domain.Draft{Annotation: a, EditingID: id})
	return nil
}

// PromoteDraft commits the draft. An edited draft replaces the annotation
// it was loaded from; a new draft is appended under newID. The draft slot
// is cleared afterwards.
//
// Nothing changes if there is no draft, no source document is loaded or
// the draft fails the commit invariant; ok is false in that case.
func (s *Store) PromoteDraft(newID string) (committed domain.Annotation, ok bool) {
	if s.draft == nil || !s.loaded || !domain.CanCommit(s.draft.Annotation) {
		return domain.Annotation{}, false
	}

	a := s.draft.Annotation
	if s.draft.EditingID != "" {
		if err := s.Update(s.draft.EditingID, a); err != nil {
			// the edited annotation was removed meanwhile
			return domain.Annotation{}, false
		}
		a, _ = s.Get(s.draft.EditingID)
	} else {
		a.ID = newID
		s.Add(a)
	}
	s.draft = nil
	s.version++
	return a, true
}

// Snapshot is a consistent, independent copy of the store contents.
type Snapshot struct {
	Version   uint64
	Committed []domain.Annotation
	Draft     *domain.Draft
}

// Snapshot copies the store. Later mutations of the store are not visible
// through the returned value.
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		Version:   s.version,
		Committed: slices.Clone(s.committed),
	}
	if s.draft != nil {
		d := *s.draft
		snap.Draft = &d
	}
	return snap
}

// DraftAnnotation returns the draft as a plain annotation, or nil.
func (snap Snapshot) DraftAnnotation() *domain.Annotation {
	if snap.Draft == nil {
		return nil
	}
	a := snap.Draft.Annotation
	return &a
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.committed, func(a domain.Annotation) bool {
		return a.ID == id
	})
}
