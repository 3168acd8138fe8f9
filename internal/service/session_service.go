package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"pdf-annotator/internal/compositor"
	"pdf-annotator/internal/domain"
	"pdf-annotator/internal/pdfdoc"
	"pdf-annotator/internal/preview"
	"pdf-annotator/internal/render"
	"pdf-annotator/internal/repository"
	"pdf-annotator/internal/store"
)

// maxRenderAttempts bounds how often a render superseded by a concurrent
// edit is retried with the newer state.
const maxRenderAttempts = 3

// SessionState is a consistent view of one session.
type SessionState struct {
	ID          string
	Info        domain.DocumentInfo
	Version     uint64
	Annotations []domain.Annotation
	Draft       *domain.Draft
}

// CommitResult reports the outcome of promoting the draft.
type CommitResult struct {
	Committed  bool
	Annotation domain.Annotation
	// Reason explains why nothing was committed.
	Reason string
}

// ExportResult is a final document without the draft.
type ExportResult struct {
	PDF         []byte
	Filename    string
	Fingerprint string
	Skipped     []compositor.SkippedMark
	// StoragePath is set when the export was uploaded.
	StoragePath string
}

type SessionService struct {
	repo       *repository.SessionRepository
	codec      *pdfdoc.Codec
	pipeline   *render.Pipeline
	rasterizer *preview.Rasterizer
	style      compositor.Style
	ids        *store.IDSource
	exports    domain.ExportStorage
	clock      clockwork.Clock
	config     domain.Config
	logger     domain.Logger
}

// NewSessionService creates the session service. exports may be nil, in
// which case uploads fail with domain.ErrStorageDisabled.
func NewSessionService(
	repo *repository.SessionRepository,
	codec *pdfdoc.Codec,
	pipeline *render.Pipeline,
	rasterizer *preview.Rasterizer,
	style compositor.Style,
	ids *store.IDSource,
	exports domain.ExportStorage,
	clock clockwork.Clock,
	config domain.Config,
	logger domain.Logger,
) *SessionService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SessionService{
		repo:       repo,
		codec:      codec,
		pipeline:   pipeline,
		rasterizer: rasterizer,
		style:      style,
		ids:        ids,
		exports:    exports,
		clock:      clock,
		config:     config,
		logger:     logger,
	}
}

// Open validates an uploaded document and starts a new session for it
// with an empty annotation store.
func (s *SessionService) Open(filename string, data []byte) (*SessionState, error) {
	if len(data) == 0 {
		return nil, domain.ErrInvalidFile
	}
	if limit := s.config.GetMaxFileSize(); limit > 0 && int64(len(data)) > limit {
		return nil, domain.ErrFileTooLarge
	}

	pages, err := s.codec.Inspect(data)
	if err != nil {
		s.logger.Warn("Rejected upload", "filename", filename, "error", err)
		return nil, err
	}

	if filename == "" {
		filename = "document.pdf"
	}
	info := domain.DocumentInfo{
		Filename:  path.Base(filename),
		Size:      int64(len(data)),
		PageCount: len(pages),
		Page:      pages[0],
		LoadedAt:  s.clock.Now().UTC(),
	}

	id := uuid.New().String()
	session := s.repo.Create(id, info, bytes.Clone(data))

	s.logger.Info("Session opened",
		"session_id", id,
		"filename", info.Filename,
		"pages", info.PageCount,
		"size", info.Size)

	return s.state(session), nil
}

// Get returns the current state of a session.
func (s *SessionService) Get(sessionID string) (*SessionState, error) {
	session, err := s.repo.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return s.state(session), nil
}

// Delete discards a session.
func (s *SessionService) Delete(sessionID string) error {
	if err := s.repo.Delete(sessionID); err != nil {
		return err
	}
	s.logger.Info("Session deleted", "session_id", sessionID)
	return nil
}

// PurgeExpired discards sessions older than maxAge.
func (s *SessionService) PurgeExpired(maxAge time.Duration) int {
	return s.repo.PurgeOlderThan(maxAge)
}

// ListAnnotations returns the committed annotations in compositing order.
func (s *SessionService) ListAnnotations(sessionID string) ([]domain.Annotation, error) {
	state, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return state.Annotations, nil
}

// AddAnnotation commits a new annotation under a freshly minted id.
func (s *SessionService) AddAnnotation(sessionID string, a domain.Annotation) (domain.Annotation, error) {
	a, err := s.prepare(a)
	if err != nil {
		return domain.Annotation{}, err
	}
	if err := domain.ValidateCommit(a); err != nil {
		return domain.Annotation{}, err
	}

	err = s.mutate(sessionID, func(st *store.Store) error {
		a.ID = s.ids.Next()
		st.Add(a)
		return nil
	})
	if err != nil {
		return domain.Annotation{}, err
	}

	s.logger.Debug("Annotation added", "session_id", sessionID, "annotation_id", a.ID, "type", a.Kind())
	return a, nil
}

// UpdateAnnotation replaces a committed annotation in place.
func (s *SessionService) UpdateAnnotation(sessionID, annotationID string, a domain.Annotation) (domain.Annotation, error) {
	a, err := s.prepare(a)
	if err != nil {
		return domain.Annotation{}, err
	}
	if err := domain.ValidateCommit(a); err != nil {
		return domain.Annotation{}, err
	}

	var updated domain.Annotation
	err = s.mutate(sessionID, func(st *store.Store) error {
		if err := st.Update(annotationID, a); err != nil {
			return err
		}
		updated, _ = st.Get(annotationID)
		return nil
	})
	if err != nil {
		return domain.Annotation{}, err
	}
	return updated, nil
}

// MoveAnnotation changes the position of a committed annotation.
func (s *SessionService) MoveAnnotation(sessionID, annotationID string, x, y int) (domain.Annotation, error) {
	var moved domain.Annotation
	err := s.mutate(sessionID, func(st *store.Store) error {
		if err := st.Move(annotationID, x, y); err != nil {
			return err
		}
		moved, _ = st.Get(annotationID)
		return nil
	})
	if err != nil {
		return domain.Annotation{}, err
	}
	return moved, nil
}

// RemoveAnnotation deletes a committed annotation.
func (s *SessionService) RemoveAnnotation(sessionID, annotationID string) error {
	err := s.mutate(sessionID, func(st *store.Store) error {
		return st.Remove(annotationID)
	})
	if err != nil {
		return err
	}
	s.logger.Debug("Annotation removed", "session_id", sessionID, "annotation_id", annotationID)
	return nil
}

// EditAnnotation loads a committed annotation into the draft slot.
func (s *SessionService) EditAnnotation(sessionID, annotationID string) (domain.Draft, error) {
	var draft domain.Draft
	err := s.mutate(sessionID, func(st *store.Store) error {
		if err := st.EditDraft(annotationID); err != nil {
			return err
		}
		draft, _ = st.Draft()
		return nil
	})
	return draft, err
}

// SetDraft replaces the draft. The draft need not satisfy the commit
// invariant yet; it is drawn only once it does.
func (s *SessionService) SetDraft(sessionID string, d domain.Draft) (domain.Draft, error) {
	a, err := s.prepare(d.Annotation)
	if err != nil {
		return domain.Draft{}, err
	}
	d.Annotation = a

	var draft domain.Draft
	err = s.mutate(sessionID, func(st *store.Store) error {
		if d.EditingID != "" {
			if _, ok := st.Get(d.EditingID); !ok {
				return domain.ErrAnnotationNotFound
			}
		}
		st.SetDraft(&d)
		draft, _ = st.Draft()
		return nil
	})
	return draft, err
}

// ClearDraft empties the draft slot.
func (s *SessionService) ClearDraft(sessionID string) error {
	return s.mutate(sessionID, func(st *store.Store) error {
		st.SetDraft(nil)
		return nil
	})
}

// CommitDraft promotes the draft. A missing or incomplete draft leaves
// the session unchanged and is reported through CommitResult, not as an
// error.
func (s *SessionService) CommitDraft(sessionID string) (CommitResult, error) {
	var res CommitResult
	err := s.mutate(sessionID, func(st *store.Store) error {
		draft, ok := st.Draft()
		if !ok {
			res.Reason = "no draft"
			return nil
		}
		if err := domain.ValidateCommit(draft.Annotation); err != nil {
			res.Reason = err.Error()
			return nil
		}
		res.Annotation, res.Committed = st.PromoteDraft(s.ids.Next())
		if !res.Committed {
			res.Reason = "edited annotation no longer exists"
		}
		return nil
	})
	if err != nil {
		return CommitResult{}, err
	}

	if res.Committed {
		s.logger.Debug("Draft committed", "session_id", sessionID, "annotation_id", res.Annotation.ID)
	} else {
		s.logger.Debug("Draft not committed", "session_id", sessionID, "reason", res.Reason)
	}
	return res, nil
}

// Preview renders the committed annotations plus the draft. A render of
// an unchanged store is served from the last preview.
func (s *SessionService) Preview(ctx context.Context, sessionID string) (*render.Result, error) {
	session, err := s.repo.Get(sessionID)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		session.Lock()
		snap := session.Store.Snapshot()
		cached := session.LastPreview
		if cached != nil && session.PreviewVersion == snap.Version {
			session.Unlock()
			return cached, nil
		}
		session.Unlock()

		res, err := s.render(ctx, session, snap, true)
		if errors.Is(err, render.ErrSuperseded) && attempt < maxRenderAttempts {
			s.logger.Debug("Preview superseded, retrying", "session_id", sessionID, "version", snap.Version)
			continue
		}
		if err != nil {
			return nil, err
		}

		session.Lock()
		if snap.Version >= session.PreviewVersion {
			session.LastPreview = res
			session.PreviewVersion = snap.Version
		}
		session.Unlock()
		return res, nil
	}
}

// PreviewPNG rasterizes the first page of the current preview. A
// positive width scales the image.
func (s *SessionService) PreviewPNG(ctx context.Context, sessionID string, width int) ([]byte, error) {
	res, err := s.Preview(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	img, err := s.rasterizer.PNG(res.PDF, width)
	if err != nil {
		return nil, fmt.Errorf("failed to rasterize preview: %w", err)
	}
	return img, nil
}

// Export renders the committed annotations without the draft. With
// upload set, the result is also stored in export storage.
func (s *SessionService) Export(ctx context.Context, sessionID string, upload bool) (*ExportResult, error) {
	if upload && s.exports == nil {
		return nil, domain.ErrStorageDisabled
	}
	session, err := s.repo.Get(sessionID)
	if err != nil {
		return nil, err
	}

	var res *render.Result
	for attempt := 1; ; attempt++ {
		session.Lock()
		snap := session.Store.Snapshot()
		session.Unlock()

		res, err = s.render(ctx, session, snap, false)
		if errors.Is(err, render.ErrSuperseded) && attempt < maxRenderAttempts {
			continue
		}
		if err != nil {
			return nil, err
		}
		break
	}

	out := &ExportResult{
		PDF:         res.PDF,
		Filename:    exportFilename(session.Info.Filename),
		Fingerprint: res.Fingerprint,
		Skipped:     res.Skipped,
	}

	if upload {
		key := path.Join("sessions", session.ID, res.Fingerprint[:16]+".pdf")
		stored, err := s.exports.Upload(ctx, key, bytes.NewReader(res.PDF), "application/pdf")
		if err != nil {
			return nil, fmt.Errorf("failed to store export: %w", err)
		}
		out.StoragePath = stored
	}

	s.logger.Info("Document exported",
		"session_id", sessionID,
		"bytes", len(out.PDF),
		"skipped", len(out.Skipped),
		"uploaded", out.StoragePath != "")
	return out, nil
}

func (s *SessionService) render(ctx context.Context, session *repository.Session, snap store.Snapshot, withDraft bool) (*render.Result, error) {
	if timeout := s.config.GetRenderTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var draft *domain.Annotation
	if withDraft {
		draft = snap.DraftAnnotation()
	}
	res, err := session.Renders.Do(ctx, snap.Version, withDraft, func(rctx context.Context) (*render.Result, error) {
		return s.pipeline.Render(rctx, session.Source, snap.Committed, draft)
	})
	if err != nil {
		if !errors.Is(err, render.ErrSuperseded) {
			s.logger.Error("Render failed", err, "session_id", session.ID, "version", snap.Version)
		}
		return nil, err
	}
	if len(res.Skipped) > 0 {
		s.logger.Warn("Render skipped marks",
			"session_id", session.ID,
			"annotations", compositor.SkippedIDs(res.Skipped))
	}
	return res, nil
}

// mutate runs fn on the session store under the session lock.
func (s *SessionService) mutate(sessionID string, fn func(st *store.Store) error) error {
	session, err := s.repo.Get(sessionID)
	if err != nil {
		return err
	}
	session.Lock()
	defer session.Unlock()
	return fn(session.Store)
}

// prepare fills default colors and rejects annotations without a mark.
func (s *SessionService) prepare(a domain.Annotation) (domain.Annotation, error) {
	if a.Mark == nil {
		return domain.Annotation{}, &domain.ValidationError{Field: "type", Message: "annotation type is required"}
	}
	a.Mark = s.style.WithDefaults(a.Mark)
	return a, nil
}

func (s *SessionService) state(session *repository.Session) *SessionState {
	session.Lock()
	snap := session.Store.Snapshot()
	session.Unlock()

	return &SessionState{
		ID:          session.ID,
		Info:        session.Info,
		Version:     snap.Version,
		Annotations: snap.Committed,
		Draft:       snap.Draft,
	}
}

func exportFilename(name string) string {
	base := strings.TrimSuffix(name, path.Ext(name))
	if base == "" {
		base = "document"
	}
	return base + "-annotated.pdf"
}
