// Package handler provides HTTP handlers for the API.
package handler

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"pdf-annotator/internal/compositor"
	"pdf-annotator/internal/domain"
	"pdf-annotator/internal/render"
	"pdf-annotator/internal/service"
)

// SessionService is the part of the session service used over HTTP.
type SessionService interface {
	Open(filename string, data []byte) (*service.SessionState, error)
	Get(sessionID string) (*service.SessionState, error)
	Delete(sessionID string) error
	ListAnnotations(sessionID string) ([]domain.Annotation, error)
	AddAnnotation(sessionID string, a domain.Annotation) (domain.Annotation, error)
	UpdateAnnotation(sessionID, annotationID string, a domain.Annotation) (domain.Annotation, error)
	MoveAnnotation(sessionID, annotationID string, x, y int) (domain.Annotation, error)
	RemoveAnnotation(sessionID, annotationID string) error
	EditAnnotation(sessionID, annotationID string) (domain.Draft, error)
	SetDraft(sessionID string, d domain.Draft) (domain.Draft, error)
	ClearDraft(sessionID string) error
	CommitDraft(sessionID string) (service.CommitResult, error)
	Preview(ctx context.Context, sessionID string) (*render.Result, error)
	PreviewPNG(ctx context.Context, sessionID string, width int) ([]byte, error)
	Export(ctx context.Context, sessionID string, upload bool) (*service.ExportResult, error)
}

// SessionHandler handles session, annotation and render requests
type SessionHandler struct {
	sessions    SessionService
	maxFileSize int64
	logger      domain.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions SessionService, maxFileSize int64, logger domain.Logger) *SessionHandler {
	return &SessionHandler{
		sessions:    sessions,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// CreateSession accepts a PDF as a multipart "file" field or as a raw
// application/pdf body and starts a new session for it.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	filename, data, err := h.readUpload(w, r)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	state, err := h.sessions.Open(filename, data)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionResponse(state))
}

func (h *SessionHandler) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	// headroom for multipart framing; the service enforces the exact limit
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+1<<20)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, header, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return "", nil, domain.ErrFileTooLarge
			}
			return "", nil, &domain.ValidationError{Field: "file", Message: "file is required"}
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return "", nil, domain.ErrInvalidFile
		}
		return header.Filename, data, nil
	}

	if mediaType != "application/pdf" && mediaType != "application/octet-stream" {
		return "", nil, &domain.ValidationError{Message: "expected a multipart upload or an application/pdf body"}
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", nil, domain.ErrFileTooLarge
		}
		return "", nil, domain.ErrInvalidFile
	}
	return r.URL.Query().Get("filename"), data, nil
}

func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	state, err := h.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(state))
}

func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) ListAnnotations(w http.ResponseWriter, r *http.Request) {
	list, err := h.sessions.ListAnnotations(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"annotations": newAnnotationList(list)})
}

func (h *SessionHandler) AddAnnotation(w http.ResponseWriter, r *http.Request) {
	a, _, err := h.readAnnotation(w, r)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	added, err := h.sessions.AddAnnotation(mux.Vars(r)["id"], a)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAnnotationResponse(added))
}

func (h *SessionHandler) UpdateAnnotation(w http.ResponseWriter, r *http.Request) {
	a, _, err := h.readAnnotation(w, r)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	vars := mux.Vars(r)
	updated, err := h.sessions.UpdateAnnotation(vars["id"], vars["annotationId"], a)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newAnnotationResponse(updated))
}

func (h *SessionHandler) MoveAnnotation(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if err := decodeJSON(w, r, 1<<10, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if req.X == nil || req.Y == nil {
		writeError(w, http.StatusBadRequest, "x and y are required")
		return
	}

	vars := mux.Vars(r)
	moved, err := h.sessions.MoveAnnotation(vars["id"], vars["annotationId"], *req.X, *req.Y)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newAnnotationResponse(moved))
}

func (h *SessionHandler) RemoveAnnotation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.sessions.RemoveAnnotation(vars["id"], vars["annotationId"]); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EditAnnotation copies a committed annotation into the draft slot.
func (h *SessionHandler) EditAnnotation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	draft, err := h.sessions.EditAnnotation(vars["id"], vars["annotationId"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newDraftResponse(&draft))
}

func (h *SessionHandler) SetDraft(w http.ResponseWriter, r *http.Request) {
	a, editingID, err := h.readAnnotation(w, r)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	draft, err := h.sessions.SetDraft(mux.Vars(r)["id"], domain.Draft{Annotation: a, EditingID: editingID})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newDraftResponse(&draft))
}

func (h *SessionHandler) ClearDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.ClearDraft(mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CommitDraft promotes the draft. An incomplete draft is not an error:
// the response carries committed=false and the reason.
func (h *SessionHandler) CommitDraft(w http.ResponseWriter, r *http.Request) {
	res, err := h.sessions.CommitDraft(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	resp := commitResponse{Committed: res.Committed, Reason: res.Reason}
	if res.Committed {
		a := newAnnotationResponse(res.Annotation)
		resp.Annotation = &a
	}
	writeJSON(w, http.StatusOK, resp)
}

// Preview serves the rendered document including the draft.
func (h *SessionHandler) Preview(w http.ResponseWriter, r *http.Request) {
	res, err := h.sessions.Preview(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	etag := `"` + res.Fingerprint + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	setSkippedHeader(w, res.Skipped)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writePDF(w, res.PDF, "inline", "preview.pdf")
}

// PreviewPNG serves page 1 of the preview as an image. The optional
// width query parameter scales it.
func (h *SessionHandler) PreviewPNG(w http.ResponseWriter, r *http.Request) {
	width := 0
	if v := r.URL.Query().Get("width"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "width must be a positive integer")
			return
		}
		width = n
	}

	img, err := h.sessions.PreviewPNG(r.Context(), mux.Vars(r)["id"], width)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

// Export serves the final document without the draft. With
// ?upload=true it is also stored and the key returned in X-Storage-Path.
func (h *SessionHandler) Export(w http.ResponseWriter, r *http.Request) {
	upload, _ := strconv.ParseBool(r.URL.Query().Get("upload"))

	res, err := h.sessions.Export(r.Context(), mux.Vars(r)["id"], upload)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.Header().Set("ETag", `"`+res.Fingerprint+`"`)
	setSkippedHeader(w, res.Skipped)
	if res.StoragePath != "" {
		w.Header().Set("X-Storage-Path", res.StoragePath)
	}
	writePDF(w, res.PDF, "attachment", res.Filename)
}

func (h *SessionHandler) readAnnotation(w http.ResponseWriter, r *http.Request) (domain.Annotation, string, error) {
	var req annotationRequest
	if err := decodeJSON(w, r, h.maxFileSize, &req); err != nil {
		return domain.Annotation{}, "", err
	}
	a, err := req.toAnnotation()
	if err != nil {
		return domain.Annotation{}, "", err
	}
	return a, req.EditingID, nil
}

func setSkippedHeader(w http.ResponseWriter, skipped []compositor.SkippedMark) {
	if len(skipped) > 0 {
		w.Header().Set("X-Skipped-Marks", compositor.SkippedIDs(skipped))
	}
}

func writePDF(w http.ResponseWriter, pdf []byte, disposition, filename string) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": sanitizeFilename(filename)}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func sanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == '"' || r == '\\' || r == '/' {
			return '_'
		}
		return r
	}, name)
	if name == "" {
		return "document.pdf"
	}
	return name
}
