package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"pdf-annotator/internal/domain"
)

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(sessionHandler *SessionHandler, allowedOrigins []string, logger domain.Logger) http.Handler {
	router := mux.NewRouter()
	router.Use(Recoverer(logger), RequestLogger(logger))

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"pdf-annotator"}`))
	}).Methods("GET")

	// API prefix
	api := router.PathPrefix("/api/v1").Subrouter()

	// Session routes
	api.HandleFunc("/sessions", sessionHandler.CreateSession).Methods("POST")
	api.HandleFunc("/sessions/{id}", sessionHandler.GetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", sessionHandler.DeleteSession).Methods("DELETE")

	// Annotation routes
	api.HandleFunc("/sessions/{id}/annotations", sessionHandler.ListAnnotations).Methods("GET")
	api.HandleFunc("/sessions/{id}/annotations", sessionHandler.AddAnnotation).Methods("POST")
	api.HandleFunc("/sessions/{id}/annotations/{annotationId}", sessionHandler.UpdateAnnotation).Methods("PUT")
	api.HandleFunc("/sessions/{id}/annotations/{annotationId}", sessionHandler.RemoveAnnotation).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/annotations/{annotationId}/position", sessionHandler.MoveAnnotation).Methods("PATCH")
	api.HandleFunc("/sessions/{id}/annotations/{annotationId}/edit", sessionHandler.EditAnnotation).Methods("POST")

	// Draft routes
	api.HandleFunc("/sessions/{id}/draft", sessionHandler.SetDraft).Methods("PUT")
	api.HandleFunc("/sessions/{id}/draft", sessionHandler.ClearDraft).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/draft/commit", sessionHandler.CommitDraft).Methods("POST")

	// Render routes
	api.HandleFunc("/sessions/{id}/preview", sessionHandler.Preview).Methods("GET")
	api.HandleFunc("/sessions/{id}/preview.png", sessionHandler.PreviewPNG).Methods("GET")
	api.HandleFunc("/sessions/{id}/export", sessionHandler.Export).Methods("POST")

	// Configure CORS
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"If-None-Match",
		},
		ExposedHeaders: []string{
			"ETag",
			"Content-Disposition",
			"X-Skipped-Marks",
			"X-Storage-Path",
		},
		MaxAge: 300, // Maximum value not ignored by any of major browsers
	})

	return c.Handler(router)
}
