package handler

import (
	"net/http"

	"pdf-viewer/internal/domain"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(
	documentHandler *DocumentHandler,
	pageLimiter func(http.Handler) http.Handler,
	logger domain.Logger,
) http.Handler {
	router := mux.NewRouter()
	router.Use(RequestIDMiddleware, LoggingMiddleware(logger))

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"pdf-viewer"}`))
	}).Methods("GET")

	// Document routes are registered on the root router so that a wrong
	// method answers 405 instead of 404.
	const documents = "/api/v1/documents/{id}"
	router.HandleFunc(documents+"/file", documentHandler.GetFile).Methods(http.MethodGet)

	// Rendering is CPU bound; throttle it per client.
	limited := func(h http.HandlerFunc) http.Handler {
		if pageLimiter == nil {
			return h
		}
		return pageLimiter(h)
	}
	router.Handle(documents+"/pages", limited(documentHandler.GetPages)).Methods(http.MethodGet)
	router.Handle(documents+"/pages/all", limited(documentHandler.GetAllPages)).Methods(http.MethodGet)

	// Configure CORS
	c := cors.New(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173", // Vite dev server
			"http://localhost:4173", // Vite preview
			"http://localhost:3000", // Alternative dev port
		},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			requestIDHeader,
		},
		ExposedHeaders: []string{
			"Content-Length",
			requestIDHeader,
		},
		MaxAge: 300, // Maximum value not ignored by any of major browsers
	})

	return c.Handler(router)
}
