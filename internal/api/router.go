package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(apiHandler *APIHandler, corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	// The workbench UI runs in the browser on a different origin.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	// All API routes live under /api
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// Extraction schema
		r.Get("/schema", apiHandler.GetSchemaHandler)
		r.Put("/schema", apiHandler.PutSchemaHandler)

		// Prompt configuration and few-shot examples
		r.Get("/prompts", apiHandler.GetPromptsHandler)
		r.Put("/prompts", apiHandler.PutPromptsHandler)
		r.Get("/prompts/examples", apiHandler.ListExamplesHandler)
		r.Post("/prompts/examples", apiHandler.AddExampleHandler)
		r.Delete("/prompts/examples/{exampleID}", apiHandler.RemoveExampleHandler)

		// Documents
		r.Get("/documents", apiHandler.ListDocumentsHandler)
		r.Post("/documents", apiHandler.AddDocumentHandler)
		r.Delete("/documents/{documentID}", apiHandler.RemoveDocumentHandler)
		r.Delete("/documents", apiHandler.ClearDocumentsHandler)

		// LLM configuration
		r.Get("/llm", apiHandler.GetLLMConfigHandler)
		r.Put("/llm", apiHandler.PutLLMConfigHandler)
		r.Get("/llm/providers", apiHandler.ListProvidersHandler)

		// Extraction jobs
		r.Post("/jobs", apiHandler.StartJobHandler)
		r.Post("/jobs/cancel", apiHandler.CancelJobHandler)
		r.Get("/jobs/status", apiHandler.JobStatusHandler)
		r.Get("/jobs/results", apiHandler.ListJobResultsHandler)
		r.Delete("/jobs/results", apiHandler.ClearJobResultsHandler)
	})

	return r
}
