package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"docbench.io/workbench/internal/core"
	"docbench.io/workbench/internal/store"
	"docbench.io/workbench/internal/utils"
)

type APIHandler struct {
	store      *store.SQLiteStore
	jobService *core.JobService
}

func NewAPIHandler(db *store.SQLiteStore, jobService *core.JobService) *APIHandler {
	return &APIHandler{store: db, jobService: jobService}
}

// Schema handlers

type SchemaPayload struct {
	SchemaJSON string `json:"schema_json"`
}

func (h *APIHandler) GetSchemaHandler(w http.ResponseWriter, r *http.Request) {
	schemaJSON, err := h.store.GetSchemaJSON()
	if err != nil {
		log.Printf("Error reading schema: %v", err)
		http.Error(w, "Failed to read schema", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(SchemaPayload{SchemaJSON: schemaJSON})
}

func (h *APIHandler) PutSchemaHandler(w http.ResponseWriter, r *http.Request) {
	var req SchemaPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.SchemaJSON) == "" {
		http.Error(w, "Schema cannot be empty", http.StatusBadRequest)
		return
	}

	if err := h.store.SetSchemaJSON(req.SchemaJSON); err != nil {
		if strings.Contains(err.Error(), "not valid JSON") {
			http.Error(w, err.Error(), http.StatusBadRequest)
		} else {
			log.Printf("Error saving schema: %v", err)
			http.Error(w, "Failed to save schema", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Prompt handlers

func (h *APIHandler) GetPromptsHandler(w http.ResponseWriter, r *http.Request) {
	prompts, err := h.store.GetPromptConfig()
	if err != nil {
		log.Printf("Error reading prompts: %v", err)
		http.Error(w, "Failed to read prompts", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(prompts)
}

func (h *APIHandler) PutPromptsHandler(w http.ResponseWriter, r *http.Request) {
	var req store.PromptConfig
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.store.SetPromptConfig(&req); err != nil {
		log.Printf("Error saving prompts: %v", err)
		http.Error(w, "Failed to save prompts", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Example handlers

type AddExampleRequest struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

func (h *APIHandler) ListExamplesHandler(w http.ResponseWriter, r *http.Request) {
	examples, err := h.store.GetExamples()
	if err != nil {
		log.Printf("Error listing examples: %v", err)
		http.Error(w, "Failed to list examples", http.StatusInternalServerError)
		return
	}
	if examples == nil {
		examples = []store.Example{}
	}
	json.NewEncoder(w).Encode(examples)
}

func (h *APIHandler) AddExampleHandler(w http.ResponseWriter, r *http.Request) {
	var req AddExampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Output == "" {
		http.Error(w, "Example output is required", http.StatusBadRequest)
		return
	}

	example := store.Example{Input: req.Input, Output: req.Output}
	if err := h.store.AddExample(&example); err != nil {
		if strings.Contains(err.Error(), "not valid JSON") {
			http.Error(w, err.Error(), http.StatusBadRequest)
		} else {
			log.Printf("Error adding example: %v", err)
			http.Error(w, "Failed to add example", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(example)
}

func (h *APIHandler) RemoveExampleHandler(w http.ResponseWriter, r *http.Request) {
	exampleID := chi.URLParam(r, "exampleID")

	if err := h.store.RemoveExample(exampleID); err != nil {
		if err.Error() == "example not found" {
			http.Error(w, err.Error(), http.StatusNotFound)
		} else {
			log.Printf("Error removing example %s: %v", exampleID, err)
			http.Error(w, "Failed to remove example", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Document handlers

type AddDocumentRequest struct {
	Name          string `json:"name"`
	MIMEType      string `json:"mime_type"`
	ContentBase64 string `json:"content_base64,omitempty"`
	TextContent   string `json:"text_content,omitempty"`
}

func (h *APIHandler) ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	docs, err := h.store.GetDocuments()
	if err != nil {
		log.Printf("Error listing documents: %v", err)
		http.Error(w, "Failed to list documents", http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []store.Document{}
	}
	json.NewEncoder(w).Encode(docs)
}

// AddDocumentHandler accepts either raw base64 content or pasted text. Text
// content is decoded eagerly for textual MIME types only; binary documents
// keep just the data URI and rely on the model's multimodal handling.
func (h *APIHandler) AddDocumentHandler(w http.ResponseWriter, r *http.Request) {
	var req AddDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Document name is required", http.StatusBadRequest)
		return
	}

	var doc store.Document
	switch {
	case req.TextContent != "":
		mimeType := req.MIMEType
		if mimeType == "" {
			mimeType = "text/plain"
		}
		doc = store.Document{
			Name:        req.Name,
			MIMEType:    mimeType,
			Size:        int64(len(req.TextContent)),
			DataURI:     utils.EncodeDataURI(mimeType, []byte(req.TextContent)),
			TextContent: req.TextContent,
		}
	case req.ContentBase64 != "":
		if req.MIMEType == "" {
			http.Error(w, "MIME type is required for binary content", http.StatusBadRequest)
			return
		}
		data, err := base64.StdEncoding.DecodeString(req.ContentBase64)
		if err != nil {
			http.Error(w, "Invalid base64 content: "+err.Error(), http.StatusBadRequest)
			return
		}
		doc = store.Document{
			Name:     req.Name,
			MIMEType: req.MIMEType,
			Size:     int64(len(data)),
			DataURI:  utils.EncodeDataURI(req.MIMEType, data),
		}
		if utils.IsTextualMIME(req.MIMEType) {
			doc.TextContent = string(data)
		}
	default:
		http.Error(w, "Either content_base64 or text_content is required", http.StatusBadRequest)
		return
	}

	if err := h.store.AddDocument(&doc); err != nil {
		log.Printf("Error adding document %s: %v", req.Name, err)
		http.Error(w, "Failed to add document", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(doc)
}

func (h *APIHandler) RemoveDocumentHandler(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")

	if err := h.store.RemoveDocument(documentID); err != nil {
		if err.Error() == "document not found" {
			http.Error(w, err.Error(), http.StatusNotFound)
		} else {
			log.Printf("Error removing document %s: %v", documentID, err)
			http.Error(w, "Failed to remove document", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ClearDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearDocuments(); err != nil {
		log.Printf("Error clearing documents: %v", err)
		http.Error(w, "Failed to clear documents", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LLM configuration handlers

type LLMConfigResponse struct {
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	APIKeySet     bool   `json:"api_key_set"`
	KeyLooksValid bool   `json:"key_looks_valid"`
}

type LLMConfigRequest struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	APIKey   string `json:"api_key,omitempty"` // empty keeps the stored key
}

func (h *APIHandler) GetLLMConfigHandler(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.store.GetLLMConfig()
	if err != nil {
		log.Printf("Error reading LLM config: %v", err)
		http.Error(w, "Failed to read LLM config", http.StatusInternalServerError)
		return
	}

	// The key itself is never echoed back to the browser.
	json.NewEncoder(w).Encode(LLMConfigResponse{
		Provider:      cfg.Provider,
		Model:         cfg.Model,
		APIKeySet:     cfg.APIKey != "",
		KeyLooksValid: core.KeyLooksPlausible(cfg.APIKey),
	})
}

func (h *APIHandler) PutLLMConfigHandler(w http.ResponseWriter, r *http.Request) {
	var req LLMConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	var provider *core.Provider
	for _, p := range core.Providers() {
		if p.ID == req.Provider {
			provider = &p
			break
		}
	}
	if provider == nil {
		http.Error(w, "Unknown provider: "+req.Provider, http.StatusBadRequest)
		return
	}

	model := req.Model
	if model == "" {
		model = provider.Models[0]
	}

	current, err := h.store.GetLLMConfig()
	if err != nil {
		log.Printf("Error reading LLM config: %v", err)
		http.Error(w, "Failed to read LLM config", http.StatusInternalServerError)
		return
	}

	apiKey := req.APIKey
	if apiKey == "" {
		apiKey = current.APIKey
	}

	cfg := store.LLMConfig{Provider: req.Provider, Model: model, APIKey: apiKey}
	if err := h.store.SetLLMConfig(&cfg); err != nil {
		log.Printf("Error saving LLM config: %v", err)
		http.Error(w, "Failed to save LLM config", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(LLMConfigResponse{
		Provider:      cfg.Provider,
		Model:         cfg.Model,
		APIKeySet:     cfg.APIKey != "",
		KeyLooksValid: core.KeyLooksPlausible(cfg.APIKey),
	})
}

func (h *APIHandler) ListProvidersHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(core.Providers())
}

// Job handlers

type StartJobRequest struct {
	ThinkingEnabled bool   `json:"thinking_enabled"`
	DetailLevel     string `json:"detail_level,omitempty"`
}

func (h *APIHandler) StartJobHandler(w http.ResponseWriter, r *http.Request) {
	var req StartJobRequest
	if r.Body != http.NoBody {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	detailLevel := core.DetailLevel(req.DetailLevel)
	if detailLevel != "" && !core.ValidDetailLevel(detailLevel) {
		http.Error(w, "Invalid detail_level (expected brief, standard or detailed)", http.StatusBadRequest)
		return
	}

	err := h.jobService.Start(core.RunOptions{
		ThinkingEnabled: req.ThinkingEnabled,
		DetailLevel:     detailLevel,
	})
	if err != nil {
		var validationErr *core.ValidationError
		if errors.As(err, &validationErr) {
			http.Error(w, validationErr.Reason, http.StatusBadRequest)
			return
		}
		if err.Error() == "a job is already running" {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		log.Printf("Error starting job: %v", err)
		http.Error(w, "Failed to start job", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(h.jobService.Status())
}

func (h *APIHandler) CancelJobHandler(w http.ResponseWriter, r *http.Request) {
	if !h.jobService.Cancel() {
		http.Error(w, "No job is running", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *APIHandler) JobStatusHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(h.jobService.Status())
}

func (h *APIHandler) ListJobResultsHandler(w http.ResponseWriter, r *http.Request) {
	results, err := h.store.GetJobResults()
	if err != nil {
		log.Printf("Error listing job results: %v", err)
		http.Error(w, "Failed to list job results", http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []store.JobResult{}
	}
	json.NewEncoder(w).Encode(results)
}

func (h *APIHandler) ClearJobResultsHandler(w http.ResponseWriter, r *http.Request) {
	if h.jobService.Status().Running {
		http.Error(w, "Cannot clear results while a job is running", http.StatusConflict)
		return
	}
	if err := h.store.ClearJobResults(); err != nil {
		log.Printf("Error clearing job results: %v", err)
		http.Error(w, "Failed to clear job results", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
