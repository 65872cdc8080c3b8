package core

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"docbench.io/workbench/internal/store"
)

// RunOptions are the per-run controls captured when a job starts.
type RunOptions struct {
	ThinkingEnabled bool
	DetailLevel     DetailLevel
}

// JobStatus is the externally observable state of the orchestrator.
type JobStatus struct {
	Running     bool   `json:"running"`
	Progress    int    `json:"progress"` // 0-100
	CurrentTask string `json:"current_task"`
}

// runInputs is the snapshot taken at the start of a run. The loop reads only
// from this snapshot, so edits made through the API while a run is in flight
// cannot change its inputs.
type runInputs struct {
	documents  []store.Document
	schemaJSON string
	prompts    store.PromptConfig
	examples   []store.Example
}

// JobService runs batch extraction jobs: one pass over the document set,
// strictly sequential, one extraction call per document plus an optional
// reasoning call. Per-document failures never abort the batch; every
// document gets exactly one JobResult.
type JobService struct {
	store     *store.SQLiteStore
	newEngine func(ctx context.Context, cfg *store.LLMConfig) (Engine, error)

	mu          sync.Mutex
	running     bool
	cancelled   bool
	progress    int
	currentTask string
}

func NewJobService(db *store.SQLiteStore) *JobService {
	return &JobService{
		store:     db,
		newEngine: NewEngine,
	}
}

// NewJobServiceWithEngine wires a custom engine factory. Used by tests and
// by anyone embedding the orchestrator with a non-catalog provider.
func NewJobServiceWithEngine(db *store.SQLiteStore, newEngine func(ctx context.Context, cfg *store.LLMConfig) (Engine, error)) *JobService {
	return &JobService{
		store:     db,
		newEngine: newEngine,
	}
}

// Status returns the current run state.
func (s *JobService) Status() JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return JobStatus{
		Running:     s.running,
		Progress:    s.progress,
		CurrentTask: s.currentTask,
	}
}

// Cancel signals a running job to stop before the next document. The
// documents processed so far keep their results. Returns false if no job
// was running.
func (s *JobService) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false
	}
	s.cancelled = true
	return true
}

// Start validates the preconditions, snapshots the session state, clears
// previous results and launches the run. The busy flag gates re-entry: a
// second Start while a run is in flight is refused.
//
// Guard conditions are an empty document set and a missing API key only.
// Schema or prompt emptiness is deliberately not checked here; the model
// fails loudly per-document instead.
func (s *JobService) Start(opts RunOptions) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("a job is already running")
	}
	s.mu.Unlock()

	documents, err := s.store.GetDocuments()
	if err != nil {
		return fmt.Errorf("failed to read documents: %w", err)
	}
	if len(documents) == 0 {
		s.setStatus(100, "No files to process.")
		return &ValidationError{Reason: "no documents selected for extraction"}
	}

	llmCfg, err := s.store.GetLLMConfig()
	if err != nil {
		return fmt.Errorf("failed to read LLM config: %w", err)
	}
	if llmCfg.APIKey == "" {
		return &ValidationError{Reason: "no API key configured"}
	}

	schemaJSON, err := s.store.GetSchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}
	prompts, err := s.store.GetPromptConfig()
	if err != nil {
		return fmt.Errorf("failed to read prompts: %w", err)
	}
	examples, err := s.store.GetExamples()
	if err != nil {
		return fmt.Errorf("failed to read examples: %w", err)
	}

	ctx := context.Background()
	engine, err := s.newEngine(ctx, llmCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM engine: %w", err)
	}

	if err := s.store.ClearJobResults(); err != nil {
		engine.Close()
		return fmt.Errorf("failed to clear previous results: %w", err)
	}

	inputs := runInputs{
		documents:  documents,
		schemaJSON: schemaJSON,
		prompts:    *prompts,
		examples:   examples,
	}

	// Re-check under the lock: two concurrent Starts must not both launch.
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		engine.Close()
		return fmt.Errorf("a job is already running")
	}
	s.running = true
	s.cancelled = false
	s.progress = 0
	s.currentTask = ""
	s.mu.Unlock()

	go s.run(ctx, engine, inputs, opts)
	return nil
}

func (s *JobService) run(ctx context.Context, engine Engine, inputs runInputs, opts RunOptions) {
	defer engine.Close()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	total := len(inputs.documents)

	for i, doc := range inputs.documents {
		if s.isCancelled() {
			s.setStatus(s.Status().Progress, fmt.Sprintf("Job cancelled after %d of %d documents.", i, total))
			return
		}

		s.setStatus(
			int(math.Round(float64(i)/float64(total)*100)),
			fmt.Sprintf("Processing %s (%d/%d)...", doc.Name, i+1, total),
		)

		result := s.processDocument(ctx, engine, doc, inputs, opts)
		if err := s.store.AppendJobResult(result); err != nil {
			log.Printf("Failed to store job result for %s: %v", doc.Name, err)
		}
	}

	s.setStatus(100, "All files processed.")
}

// processDocument performs at most one extraction attempt and at most one
// reasoning attempt for a single document and always produces a result. A
// thinking failure after a successful extraction keeps the extraction
// output (partial success).
func (s *JobService) processDocument(ctx context.Context, engine Engine, doc store.Document, inputs runInputs, opts RunOptions) *store.JobResult {
	result := &store.JobResult{
		FileName:  doc.Name,
		Timestamp: time.Now().UnixMilli(),
	}

	out, err := engine.Extract(ctx, ExtractInput{
		Document:     doc,
		SchemaJSON:   inputs.schemaJSON,
		SystemPrompt: inputs.prompts.SystemPrompt,
		UserTask:     inputs.prompts.UserTaskTemplate,
		Examples:     inputs.examples,
	})
	if err != nil {
		log.Printf("Extraction failed for %s: %v", doc.Name, err)
		result.Error = err.Error()
		return result
	}
	result.ExtractedData = &out.ExtractedJSON

	if opts.ThinkingEnabled {
		s.setStatus(s.Status().Progress, fmt.Sprintf("Visualizing thinking for %s...", doc.Name))

		thinking, err := engine.Explain(ctx, ThinkingInput{
			Query:       synthesizeThinkingQuery(inputs.prompts.UserTaskTemplate, inputs.schemaJSON, doc),
			DetailLevel: opts.DetailLevel,
		})
		if err != nil {
			log.Printf("Thinking visualization failed for %s: %v", doc.Name, err)
			result.Error = err.Error()
			return result
		}
		result.ThinkingProcess = &thinking.ThinkingProcess
	}

	result.Timestamp = time.Now().UnixMilli()
	return result
}

// synthesizeThinkingQuery combines the task description, a truncated schema
// preview and the document identity into the reasoning-trace query.
func synthesizeThinkingQuery(userTask, schemaJSON string, doc store.Document) string {
	preview := schemaJSON
	if len(preview) > 100 {
		preview = preview[:100]
	}
	return fmt.Sprintf("Task: %s\nSchema: %s...\nDocument: %s (%s)", userTask, preview, doc.Name, doc.MIMEType)
}

func (s *JobService) isCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

func (s *JobService) setStatus(progress int, task string) {
	s.mu.Lock()
	s.progress = progress
	s.currentTask = task
	s.mu.Unlock()
}
