package store

// Document is one uploaded file held for extraction. DataURI is always a
// base64 data URI; TextContent is set only when the MIME type is textual
// and decoding succeeded.
type Document struct {
	ID          string `json:"id"` // UUID
	Name        string `json:"name"`
	MIMEType    string `json:"mime_type"`
	Size        int64  `json:"size"`
	DataURI     string `json:"data_uri"`
	TextContent string `json:"text_content,omitempty"`
}

// Example is a few-shot (input, output) pair attached to the prompt
// configuration. Output is validated to be well-formed JSON when added.
type Example struct {
	ID       string `json:"id"` // UUID
	Input    string `json:"input"`
	Output   string `json:"output"`
	Position int    `json:"position"`
}

// PromptConfig holds the system prompt and the user task template.
type PromptConfig struct {
	SystemPrompt     string `json:"system_prompt"`
	UserTaskTemplate string `json:"user_task_template"`
}

// LLMConfig selects the provider, model and credential for a run. The API
// key is an opaque secret; it is only ever sent to the provider itself.
type LLMConfig struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	APIKey   string `json:"api_key"`
}

// JobResult is the record produced for one processed document. Append-only,
// never mutated after creation. ExtractedData may be non-nil alongside a
// non-empty Error when the reasoning step failed after extraction succeeded.
type JobResult struct {
	FileName        string  `json:"fileName"`
	ExtractedData   *string `json:"extractedData"`
	ThinkingProcess *string `json:"thinkingProcess,omitempty"`
	Error           string  `json:"error,omitempty"`
	Timestamp       int64   `json:"timestamp"` // epoch millis
}
