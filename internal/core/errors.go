package core

import "fmt"

// ValidationError means a job run was refused before any LLM call was made
// (empty document set, missing credential).
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// MalformedOutputError means the extraction call returned text that is not
// valid JSON even after the single code-fence strip attempt. Raw carries the
// offending model output for diagnostics.
type MalformedOutputError struct {
	ParseErr error
	Raw      string
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("LLM output is not valid JSON: %v", e.ParseErr)
}

func (e *MalformedOutputError) Unwrap() error {
	return e.ParseErr
}

// GenerationError means an LLM call produced no usable output at all.
type GenerationError struct {
	Stage string // "extraction" or "thinking"
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s failed: no output from LLM", e.Stage)
}
