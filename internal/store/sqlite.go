package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Settings keys.
const (
	settingSchemaJSON       = "schema_json"
	settingSystemPrompt     = "system_prompt"
	settingUserTaskTemplate = "user_task_template"
	settingLLMConfig        = "llm_config"
)

// SQLiteStore holds the session state of one workbench: documents, schema,
// prompts, few-shot examples, LLM selection and job results. The default
// DSN is ":memory:", so nothing survives a process restart.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// An in-memory SQLite database exists per connection. Pin the pool to a
	// single connection so every query sees the same database.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err = store.seedDefaults(); err != nil {
		return nil, fmt.Errorf("failed to seed defaults: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS documents (
        id TEXT PRIMARY KEY, -- UUID
        name TEXT NOT NULL,
        mime_type TEXT NOT NULL,
        size INTEGER NOT NULL,
        data_uri TEXT NOT NULL,
        text_content TEXT
    );

    CREATE TABLE IF NOT EXISTS examples (
        id TEXT PRIMARY KEY, -- UUID
        input TEXT NOT NULL,
        output TEXT NOT NULL,
        position INTEGER NOT NULL
    );

    CREATE TABLE IF NOT EXISTS job_results (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        file_name TEXT NOT NULL,
        extracted_data TEXT,
        thinking_process TEXT,
        error TEXT,
        timestamp INTEGER NOT NULL -- epoch millis
    );

    CREATE TABLE IF NOT EXISTS settings (
        key TEXT PRIMARY KEY,
        value TEXT NOT NULL
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) seedDefaults() error {
	defaults := map[string]string{
		settingSchemaJSON:       DefaultSchemaJSON,
		settingSystemPrompt:     DefaultSystemPrompt,
		settingUserTaskTemplate: DefaultUserTaskTemplate,
	}
	for key, value := range defaults {
		if _, err := s.db.Exec("INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)", key, value); err != nil {
			return fmt.Errorf("failed to seed setting %s: %w", key, err)
		}
	}
	return nil
}

// Settings helpers

func (s *SQLiteStore) getSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to query setting %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) setSetting(key, value string) error {
	_, err := s.db.Exec("INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value", key, value)
	if err != nil {
		return fmt.Errorf("failed to store setting %s: %w", key, err)
	}
	return nil
}

// Schema methods

func (s *SQLiteStore) GetSchemaJSON() (string, error) {
	return s.getSetting(settingSchemaJSON)
}

// SetSchemaJSON stores the extraction schema text. Well-formedness is the
// only check; compatibility with the prompts is left to the user.
func (s *SQLiteStore) SetSchemaJSON(schemaJSON string) error {
	if !json.Valid([]byte(schemaJSON)) {
		return fmt.Errorf("schema is not valid JSON")
	}
	return s.setSetting(settingSchemaJSON, schemaJSON)
}

// Prompt methods

func (s *SQLiteStore) GetPromptConfig() (*PromptConfig, error) {
	systemPrompt, err := s.getSetting(settingSystemPrompt)
	if err != nil {
		return nil, err
	}
	userTask, err := s.getSetting(settingUserTaskTemplate)
	if err != nil {
		return nil, err
	}
	return &PromptConfig{SystemPrompt: systemPrompt, UserTaskTemplate: userTask}, nil
}

func (s *SQLiteStore) SetPromptConfig(cfg *PromptConfig) error {
	if err := s.setSetting(settingSystemPrompt, cfg.SystemPrompt); err != nil {
		return err
	}
	return s.setSetting(settingUserTaskTemplate, cfg.UserTaskTemplate)
}

// Example methods

// AddExample appends a few-shot example. The output field must be
// syntactically valid JSON at the moment of addition; it is not re-checked
// against the current schema afterwards.
func (s *SQLiteStore) AddExample(example *Example) error {
	if !json.Valid([]byte(example.Output)) {
		return fmt.Errorf("example output is not valid JSON")
	}

	example.ID = uuid.NewString()

	var maxPos sql.NullInt64
	if err := s.db.QueryRow("SELECT MAX(position) FROM examples").Scan(&maxPos); err != nil {
		return fmt.Errorf("failed to query example positions: %w", err)
	}
	example.Position = int(maxPos.Int64) + 1

	stmt, err := s.db.Prepare("INSERT INTO examples (id, input, output, position) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare example insert: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(example.ID, example.Input, example.Output, example.Position)
	if err != nil {
		return fmt.Errorf("failed to execute example insert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetExamples() ([]Example, error) {
	rows, err := s.db.Query("SELECT id, input, output, position FROM examples ORDER BY position ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query examples: %w", err)
	}
	defer rows.Close()

	var examples []Example
	for rows.Next() {
		var example Example
		if err := rows.Scan(&example.ID, &example.Input, &example.Output, &example.Position); err != nil {
			return nil, fmt.Errorf("failed to scan example row: %w", err)
		}
		examples = append(examples, example)
	}
	return examples, nil
}

func (s *SQLiteStore) RemoveExample(exampleID string) error {
	res, err := s.db.Exec("DELETE FROM examples WHERE id = ?", exampleID)
	if err != nil {
		return fmt.Errorf("failed to delete example: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("example not found")
	}
	return nil
}

// Document methods

func (s *SQLiteStore) AddDocument(doc *Document) error {
	doc.ID = uuid.NewString()

	stmt, err := s.db.Prepare("INSERT INTO documents (id, name, mime_type, size, data_uri, text_content) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare document insert: %w", err)
	}
	defer stmt.Close()

	var textContent sql.NullString
	if doc.TextContent != "" {
		textContent = sql.NullString{String: doc.TextContent, Valid: true}
	}

	_, err = stmt.Exec(doc.ID, doc.Name, doc.MIMEType, doc.Size, doc.DataURI, textContent)
	if err != nil {
		return fmt.Errorf("failed to execute document insert: %w", err)
	}
	return nil
}

// GetDocuments returns all documents in upload order.
func (s *SQLiteStore) GetDocuments() ([]Document, error) {
	rows, err := s.db.Query("SELECT id, name, mime_type, size, data_uri, text_content FROM documents ORDER BY rowid ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var textContent sql.NullString
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.MIMEType, &doc.Size, &doc.DataURI, &textContent); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		if textContent.Valid {
			doc.TextContent = textContent.String
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *SQLiteStore) RemoveDocument(documentID string) error {
	res, err := s.db.Exec("DELETE FROM documents WHERE id = ?", documentID)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("document not found")
	}
	return nil
}

func (s *SQLiteStore) ClearDocuments() error {
	_, err := s.db.Exec("DELETE FROM documents")
	if err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}
	return nil
}

// LLM configuration methods

func (s *SQLiteStore) GetLLMConfig() (*LLMConfig, error) {
	value, err := s.getSetting(settingLLMConfig)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return &LLMConfig{}, nil
	}

	var cfg LLMConfig
	if err := json.Unmarshal([]byte(value), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal LLM config: %w", err)
	}
	return &cfg, nil
}

func (s *SQLiteStore) SetLLMConfig(cfg *LLMConfig) error {
	value, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal LLM config: %w", err)
	}
	return s.setSetting(settingLLMConfig, string(value))
}

// Job result methods

// AppendJobResult records the outcome for one document. Results are
// append-only and are never reordered or mutated.
func (s *SQLiteStore) AppendJobResult(result *JobResult) error {
	stmt, err := s.db.Prepare("INSERT INTO job_results (file_name, extracted_data, thinking_process, error, timestamp) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare job result insert: %w", err)
	}
	defer stmt.Close()

	var extracted, thinking sql.NullString
	if result.ExtractedData != nil {
		extracted = sql.NullString{String: *result.ExtractedData, Valid: true}
	}
	if result.ThinkingProcess != nil {
		thinking = sql.NullString{String: *result.ThinkingProcess, Valid: true}
	}

	_, err = stmt.Exec(result.FileName, extracted, thinking, result.Error, result.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to execute job result insert: %w", err)
	}
	return nil
}

// GetJobResults returns all results in the order they were appended.
func (s *SQLiteStore) GetJobResults() ([]JobResult, error) {
	rows, err := s.db.Query("SELECT file_name, extracted_data, thinking_process, error, timestamp FROM job_results ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query job results: %w", err)
	}
	defer rows.Close()

	var results []JobResult
	for rows.Next() {
		var result JobResult
		var extracted, thinking sql.NullString
		if err := rows.Scan(&result.FileName, &extracted, &thinking, &result.Error, &result.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan job result row: %w", err)
		}
		if extracted.Valid {
			result.ExtractedData = &extracted.String
		}
		if thinking.Valid {
			result.ThinkingProcess = &thinking.String
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *SQLiteStore) ClearJobResults() error {
	_, err := s.db.Exec("DELETE FROM job_results")
	if err != nil {
		return fmt.Errorf("failed to clear job results: %w", err)
	}
	return nil
}
