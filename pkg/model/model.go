package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Role identifies who produced a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TaskStatus represents the status of a transcription task
type TaskStatus string

const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusFailed     TaskStatus = "failed"
)

const maxTaskAttempts = 3

// JSONB represents a JSONB field for PostgreSQL
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Session is one brief interview. Its message history is the raw
// material for the exported requirements document.
type Session struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Message is one conversation turn. Only the raw text is stored;
// presentation models are re-derived from it on every render.
type Message struct {
	ID        string    `json:"id" db:"id"`
	SessionID string    `json:"session_id" db:"session_id"`
	Role      Role      `json:"role" db:"role"`
	Text      string    `json:"text" db:"text"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Task represents an audio transcription task
type Task struct {
	ID          string     `json:"id" db:"id"`
	SessionID   string     `json:"session_id" db:"session_id"`
	S3Key       string     `json:"s3_key" db:"s3_key"`
	Status      TaskStatus `json:"status" db:"status"`
	OperationID *string    `json:"operation_id,omitempty" db:"operation_id"`
	Attempts    int        `json:"attempts" db:"attempts"`
	ErrorText   *string    `json:"error_text,omitempty" db:"error_text"`
	Meta        JSONB      `json:"meta" db:"meta"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Transcript represents a transcribed text result
type Transcript struct {
	ID          string          `json:"id" db:"id"`
	TaskID      string          `json:"task_id" db:"task_id"`
	Text        string          `json:"text" db:"text"`
	Language    string          `json:"language" db:"language"`
	RawResponse json.RawMessage `json:"raw_response,omitempty" db:"raw_response"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// IsCompleted returns true if the task is in a final state
func (t *Task) IsCompleted() bool {
	return t.Status == TaskStatusDone || t.Status == TaskStatusFailed
}

// CanRetry returns true if the task can be retried
func (t *Task) CanRetry() bool {
	return t.Status == TaskStatusFailed && t.Attempts < maxTaskAttempts
}

// IncrementAttempts increases the attempt counter
func (t *Task) IncrementAttempts() {
	t.Attempts++
}

// SetError sets the task status to failed with error message
func (t *Task) SetError(errorText string) {
	t.Status = TaskStatusFailed
	t.ErrorText = &errorText
	t.UpdatedAt = time.Now()
}

// SetCompleted sets the task status to done
func (t *Task) SetCompleted() {
	t.Status = TaskStatusDone
	t.UpdatedAt = time.Now()
}

// SetInProgress sets the task status to in progress with operation ID
func (t *Task) SetInProgress(operationID string) {
	t.Status = TaskStatusInProgress
	if operationID != "" {
		t.OperationID = &operationID
	}
	t.UpdatedAt = time.Now()
}
