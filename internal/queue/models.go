package queue

import "time"

// TranscriptionTask is the message published when an audio clip is
// uploaded and needs transcribing.
type TranscriptionTask struct {
	TaskID    string    `json:"task_id"`
	SessionID string    `json:"session_id"`
	S3Key     string    `json:"s3_key"`
	MimeType  string    `json:"mime_type"`
	FileSize  int64     `json:"file_size"`
	CreatedAt time.Time `json:"created_at"`
}

// TranscriptionResult is published back once the worker finishes, so
// the API server can push the transcript down the live socket.
type TranscriptionResult struct {
	TaskID       string `json:"task_id"`
	SessionID    string `json:"session_id"`
	Text         string `json:"text"`
	Language     string `json:"language,omitempty"`
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
}
