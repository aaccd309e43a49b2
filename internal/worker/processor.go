package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"kijko/internal/queue"
	"kijko/internal/transcribe"
	"kijko/pkg/cache"
	"kijko/pkg/logger"
	"kijko/pkg/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Storage is the slice of the persistence layer the processor needs.
type Storage interface {
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)
	UpdateTask(ctx context.Context, task *model.Task) error
	CreateTranscript(ctx context.Context, transcript *model.Transcript) error
}

// ObjectStore resolves stored audio clips to URLs the recognizer can
// fetch.
type ObjectStore interface {
	ObjectURL(key string) string
}

// Recognizer is the hosted speech-to-text service.
type Recognizer interface {
	StartRecognition(ctx context.Context, audioURI, mimeType string) (string, error)
	WaitForResult(ctx context.Context, operationID string) (*transcribe.RecognitionResult, error)
}

// ResultPublisher pushes finished transcripts back to the API server.
type ResultPublisher interface {
	PublishResult(result *queue.TranscriptionResult) error
}

type Processor struct {
	db    Storage
	store ObjectStore
	stt   Recognizer
	q     ResultPublisher
	cache cache.Cache
}

// NewProcessor creates a new worker processor
func NewProcessor(db Storage, store ObjectStore, stt Recognizer, q ResultPublisher, c cache.Cache) *Processor {
	return &Processor{
		db:    db,
		store: store,
		stt:   stt,
		q:     q,
		cache: c,
	}
}

// ProcessTask processes one queued transcription task.
func (p *Processor) ProcessTask(taskData []byte) error {
	var queued queue.TranscriptionTask
	if err := json.Unmarshal(taskData, &queued); err != nil {
		return fmt.Errorf("failed to unmarshal task: %w", err)
	}

	logger.Info("Processing transcription task",
		zap.String("task_id", queued.TaskID),
		zap.String("session_id", queued.SessionID))

	ctx := context.Background()

	task, err := p.db.GetTaskByID(ctx, queued.TaskID)
	if err != nil {
		return fmt.Errorf("failed to get task from db: %w", err)
	}

	// redelivered tasks in a final state are dropped, not reprocessed
	if task.IsCompleted() && !task.CanRetry() {
		logger.Warn("Skipping task in final state",
			zap.String("task_id", task.ID),
			zap.String("status", string(task.Status)))
		return nil
	}

	task.SetInProgress("")
	if err := p.db.UpdateTask(ctx, task); err != nil {
		logger.Error("Failed to update task status", zap.Error(err))
	}

	audioURL := p.store.ObjectURL(task.S3Key)

	operationID, err := p.stt.StartRecognition(ctx, audioURL, metaString(task.Meta, "mime_type"))
	if err != nil {
		p.handleTaskError(ctx, task, queued.SessionID, fmt.Sprintf("Failed to start recognition: %v", err))
		return err
	}

	task.SetInProgress(operationID)
	if err := p.db.UpdateTask(ctx, task); err != nil {
		logger.Error("Failed to update operation_id", zap.Error(err))
	}

	logger.Info("Recognition started",
		zap.String("task_id", task.ID),
		zap.String("operation_id", operationID))

	result, err := p.stt.WaitForResult(ctx, operationID)
	if err != nil {
		p.handleTaskError(ctx, task, queued.SessionID, fmt.Sprintf("Recognition failed: %v", err))
		return err
	}

	recognizedText := result.FullText()
	if recognizedText == "" {
		p.handleTaskError(ctx, task, queued.SessionID, "No text recognized")
		return fmt.Errorf("no text recognized")
	}

	logger.Info("Recognition completed",
		zap.String("task_id", task.ID),
		zap.Int("text_length", len(recognizedText)))

	rawResponse, _ := json.Marshal(result)
	transcript := &model.Transcript{
		ID:          uuid.New().String(),
		TaskID:      task.ID,
		Text:        recognizedText,
		Language:    result.DetectedLanguage,
		RawResponse: rawResponse,
		CreatedAt:   time.Now(),
	}

	if err := p.db.CreateTranscript(ctx, transcript); err != nil {
		logger.Error("Failed to save transcript", zap.Error(err))
	}

	task.SetCompleted()
	if err := p.db.UpdateTask(ctx, task); err != nil {
		logger.Error("Failed to update task status to done", zap.Error(err))
	}

	if p.cache != nil {
		key := cache.TranscriptCacheKey(task.ID)
		if err := p.cache.SetWithTTL(ctx, key, transcript, 24*time.Hour); err != nil {
			logger.Error("Failed to cache transcript", zap.Error(err))
		}
	}

	if err := p.q.PublishResult(&queue.TranscriptionResult{
		TaskID:    task.ID,
		SessionID: queued.SessionID,
		Text:      recognizedText,
		Language:  result.DetectedLanguage,
		Success:   true,
	}); err != nil {
		logger.Error("Failed to publish result", zap.Error(err))
		// task is completed anyway
	}

	logger.Info("Task completed successfully", zap.String("task_id", task.ID))

	return nil
}

// handleTaskError records the failure and notifies the API server once
// the task has exhausted its attempts.
func (p *Processor) handleTaskError(ctx context.Context, task *model.Task, sessionID, errorMsg string) {
	logger.Error("Task processing error",
		zap.String("task_id", task.ID),
		zap.String("error", errorMsg))

	task.SetError(errorMsg)
	task.IncrementAttempts()

	if err := p.db.UpdateTask(ctx, task); err != nil {
		logger.Error("Failed to update task error", zap.Error(err))
	}

	if !task.CanRetry() {
		if err := p.q.PublishResult(&queue.TranscriptionResult{
			TaskID:       task.ID,
			SessionID:    sessionID,
			Success:      false,
			ErrorMessage: errorMsg,
		}); err != nil {
			logger.Error("Failed to publish failure result", zap.Error(err))
		}
	}
}

func metaString(meta model.JSONB, key string) string {
	if meta == nil {
		return ""
	}
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}
