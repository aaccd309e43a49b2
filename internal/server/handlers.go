package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"kijko/internal/audio"
	"kijko/internal/export"
	"kijko/internal/queue"
	"kijko/internal/vrd"
	"kijko/pkg/cache"
	"kijko/pkg/logger"
	"kijko/pkg/model"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxAudioUploadBytes = 25 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Untitled brief"
	}

	now := time.Now()
	session := &model.Session{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.db.CreateSession(r.Context(), session); err != nil {
		logger.Error("Failed to create session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	logger.Info("Session created", zap.String("session_id", session.ID))
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	ctx := r.Context()

	var messages []*model.Message
	key := cache.SessionMessagesCacheKey(sessionID)
	if s.cache != nil {
		if err := s.cache.Get(ctx, key, &messages); err == nil {
			writeJSON(w, http.StatusOK, messages)
			return
		}
	}

	messages, err := s.db.ListMessages(ctx, sessionID)
	if err != nil {
		logger.Error("Failed to list messages", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	if messages == nil {
		messages = []*model.Message{}
	}

	if s.cache != nil {
		if err := s.cache.SetWithTTL(ctx, key, messages, 5*time.Minute); err != nil {
			logger.Warn("Failed to cache messages", zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, messages)
}

// handleUploadAudio accepts a voice clip, normalizes it for the STT
// service, stores it and enqueues a transcription task. Browser capture
// arrives as raw 48 kHz little-endian float32 PCM under the
// audio/float32 content type and is downsampled to 16 kHz PCM16;
// container formats pass through unchanged.
func (s *Server) handleUploadAudio(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	ctx := r.Context()

	if _, err := s.db.GetSessionByID(ctx, sessionID); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAudioUploadBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "audio clip too large")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty audio clip")
		return
	}

	contentType := r.Header.Get("Content-Type")
	extension := extensionFor(contentType)

	if contentType == "audio/float32" {
		rate := 48000
		if v := r.URL.Query().Get("rate"); v != "" {
			rate, err = strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid rate")
				return
			}
		}
		channels := 1
		if v := r.URL.Query().Get("channels"); v != "" {
			channels, err = strconv.Atoi(v)
			if err != nil || channels < 1 {
				writeError(w, http.StatusBadRequest, "invalid channels")
				return
			}
		}

		samples := audio.DecodeFloat32LE(data)
		if channels > 1 {
			samples = audio.DownmixInterleaved(samples, channels)
		}
		pcm, err := audio.DownsampleFloat32(samples, rate)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		data = audio.EncodePCM16LE(pcm)
		contentType = "audio/pcm"
		extension = ".pcm"
	}

	taskID := uuid.New().String()
	key := s.store.GenerateKey(taskID, extension)

	if _, err := s.store.UploadFile(ctx, key, bytes.NewReader(data), contentType); err != nil {
		logger.Error("Failed to upload audio", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store audio")
		return
	}

	now := time.Now()
	task := &model.Task{
		ID:        taskID,
		SessionID: sessionID,
		S3Key:     key,
		Status:    model.TaskStatusQueued,
		Meta: model.JSONB{
			"mime_type": contentType,
			"size":      len(data),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.CreateTask(ctx, task); err != nil {
		logger.Error("Failed to create task", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	if err := s.q.PublishTask(&queue.TranscriptionTask{
		TaskID:    taskID,
		SessionID: sessionID,
		S3Key:     key,
		MimeType:  contentType,
		FileSize:  int64(len(data)),
		CreatedAt: now,
	}); err != nil {
		logger.Error("Failed to publish task", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to enqueue task")
		return
	}

	logger.Info("Audio clip accepted",
		zap.String("task_id", taskID),
		zap.String("session_id", sessionID),
		zap.Int("bytes", len(data)))

	writeJSON(w, http.StatusAccepted, map[string]string{
		"task_id": taskID,
		"status":  string(model.TaskStatusQueued),
	})
}

func (s *Server) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	ctx := r.Context()

	var transcript model.Transcript
	key := cache.TranscriptCacheKey(taskID)
	if s.cache != nil {
		if err := s.cache.Get(ctx, key, &transcript); err == nil {
			writeJSON(w, http.StatusOK, &transcript)
			return
		}
	}

	stored, err := s.db.GetTranscriptByTaskID(ctx, taskID)
	if err == nil {
		if s.cache != nil {
			if err := s.cache.SetWithTTL(ctx, key, stored, 24*time.Hour); err != nil {
				logger.Warn("Failed to cache transcript", zap.Error(err))
			}
		}
		writeJSON(w, http.StatusOK, stored)
		return
	}

	// no transcript yet; report the task state instead
	task, err := s.db.GetTaskByID(ctx, taskID)
	if err != nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	resp := map[string]interface{}{
		"task_id": task.ID,
		"status":  task.Status,
	}
	if task.ErrorText != nil {
		resp["error_text"] = *task.ErrorText
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	ctx := r.Context()

	session, err := s.db.GetSessionByID(ctx, sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	messages, err := s.db.ListMessages(ctx, sessionID)
	if err != nil {
		logger.Error("Failed to list messages for export", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}

	doc := vrd.Extract(session.Title, messages)

	switch r.URL.Query().Get("format") {
	case "markdown", "":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "vrd-"+sessionID+".md"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(export.RenderMarkdown(doc))
	case "pdf":
		data, err := export.RenderPDF(doc)
		if err != nil {
			logger.Error("Failed to render PDF", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to render PDF")
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "vrd-"+sessionID+".pdf"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	default:
		writeError(w, http.StatusBadRequest, "unknown format, use markdown or pdf")
	}
}

func extensionFor(contentType string) string {
	switch contentType {
	case "audio/ogg":
		return ".ogg"
	case "audio/mpeg":
		return ".mp3"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/webm":
		return ".webm"
	case "audio/float32", "audio/pcm":
		return ".pcm"
	default:
		return ".bin"
	}
}
