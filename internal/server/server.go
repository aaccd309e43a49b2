package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"kijko/internal/chat"
	"kijko/internal/queue"
	"kijko/pkg/cache"
	"kijko/pkg/logger"
	"kijko/pkg/model"
	"kijko/pkg/resilience"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Store is the slice of the persistence layer the API server needs.
type Store interface {
	CreateSession(ctx context.Context, session *model.Session) error
	GetSessionByID(ctx context.Context, id string) (*model.Session, error)
	AppendMessage(ctx context.Context, msg *model.Message) error
	ListMessages(ctx context.Context, sessionID string) ([]*model.Message, error)
	CreateTask(ctx context.Context, task *model.Task) error
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)
	GetTranscriptByTaskID(ctx context.Context, taskID string) (*model.Transcript, error)
}

// ObjectStore uploads audio clips for the transcription pipeline.
type ObjectStore interface {
	UploadFile(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	GenerateKey(taskID, extension string) string
}

// TaskPublisher enqueues transcription tasks for the worker.
type TaskPublisher interface {
	PublishTask(task *queue.TranscriptionTask) error
}

// ChatStreamer streams assistant replies for the interview conversation.
type ChatStreamer interface {
	Stream(ctx context.Context, messages []chat.Message) (<-chan string, <-chan error, error)
}

type Server struct {
	db      Store
	store   ObjectStore
	q       TaskPublisher
	chat    ChatStreamer
	cache   cache.Cache
	limiter *resilience.RateLimiter
	hub     *hub
}

func NewServer(db Store, store ObjectStore, q TaskPublisher, chatClient ChatStreamer, c cache.Cache) *Server {
	return &Server{
		db:      db,
		store:   store,
		q:       q,
		chat:    chatClient,
		cache:   c,
		limiter: resilience.NewRateLimiter(30, time.Second),
		hub:     newHub(),
	}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(s.rateLimit)

	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions/{id}/messages", s.handleListMessages)
		r.Post("/sessions/{id}/audio", s.handleUploadAudio)
		r.Get("/sessions/{id}/export", s.handleExport)
		r.Get("/transcripts/{taskID}", s.handleGetTranscript)
	})

	r.Get("/ws/chat", s.handleChatSocket)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
