package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"kijko/internal/chat"
	"kijko/internal/classify"
	"kijko/internal/queue"
	"kijko/pkg/cache"
	"kijko/pkg/logger"
	"kijko/pkg/model"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const chatErrorText = "Sorry, something went wrong while I was answering. Could you send that again?"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// the browser client is served from a different origin in development
	CheckOrigin: func(*http.Request) bool { return true },
}

// clientFrame is one inbound socket message. A "text" frame carries free
// text; a "selection" frame carries the options the user tapped plus an
// optional typed elaboration, which the server folds back into a plain
// user message before calling the model.
type clientFrame struct {
	Type        string           `json:"type"`
	Text        string           `json:"text,omitempty"`
	Selections  []selectedOption `json:"selections,omitempty"`
	Elaboration string           `json:"elaboration,omitempty"`
}

type selectedOption struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// serverFrame is one outbound socket message. "delta" frames stream
// assistant text as it arrives; a single "complete" frame follows with
// the presentation model for the finished message. "transcript" frames
// push finished voice transcriptions; "error" frames substitute for a
// failed assistant turn.
type serverFrame struct {
	Type    string        `json:"type"`
	Text    string        `json:"text,omitempty"`
	Message *presentation `json:"message,omitempty"`
	TaskID  string        `json:"task_id,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// presentation is the interactive rendering of one assistant message,
// re-derived from the raw text on every render.
type presentation struct {
	Kind          string            `json:"kind"`
	Text          string            `json:"text"`
	Stem          string            `json:"stem,omitempty"`
	Options       []classify.Option `json:"options,omitempty"`
	SelectionMode string            `json:"selection_mode,omitempty"`
	SpeechText    string            `json:"speech_text"`
}

// buildPresentation classifies a fully received assistant message.
// Plain-text questions still get tappable quick replies from the
// fallback generator; those answer one at a time.
func buildPresentation(text string) *presentation {
	result := classify.Classify(text)

	p := &presentation{
		Kind:       string(result.Kind),
		Text:       text,
		SpeechText: classify.StripMarkdownForSpeech(text),
	}

	if result.Kind == classify.KindMultipleChoice {
		p.Stem = result.Stem
		p.Options = result.Options
		p.SelectionMode = string(classify.ModeFor(result.Options, nil))
		return p
	}

	if strings.Contains(text, "?") {
		p.Options = classify.DefaultOptions(text)
		p.SelectionMode = string(classify.SingleSelect)
	}
	return p
}

// wsConn serializes writes; the chat loop and the transcript pusher
// write from different goroutines.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) writeFrame(f *serverFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(f)
}

type hub struct {
	mu    sync.RWMutex
	conns map[string]*wsConn
}

func newHub() *hub {
	return &hub{conns: make(map[string]*wsConn)}
}

func (h *hub) register(sessionID string, c *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[sessionID] = c
}

func (h *hub) unregister(sessionID string, c *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[sessionID] == c {
		delete(h.conns, sessionID)
	}
}

func (h *hub) get(sessionID string) *wsConn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conns[sessionID]
}

func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "missing session parameter")
		return
	}
	if _, err := s.db.GetSessionByID(r.Context(), sessionID); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}

	c := &wsConn{conn: conn}
	s.hub.register(sessionID, c)
	defer s.hub.unregister(sessionID, c)
	defer conn.Close()

	logger.Info("Chat socket opened", zap.String("session_id", sessionID))

	for {
		var frame clientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("Chat socket closed unexpectedly", zap.Error(err))
			}
			return
		}

		userText := composeUserText(&frame)
		if userText == "" {
			_ = c.writeFrame(&serverFrame{Type: "error", Error: "empty message"})
			continue
		}

		s.handleUserTurn(r.Context(), c, sessionID, userText)
	}
}

// composeUserText flattens a client frame into the plain text stored
// and sent to the model. Selections become a comma-joined list of the
// chosen option texts.
func composeUserText(frame *clientFrame) string {
	switch frame.Type {
	case "selection":
		var parts []string
		for _, sel := range frame.Selections {
			if t := strings.TrimSpace(sel.Text); t != "" {
				parts = append(parts, t)
			}
		}
		text := strings.Join(parts, ", ")
		if e := strings.TrimSpace(frame.Elaboration); e != "" {
			if text != "" {
				text += ". " + e
			} else {
				text = e
			}
		}
		return text
	default:
		return strings.TrimSpace(frame.Text)
	}
}

// handleUserTurn runs one request/response exchange: persist the user
// message, stream the assistant reply as deltas, then persist the full
// reply and emit the terminal frame with its classification. The
// classifier only ever sees the fully accumulated text.
func (s *Server) handleUserTurn(ctx context.Context, c *wsConn, sessionID, userText string) {
	now := time.Now()
	if err := s.db.AppendMessage(ctx, &model.Message{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      model.RoleUser,
		Text:      userText,
		CreatedAt: now,
	}); err != nil {
		logger.Error("Failed to store user message", zap.Error(err))
		_ = c.writeFrame(&serverFrame{Type: "error", Error: chatErrorText})
		return
	}
	s.invalidateMessages(ctx, sessionID)

	history, err := s.db.ListMessages(ctx, sessionID)
	if err != nil {
		logger.Error("Failed to load history", zap.Error(err))
		_ = c.writeFrame(&serverFrame{Type: "error", Error: chatErrorText})
		return
	}

	messages := make([]chat.Message, 0, len(history)+1)
	messages = append(messages, chat.Message{Role: chat.RoleSystem, Content: chat.BuildSystemPrompt()})
	for _, m := range history {
		role := chat.RoleUser
		if m.Role == model.RoleAssistant {
			role = chat.RoleAssistant
		}
		messages = append(messages, chat.Message{Role: role, Content: m.Text})
	}

	deltas, errs, err := s.chat.Stream(ctx, messages)
	if err != nil {
		logger.Error("Chat request failed", zap.Error(err))
		_ = c.writeFrame(&serverFrame{Type: "error", Error: chatErrorText})
		return
	}

	var reply strings.Builder
	for delta := range deltas {
		reply.WriteString(delta)
		if err := c.writeFrame(&serverFrame{Type: "delta", Text: delta}); err != nil {
			logger.Warn("Failed to write delta", zap.Error(err))
			return
		}
	}
	if err := <-errs; err != nil {
		// the partial turn is discarded, not persisted
		logger.Error("Chat stream failed", zap.Error(err))
		_ = c.writeFrame(&serverFrame{Type: "error", Error: chatErrorText})
		return
	}

	full := reply.String()
	if err := s.db.AppendMessage(ctx, &model.Message{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      model.RoleAssistant,
		Text:      full,
		CreatedAt: time.Now(),
	}); err != nil {
		logger.Error("Failed to store assistant message", zap.Error(err))
	}
	s.invalidateMessages(ctx, sessionID)

	if err := c.writeFrame(&serverFrame{Type: "complete", Message: buildPresentation(full)}); err != nil {
		logger.Warn("Failed to write complete frame", zap.Error(err))
	}
}

func (s *Server) invalidateMessages(ctx context.Context, sessionID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.SessionMessagesCacheKey(sessionID)); err != nil {
		logger.Warn("Failed to invalidate messages cache", zap.Error(err))
	}
}

// HandleTranscriptionResult consumes worker results from the queue and
// pushes them to the session's open socket, if any. Clients without an
// open socket poll the transcript endpoint instead.
func (s *Server) HandleTranscriptionResult(body []byte) error {
	var result queue.TranscriptionResult
	if err := json.Unmarshal(body, &result); err != nil {
		logger.Error("Failed to unmarshal transcription result", zap.Error(err))
		return err
	}

	logger.Info("Transcription result received",
		zap.String("task_id", result.TaskID),
		zap.Bool("success", result.Success))

	c := s.hub.get(result.SessionID)
	if c == nil {
		return nil
	}

	frame := &serverFrame{Type: "transcript", TaskID: result.TaskID, Text: result.Text}
	if !result.Success {
		frame.Error = result.ErrorMessage
	}
	if err := c.writeFrame(frame); err != nil {
		logger.Warn("Failed to push transcript", zap.Error(err))
	}
	return nil
}
