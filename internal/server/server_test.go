package server

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kijko/internal/chat"
	"kijko/internal/classify"
	"kijko/internal/queue"
	"kijko/pkg/logger"
	"kijko/pkg/model"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.Init(true)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateSession(ctx context.Context, session *model.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockStore) GetSessionByID(ctx context.Context, id string) (*model.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *MockStore) AppendMessage(ctx context.Context, msg *model.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockStore) ListMessages(ctx context.Context, sessionID string) ([]*model.Message, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Message), args.Error(1)
}

func (m *MockStore) CreateTask(ctx context.Context, task *model.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockStore) GetTaskByID(ctx context.Context, id string) (*model.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *MockStore) GetTranscriptByTaskID(ctx context.Context, taskID string) (*model.Transcript, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transcript), args.Error(1)
}

type MockObjects struct {
	mock.Mock
	uploaded []byte
}

func (m *MockObjects) UploadFile(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	data, _ := io.ReadAll(body)
	m.uploaded = data
	args := m.Called(ctx, key, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockObjects) GenerateKey(taskID, extension string) string {
	args := m.Called(taskID, extension)
	return args.String(0)
}

type MockTasks struct {
	mock.Mock
}

func (m *MockTasks) PublishTask(task *queue.TranscriptionTask) error {
	args := m.Called(task)
	return args.Error(0)
}

// fakeStreamer plays back a canned reply split into word-sized deltas.
type fakeStreamer struct {
	reply string
	err   error
}

func (f *fakeStreamer) Stream(_ context.Context, _ []chat.Message) (<-chan string, <-chan error, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	deltas := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(deltas)
		defer close(errs)
		for i := 0; i < len(f.reply); i += 8 {
			end := i + 8
			if end > len(f.reply) {
				end = len(f.reply)
			}
			deltas <- f.reply[i:end]
		}
	}()
	return deltas, errs, nil
}

func newTestServer(db Store, store ObjectStore, q TaskPublisher, streamer ChatStreamer) *Server {
	return NewServer(db, store, q, streamer, nil)
}

func TestCreateSession(t *testing.T) {
	mockDB := new(MockStore)
	mockDB.On("CreateSession", mock.Anything, mock.MatchedBy(func(s *model.Session) bool {
		return s.ID != "" && s.Title == "Promo video brief"
	})).Return(nil)

	srv := newTestServer(mockDB, nil, nil, nil)

	body := bytes.NewBufferString(`{"title":"Promo video brief"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", body)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var created model.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Promo video brief", created.Title)

	mockDB.AssertExpectations(t)
}

func TestCreateSession_DefaultTitle(t *testing.T) {
	mockDB := new(MockStore)
	mockDB.On("CreateSession", mock.Anything, mock.MatchedBy(func(s *model.Session) bool {
		return s.Title == "Untitled brief"
	})).Return(nil)

	srv := newTestServer(mockDB, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	mockDB.AssertExpectations(t)
}

func TestListMessages(t *testing.T) {
	mockDB := new(MockStore)
	mockDB.On("ListMessages", mock.Anything, "sess-1").Return([]*model.Message{
		{ID: "m1", SessionID: "sess-1", Role: model.RoleUser, Text: "hello"},
		{ID: "m2", SessionID: "sess-1", Role: model.RoleAssistant, Text: "hi, what are we making?"},
	}, nil)

	srv := newTestServer(mockDB, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/sess-1/messages", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var messages []*model.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &messages))
	assert.Len(t, messages, 2)
	assert.Equal(t, model.RoleAssistant, messages[1].Role)
}

func encodeFloat32LE(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
	return out
}

func TestUploadAudio_RawFloat32Downsampled(t *testing.T) {
	mockDB := new(MockStore)
	mockStore := new(MockObjects)
	mockQueue := new(MockTasks)

	samples := make([]float32, 480)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / 48000))
	}

	mockDB.On("GetSessionByID", mock.Anything, "sess-1").Return(&model.Session{ID: "sess-1"}, nil)
	mockStore.On("GenerateKey", mock.Anything, ".pcm").Return("audio/2026/08/31/task.pcm")
	mockStore.On("UploadFile", mock.Anything, "audio/2026/08/31/task.pcm", "audio/pcm").
		Return("https://storage.example.com/kijko-audio/audio/2026/08/31/task.pcm", nil)
	mockDB.On("CreateTask", mock.Anything, mock.MatchedBy(func(task *model.Task) bool {
		return task.SessionID == "sess-1" && task.Status == model.TaskStatusQueued
	})).Return(nil)
	mockQueue.On("PublishTask", mock.MatchedBy(func(task *queue.TranscriptionTask) bool {
		return task.SessionID == "sess-1" && task.MimeType == "audio/pcm"
	})).Return(nil)

	srv := newTestServer(mockDB, mockStore, mockQueue, nil)

	req := httptest.NewRequest(http.MethodPost,
		"/api/sessions/sess-1/audio?rate=48000&channels=1",
		bytes.NewReader(encodeFloat32LE(samples)))
	req.Header.Set("Content-Type", "audio/float32")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)

	// 480 samples at 48 kHz become 160 samples of 16-bit PCM
	assert.Len(t, mockStore.uploaded, 320)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["task_id"])
	assert.Equal(t, "queued", resp["status"])

	mockDB.AssertExpectations(t)
	mockStore.AssertExpectations(t)
	mockQueue.AssertExpectations(t)
}

func TestUploadAudio_SessionNotFound(t *testing.T) {
	mockDB := new(MockStore)
	mockDB.On("GetSessionByID", mock.Anything, "ghost").Return(nil, assert.AnError)

	srv := newTestServer(mockDB, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/ghost/audio", bytes.NewReader([]byte{1}))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetTranscript(t *testing.T) {
	mockDB := new(MockStore)
	mockDB.On("GetTranscriptByTaskID", mock.Anything, "task-1").Return(&model.Transcript{
		TaskID: "task-1",
		Text:   "a sixty second product teaser",
	}, nil)

	srv := newTestServer(mockDB, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/transcripts/task-1", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "a sixty second product teaser")
}

func TestGetTranscript_PendingTask(t *testing.T) {
	mockDB := new(MockStore)
	mockDB.On("GetTranscriptByTaskID", mock.Anything, "task-2").Return(nil, assert.AnError)
	mockDB.On("GetTaskByID", mock.Anything, "task-2").Return(&model.Task{
		ID:     "task-2",
		Status: model.TaskStatusInProgress,
	}, nil)

	srv := newTestServer(mockDB, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/transcripts/task-2", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "in_progress")
}

func TestExport_Markdown(t *testing.T) {
	mockDB := new(MockStore)
	mockDB.On("GetSessionByID", mock.Anything, "sess-1").Return(&model.Session{
		ID:    "sess-1",
		Title: "Launch teaser",
	}, nil)
	mockDB.On("ListMessages", mock.Anything, "sess-1").Return([]*model.Message{
		{Role: model.RoleAssistant, Text: "What is the purpose of this video?"},
		{Role: model.RoleUser, Text: "Announce our product launch"},
	}, nil)

	srv := newTestServer(mockDB, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/sess-1/export?format=markdown", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")
	assert.Contains(t, rec.Body.String(), "Launch teaser")
	assert.Contains(t, rec.Body.String(), "Announce our product launch")
}

func TestExport_UnknownFormat(t *testing.T) {
	mockDB := new(MockStore)
	mockDB.On("GetSessionByID", mock.Anything, "sess-1").Return(&model.Session{ID: "sess-1"}, nil)
	mockDB.On("ListMessages", mock.Anything, "sess-1").Return([]*model.Message{}, nil)

	srv := newTestServer(mockDB, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/sess-1/export?format=docx", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBuildPresentation_MultipleChoice(t *testing.T) {
	text := "Which style do you prefer?\n1. Formal\n2. Casual\n3. Playful"
	p := buildPresentation(text)

	assert.Equal(t, string(classify.KindMultipleChoice), p.Kind)
	assert.Len(t, p.Options, 3)
	assert.Equal(t, string(classify.MultiSelect), p.SelectionMode)
	assert.Equal(t, text, p.Text)
	assert.NotContains(t, p.SpeechText, "1.")
}

func TestBuildPresentation_PlainQuestionGetsQuickReplies(t *testing.T) {
	p := buildPresentation("What's the main purpose of this video?")

	assert.Equal(t, string(classify.KindPlainText), p.Kind)
	assert.GreaterOrEqual(t, len(p.Options), 2)
	assert.Equal(t, string(classify.SingleSelect), p.SelectionMode)
}

func TestBuildPresentation_StatementHasNoOptions(t *testing.T) {
	p := buildPresentation("Great, I have everything I need for the brief.")

	assert.Equal(t, string(classify.KindPlainText), p.Kind)
	assert.Empty(t, p.Options)
	assert.Empty(t, p.SelectionMode)
}

func TestComposeUserText(t *testing.T) {
	tests := []struct {
		name  string
		frame clientFrame
		want  string
	}{
		{
			name:  "plain text",
			frame: clientFrame{Type: "text", Text: "  a short promo  "},
			want:  "a short promo",
		},
		{
			name: "selection",
			frame: clientFrame{Type: "selection", Selections: []selectedOption{
				{Label: "A", Text: "Formal"},
				{Label: "C", Text: "Playful"},
			}},
			want: "Formal, Playful",
		},
		{
			name: "selection with elaboration",
			frame: clientFrame{
				Type:        "selection",
				Selections:  []selectedOption{{Label: "B", Text: "Casual"}},
				Elaboration: "but keep it professional",
			},
			want: "Casual. but keep it professional",
		},
		{
			name:  "empty",
			frame: clientFrame{Type: "text", Text: "   "},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, composeUserText(&tt.frame))
		})
	}
}

func TestChatSocket_StreamAndComplete(t *testing.T) {
	reply := "Which tone should the video have?\n1. Formal\n2. Casual"

	mockDB := new(MockStore)
	mockDB.On("GetSessionByID", mock.Anything, "sess-ws").Return(&model.Session{ID: "sess-ws"}, nil)
	mockDB.On("AppendMessage", mock.Anything, mock.Anything).Return(nil)
	mockDB.On("ListMessages", mock.Anything, "sess-ws").Return([]*model.Message{
		{Role: model.RoleUser, Text: "I need a product video"},
	}, nil)

	srv := newTestServer(mockDB, nil, nil, &fakeStreamer{reply: reply})

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat?session=sess-ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(&clientFrame{Type: "text", Text: "I need a product video"}))

	var assembled strings.Builder
	deadline := time.Now().Add(5 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))

		var frame serverFrame
		require.NoError(t, conn.ReadJSON(&frame))

		if frame.Type == "delta" {
			assembled.WriteString(frame.Text)
			continue
		}

		require.Equal(t, "complete", frame.Type)
		require.NotNil(t, frame.Message)
		assert.Equal(t, reply, assembled.String())
		assert.Equal(t, string(classify.KindMultipleChoice), frame.Message.Kind)
		assert.Len(t, frame.Message.Options, 2)
		assert.Equal(t, "1", frame.Message.Options[0].Label)
		break
	}
}

func TestChatSocket_ErrorFrameOnChatFailure(t *testing.T) {
	mockDB := new(MockStore)
	mockDB.On("GetSessionByID", mock.Anything, "sess-err").Return(&model.Session{ID: "sess-err"}, nil)
	mockDB.On("AppendMessage", mock.Anything, mock.Anything).Return(nil)
	mockDB.On("ListMessages", mock.Anything, "sess-err").Return([]*model.Message{
		{Role: model.RoleUser, Text: "hello"},
	}, nil)

	srv := newTestServer(mockDB, nil, nil, &fakeStreamer{err: assert.AnError})

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/chat?session=sess-err"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(&clientFrame{Type: "text", Text: "hello"}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var frame serverFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "error", frame.Type)
	assert.Equal(t, chatErrorText, frame.Error)
}

func TestHandleTranscriptionResult_NoOpenSocket(t *testing.T) {
	srv := newTestServer(new(MockStore), nil, nil, nil)

	body, err := json.Marshal(queue.TranscriptionResult{
		TaskID:    "task-1",
		SessionID: "nobody-home",
		Text:      "hello",
		Success:   true,
	})
	require.NoError(t, err)

	assert.NoError(t, srv.HandleTranscriptionResult(body))
}
