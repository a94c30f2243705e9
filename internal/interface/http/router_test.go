package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/0xTanzim/contentchat/internal/domain/chat"
	"github.com/0xTanzim/contentchat/internal/domain/engine"
	"github.com/0xTanzim/contentchat/internal/domain/history"
	"github.com/0xTanzim/contentchat/internal/domain/summarize"
	"github.com/0xTanzim/contentchat/internal/infra/config"
	"github.com/0xTanzim/contentchat/internal/infra/historyrepo"
	"github.com/0xTanzim/contentchat/internal/infra/librarystore"
	apperrors "github.com/0xTanzim/contentchat/pkg/errors"
)

func TestRouter_SummarizeSuccess(t *testing.T) {
	resp := summarize.Response{Summary: "short summary", UnitCalls: 1}
	svc := &stubSummarizer{
		summarizeFn: func(ctx context.Context, req summarize.Request) (summarize.Response, error) {
			require.Equal(t, "hello world", req.Text)
			return resp, nil
		},
	}

	recorder := performRequest(http.MethodPost, "/api/v1/summaries", `{"text":"hello world"}`, newRouterUnderTest(t, svc, nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	var got struct {
		Result summarize.Response `json:"result"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, resp, got.Result)
}

func TestRouter_SummarizeInvalidJSON(t *testing.T) {
	recorder := performRequest(http.MethodPost, "/api/v1/summaries", `{"text":123}`, newRouterUnderTest(t, &stubSummarizer{}, nil))
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, "invalid_request", errBody["error"]["code"])
	require.NotEmpty(t, errBody["error"]["message"])
}

func TestRouter_SummarizeDomainErrorStatuses(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		wantStatus int
	}{
		{name: "invalid input", code: "invalid_input", wantStatus: http.StatusBadRequest},
		{name: "engine unavailable", code: "engine_unavailable", wantStatus: http.StatusServiceUnavailable},
		{name: "engine downloading", code: "engine_downloading", wantStatus: http.StatusServiceUnavailable},
		{name: "rate limited", code: "rate_limited", wantStatus: http.StatusTooManyRequests},
		{name: "engine error", code: "engine_error", wantStatus: http.StatusBadGateway},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubSummarizer{
				summarizeFn: func(ctx context.Context, req summarize.Request) (summarize.Response, error) {
					return summarize.Response{}, apperrors.Wrap(tt.code, "boom", nil)
				},
			}
			recorder := performRequest(http.MethodPost, "/api/v1/summaries", `{"text":"x"}`, newRouterUnderTest(t, svc, nil))
			require.Equal(t, tt.wantStatus, recorder.Code)

			errBody := decodeErrorBody(t, recorder.Body.Bytes())
			require.Equal(t, tt.code, errBody["error"]["code"])
		})
	}
}

func TestRouter_SummarizeStreamEmitsProgressThenSummary(t *testing.T) {
	svc := &stubSummarizer{
		progressFn: func(ctx context.Context, req summarize.Request, progress summarize.Progress) (summarize.Response, error) {
			progress(0, 2, "summarize")
			progress(1, 2, "summarize")
			progress(2, 2, "summarize")
			return summarize.Response{Summary: "done", UnitCalls: 3}, nil
		},
	}

	recorder := performRequest(http.MethodPost, "/api/v1/summaries/stream", `{"text":"stream me"}`, newRouterUnderTest(t, svc, nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "text/event-stream", recorder.Header().Get("Content-Type"))

	frames := decodeFrames(t, recorder.Body.String())
	require.Len(t, frames, 4)
	for _, frame := range frames[:3] {
		require.Equal(t, "progress", frame["type"])
		require.Equal(t, "summarize", frame["stage"])
	}
	require.Equal(t, "summary", frames[3]["type"])
}

func TestRouter_SummarizeStreamErrorEvent(t *testing.T) {
	svc := &stubSummarizer{
		progressFn: func(ctx context.Context, req summarize.Request, progress summarize.Progress) (summarize.Response, error) {
			return summarize.Response{}, apperrors.Wrap("engine_error", "engine call failed", nil)
		},
	}

	recorder := performRequest(http.MethodPost, "/api/v1/summaries/stream", `{"text":"x"}`, newRouterUnderTest(t, svc, nil))

	frames := decodeFrames(t, recorder.Body.String())
	require.Len(t, frames, 1)
	require.Equal(t, "error", frames[0]["type"])
	require.Equal(t, "engine_error", frames[0]["code"])
}

func TestRouter_ChatStreamsDeltasThenDone(t *testing.T) {
	eng := &stubEngine{emissions: []string{"Hel", "Hello", "Hello!"}}

	recorder := performRequest(http.MethodPost, "/api/v1/chat", `{"input":"hi"}`, newRouterUnderTest(t, &stubSummarizer{}, eng))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "text/event-stream", recorder.Header().Get("Content-Type"))

	frames := decodeFrames(t, recorder.Body.String())
	require.GreaterOrEqual(t, len(frames), 2)

	var assembled strings.Builder
	for _, frame := range frames[:len(frames)-1] {
		require.Equal(t, "delta", frame["type"])
		assembled.WriteString(frame["content"].(string))
	}
	final := frames[len(frames)-1]
	require.Equal(t, "done", final["type"])
	require.Equal(t, "Hello!", final["output"])
	require.Equal(t, false, final["stopped"])
	require.Equal(t, "Hello!", assembled.String())
}

func TestRouter_ChatStopWhileIdle(t *testing.T) {
	recorder := performRequest(http.MethodPost, "/api/v1/chat/stop", `{}`, newRouterUnderTest(t, &stubSummarizer{}, &stubEngine{}))
	require.Equal(t, http.StatusOK, recorder.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	require.Equal(t, "idle", body["state"])
}

func TestRouter_EngineCapability(t *testing.T) {
	eng := &stubEngine{capability: engine.Capability{Kind: engine.KindChat, Availability: engine.Available, InputQuota: 4096}}

	recorder := performRequest(http.MethodGet, "/api/v1/engine/capability?kind=chat", "", newRouterUnderTest(t, &stubSummarizer{}, eng))
	require.Equal(t, http.StatusOK, recorder.Code)

	var got engine.Capability
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, eng.capability, got)
}

func TestRouter_EngineCapabilityUnknownKind(t *testing.T) {
	recorder := performRequest(http.MethodGet, "/api/v1/engine/capability?kind=poetry", "", newRouterUnderTest(t, &stubSummarizer{}, &stubEngine{}))
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRouter_HistoryRoundTrip(t *testing.T) {
	server, historySvc := newRouterWithHistory(t)

	record, err := historySvc.SaveSummary(context.Background(), "notes", "full source text", "the summary")
	require.NoError(t, err)

	recorder := performRequest(http.MethodGet, "/api/v1/history?kind=summary", "", server)
	require.Equal(t, http.StatusOK, recorder.Code)
	var listBody struct {
		Records []history.Record `json:"records"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &listBody))
	require.Len(t, listBody.Records, 1)
	require.Equal(t, record.ID, listBody.Records[0].ID)

	recorder = performRequest(http.MethodGet, "/api/v1/history/"+record.ID.String()+"/source", "", server)
	require.Equal(t, http.StatusOK, recorder.Code)
	var sourceBody map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &sourceBody))
	require.Equal(t, "full source text", sourceBody["source"])

	recorder = performRequest(http.MethodDelete, "/api/v1/history/"+record.ID.String(), "", server)
	require.Equal(t, http.StatusNoContent, recorder.Code)

	recorder = performRequest(http.MethodGet, "/api/v1/history/"+record.ID.String(), "", server)
	require.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestRouter_HistoryInvalidID(t *testing.T) {
	server, _ := newRouterWithHistory(t)

	recorder := performRequest(http.MethodGet, "/api/v1/history/not-a-uuid", "", server)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func performRequest(method, path, body string, server *http.Server) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func newRouterUnderTest(t *testing.T, svc summarize.Service, eng engine.Engine) *http.Server {
	t.Helper()
	if eng == nil {
		eng = &stubEngine{}
	}
	logger := newTestLogger()
	ctrl := chat.NewController(chat.Config{MaxInputChars: 1000, MaxHistoryTurns: 10}, eng, logger)
	historySvc := history.NewService(history.Config{MaxListLimit: 50}, historyrepo.NewMemoryRepository(), librarystore.NewMemoryStore(), logger)
	handler := NewHandler(svc, ctrl, historySvc, eng, logger)
	return NewRouter(testConfig(), handler)
}

func newRouterWithHistory(t *testing.T) (*http.Server, *history.Service) {
	t.Helper()
	eng := &stubEngine{}
	logger := newTestLogger()
	ctrl := chat.NewController(chat.Config{MaxInputChars: 1000, MaxHistoryTurns: 10}, eng, logger)
	historySvc := history.NewService(history.Config{MaxListLimit: 50}, historyrepo.NewMemoryRepository(), librarystore.NewMemoryStore(), logger)
	handler := NewHandler(&stubSummarizer{}, ctrl, historySvc, eng, logger)
	return NewRouter(testConfig(), handler), historySvc
}

func testConfig() *config.Config {
	return &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
	}
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

func decodeFrames(t *testing.T, payload string) []map[string]any {
	t.Helper()
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil
	}
	var out []map[string]any
	for _, frame := range strings.Split(payload, "\n\n") {
		require.True(t, strings.HasPrefix(frame, "data: "))
		var decoded map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frame, "data: ")), &decoded))
		out = append(out, decoded)
	}
	return out
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

type stubSummarizer struct {
	summarizeFn func(ctx context.Context, req summarize.Request) (summarize.Response, error)
	progressFn  func(ctx context.Context, req summarize.Request, progress summarize.Progress) (summarize.Response, error)
}

func (s *stubSummarizer) Summarize(ctx context.Context, req summarize.Request) (summarize.Response, error) {
	if s.summarizeFn != nil {
		return s.summarizeFn(ctx, req)
	}
	return summarize.Response{}, nil
}

func (s *stubSummarizer) SummarizeWithProgress(ctx context.Context, req summarize.Request, progress summarize.Progress) (summarize.Response, error) {
	if s.progressFn != nil {
		return s.progressFn(ctx, req, progress)
	}
	return summarize.Response{}, nil
}

type stubEngine struct {
	capability engine.Capability
	emissions  []string
}

func (e *stubEngine) CheckCapability(context.Context, engine.Kind) (engine.Capability, error) {
	return e.capability, nil
}

func (e *stubEngine) CreateSession(context.Context, engine.Kind, engine.Options) (engine.Session, error) {
	return &stubSession{emissions: e.emissions}, nil
}

type stubSession struct {
	emissions []string
}

func (s *stubSession) Generate(context.Context, string) (string, error) {
	return strings.Join(s.emissions, ""), nil
}

func (s *stubSession) GenerateStream(context.Context, string) (engine.TokenSource, error) {
	return &stubSource{emissions: s.emissions}, nil
}

func (s *stubSession) InputQuota() int { return 0 }

func (s *stubSession) Destroy() {}

type stubSource struct {
	emissions []string
	next      int
}

func (s *stubSource) Read(context.Context) (string, bool, error) {
	if s.next >= len(s.emissions) {
		return "", true, nil
	}
	value := s.emissions[s.next]
	s.next++
	return value, false, nil
}

func (s *stubSource) Cancel() {}
