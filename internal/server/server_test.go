package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/loykin/webstep/internal/common"
	"github.com/loykin/webstep/internal/httpc"
	"github.com/loykin/webstep/internal/metrics"
	"github.com/loykin/webstep/internal/step"
	"github.com/loykin/webstep/pkg/endpoint"
	"github.com/loykin/webstep/pkg/message"
	"github.com/prometheus/client_golang/prometheus"
)

func quietLogger() *common.Logger {
	return &common.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// fakeStep echoes payloads back or fails with err.
type fakeStep struct {
	state step.State
	err   error
	seen  []message.Message
}

func (f *fakeStep) Name() string             { return "fake" }
func (f *fakeStep) State() step.State        { return f.state }
func (f *fakeStep) EntitiesProcessed() int64 { return int64(len(f.seen)) }
func (f *fakeStep) Handle(_ context.Context, msg message.Message, sink message.Sink) error {
	f.seen = append(f.seen, msg)
	if f.err != nil {
		return f.err
	}
	return sink.Send(message.NewData(map[string]string{"control": boolString(msg.IsControl())}, msg.Payload...))
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, intakeResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var resp intakeResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func TestServer_Messages(t *testing.T) {
	fs := &fakeStep{state: step.StateReady}
	h := New(fs, Options{Logger: quietLogger()}).Handler()

	rec, resp := do(t, h, http.MethodPost, "/messages", `{"headers":{"k":"v"},"payload":["a","b"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	if len(resp.Messages) != 1 || len(resp.Messages[0].Payload) != 2 || resp.Messages[0].Headers["control"] != "false" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(fs.seen) != 1 || fs.seen[0].Headers["k"] != "v" {
		t.Fatalf("unexpected inbound %+v", fs.seen)
	}
}

func TestServer_BadJSON(t *testing.T) {
	h := New(&fakeStep{state: step.StateReady}, Options{Logger: quietLogger()}).Handler()
	if rec, _ := do(t, h, http.MethodPost, "/messages", `{`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestServer_ControlWithoutBody(t *testing.T) {
	fs := &fakeStep{state: step.StateReady}
	h := New(fs, Options{Logger: quietLogger()}).Handler()
	rec, resp := do(t, h, http.MethodPost, "/control", "")
	if rec.Code != http.StatusOK || len(fs.seen) != 1 || !fs.seen[0].IsControl() {
		t.Fatalf("unexpected result %d %+v", rec.Code, fs.seen)
	}
	if len(resp.Messages) != 1 || resp.Messages[0].Headers["control"] != "true" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestServer_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&httpc.RemoteError{StatusCode: 500, Reason: "Internal Server Error", Body: "boom"}, http.StatusBadGateway},
		{step.ErrInvalidState, http.StatusConflict},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		h := New(&fakeStep{state: step.StateReady, err: tt.err}, Options{Logger: quietLogger()}).Handler()
		rec, resp := do(t, h, http.MethodPost, "/messages", `{"payload":["x"]}`)
		if rec.Code != tt.want || resp.Error == "" || resp.Messages == nil {
			t.Fatalf("%v: expected %d with error, got %d %s", tt.err, tt.want, rec.Code, rec.Body.String())
		}
	}
}

func TestServer_Health(t *testing.T) {
	fs := &fakeStep{state: step.StateIdle}
	h := New(fs, Options{Logger: quietLogger()}).Handler()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), `"state":"idle"`) {
		t.Fatalf("unexpected health %d %s", rec.Code, rec.Body.String())
	}
	fs.state = step.StateReady
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 when ready, got %d", rec.Code)
	}
}

func TestServer_EndToEndWithMetrics(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("echo:" + string(b)))
	}))
	defer upstream.Close()

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	s := step.New("e2e", step.Config{HTTPMethod: "POST"}, &endpoint.Endpoint{URL: upstream.URL},
		step.WithMetrics(m), step.WithLogger(quietLogger()))
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = s.Stop() }()

	h := New(s, Options{Gatherer: reg, Logger: quietLogger()}).Handler()
	rec, resp := do(t, h, http.MethodPost, "/messages", `{"payload":["hi"]}`)
	if rec.Code != http.StatusOK || len(resp.Messages) != 1 || resp.Messages[0].Payload[0] != "echo:hi" {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	mrec := httptest.NewRecorder()
	h.ServeHTTP(mrec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := mrec.Body.String()
	if !strings.Contains(body, `webstep_entities_processed_total{step="e2e"} 1`) || !strings.Contains(body, `outcome="success"`) {
		t.Fatalf("metrics missing expected series:\n%s", body)
	}
}
