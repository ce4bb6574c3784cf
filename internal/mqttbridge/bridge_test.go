package mqttbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/robotctl/internal/ecovacs"
	"github.com/nerrad567/robotctl/internal/infrastructure/mqtt"
	"github.com/nerrad567/robotctl/internal/robot"
)

// fakeMQTT captures subscriptions and publications.
type fakeMQTT struct {
	mu        sync.Mutex
	handlers  map[string]mqtt.MessageHandler
	published map[string][]byte
	unsubbed  []string
	subErr    error
	pubErr    error
}

func newFakeMQTT() *fakeMQTT {
	return &fakeMQTT{
		handlers:  make(map[string]mqtt.MessageHandler),
		published: make(map[string][]byte),
	}
}

func (f *fakeMQTT) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subErr != nil {
		return f.subErr
	}
	f.handlers[topic] = handler
	return nil
}

func (f *fakeMQTT) Unsubscribe(topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, topic)
	f.unsubbed = append(f.unsubbed, topic)
	return nil
}

func (f *fakeMQTT) PublishJSON(topic string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pubErr != nil {
		return f.pubErr
	}
	f.published[topic] = data
	return nil
}

// deliver simulates a broker delivery on the request wildcard subscription.
func (f *fakeMQTT) deliver(t *testing.T, topic, payload string) {
	t.Helper()
	f.mu.Lock()
	h := f.handlers["robotctl/request/+"]
	f.mu.Unlock()
	if h == nil {
		t.Fatal("no handler subscribed for robotctl/request/+")
	}
	if err := h(topic, []byte(payload)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
}

// response waits for the response to requestID.
func (f *fakeMQTT) response(t *testing.T, requestID string) ResponseMessage {
	t.Helper()
	topic := "robotctl/response/" + requestID
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		data, ok := f.published[topic]
		f.mu.Unlock()
		if ok {
			var resp ResponseMessage
			if err := json.Unmarshal(data, &resp); err != nil {
				t.Fatalf("unmarshal response: %v", err)
			}
			return resp
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no response published on %s", topic)
	return ResponseMessage{}
}

// stubCaller answers every upstream call with env.
type stubCaller struct {
	mu     sync.Mutex
	calls  []ecovacs.Params
	env    ecovacs.Envelope
	block  chan struct{}
	called chan struct{}
}

func (s *stubCaller) Call(ctx context.Context, _ string, params ecovacs.Params, _ ecovacs.Method) ecovacs.Envelope {
	s.mu.Lock()
	s.calls = append(s.calls, params)
	s.mu.Unlock()
	if s.called != nil {
		s.called <- struct{}{}
	}
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ecovacs.Failure(ctx.Err())
		}
	}
	return s.env
}

func startBridge(t *testing.T, caller robot.Caller) (*Bridge, *fakeMQTT) {
	t.Helper()
	client := newFakeMQTT()
	b, err := New(client, robot.NewService(caller), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := b.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(b.Stop)
	return b, client
}

// =============================================================================
// Lifecycle
// =============================================================================

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(nil, robot.NewService(&stubCaller{}), nil); err == nil {
		t.Error("New(nil client) error = nil")
	}
	if _, err := New(newFakeMQTT(), nil, nil); err == nil {
		t.Error("New(nil tools) error = nil")
	}
}

func TestStart_Twice(t *testing.T) {
	b, _ := startBridge(t, &stubCaller{})
	if err := b.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
	}
}

func TestStart_SubscribeError(t *testing.T) {
	client := newFakeMQTT()
	client.subErr = errors.New("not connected")
	b, err := New(client, robot.NewService(&stubCaller{}), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := b.Start(); err == nil || !strings.Contains(err.Error(), "not connected") {
		t.Errorf("Start() error = %v, want wrapped subscribe error", err)
	}
}

func TestStop_UnsubscribesAndIgnoresLateMessages(t *testing.T) {
	client := newFakeMQTT()
	b, err := New(client, robot.NewService(&stubCaller{}), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := b.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	handler := client.handlers["robotctl/request/+"]

	b.Stop()
	b.Stop()

	if len(client.unsubbed) != 1 || client.unsubbed[0] != "robotctl/request/+" {
		t.Errorf("unsubscribed = %v", client.unsubbed)
	}

	if err := handler("robotctl/request/late", []byte(`{"tool":"get_device_list"}`)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if len(client.published) != 0 {
		t.Errorf("published after stop: %v", client.published)
	}
}

func TestStop_CancelsInFlight(t *testing.T) {
	caller := &stubCaller{block: make(chan struct{}), called: make(chan struct{}, 1)}
	b, client := startBridge(t, caller)

	client.deliver(t, "robotctl/request/slow", `{"tool":"get_device_list"}`)
	<-caller.called

	b.Stop()

	resp := client.response(t, "slow")
	if !resp.Success || resp.Envelope.Code != ecovacs.FailureCode {
		t.Errorf("response = %+v, want failure envelope after cancel", resp)
	}
}

// =============================================================================
// Requests
// =============================================================================

func TestRequest_Success(t *testing.T) {
	caller := &stubCaller{env: ecovacs.Envelope{Msg: "OK", Code: 0, Data: ecovacs.Items{json.RawMessage(`{"nick":"Rosie"}`)}}}
	_, client := startBridge(t, caller)

	client.deliver(t, "robotctl/request/req-1", `{"tool":"set_cleaning","arguments":{"nickname":"Rosie","act":"p"}}`)

	resp := client.response(t, "req-1")
	if !resp.Success || resp.Error != nil {
		t.Fatalf("response = %+v, want success", resp)
	}
	if resp.RequestID != "req-1" || resp.Tool != robot.ToolSetCleaning {
		t.Errorf("request_id/tool = %q/%q", resp.RequestID, resp.Tool)
	}
	if resp.Envelope.Msg != "OK" || len(resp.Envelope.Data) != 1 {
		t.Errorf("envelope = %+v", resp.Envelope)
	}
	if resp.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}

	if len(caller.calls) != 1 {
		t.Fatalf("upstream calls = %d, want 1", len(caller.calls))
	}
	p := caller.calls[0]
	if p["nickName"] != "Rosie" || p["cmd"] != "Clean" || p["act"] != "p" {
		t.Errorf("params = %v", p)
	}
}

func TestRequest_UpstreamFailureIsSuccess(t *testing.T) {
	caller := &stubCaller{env: ecovacs.Failure(errors.New("dial tcp: connection refused"))}
	_, client := startBridge(t, caller)

	client.deliver(t, "robotctl/request/req-2", `{"tool":"get_device_list"}`)

	resp := client.response(t, "req-2")
	if !resp.Success || resp.Envelope == nil || resp.Envelope.Code != ecovacs.FailureCode {
		t.Errorf("response = %+v", resp)
	}
}

func TestRequest_Errors(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantCode string
		wantTool string
	}{
		{"malformed json", `{"tool":`, ErrCodeInvalidRequest, ""},
		{"missing tool", `{"arguments":{}}`, ErrCodeInvalidRequest, ""},
		{"unknown tool", `{"tool":"self_destruct"}`, ErrCodeUnknownTool, "self_destruct"},
		{"bad action", `{"tool":"set_charging","arguments":{"nickname":"Rosie","act":"fly"}}`, ErrCodeInvalidArgument, "set_charging"},
		{"missing nickname", `{"tool":"get_work_state"}`, ErrCodeInvalidArgument, "get_work_state"},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := &stubCaller{}
			_, client := startBridge(t, caller)
			id := fmt.Sprintf("bad-%d", i)

			client.deliver(t, "robotctl/request/"+id, tt.payload)

			resp := client.response(t, id)
			if resp.Success || resp.Envelope != nil {
				t.Fatalf("response = %+v, want error", resp)
			}
			if resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %q", resp.Error, tt.wantCode)
			}
			if resp.Tool != tt.wantTool {
				t.Errorf("tool = %q, want %q", resp.Tool, tt.wantTool)
			}
			if len(caller.calls) != 0 {
				t.Errorf("upstream called %d times for a rejected request", len(caller.calls))
			}
		})
	}
}

func TestRequest_UnexpectedTopicIgnored(t *testing.T) {
	_, client := startBridge(t, &stubCaller{})

	client.deliver(t, "robotctl/request/a/b", `{"tool":"get_device_list"}`)
	time.Sleep(20 * time.Millisecond)

	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.published) != 0 {
		t.Errorf("published = %v, want nothing", client.published)
	}
}

func TestParseRequest(t *testing.T) {
	req, err := parseRequest([]byte(`{"tool":"set_cleaning","arguments":{"act":"h"}}`))
	if err != nil {
		t.Fatalf("parseRequest() error = %v", err)
	}
	if req.Tool != "set_cleaning" || req.Arguments["act"] != "h" {
		t.Errorf("req = %+v", req)
	}

	if _, err := parseRequest([]byte(`{}`)); !errors.Is(err, errMissingTool) {
		t.Errorf("empty request error = %v, want errMissingTool", err)
	}
}
