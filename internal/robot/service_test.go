package robot

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/robotctl/internal/ecovacs"
	"github.com/nerrad567/robotctl/internal/infrastructure/config"
)

// =============================================================================
// Fakes
// =============================================================================

// call is one invocation seen by fakeCaller.
type call struct {
	endpoint string
	params   ecovacs.Params
	method   ecovacs.Method
}

// fakeCaller records calls and returns a fixed envelope.
type fakeCaller struct {
	mu    sync.Mutex
	calls []call
	reply ecovacs.Envelope
}

func (f *fakeCaller) Call(_ context.Context, endpoint string, params ecovacs.Params, method ecovacs.Method) ecovacs.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{endpoint: endpoint, params: params, method: method})
	return f.reply
}

func (f *fakeCaller) only(t *testing.T) call {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) != 1 {
		t.Fatalf("upstream calls = %d, want 1", len(f.calls))
	}
	return f.calls[0]
}

// recordingObserver captures observed records.
type recordingObserver struct {
	mu      sync.Mutex
	records []CallRecord
}

func (o *recordingObserver) ObserveCall(_ context.Context, rec CallRecord) {
	o.mu.Lock()
	o.records = append(o.records, rec)
	o.mu.Unlock()
}

func okEnvelope(items ...string) ecovacs.Envelope {
	data := ecovacs.Items{}
	for _, it := range items {
		data = append(data, json.RawMessage(it))
	}
	return ecovacs.Envelope{Msg: "OK", Code: 0, Data: data}
}

// =============================================================================
// Service Methods
// =============================================================================

func TestService_ToolRequests(t *testing.T) {
	tests := []struct {
		name         string
		run          func(s *Service) ecovacs.Envelope
		wantEndpoint string
		wantMethod   ecovacs.Method
		wantParams   ecovacs.Params
	}{
		{
			name:         "set cleaning",
			run:          func(s *Service) ecovacs.Envelope { return s.SetCleaning(context.Background(), "Rosie", CleanPause) },
			wantEndpoint: ecovacs.EndpointRobotControl,
			wantMethod:   ecovacs.MethodPost,
			wantParams:   ecovacs.Params{"nickName": "Rosie", "cmd": "Clean", "act": "p"},
		},
		{
			name:         "set charging",
			run:          func(s *Service) ecovacs.Envelope { return s.SetCharging(context.Background(), "Rosie", ChargeStopGo) },
			wantEndpoint: ecovacs.EndpointRobotControl,
			wantMethod:   ecovacs.MethodPost,
			wantParams:   ecovacs.Params{"nickName": "Rosie", "cmd": "Charge", "act": "stopGo"},
		},
		{
			name:         "get work state",
			run:          func(s *Service) ecovacs.Envelope { return s.GetWorkState(context.Background(), "Rosie") },
			wantEndpoint: ecovacs.EndpointRobotControl,
			wantMethod:   ecovacs.MethodPost,
			wantParams:   ecovacs.Params{"nickName": "Rosie", "cmd": "GetWorkState", "act": ""},
		},
		{
			name:         "get device list",
			run:          func(s *Service) ecovacs.Envelope { return s.GetDeviceList(context.Background()) },
			wantEndpoint: ecovacs.EndpointDeviceList,
			wantMethod:   ecovacs.MethodGet,
			wantParams:   ecovacs.Params{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeCaller{reply: okEnvelope()}
			s := NewService(fc)

			env := tt.run(s)
			if !env.OK() {
				t.Errorf("envelope = %+v, want OK", env)
			}

			got := fc.only(t)
			if got.endpoint != tt.wantEndpoint {
				t.Errorf("endpoint = %q, want %q", got.endpoint, tt.wantEndpoint)
			}
			if got.method != tt.wantMethod {
				t.Errorf("method = %q, want %q", got.method, tt.wantMethod)
			}
			if len(got.params) != len(tt.wantParams) {
				t.Fatalf("params = %v, want %v", got.params, tt.wantParams)
			}
			for k, v := range tt.wantParams {
				if got.params[k] != v {
					t.Errorf("params[%q] = %v, want %v", k, got.params[k], v)
				}
			}
		})
	}
}

func TestService_RelaysEnvelopeUnchanged(t *testing.T) {
	reply := ecovacs.Envelope{Msg: "device offline", Code: 3002, Data: ecovacs.Items{json.RawMessage(`{"x":1}`)}}
	s := NewService(&fakeCaller{reply: reply})

	env := s.GetWorkState(context.Background(), "Rosie")
	if env.Msg != reply.Msg || env.Code != reply.Code {
		t.Errorf("envelope = %+v, want %+v", env, reply)
	}
	if len(env.Data) != 1 || string(env.Data[0]) != `{"x":1}` {
		t.Errorf("Data = %s, want [{\"x\":1}]", env.Data)
	}
}

// =============================================================================
// Observer
// =============================================================================

func TestService_NotifiesObserver(t *testing.T) {
	fc := &fakeCaller{reply: okEnvelope(`{"nick":"Rosie"}`, `{"nick":"Dusty"}`)}
	s := NewService(fc)
	obs := &recordingObserver{}
	s.SetObserver(obs)

	before := time.Now().UTC()
	s.GetDeviceList(context.Background())
	s.SetCleaning(context.Background(), "Rosie", CleanStart)

	if len(obs.records) != 2 {
		t.Fatalf("records = %d, want 2", len(obs.records))
	}

	list := obs.records[0]
	if list.Tool != ToolGetDeviceList {
		t.Errorf("Tool = %q, want %q", list.Tool, ToolGetDeviceList)
	}
	if list.Method != ecovacs.MethodGet || list.Endpoint != ecovacs.EndpointDeviceList {
		t.Errorf("route = %s %s, want GET %s", list.Method, list.Endpoint, ecovacs.EndpointDeviceList)
	}
	if list.Items != 2 {
		t.Errorf("Items = %d, want 2", list.Items)
	}
	if list.ID == "" {
		t.Error("ID is empty")
	}
	if list.StartedAt.Before(before) {
		t.Errorf("StartedAt = %v, before test start %v", list.StartedAt, before)
	}

	clean := obs.records[1]
	if clean.Nickname != "Rosie" || clean.Action != "s" {
		t.Errorf("record = %+v, want nickname Rosie action s", clean)
	}
	if clean.ID == list.ID {
		t.Error("records share an ID")
	}
	if clean.Failed() {
		t.Error("Failed() = true for OK call")
	}
}

func TestService_ObserverSeesFailures(t *testing.T) {
	fc := &fakeCaller{reply: ecovacs.Failure(errors.New("connection refused"))}
	s := NewService(fc)
	obs := &recordingObserver{}
	s.SetObserver(obs)

	s.SetCharging(context.Background(), "Rosie", ChargeGoStart)

	if len(obs.records) != 1 {
		t.Fatalf("records = %d, want 1", len(obs.records))
	}
	if !obs.records[0].Failed() {
		t.Errorf("Failed() = false for code %d", obs.records[0].Code)
	}
}

func TestService_RemoveObserver(t *testing.T) {
	s := NewService(&fakeCaller{reply: okEnvelope()})
	obs := &recordingObserver{}
	s.SetObserver(obs)
	s.SetObserver(nil)

	s.GetDeviceList(context.Background())

	if len(obs.records) != 0 {
		t.Errorf("records = %d after removing observer, want 0", len(obs.records))
	}
}

// =============================================================================
// End-to-end with the upstream client
// =============================================================================

// upstreamRequest is what the fake Ecovacs API received.
type upstreamRequest struct {
	method string
	path   string
	query  string
	body   map[string]string
}

func fakeEcovacs(t *testing.T) (*httptest.Server, *upstreamRequest) {
	t.Helper()

	got := &upstreamRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.query = r.URL.RawQuery
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			got.body = map[string]string{}
			if err := json.Unmarshal(raw, &got.body); err != nil {
				t.Errorf("body is not a JSON object of strings: %v", err)
			}
		}
		io.WriteString(w, `{"msg":"OK","code":0,"data":[]}`) //nolint:errcheck // test server
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func newUpstreamService(t *testing.T, baseURL, apiKey string) *Service {
	t.Helper()
	client, err := ecovacs.New(config.UpstreamConfig{BaseURL: baseURL, APIKey: apiKey, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("ecovacs.New() error = %v", err)
	}
	return NewService(client)
}

func TestService_StartCleaningByNickname(t *testing.T) {
	srv, got := fakeEcovacs(t)
	s := newUpstreamService(t, srv.URL, "k123")

	env, err := s.Invoke(context.Background(), ToolSetCleaning, map[string]any{"nickname": "Rosie"})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if !env.OK() {
		t.Errorf("envelope = %+v, want OK", env)
	}

	if got.method != http.MethodPost || got.path != "/robot/ctl" {
		t.Errorf("request = %s %s, want POST /robot/ctl", got.method, got.path)
	}
	want := map[string]string{"nickName": "Rosie", "cmd": "Clean", "act": "s", "ak": "k123"}
	if len(got.body) != len(want) {
		t.Fatalf("body = %v, want %v", got.body, want)
	}
	for k, v := range want {
		if got.body[k] != v {
			t.Errorf("body[%q] = %q, want %q", k, got.body[k], v)
		}
	}
}

func TestService_ListDevicesUsesGet(t *testing.T) {
	srv, got := fakeEcovacs(t)
	s := newUpstreamService(t, srv.URL, "k123")

	if _, err := s.Invoke(context.Background(), ToolGetDeviceList, nil); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	if got.method != http.MethodGet || got.path != "/robot/deviceList" {
		t.Errorf("request = %s %s, want GET /robot/deviceList", got.method, got.path)
	}
	if got.query != "ak=k123" {
		t.Errorf("query = %q, want %q", got.query, "ak=k123")
	}
	if got.body != nil {
		t.Errorf("body = %v, want none", got.body)
	}
}

func TestService_NoCredentialStillCalls(t *testing.T) {
	srv, got := fakeEcovacs(t)
	s := newUpstreamService(t, srv.URL, "")

	if _, err := s.Invoke(context.Background(), ToolGetWorkState, map[string]any{"nickname": "Rosie"}); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	if _, ok := got.body["ak"]; ok {
		t.Errorf("body contains ak without a configured credential: %v", got.body)
	}
	if got.body["nickName"] != "Rosie" {
		t.Errorf("nickName = %q, want Rosie", got.body["nickName"])
	}
}
