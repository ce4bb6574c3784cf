package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/robotctl/internal/auth"
)

func testHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func mockClient(hub *Hub, channels ...string) *WSClient {
	subs := make(map[string]struct{}, len(channels))
	for _, ch := range channels {
		subs[ch] = struct{}{}
	}
	return &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: subs,
	}
}

// ─── WebSocket Hub Tests ───────────────────────────────────────────

func TestHub_BroadcastToSubscribed(t *testing.T) {
	hub := testHub(t)
	client := mockClient(hub, "call.completed")
	hub.Register(client)

	hub.Broadcast("call.completed", map[string]any{"tool": "set_cleaning"})

	select {
	case msg := <-client.send:
		var wsMsg WSMessage
		if err := json.Unmarshal(msg, &wsMsg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if wsMsg.Type != WSTypeEvent || wsMsg.EventType != "call.completed" {
			t.Errorf("message = %+v", wsMsg)
		}
	case <-time.After(time.Second):
		t.Error("timed out waiting for broadcast message")
	}
}

func TestHub_NoMessageForUnsubscribed(t *testing.T) {
	hub := testHub(t)
	client := mockClient(hub, "something.else")
	hub.Register(client)

	hub.Broadcast("call.completed", map[string]any{"tool": "set_cleaning"})

	select {
	case <-client.send:
		t.Error("unsubscribed client should not receive message")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_ClientCount(t *testing.T) {
	hub := testHub(t)

	if hub.ClientCount() != 0 {
		t.Errorf("initial client count = %d, want 0", hub.ClientCount())
	}

	client := mockClient(hub)
	hub.Register(client)
	if hub.ClientCount() != 1 {
		t.Errorf("after register count = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(client)
	hub.Unregister(client) // second call must not double-close
	if hub.ClientCount() != 0 {
		t.Errorf("after unregister count = %d, want 0", hub.ClientCount())
	}
}

func TestHub_SlowClientDoesNotBlock(t *testing.T) {
	hub := testHub(t)
	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, 1),
		subscriptions: map[string]struct{}{"call.completed": {}},
	}
	hub.Register(client)

	done := make(chan struct{})
	go func() {
		for range 5 {
			hub.Broadcast("call.completed", "x")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a full client buffer")
	}
}

func TestHub_RunClosesClients(t *testing.T) {
	hub := NewHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	client := mockClient(hub, "call.completed")
	hub.Register(client)
	cancel()
	<-done

	if _, ok := <-client.send; ok {
		t.Error("client queue still open after shutdown")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("client count = %d after shutdown, want 0", hub.ClientCount())
	}

	late := mockClient(hub)
	hub.Register(late)
	if _, ok := <-late.send; ok {
		t.Error("client registered after shutdown was not closed")
	}
	hub.Broadcast("call.completed", "x") // must not panic on closed queues
}

// ─── WebSocket Integration Tests ───────────────────────────────────

func wsURL(ts *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws" + query
}

func TestWebSocket_SubscribeAndReceive(t *testing.T) {
	srv := testServer(t, &fakeInvoker{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ws, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, "?token="+token(t, auth.RoleViewer)), nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v (resp: %v)", err, resp)
	}
	defer ws.Close()

	subscribeMsg := WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "sub-1",
		Payload: WSSubscribePayload{Channels: []string{"call.completed"}},
	}
	if err := ws.WriteJSON(subscribeMsg); err != nil {
		t.Fatalf("write subscribe message: %v", err)
	}

	ws.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // test deadline
	var response WSMessage
	if err := ws.ReadJSON(&response); err != nil {
		t.Fatalf("read response: %v", err)
	}
	if response.Type != WSTypeResponse || response.ID != "sub-1" {
		t.Fatalf("response = %+v", response)
	}

	srv.Hub().Broadcast("call.completed", map[string]any{"tool": "get_device_list", "code": 0})

	var event WSMessage
	if err := ws.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.Type != WSTypeEvent || event.EventType != "call.completed" {
		t.Errorf("event = %+v", event)
	}
	payload, _ := event.Payload.(map[string]any) //nolint:errcheck // checked below
	if payload["tool"] != "get_device_list" {
		t.Errorf("payload = %v", event.Payload)
	}
}

func TestWebSocket_PingPong(t *testing.T) {
	srv := testServer(t, &fakeInvoker{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ws, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "?token="+token(t, auth.RoleOperator)), nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer ws.Close()

	if err := ws.WriteJSON(WSMessage{Type: WSTypePing, ID: "p1"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	ws.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // test deadline
	var pong WSMessage
	if err := ws.ReadJSON(&pong); err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if pong.Type != WSTypePong || pong.ID != "p1" {
		t.Errorf("pong = %+v", pong)
	}
}

func TestWebSocket_RejectsBadFrames(t *testing.T) {
	srv := testServer(t, &fakeInvoker{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ws, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "?token="+token(t, auth.RoleViewer)), nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer ws.Close()

	frames := map[string]WSMessage{
		"empty channels": {Type: WSTypeSubscribe, ID: "e1", Payload: WSSubscribePayload{}},
		"unknown type":   {Type: "unsubscribe", ID: "e2"},
	}
	for name, frame := range frames {
		t.Run(name, func(t *testing.T) {
			if err := ws.WriteJSON(frame); err != nil {
				t.Fatalf("write frame: %v", err)
			}
			ws.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // test deadline
			var reply WSMessage
			if err := ws.ReadJSON(&reply); err != nil {
				t.Fatalf("read reply: %v", err)
			}
			if reply.Type != WSTypeError || reply.ID != frame.ID {
				t.Errorf("reply = %+v, want error for %s", reply, frame.ID)
			}
		})
	}
}

func TestWebSocket_Unauthorized(t *testing.T) {
	srv := testServer(t, &fakeInvoker{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	for name, query := range map[string]string{
		"missing token": "",
		"invalid token": "?token=invalid-token",
	} {
		t.Run(name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, query), nil)
			if err == nil {
				t.Fatal("expected dial error")
			}
			if resp == nil || resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("resp = %v, want 401", resp)
			}
		})
	}
}
