package transport

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dokzlo13/watchface/internal/event"
)

func startServer(t *testing.T) (*Server, chan event.Event, string) {
	t.Helper()
	events := make(chan event.Event, 16)
	s := NewServer(func(ev event.Event) { events <- ev })

	ts := httptest.NewServer(s)
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})
	return s, events, "ws" + strings.TrimPrefix(ts.URL, "http")
}

func dial(t *testing.T, s *Server, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { ws.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for s.Connected() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("companion never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return ws
}

func next(t *testing.T, events <-chan event.Event) event.Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event published")
		return nil
	}
}

func TestServer_Update(t *testing.T) {
	s, events, url := startServer(t)
	ws := dial(t, s, url)

	if err := ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"update","values":{"1":21,"3":true}}`)); err != nil {
		t.Fatal(err)
	}

	first, ok := next(t, events).(event.SyncUpdate)
	if !ok || first.Key != 1 || first.Value != 21 || first.Previous != nil {
		t.Errorf("first event = %+v", first)
	}
	second, ok := next(t, events).(event.SyncUpdate)
	if !ok || second.Key != 3 || second.Value != 1 {
		t.Errorf("second event = %+v", second)
	}

	if err := ws.WriteJSON(NewUpdate(map[uint32]int32{1: 22})); err != nil {
		t.Fatal(err)
	}
	third, ok := next(t, events).(event.SyncUpdate)
	if !ok || third.Previous == nil || *third.Previous != 21 {
		t.Errorf("third event = %+v, want previous 21", third)
	}
}

func TestServer_MalformedPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "not_json", payload: `temperature=21`},
		{name: "wrong_type", payload: `{"type":"hello"}`},
		{name: "bad_value", payload: `{"type":"update","values":{"1":[1]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, events, url := startServer(t)
			ws := dial(t, s, url)

			if err := ws.WriteMessage(websocket.TextMessage, []byte(tt.payload)); err != nil {
				t.Fatal(err)
			}
			if _, ok := next(t, events).(event.TransportError); !ok {
				t.Error("want a transport error")
			}
		})
	}
}

func TestServer_RequestWeather(t *testing.T) {
	s, _, url := startServer(t)

	if err := s.RequestWeather(); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("RequestWeather() error = %v, want ErrNotConnected", err)
	}

	ws := dial(t, s, url)
	if err := s.RequestWeather(); err != nil {
		t.Fatalf("RequestWeather() error = %v", err)
	}

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if msg.Type != TypeRequestWeather || msg.ID == "" {
		t.Errorf("request = %+v", msg)
	}
}

func TestServer_Disconnect(t *testing.T) {
	s, _, url := startServer(t)
	ws := dial(t, s, url)

	ws.Close()
	deadline := time.Now().Add(2 * time.Second)
	for s.Connected() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Connected() = %d after close", s.Connected())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
