package companion

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dokzlo13/watchface/internal/battery"
	"github.com/dokzlo13/watchface/internal/event"
	"github.com/dokzlo13/watchface/internal/transport"
)

type fakeProvider struct {
	mu    sync.Mutex
	calls int
	w     Weather
	err   error
}

func (f *fakeProvider) Weather(context.Context) (Weather, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.w, f.err
}

func (f *fakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type face struct {
	server *transport.Server
	events chan event.Event
	url    string
}

func startFace(t *testing.T) *face {
	t.Helper()
	f := &face{events: make(chan event.Event, 32)}
	f.server = transport.NewServer(func(ev event.Event) { f.events <- ev })
	ts := httptest.NewServer(f.server)
	t.Cleanup(func() {
		f.server.Close()
		ts.Close()
	})
	f.url = "ws" + strings.TrimPrefix(ts.URL, "http")
	return f
}

// collect reads n sync updates into a key/value map.
func (f *face) collect(t *testing.T, n int) map[uint32]int32 {
	t.Helper()
	got := make(map[uint32]int32)
	for len(got) < n {
		select {
		case ev := <-f.events:
			if u, ok := ev.(event.SyncUpdate); ok {
				got[u.Key] = u.Value
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("received %v, want %d keys", got, n)
		}
	}
	return got
}

func runClient(t *testing.T, c *Client) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestClient_SendsWeatherOnConnect(t *testing.T) {
	f := startFace(t)
	provider := &fakeProvider{w: Weather{Temperature: 21, Icon: 3}}
	cfg := DefaultClientConfig(f.url)
	cfg.MinFetchInterval = 0

	runClient(t, NewClient(cfg, provider))

	got := f.collect(t, 2)
	if got[1] != 21 || got[2] != 3 {
		t.Errorf("updates = %v, want temperature 21 and icon 3", got)
	}
}

func TestClient_AnswersWeatherRequest(t *testing.T) {
	f := startFace(t)
	provider := &fakeProvider{w: Weather{Temperature: 5, Icon: -1}}
	cfg := DefaultClientConfig(f.url)
	cfg.MinFetchInterval = 0

	runClient(t, NewClient(cfg, provider))
	f.collect(t, 2)

	provider.mu.Lock()
	provider.w = Weather{Temperature: 6, Icon: 4}
	provider.mu.Unlock()

	if err := f.server.RequestWeather(); err != nil {
		t.Fatalf("RequestWeather() error = %v", err)
	}
	got := f.collect(t, 2)
	if got[1] != 6 || got[2] != 4 {
		t.Errorf("updates = %v, want temperature 6 and icon 4", got)
	}
}

func TestClient_ThrottledFetchReusesReading(t *testing.T) {
	f := startFace(t)
	provider := &fakeProvider{w: Weather{Temperature: 9, Icon: 1}}
	cfg := DefaultClientConfig(f.url)
	cfg.MinFetchInterval = time.Hour

	runClient(t, NewClient(cfg, provider))
	f.collect(t, 2)

	if err := f.server.RequestWeather(); err != nil {
		t.Fatalf("RequestWeather() error = %v", err)
	}
	got := f.collect(t, 2)
	if got[1] != 9 {
		t.Errorf("updates = %v, want cached temperature 9", got)
	}
	if provider.Calls() != 1 {
		t.Errorf("provider calls = %d, want 1", provider.Calls())
	}
}

func TestClient_SendBattery(t *testing.T) {
	f := startFace(t)
	provider := &fakeProvider{err: errors.New("offline")}
	c := NewClient(DefaultClientConfig(f.url), provider)

	// Remembered while disconnected, sent once connected.
	c.SendBattery(battery.Reading{Percent: 73, Charging: true})
	runClient(t, c)

	got := f.collect(t, 2)
	if got[0] != 73 || got[3] != 1 {
		t.Errorf("updates = %v, want battery 73 charging 1", got)
	}
}

func TestClient_MaxReconnects(t *testing.T) {
	cfg := ClientConfig{
		URL:           "ws://127.0.0.1:1/sync",
		MinBackoff:    time.Millisecond,
		MaxBackoff:    time.Millisecond,
		Multiplier:    2,
		MaxReconnects: 2,
	}
	err := NewClient(cfg, &fakeProvider{}).Run(context.Background())
	if !errors.Is(err, ErrMaxReconnectsExceeded) {
		t.Errorf("Run() error = %v, want ErrMaxReconnectsExceeded", err)
	}
}
