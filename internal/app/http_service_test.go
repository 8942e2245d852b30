package app

import (
	"context"
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/dokzlo13/watchface/internal/battery"
	"github.com/dokzlo13/watchface/internal/config"
	"github.com/dokzlo13/watchface/internal/db"
	"github.com/dokzlo13/watchface/internal/fonts"
	"github.com/dokzlo13/watchface/internal/icon"
	"github.com/dokzlo13/watchface/internal/ledger"
	"github.com/dokzlo13/watchface/internal/metrics"
	"github.com/dokzlo13/watchface/internal/persist"
	"github.com/dokzlo13/watchface/internal/transport"
)

type fixture struct {
	face   *FaceService
	ledger *ledger.Ledger
	store  *persist.MemoryStore
	http   *HTTPService
	server *httptest.Server
}

func newFixture(t *testing.T, start bool) *fixture {
	t.Helper()

	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.Default()
	cfg.Display.Timezone = "UTC"

	f := &fixture{
		ledger: ledger.New(database.DB),
		store:  persist.NewMemoryStore(),
	}
	m := metrics.New()
	f.face = NewFaceService(cfg, FaceDeps{
		Store:    f.store,
		Recorder: f.ledger,
		Metrics:  m,
		Icons:    &icon.BuiltinLoader{},
		Fonts:    fonts.Basic(),
		Battery:  battery.Static{Percent: 64},
	})
	f.http = NewHTTPService(cfg, f.face, f.ledger, m)
	f.server = httptest.NewServer(f.http.Handler())

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	t.Cleanup(func() {
		f.server.Close()
		cancel()
		_ = g.Wait()
		f.face.Close()
	})

	if start {
		if err := f.face.Start(gctx, g); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	}
	return f
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s error = %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHTTP_Health(t *testing.T) {
	f := newFixture(t, false)

	if resp := get(t, f.server.URL+"/health"); resp.StatusCode != http.StatusOK {
		t.Errorf("/health status = %d", resp.StatusCode)
	}
	if resp := get(t, f.server.URL+"/ready"); resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("/ready before start = %d, want 503", resp.StatusCode)
	}
}

func TestHTTP_ReadyAfterStart(t *testing.T) {
	f := newFixture(t, true)

	if resp := get(t, f.server.URL+"/ready"); resp.StatusCode != http.StatusOK {
		t.Errorf("/ready status = %d, want 200", resp.StatusCode)
	}
}

func TestHTTP_Snapshot(t *testing.T) {
	f := newFixture(t, true)

	resp := get(t, f.server.URL+"/snapshot.png")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/snapshot.png status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if b := img.Bounds(); b.Dx() != 144 || b.Dy() != 168 {
		t.Errorf("Bounds() = %v, want 144x168", b)
	}
}

func TestHTTP_Metrics(t *testing.T) {
	f := newFixture(t, true)

	resp := get(t, f.server.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/metrics status = %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "watchface_redraws_total") {
		t.Error("metrics output lacks watchface_redraws_total")
	}
}

func TestHTTP_SyncRoundTrip(t *testing.T) {
	f := newFixture(t, true)

	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/sync"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer ws.Close()

	if err := ws.WriteJSON(transport.NewUpdate(map[uint32]int32{1: 21, 2: -1})); err != nil {
		t.Fatal(err)
	}

	// Both updates reach the ledger: the temperature accepted, the icon sentinel rejected.
	var entries []*ledger.Entry
	deadline := time.Now().Add(2 * time.Second)
	for len(entries) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("history = %d entries, want 2", len(entries))
		}
		time.Sleep(10 * time.Millisecond)

		resp := get(t, f.server.URL+"/debug/sync?limit=10")
		entries = nil
		if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
			t.Fatalf("decode history: %v", err)
		}
	}

	outcomes := map[ledger.Outcome]int{}
	for _, e := range entries {
		outcomes[e.Outcome]++
	}
	if outcomes[ledger.OutcomeAccepted] != 1 || outcomes[ledger.OutcomeRejected] != 1 {
		t.Errorf("outcomes = %v", outcomes)
	}

	if v, err := f.store.Read(1); err != nil || v != 21 {
		t.Errorf("persisted temperature = %d, %v", v, err)
	}
	if ok, _ := f.store.Exists(2); ok {
		t.Error("rejected icon was persisted")
	}
}

func TestHTTP_SyncRefusedBeforeStart(t *testing.T) {
	f := newFixture(t, false)

	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/sync"
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		ws.Close()
		t.Fatal("Dial() succeeded before the face started")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Dial() response = %v, want 503", resp)
	}
	if f.face.Transport.Connected() != 0 {
		t.Errorf("Connected() = %d, want 0", f.face.Transport.Connected())
	}
}

func TestHTTP_HistoryBadLimit(t *testing.T) {
	f := newFixture(t, false)

	if resp := get(t, f.server.URL+"/debug/sync?limit=-3"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
