package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dokzlo13/watchface/internal/config"
	"github.com/dokzlo13/watchface/internal/face"
	"github.com/dokzlo13/watchface/internal/ledger"
	"github.com/dokzlo13/watchface/internal/metrics"
)

// HTTPService serves the sync socket, health checks, metrics, the current
// frame and the sync history.
type HTTPService struct {
	cfg     *config.Config
	face    *FaceService
	ledger  *ledger.Ledger
	metrics *metrics.Metrics
	server  *http.Server
}

// NewHTTPService creates a new HTTPService.
func NewHTTPService(cfg *config.Config, f *FaceService, l *ledger.Ledger, m *metrics.Metrics) *HTTPService {
	return &HTTPService{
		cfg:     cfg,
		face:    f,
		ledger:  l,
		metrics: m,
	}
}

// Handler builds the router.
func (s *HTTPService) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}).Methods(http.MethodGet)

	r.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if !s.face.Ready() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}).Methods(http.MethodGet)

	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/snapshot.png", s.snapshot).Methods(http.MethodGet)
	r.HandleFunc("/debug/sync", s.history).Methods(http.MethodGet)
	r.HandleFunc(s.cfg.Sync.Path, s.face.ServeSync)

	return r
}

// Start binds the listener and serves in the background. The listener is
// bound before returning so the face can open the sync socket on it.
func (s *HTTPService) Start(ctx context.Context, g *errgroup.Group) error {
	addr := s.cfg.HTTP.Addr()
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	log.Info().Str("addr", ln.Addr().String()).Msg("Starting HTTP server")

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.GetShutdownTimeout())
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
		}
		return nil
	})

	g.Go(func() error {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server error")
			return err
		}
		return nil
	})
	return nil
}

// snapshot encodes the current frame on the face loop.
func (s *HTTPService) snapshot(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := s.face.Loop.DoSync(r.Context(), func(_ context.Context, c *face.Controller) error {
		return c.EncodePNG(&buf)
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// history lists recent sync ledger entries, newest first.
func (s *HTTPService) history(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.Sync.HistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := s.ledger.Recent(limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read sync history")
		http.Error(w, "failed to read history", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*ledger.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}
