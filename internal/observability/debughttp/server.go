// Package debughttp serves local health, status and pprof endpoints.
package debughttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"runtime"
	"strings"
	"sync"
	"time"

	"nudge/pkg/logx"
)

const DefaultAddr = "127.0.0.1:6061"

// Config controls the debug listener.
//
// Security:
//   - Prefer binding to localhost (default).
//   - A non-loopback Addr is refused unless Token is set.
type Config struct {
	Enabled bool
	Addr    string
	Token   string
	Pprof   bool

	BlockProfileRate     int
	MutexProfileFraction int
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.Addr) == "" {
		c.Addr = DefaultAddr
	}
	return c
}

// Probes supply the data behind /healthz and /status.
type Probes struct {
	Healthy func() bool
	Status  func() any
}

// ErrInsecureBind is returned by Apply for a public address without a token.
var ErrInsecureBind = errors.New("debug server refused to start: non-loopback addr requires a token")

// Server manages the lifecycle of the debug HTTP listener.
type Server struct {
	probes Probes

	mu   sync.Mutex
	log  logx.Logger
	cfg  Config
	srv  *http.Server
	ln   net.Listener
	addr string
}

func New(probes Probes, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{probes: probes, log: log}
}

// Apply starts, stops or restarts the server to match cfg and updates the
// runtime profiling rates. Safe to call on every config reload.
func (s *Server) Apply(ctx context.Context, cfg Config) error {
	cfg = cfg.withDefaults()
	if cfg.Enabled && cfg.Pprof {
		runtime.SetBlockProfileRate(cfg.BlockProfileRate)
		runtime.SetMutexProfileFraction(cfg.MutexProfileFraction)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !cfg.Enabled {
		s.stopLocked(ctx)
		s.cfg = cfg
		return nil
	}
	if s.srv != nil && s.cfg == cfg {
		return nil
	}
	if cfg.Token == "" && !isLoopbackAddr(cfg.Addr) {
		s.stopLocked(ctx)
		s.log.Error("debug server refused to start", logx.String("addr", cfg.Addr))
		return ErrInsecureBind
	}

	s.stopLocked(ctx)
	s.cfg = cfg
	return s.startLocked(cfg)
}

func (s *Server) startLocked(cfg Config) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		s.log.Warn("debug listen failed", logx.String("addr", cfg.Addr), logx.Err(err))
		return fmt.Errorf("debug listen %s: %w", cfg.Addr, err)
	}
	srv := &http.Server{
		Handler:           s.handler(cfg),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.srv = srv
	s.ln = ln
	s.addr = ln.Addr().String()

	addr := s.addr
	log := s.log
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("debug server error", logx.String("addr", addr), logx.Err(err))
		}
	}()
	s.log.Info("debug server started", logx.String("addr", addr), logx.Bool("pprof", cfg.Pprof), logx.Bool("token_set", cfg.Token != ""))
	return nil
}

// Stop gracefully shuts down the listener.
func (s *Server) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(ctx)
}

func (s *Server) stopLocked(ctx context.Context) {
	if s.srv == nil {
		return
	}
	srv, ln, addr := s.srv, s.ln, s.addr
	s.srv, s.ln, s.addr = nil, nil, ""

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Warn("debug shutdown error", logx.String("addr", addr), logx.Err(err))
		_ = srv.Close()
	}
	_ = ln.Close()
	s.log.Info("debug server stopped", logx.String("addr", addr))
}

// Addr reports the actual listen address, or "" when not running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *Server) handler(cfg Config) http.Handler {
	mux := http.NewServeMux()
	wrap := func(h http.HandlerFunc) http.HandlerFunc { return withAuth(cfg.Token, h) }

	mux.HandleFunc("/healthz", wrap(func(w http.ResponseWriter, _ *http.Request) {
		if s.probes.Healthy != nil && !s.probes.Healthy() {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	mux.HandleFunc("/status", wrap(func(w http.ResponseWriter, _ *http.Request) {
		var body any = struct{}{}
		if s.probes.Status != nil {
			body = s.probes.Status()
		}
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(body); err != nil {
			s.log.Warn("status encode failed", logx.Err(err))
		}
	}))

	if cfg.Pprof {
		mux.HandleFunc("/debug/pprof/", wrap(pprof.Index))
		mux.HandleFunc("/debug/pprof/cmdline", wrap(pprof.Cmdline))
		mux.HandleFunc("/debug/pprof/profile", wrap(pprof.Profile))
		mux.HandleFunc("/debug/pprof/symbol", wrap(pprof.Symbol))
		mux.HandleFunc("/debug/pprof/trace", wrap(pprof.Trace))
	}
	return mux
}

// withAuth accepts "Authorization: Bearer <token>" or ?token=<token>.
func withAuth(token string, h http.HandlerFunc) http.HandlerFunc {
	tok := strings.TrimSpace(token)
	if tok == "" {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		got := r.URL.Query().Get("token")
		if got == "" {
			if ah := r.Header.Get("Authorization"); strings.HasPrefix(ah, "Bearer ") {
				got = strings.TrimSpace(strings.TrimPrefix(ah, "Bearer "))
			}
		}
		if got != tok {
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		h(w, r)
	}
}

func isLoopbackAddr(addr string) bool {
	h, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	h = strings.TrimSpace(h)
	if h == "" {
		// all interfaces
		return false
	}
	if strings.EqualFold(h, "localhost") {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}
