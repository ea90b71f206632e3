// Package server hosts guarded collections over HTTP and hot-reloads the
// collection policy from disk.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ppiankov/safeupdate/internal/audit"
	"github.com/ppiankov/safeupdate/internal/docstore"
	"github.com/ppiankov/safeupdate/internal/guard"
	"github.com/ppiankov/safeupdate/internal/metrics"
	"github.com/ppiankov/safeupdate/internal/model"
	"github.com/ppiankov/safeupdate/internal/policy"
	"github.com/ppiankov/safeupdate/internal/policydiff"
)

// Config holds HTTP server configuration.
type Config struct {
	Addr         string
	PolicyPath   string
	DBPath       string
	AuditLogPath string
	Logger       *slog.Logger
}

// Server exposes a docstore through the update guard.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	policy   *policy.Store
	guard    *guard.Guard
	db       *docstore.DB
	auditLog *audit.Log
	registry *prometheus.Registry
	srv      *http.Server
	ln       net.Listener

	reloadMu sync.Mutex // serializes ReloadPolicy
}

// New loads the policy, opens the database and audit log, and builds the handler.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8080"
	}
	if cfg.PolicyPath == "" {
		cfg.PolicyPath = policy.DefaultPath()
	}
	if cfg.DBPath == "" {
		cfg.DBPath = ":memory:"
	}

	s := &Server{
		cfg:      cfg,
		logger:   cfg.Logger,
		policy:   policy.NewStore(nil),
		registry: prometheus.NewRegistry(),
	}
	if err := s.ReloadPolicy(); err != nil {
		return nil, err
	}

	db, err := docstore.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db

	if cfg.AuditLogPath != "" {
		s.auditLog, err = audit.Open(cfg.AuditLogPath)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
	}

	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.guard = guard.New(guard.Config{
		Policy:   s.policy,
		Logger:   s.logger,
		AuditLog: s.auditLog,
		Metrics:  metrics.NewGuardMetrics(s.registry),
	})

	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/collections/{name}/update", s.handleUpdate)
	mux.HandleFunc("POST /v1/collections/{name}/check", s.handleCheck)
	mux.HandleFunc("POST /v1/collections/{name}/find", s.handleFind)
	mux.HandleFunc("GET /v1/policy", s.handlePolicy)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	return mux
}

// Start listens on the configured address and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.srv.Addr, err)
	}
	s.ln = ln
	s.logger.Info("http server listening", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutdownCtx)
	}()

	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close releases the database and audit log.
func (s *Server) Close() error {
	var errs []error
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	if s.auditLog != nil {
		errs = append(errs, s.auditLog.Close())
	}
	return errors.Join(errs...)
}

// Policy returns the live policy store.
func (s *Server) Policy() *policy.Store { return s.policy }

// DB returns the backing document store.
func (s *Server) DB() *docstore.DB { return s.db }

// PolicyPath returns the watched policy file path.
func (s *Server) PolicyPath() string { return s.cfg.PolicyPath }

// ReloadPolicy reads the policy file and swaps it in whole.
// Called at startup and by the hot-reloader on file change. Concurrent calls
// run one at a time, so the last file read is the one left in place.
func (s *Server) ReloadPolicy() error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	cfg, hash, err := policy.LoadConfigWithHash(s.cfg.PolicyPath)
	if err != nil {
		return fmt.Errorf("failed to reload policy config: %w", err)
	}
	for _, w := range cfg.Validate() {
		s.logger.Warn("policy warning", "path", s.cfg.PolicyPath, "warning", w)
	}
	prev := s.policy.Current()
	s.policy.SetWithHash(cfg, hash)
	if d := policydiff.Diff(prev, cfg); d.HasChanges {
		for _, e := range d.Exemptions {
			s.logger.Info("policy exemption changed",
				"collection", e.Collection,
				"now_exempt", e.NowExempt,
				"comment", e.Comment,
			)
		}
	}
	s.logger.Info("policy loaded",
		"path", s.cfg.PolicyPath,
		"hash", hash,
		"only", len(cfg.Only),
		"except", len(cfg.Except),
	)
	return nil
}

// updateBody is the JSON body of update, check and find requests.
type updateBody struct {
	Selector model.Document `json:"selector"`
	Modifier model.Document `json:"modifier"`
	Options  map[string]any `json:"options"`
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (model.UpdateRequest, bool) {
	var body updateBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body: " + err.Error()})
		return model.UpdateRequest{}, false
	}
	opts, err := model.OptionsFromMap(body.Options)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return model.UpdateRequest{}, false
	}
	return model.UpdateRequest{
		Collection: r.PathValue("name"),
		Selector:   body.Selector,
		Modifier:   body.Modifier,
		Options:    opts,
	}, true
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}

	coll := s.guard.Wrap(req.Collection, s.db.Collection(req.Collection))
	updated, err := coll.Update(r.Context(), req.Selector, req.Modifier, req.Options)

	var rej *guard.RejectedError
	switch {
	case errors.As(err, &rej):
		writeJSON(w, rej.Code, rej)
	case err != nil:
		s.logger.Error("store update failed", "collection", req.Collection, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"updated": updated})
	}
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.guard.Check(req))
}

func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	docs, err := s.db.Collection(req.Collection).Find(r.Context(), req.Selector)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}
	if docs == nil {
		docs = []model.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) handlePolicy(w http.ResponseWriter, r *http.Request) {
	cfg, hash := s.policy.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"policy":   cfg,
		"hash":     hash,
		"warnings": cfg.Validate(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
