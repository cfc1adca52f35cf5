package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"todosync-cli/internal/model"
	"todosync-cli/internal/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// Service is the list service the API exposes. *store.Store implements it.
type Service interface {
	CreateList(ctx context.Context, name string) (model.List, error)
	GetList(ctx context.Context, slug string) (model.List, error)
	UpdateList(ctx context.Context, slug, name string) (model.List, error)
	DeleteList(ctx context.Context, slug string) error
	CreateTask(ctx context.Context, slug string, in model.ItemCreate) (model.Item, error)
	UpdateTask(ctx context.Context, slug, taskID string, patch model.ItemPatch) (model.Item, error)
	DeleteTask(ctx context.Context, slug, taskID string) error
}

type ServerConfig struct {
	Addr string
	// Prefix is mounted in front of every route, e.g. "/api".
	Prefix string
	Logger *slog.Logger
	// Registry receives the HTTP metrics; nil uses a private registry.
	Registry *prometheus.Registry
}

type Server struct {
	cfg     ServerConfig
	svc     Service
	log     *slog.Logger
	reg     *prometheus.Registry
	metrics *metrics
}

const maxBodyBytes = 1 << 20

func NewServer(svc Service, cfg ServerConfig) (*Server, error) {
	if svc == nil {
		return nil, errors.New("api: nil service")
	}
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	cfg.Prefix = normalizePrefix(cfg.Prefix)
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &Server{
		cfg:     cfg,
		svc:     svc,
		log:     logger,
		reg:     reg,
		metrics: newMetrics(reg),
	}, nil
}

func normalizePrefix(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimRight(p, "/")
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func (s *Server) Addr() string { return s.cfg.Addr }

func (s *Server) Prefix() string { return s.cfg.Prefix }

func (s *Server) Handler() http.Handler {
	p := s.cfg.Prefix
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+p+"/health", s.handleHealth)
	mux.Handle("GET "+p+"/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))

	s.route(mux, "POST "+p+"/lists/{$}", "create_list", s.handleListCreate)
	s.route(mux, "GET "+p+"/lists/{slug}", "get_list", s.handleListGet)
	s.route(mux, "PUT "+p+"/lists/{slug}", "update_list", s.handleListUpdate)
	s.route(mux, "DELETE "+p+"/lists/{slug}", "delete_list", s.handleListDelete)
	s.route(mux, "POST "+p+"/lists/{slug}/tasks", "create_task", s.handleTaskCreate)
	s.route(mux, "PUT "+p+"/lists/{slug}/tasks/{taskId}", "update_task", s.handleTaskUpdate)
	s.route(mux, "DELETE "+p+"/lists/{slug}/tasks/{taskId}", "delete_task", s.handleTaskDelete)

	return newCORS().Handler(mux)
}

// route registers h under pattern with request metrics labelled op.
func (s *Server) route(mux *http.ServeMux, pattern, op string, h func(http.ResponseWriter, *http.Request) int) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		status := h(w, r)
		s.metrics.observe(op, status, time.Since(start))
		s.log.Debug("request",
			slog.String("op", op),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
		)
	})
}

func newCORS() *cors.Cors {
	return cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
		},
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

type listNameReq struct {
	Name string `json:"name"`
}

func (s *Server) handleListCreate(w http.ResponseWriter, r *http.Request) int {
	var req listNameReq
	if err := decodeJSON(r, &req); err != nil {
		return s.writeError(w, err)
	}
	l, err := s.svc.CreateList(r.Context(), req.Name)
	if err != nil {
		return s.writeError(w, err)
	}
	return writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleListGet(w http.ResponseWriter, r *http.Request) int {
	l, err := s.svc.GetList(r.Context(), r.PathValue("slug"))
	if err != nil {
		return s.writeError(w, err)
	}
	return writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleListUpdate(w http.ResponseWriter, r *http.Request) int {
	var req listNameReq
	if err := decodeJSON(r, &req); err != nil {
		return s.writeError(w, err)
	}
	l, err := s.svc.UpdateList(r.Context(), r.PathValue("slug"), req.Name)
	if err != nil {
		return s.writeError(w, err)
	}
	return writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleListDelete(w http.ResponseWriter, r *http.Request) int {
	if err := s.svc.DeleteList(r.Context(), r.PathValue("slug")); err != nil {
		return s.writeError(w, err)
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleTaskCreate(w http.ResponseWriter, r *http.Request) int {
	var in model.ItemCreate
	if err := decodeJSON(r, &in); err != nil {
		return s.writeError(w, err)
	}
	it, err := s.svc.CreateTask(r.Context(), r.PathValue("slug"), in)
	if err != nil {
		return s.writeError(w, err)
	}
	return writeJSON(w, http.StatusOK, it)
}

func (s *Server) handleTaskUpdate(w http.ResponseWriter, r *http.Request) int {
	var patch model.ItemPatch
	if err := decodeJSON(r, &patch); err != nil {
		return s.writeError(w, err)
	}
	it, err := s.svc.UpdateTask(r.Context(), r.PathValue("slug"), r.PathValue("taskId"), patch)
	if err != nil {
		return s.writeError(w, err)
	}
	return writeJSON(w, http.StatusOK, it)
}

func (s *Server) handleTaskDelete(w http.ResponseWriter, r *http.Request) int {
	if err := s.svc.DeleteTask(r.Context(), r.PathValue("slug"), r.PathValue("taskId")); err != nil {
		return s.writeError(w, err)
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return store.ValidationError{Msg: "invalid request body: " + err.Error()}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) int {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
	return status
}

// ErrorBody is the error payload of every failed request.
type ErrorBody struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) int {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", slog.Any("err", err))
	}
	return writeJSON(w, status, body)
}

func classify(err error) (int, ErrorBody) {
	var nf store.NotFoundError
	var ve store.ValidationError
	switch {
	case errors.As(err, &nf) && nf.Kind == "list":
		return http.StatusBadRequest, ErrorBody{Error: true, Message: "invalid todo list slug", Details: nf.ID}
	case errors.As(err, &nf):
		return http.StatusBadRequest, ErrorBody{Error: true, Message: "invalid todo task id", Details: nf.ID}
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity, ErrorBody{Error: true, Message: "validation error", Details: ve.Msg}
	default:
		return http.StatusInternalServerError, ErrorBody{Error: true, Message: "internal error"}
	}
}
