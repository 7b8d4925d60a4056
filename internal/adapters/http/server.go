// Package http exposes the compliance validator over a JSON API.
package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/aretw0/csdlc"
	"github.com/aretw0/csdlc/pkg/compliance"
	"github.com/aretw0/csdlc/pkg/domain"
)

// APIVersion is the version of the request/response contract.
const APIVersion = "0.1.0"

var validate = validator.New()

// ValidateRequest carries a document inline.
type ValidateRequest struct {
	Name    string `json:"name" validate:"omitempty,max=512"`
	Content string `json:"content" validate:"required"`
}

// PathRequest names a file or directory under the server root.
type PathRequest struct {
	Path      string `json:"path" validate:"required,max=4096"`
	Recursive bool   `json:"recursive"`
	CrossFile bool   `json:"crossFile"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

// Server routes requests to a compliance.Validator.
type Server struct {
	validator  *compliance.Validator
	root       string
	maxBody    int64
	metrics    http.Handler
	middleware []func(http.Handler) http.Handler
	logger     *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithRoot enables the path-based endpoints for files under dir.
func WithRoot(dir string) Option {
	return func(s *Server) {
		s.root = dir
	}
}

// WithMetrics mounts h on /metrics and wraps every route with mw.
func WithMetrics(h http.Handler, mw func(http.Handler) http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
		if mw != nil {
			s.middleware = append(s.middleware, mw)
		}
	}
}

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler.
func NewHandler(v *compliance.Validator, opts ...Option) http.Handler {
	s := &Server{
		validator: v,
		maxBody:   v.Config().MaxFileSize,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)
	for _, mw := range s.middleware {
		r.Use(mw)
	}

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Post("/validate", s.Validate)
	r.Post("/validate/file", s.ValidateFile)
	r.Post("/validate/directory", s.ValidateDirectory)
	r.Post("/graph", s.Graph)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	return r
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.write(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.write(w, http.StatusOK, map[string]string{
		"app":         "csdlc-http",
		"version":     strings.TrimSpace(csdlc.Version),
		"api_version": APIVersion,
	})
}

// Validate handles POST /validate with an inline document.
func (s *Server) Validate(w http.ResponseWriter, r *http.Request) {
	var body ValidateRequest
	if !s.decode(w, r, &body) {
		return
	}
	res, err := s.validator.ValidateContent(r.Context(), body.Name, []byte(body.Content))
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	s.write(w, http.StatusOK, res)
}

// ValidateFile handles POST /validate/file.
func (s *Server) ValidateFile(w http.ResponseWriter, r *http.Request) {
	var body PathRequest
	if !s.decode(w, r, &body) {
		return
	}
	p, ok := s.resolve(w, body.Path)
	if !ok {
		return
	}
	res, err := s.validator.ValidateFile(r.Context(), p)
	if err != nil {
		s.fail(w, http.StatusNotFound, err)
		return
	}
	s.write(w, http.StatusOK, res)
}

// ValidateDirectory handles POST /validate/directory.
func (s *Server) ValidateDirectory(w http.ResponseWriter, r *http.Request) {
	var body PathRequest
	if !s.decode(w, r, &body) {
		return
	}
	p, ok := s.resolve(w, body.Path)
	if !ok {
		return
	}
	res, err := s.validator.ValidateDirectory(r.Context(), p, compliance.DirectoryOptions{
		Recursive: body.Recursive,
		CrossFile: body.CrossFile,
	})
	if err != nil {
		s.fail(w, http.StatusNotFound, err)
		return
	}
	s.write(w, http.StatusOK, res)
}

// Graph handles POST /graph. A disallowed cycle is reported with 409 and the
// partial report.
func (s *Server) Graph(w http.ResponseWriter, r *http.Request) {
	var body PathRequest
	if !s.decode(w, r, &body) {
		return
	}
	p, ok := s.resolve(w, body.Path)
	if !ok {
		return
	}
	report, err := s.validator.BuildDependencyGraph(r.Context(), p)
	switch {
	case err == nil:
		s.write(w, http.StatusOK, report)
	case report != nil && errors.Is(err, domain.ErrCircularDependency):
		s.write(w, http.StatusConflict, report)
	case report != nil:
		s.write(w, http.StatusUnprocessableEntity, report)
	default:
		s.fail(w, http.StatusNotFound, err)
	}
}

// resolve maps a request path into the server root. Paths never escape it.
func (s *Server) resolve(w http.ResponseWriter, p string) (string, bool) {
	if s.root == "" {
		s.fail(w, http.StatusForbidden, errors.New("path access is disabled"))
		return "", false
	}
	clean := filepath.Clean("/" + filepath.ToSlash(p))
	return filepath.Join(s.root, filepath.FromSlash(clean)), true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	if s.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	}
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, http.StatusRequestEntityTooLarge, err)
			return false
		}
		s.fail(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	if err := validate.Struct(out); err != nil {
		resp := ErrorResponse{Error: "invalid request"}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				resp.Fields = append(resp.Fields, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
			}
		}
		s.write(w, http.StatusBadRequest, resp)
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	s.write(w, status, ErrorResponse{Error: err.Error()})
}

func (s *Server) write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
