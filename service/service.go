package service

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/praekelt/aludel/log"
)

// Handler is a RESTful request handler. The returned map becomes the JSON
// response body (plus the request_id field the wrapper stamps on).
type Handler func(r *http.Request) (map[string]any, error)

// ErrorHook lets a service translate unexpected handler errors before they
// are rendered. Returning an *APIError controls the response; anything else
// still renders as an opaque 500.
type ErrorHook func(r *http.Request, err error) error

// Config configures a Service and its middleware stack.
type Config struct {
	// Name annotates log entries for this service.
	Name string
	// EnableMetrics installs the prometheus middleware.
	EnableMetrics bool
	// RateLimit enables request rate limiting when RequestLimit > 0.
	RateLimit RateLimitConfig
}

// Service owns a chi router with the canonical middleware stack applied and
// registers wrapped handlers on it.
type Service struct {
	name      string
	router    *chi.Mux
	errorHook ErrorHook
}

// New constructs a Service. Middleware order matters: the recoverer is the
// outermost safety net, request IDs are assigned before anything that logs.
func New(cfg Config) *Service {
	name := cfg.Name
	if name == "" {
		name = "service"
	}

	r := chi.NewRouter()
	r.Use(Recoverer)
	r.Use(RequestID)
	if cfg.EnableMetrics {
		r.Use(Metrics())
	}
	r.Use(log.Middleware())
	if cfg.RateLimit.RequestLimit > 0 {
		r.Use(RateLimit(cfg.RateLimit))
	}

	return &Service{name: name, router: r}
}

// SetErrorHook installs the service's error hook.
func (s *Service) SetErrorHook(hook ErrorHook) {
	s.errorHook = hook
}

// Router exposes the underlying chi router for mounting non-wrapped
// handlers (static files, /metrics, health probes).
func (s *Service) Router() chi.Router {
	return s.router
}

// Handle registers a wrapped handler for the given method and pattern.
func (s *Service) Handle(method, pattern string, h Handler) {
	s.router.Method(method, pattern, s.Wrap(h))
}

// Get registers a GET handler.
func (s *Service) Get(pattern string, h Handler) {
	s.Handle(http.MethodGet, pattern, h)
}

// Post registers a POST handler.
func (s *Service) Post(pattern string, h Handler) {
	s.Handle(http.MethodPost, pattern, h)
}

// Put registers a PUT handler.
func (s *Service) Put(pattern string, h Handler) {
	s.Handle(http.MethodPut, pattern, h)
}

// Delete registers a DELETE handler.
func (s *Service) Delete(pattern string, h Handler) {
	s.Handle(http.MethodDelete, pattern, h)
}

func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Wrap turns a Handler into an http.HandlerFunc that renders the JSON
// envelope and maps errors to JSON error responses.
func (s *Service) Wrap(h Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r = r.WithContext(withRequestIDHolder(r.Context()))

		result, err := h(r)
		if err != nil {
			s.renderError(w, r, err)
			return
		}
		writeResponse(w, r, result)
	}
}

func (s *Service) renderError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		writeError(w, r, apiErr)
		return
	}

	if s.errorHook != nil {
		hooked := s.errorHook(r, err)
		if errors.As(hooked, &apiErr) {
			writeError(w, r, apiErr)
			return
		}
		if hooked != nil {
			err = hooked
		}
	}

	// Unexpected error: log the detail, hide it from the client.
	l := log.WithComponentFromContext(r.Context(), s.name)
	l.Error().
		Err(err).
		Str("event", "request.failed").
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("unexpected handler error")

	writeError(w, r, &APIError{
		Code:    http.StatusInternalServerError,
		Message: "Internal server error.",
	})
}
