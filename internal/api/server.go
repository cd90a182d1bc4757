// Package api serves the search service over HTTP with a chi router.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/placefinder/internal/model"
	"github.com/sells-group/placefinder/internal/provider"
	"github.com/sells-group/placefinder/internal/resilience"
	"github.com/sells-group/placefinder/internal/search"
	"github.com/sells-group/placefinder/internal/tips"
	"github.com/sells-group/placefinder/internal/usage"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Config tunes the HTTP surface.
type Config struct {
	AllowedOrigins []string
	// RequestsPerMin is the per-IP limit on /v1 routes. Zero disables it.
	RequestsPerMin int
}

// Server exposes a search.Service.
type Server struct {
	svc      *search.Service
	breakers *resilience.Breakers
	cfg      Config
}

// NewServer creates a server. breakers may be nil.
func NewServer(svc *search.Service, breakers *resilience.Breakers, cfg Config) *Server {
	return &Server{svc: svc, breakers: breakers, cfg: cfg}
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		if s.cfg.RequestsPerMin > 0 {
			r.Use(httprate.Limit(s.cfg.RequestsPerMin, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByRealIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
					writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				}),
			))
		}
		r.Post("/search", s.search)
		r.Post("/search/more", s.loadMore)
		r.Get("/search/last", s.last)
		r.Post("/places/tips", s.tips)
		r.Get("/usage", s.usage)
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.breakers != nil {
		body["providers"] = s.breakers.Snapshot()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var q search.Query
	if !decode(w, r, &q) {
		return
	}
	resp, err := s.svc.Search(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// moreRequest asks for places beyond the ones already shown.
type moreRequest struct {
	Query search.Query `json:"query"`
	Shown []string     `json:"shown" validate:"max=200,dive,max=200"`
}

func (s *Server) loadMore(w http.ResponseWriter, r *http.Request) {
	var req moreRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := s.svc.LoadMore(r.Context(), req.Query, req.Shown)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) last(w http.ResponseWriter, r *http.Request) {
	resp, ok, err := s.svc.Restore(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no recent search")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// tipsRequest identifies the place to write tips for.
type tipsRequest struct {
	Name       string         `json:"name" validate:"required,max=200"`
	Category   model.Category `json:"category,omitempty" validate:"omitempty,oneof=EAT DRINK EXPLORE"`
	Address    string         `json:"address,omitempty" validate:"max=300"`
	Source     string         `json:"source,omitempty"`
	ProviderID string         `json:"provider_id,omitempty"`
}

func (s *Server) tips(w http.ResponseWriter, r *http.Request) {
	var req tipsRequest
	if !decode(w, r, &req) {
		return
	}
	p := model.Place{
		Name:       req.Name,
		Category:   req.Category,
		Address:    req.Address,
		Source:     req.Source,
		ProviderID: req.ProviderID,
	}
	got, err := s.svc.Tips(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": p.Name, "tips": got})
}

// usageResponse reports the quota alongside the raw counters.
type usageResponse struct {
	*model.UsageStats
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

func (s *Server) usage(w http.ResponseWriter, r *http.Request) {
	gov := s.svc.Governor
	stats, err := gov.Stats(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	remaining, err := gov.Remaining(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, usageResponse{UsageStats: stats, Limit: gov.Limit(), Remaining: remaining})
}

// decode reads and validates a JSON body, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validatorInstance().Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeError(w, http.StatusBadRequest, "invalid field "+verrs[0].Namespace()+": "+verrs[0].Tag())
			return false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, usage.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, tips.ErrNoTips), errors.Is(err, provider.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, provider.ErrMisconfigured):
		return http.StatusBadGateway
	case errors.Is(err, provider.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := http.StatusText(status)
	switch status {
	case http.StatusTooManyRequests:
		msg = "monthly search quota exceeded"
	case http.StatusInternalServerError, http.StatusBadGateway:
		zap.L().Error("api: request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.String("error", eris.ToString(err, false)),
		)
	}
	writeError(w, status, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // HTTP response write errors are not recoverable
	json.NewEncoder(w).Encode(v)
}
