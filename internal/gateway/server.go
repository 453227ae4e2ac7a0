// Package gateway serves the HTTP API in front of the input preparer and the
// decryption queue.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/alexliesenfeld/health"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/luxfi/fhevm"
	"github.com/luxfi/fhevm/internal/preparer"
	"github.com/luxfi/fhevm/internal/queue"
	"github.com/luxfi/fhevm/internal/ratelimit"
	"github.com/luxfi/fhevm/internal/storage"
)

// maxBodyBytes bounds request bodies; every request is a few small fields.
const maxBodyBytes = 64 << 10

// Config wires the server's collaborators.
type Config struct {
	Preparer *preparer.Preparer
	Storage  storage.Storage
	Queue    queue.Queue
	Limiter  *ratelimit.Limiter
	Logger   *zap.Logger
	Metrics  *Metrics
	// Gatherer backs /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
}

// Server is the gateway HTTP API.
type Server struct {
	preparer  *preparer.Preparer
	validator *fhevm.Validator
	storage   storage.Storage
	queue     queue.Queue
	limiter   *ratelimit.Limiter
	log       *zap.Logger
	metrics   *Metrics
	gatherer  prometheus.Gatherer
	health    health.Checker
	newID     func() string
}

// New creates a Server.
func New(cfg Config) (*Server, error) {
	if cfg.Preparer == nil || cfg.Storage == nil || cfg.Queue == nil {
		return nil, errors.New("gateway requires a preparer, storage and queue")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(nil)
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		preparer:  cfg.Preparer,
		validator: cfg.Preparer.Validator(),
		storage:   cfg.Storage,
		queue:     cfg.Queue,
		limiter:   cfg.Limiter,
		log:       cfg.Logger,
		metrics:   cfg.Metrics,
		gatherer:  cfg.Gatherer,
		newID:     uuid.NewString,
	}
	s.health = health.NewChecker(
		health.WithTimeout(5*time.Second),
		health.WithCheck(health.Check{
			Name:  "storage",
			Check: s.checkStorage,
		}),
		health.WithCheck(health.Check{
			Name:  "queue",
			Check: s.checkQueue,
		}),
	)
	return s, nil
}

func (s *Server) checkStorage(ctx context.Context) error {
	_, err := s.storage.Exists(ctx, storage.ComputeHandle(nil))
	return err
}

func (s *Server) checkQueue(ctx context.Context) error {
	if p, ok := s.queue.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /health", health.NewHandler(s.health))
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	s.route(mux, "GET /types", "types", false, s.handleTypes)
	s.route(mux, "POST /validate/value", "validate_value", true, s.handleValidateValue)
	s.route(mux, "POST /validate/address", "validate_address", true, s.handleValidateAddress)
	s.route(mux, "POST /input", "input", true, s.handleInput)
	s.route(mux, "POST /decrypt", "decrypt", true, s.handleDecrypt)
	s.route(mux, "GET /job/{id}", "job", false, s.handleJob)

	return corsMiddleware(mux)
}

func (s *Server) route(mux *http.ServeMux, pattern, name string, limited bool, h http.HandlerFunc) {
	var handler http.Handler = h
	if limited && s.limiter != nil && s.limiter.Enabled() {
		handler = s.rateLimit(handler)
	}
	mux.Handle(pattern, s.instrument(name, handler))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		s.metrics.Requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		s.metrics.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
		s.log.Debug("request",
			zap.String("route", route),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", elapsed),
		)
	})
}

// clientKey identifies the caller for rate limiting.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		ok, err := s.limiter.Allow(r.Context(), key)
		if err != nil {
			// Fail open: a broken counter store must not take the API down.
			s.log.Warn("rate limiter unavailable", zap.String("client", key), zap.Error(err))
		} else if !ok {
			s.metrics.RateLimited.Inc()
			w.Header().Set("Retry-After", strconv.Itoa(int(s.limiter.Window().Seconds())))
			s.writeJSONError(w, http.StatusTooManyRequests,
				fmt.Sprintf("rate limit exceeded: %d requests per %s", s.limiter.Limit(), s.limiter.Window()), "rate_limited")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	// Keep large integers exact.
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		s.log.Debug("could not decode request body", zap.Error(err))
		s.writeJSONError(w, http.StatusBadRequest, "could not decode request body: "+err.Error(), "")
		return false
	}
	return true
}

// TypeInfo describes one supported type tag.
type TypeInfo struct {
	Type fhevm.TypeTag `json:"type"`
	Bits int           `json:"bits"`
	Max  string        `json:"max"`
}

func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request) {
	tags := fhevm.SupportedTypeTags()
	out := make([]TypeInfo, len(tags))
	for i, t := range tags {
		out[i] = TypeInfo{Type: t, Bits: t.Bits(), Max: t.Max().String()}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"types":   out,
		"default": s.validator.DefaultTag(),
	})
}

// ValidateValueRequest asks whether Value fits Type.
type ValidateValueRequest struct {
	Value any    `json:"value"`
	Type  string `json:"type,omitempty"`
}

// ValidateResponse is the answer to both validation endpoints.
type ValidateResponse struct {
	Valid bool `json:"valid"`
}

func (s *Server) handleValidateValue(w http.ResponseWriter, r *http.Request) {
	var req ValidateValueRequest
	if !s.decode(w, r, &req) {
		return
	}

	tag := s.validator.DefaultTag()
	if req.Type != "" {
		var err error
		if tag, err = fhevm.ParseTypeTag(req.Type); err != nil {
			s.writeError(w, err)
			return
		}
	}

	ok, err := s.validator.ValidateValue(req.Value, tag)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !ok {
		s.metrics.Rejections.WithLabelValues("out_of_range").Inc()
	}
	s.writeJSON(w, http.StatusOK, ValidateResponse{Valid: ok})
}

// ValidateAddressRequest asks whether Address is an address. Non-string
// JSON values are answered with false.
type ValidateAddressRequest struct {
	Address any `json:"address"`
}

func (s *Server) handleValidateAddress(w http.ResponseWriter, r *http.Request) {
	var req ValidateAddressRequest
	if !s.decode(w, r, &req) {
		return
	}
	ok := fhevm.IsAddress(req.Address)
	if !ok {
		s.metrics.Rejections.WithLabelValues("invalid_address").Inc()
	}
	s.writeJSON(w, http.StatusOK, ValidateResponse{Valid: ok})
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	var req preparer.InputRequest
	if !s.decode(w, r, &req) {
		return
	}

	in, err := s.preparer.Prepare(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, in)
}

// DecryptRequest asks for the plaintext behind Handle on behalf of User.
type DecryptRequest struct {
	Handle   string `json:"handle"`
	Contract string `json:"contract"`
	User     string `json:"user"`
}

// DecryptResponse names the job that will carry the result.
type DecryptResponse struct {
	JobID string `json:"jobId"`
}

func (s *Server) handleDecrypt(w http.ResponseWriter, r *http.Request) {
	var req DecryptRequest
	if !s.decode(w, r, &req) {
		return
	}

	contract, err := fhevm.ParseAddress(req.Contract)
	if err != nil {
		s.writeError(w, err)
		return
	}
	user, err := fhevm.ParseAddress(req.User)
	if err != nil {
		s.writeError(w, err)
		return
	}
	handle, err := storage.ParseHandle(req.Handle)
	if err != nil {
		s.writeError(w, err)
		return
	}

	rec, err := s.preparer.Load(r.Context(), handle)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := preparer.Authorize(rec, contract.Hex(), user.Hex()); err != nil {
		s.writeError(w, err)
		return
	}

	job := &queue.Job{
		ID:       s.newID(),
		Handle:   string(handle),
		Contract: contract.Hex(),
		User:     user.Hex(),
	}
	if err := s.queue.Push(r.Context(), job); err != nil {
		s.writeError(w, fmt.Errorf("enqueue decryption: %w", err))
		return
	}

	s.log.Info("decryption queued", zap.String("job", job.ID), zap.String("handle", job.Handle))
	s.writeJSON(w, http.StatusAccepted, DecryptResponse{JobID: job.ID})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		s.writeJSONError(w, http.StatusBadRequest, "job ID required", "")
		return
	}

	job, err := s.queue.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}
