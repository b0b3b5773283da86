// Package server is the HTTP relay between the mobile client, the language
// model provider and the media CDN.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/companion/internal/llm"
	"github.com/rcliao/companion/internal/media"
	"github.com/rcliao/companion/internal/model"
	"github.com/rcliao/companion/internal/ratelimit"
	"github.com/rcliao/companion/internal/recall"
	"github.com/rcliao/companion/internal/store"
)

// Version is reported by the root endpoint.
const Version = "2.0.0"

const rateLimitMessage = "Rate limit exceeded. Please wait a moment."

// Completer generates replies. *llm.Client implements it.
type Completer interface {
	Complete(ctx context.Context, r llm.Request) (*llm.Response, error)
	Stream(ctx context.Context, r llm.Request, onDelta func(string) error) error
	DescribeImage(ctx context.Context, imageURL string) (string, error)
}

// Media signs uploads and manages stored assets. *media.Client implements it.
type Media interface {
	SignUpload(folder, resourceType string) (*media.UploadSignature, error)
	Resource(ctx context.Context, publicID, resourceType string) (*media.Resource, error)
	OptimizedURL(publicID, resourceType string) string
	ThumbnailURL(publicID, resourceType string) string
	Destroy(ctx context.Context, publicID, resourceType string) error
}

// Store is the slice of the companion store the relay persists to.
// *store.SQLiteStore implements it.
type Store interface {
	EnsurePersona(ctx context.Context, userID string) (*model.PersonaProfile, error)
	Context(ctx context.Context, userID string, maxMemories int) (*recall.Context, error)
	RecordMood(ctx context.Context, p store.RecordMoodParams) (*model.MoodEntry, error)
	ExtractFromMessage(ctx context.Context, p store.ExtractParams) ([]model.Memory, error)
}

// Config wires the relay's collaborators. LLM is required; Store, Media and
// Limiter are optional.
type Config struct {
	LLM          Completer
	Store        Store
	Media        Media
	Limiter      ratelimit.Limiter
	Logger       *zap.Logger
	Model        string // reported as the default by /ai/models
	HistoryLimit int
	MaxMemories  int

	ShutdownTimeout time.Duration
	// PruneInterval controls how often expired rate limit windows are dropped
	// when the limiter supports it. Zero disables pruning.
	PruneInterval time.Duration
}

// Server serves the relay API.
type Server struct {
	llm          Completer
	store        Store
	media        Media
	limiter      ratelimit.Limiter
	log          *zap.Logger
	model        string
	historyLimit int
	maxMemories  int

	shutdownTimeout time.Duration
	pruneInterval   time.Duration

	started time.Time
	now     func() time.Time
	mux     *http.ServeMux
}

// New creates a Server and registers its routes.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Model == "" {
		cfg.Model = llm.DefaultModel
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{
		llm:             cfg.LLM,
		store:           cfg.Store,
		media:           cfg.Media,
		limiter:         cfg.Limiter,
		log:             cfg.Logger,
		model:           cfg.Model,
		historyLimit:    cfg.HistoryLimit,
		maxMemories:     cfg.MaxMemories,
		shutdownTimeout: cfg.ShutdownTimeout,
		pruneInterval:   cfg.PruneInterval,
		started:         time.Now(),
		now:             time.Now,
		mux:             http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("POST /ai/chat", s.handleChat)
	s.mux.HandleFunc("POST /ai/chat/stream", s.handleChatStream)
	s.mux.HandleFunc("POST /ai/extract-memories", s.handleExtractMemories)
	s.mux.HandleFunc("POST /ai/special-message", s.handleSpecialMessage)
	s.mux.HandleFunc("POST /ai/analyze-image", s.handleAnalyzeImage)
	s.mux.HandleFunc("GET /ai/models", s.handleModels)

	if s.media != nil {
		s.mux.HandleFunc("POST /media/sign-upload", s.handleSignUpload)
		s.mux.HandleFunc("POST /media/verify-upload", s.handleVerifyUpload)
		s.mux.HandleFunc("DELETE /media/{publicId...}", s.handleDeleteMedia)
	}
}

// Handler returns the routes wrapped in the relay middleware.
func (s *Server) Handler() http.Handler {
	return s.withRequestLog(s.withCORS(s.withRateLimit(s.mux)))
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("relay listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		s.log.Info("relay shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if p, ok := s.limiter.(interface{ Prune() int }); ok && s.pruneInterval > 0 {
		g.Go(func() error {
			t := time.NewTicker(s.pruneInterval)
			defer t.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-t.C:
					if n := p.Prune(); n > 0 {
						s.log.Debug("pruned rate limit windows", zap.Int("count", n))
					}
				}
			}
		})
	}
	return g.Wait()
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"message":   "JIA AI Girlfriend API",
		"version":   Version,
		"timestamp": s.now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"uptime": time.Since(s.started).Seconds(),
	})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"available": llm.Models,
		"default":   s.model,
	})
}

// --- middleware ---

type ctxKey int

const requestIDKey ctxKey = iota

// RequestID returns the id assigned to the request by the relay.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = newRequestID()
		}
		w.Header().Set("X-Request-Id", id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey, id))

		start := time.Now()
		fields := []zap.Field{
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		}
		s.log.Info("request started", fields...)

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		s.log.Info("request finished", append(fields,
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))...)
	})
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Device-Id, X-User-Id")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit limits /ai/ routes per X-Device-Id. Limiter failures let the
// request through.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil || !strings.HasPrefix(r.URL.Path, "/ai/") {
			next.ServeHTTP(w, r)
			return
		}
		key := r.Header.Get("X-Device-Id")
		if key == "" {
			key = "anonymous"
		}
		d, err := s.limiter.Allow(r.Context(), key)
		if err != nil {
			s.log.Warn("rate limiter unavailable", zap.String("device", key), zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		if !d.Allowed {
			retry := int(time.Until(d.ResetAt).Seconds()) + 1
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			writeError(w, http.StatusTooManyRequests, rateLimitMessage)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- helpers ---

func newRequestID() string { return uuid.NewString() }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads a JSON body into v. An empty body leaves v unchanged
// when allowEmpty is set.
func decodeJSON(r *http.Request, v any, allowEmpty bool) error {
	err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(v)
	if allowEmpty && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
