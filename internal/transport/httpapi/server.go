// Package httpapi serves the chat pipeline over HTTP with chi.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pdfrag/internal/domain"
	logpkg "pdfrag/internal/logger"
	"pdfrag/internal/metrics"
	"pdfrag/internal/port"
)

const (
	maxBodyBytes = 1 << 20
	pingTimeout  = 5 * time.Second
)

// Chatter handles one raw user message. Implemented by usecase.Controller.
type Chatter interface {
	Handle(ctx context.Context, raw string) (domain.Reply, error)
}

// Server exposes POST /chat, GET /healthz and GET /metrics.
type Server struct {
	chat    Chatter
	store   port.VectorStore
	pingers map[string]port.Pinger
	logger  *zap.Logger
}

// NewServer creates the HTTP API. pingers are checked by /healthz under their map key.
func NewServer(chat Chatter, store port.VectorStore, pingers map[string]port.Pinger, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{chat: chat, store: store, pingers: pingers, logger: logger}
}

// Router builds the chi router with recovery, request ids, request logging and metrics.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())

	r.Post("/chat", s.Chat)
	r.Get("/healthz", s.Health)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Message  string   `json:"message"`
	Response string   `json:"response"`
	Sources  []string `json:"sources"`
	Error    string   `json:"error,omitempty"`
}

// Chat handles POST /chat. The message comes from a JSON body or the
// "message" form field. Pipeline errors are reported in the body with status 200.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	message, err := readMessage(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, chatResponse{Sources: []string{}, Error: "invalid request body: " + err.Error()})
		return
	}

	log := logpkg.FromContext(r.Context())
	if domain.ParseCommand(message).Kind == domain.CommandPopulate {
		// ingestion can take longer than the server write timeout
		if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
			log.Warn("Failed to lift write deadline for populate", zap.Error(err))
		}
	}
	reply, err := s.chat.Handle(r.Context(), message)

	resp := chatResponse{
		Message:  message,
		Response: reply.Text,
		Sources:  reply.Sources,
	}
	if resp.Sources == nil {
		resp.Sources = []string{}
	}
	if err != nil {
		log.Warn("Chat request failed", zap.Stringer("command", reply.Command.Kind), zap.Error(err))
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func readMessage(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", err
		}
		return req.Message, nil
	}

	if err := r.ParseForm(); err != nil {
		return "", err
	}
	return r.PostFormValue("message"), nil
}

type healthResponse struct {
	Status  string            `json:"status"`
	Records int               `json:"records"`
	Checks  map[string]string `json:"checks"`
}

// Health handles GET /healthz.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Checks: map[string]string{}}

	count, err := s.store.Count()
	if err != nil {
		resp.Checks["store"] = err.Error()
		resp.Status = "degraded"
	} else {
		resp.Records = count
		resp.Checks["store"] = "ok"
	}

	names := make([]string, 0, len(s.pingers))
	for name := range s.pingers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		err := s.pingers[name].Ping(ctx)
		cancel()
		if err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// Options configures ListenAndServe.
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, opts Options) error {
	srv := &http.Server{
		Addr:         opts.Addr,
		Handler:      s.Router(),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", opts.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Received shutdown signal")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("Server stopped gracefully")
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// jsonRecoverer returns a JSON 500 instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits one canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			if strings.HasPrefix(r.URL.Path, "/metrics") {
				return
			}
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
