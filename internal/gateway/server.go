// Package gateway exposes sessions over websocket plus the operational
// HTTP surface (health and metrics).
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haasonsaas/concierge/internal/mail"
	"github.com/haasonsaas/concierge/internal/observability"
)

// Options configures the gateway server.
type Options struct {
	// ListenAddr is the bind address, e.g. ":8080".
	ListenAddr string

	// NewSession builds a session per websocket connection. Required.
	NewSession SessionFactory

	// Mailer backs the POST /mail passthrough. The endpoint returns 503
	// when unset.
	Mailer mail.Mailer

	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Server is the HTTP/websocket front of the service.
type Server struct {
	opts     Options
	logger   *slog.Logger
	server   *http.Server
	listener net.Listener
}

// NewServer builds a server. It does not bind until Listen.
func NewServer(opts Options) (*Server, error) {
	if opts.NewSession == nil {
		return nil, errors.New("gateway: session factory is required")
	}
	if opts.ListenAddr == "" {
		opts.ListenAddr = ":8080"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "gateway")

	s := &Server{opts: opts, logger: logger}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/mail", s.handleMail)
	mux.Handle("/ws", newWSHandler(opts.NewSession, logger, opts.Metrics))

	s.server = &http.Server{
		Addr:              opts.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Listen binds the listener. It must be called, from the same goroutine
// that will read Addr, before Serve; Serve is typically run in its own
// goroutine and never touches the listener field again.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.opts.ListenAddr)
	if err != nil {
		return fmt.Errorf("gateway: listen: %w", err)
	}
	s.listener = listener
	return nil
}

// Serve accepts connections on the bound listener until Shutdown or a fatal
// error.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("gateway: Serve called before Listen")
	}
	s.logger.Info("starting http server", "addr", s.listener.Addr().String())
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("gateway: serve: %w", err)
	}
	return nil
}

// Addr returns the bound address, or "" before Listen.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown drains in-flight requests within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("gateway: shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// handleMail accepts {to, subject, text} and hands it to the notifier.
func (s *Server) handleMail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.opts.Mailer == nil {
		http.Error(w, "mail is not configured", http.StatusServiceUnavailable)
		return
	}

	var msg mail.Message
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&msg); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.opts.Mailer.Send(r.Context(), msg); err != nil {
		s.logger.Warn("mail passthrough failed", "to", msg.To, "error", err)
		if errors.Is(err, mail.ErrNoRecipient) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "mail delivery failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"sent"}`))
}
