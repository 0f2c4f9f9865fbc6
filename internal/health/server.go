// Package health exposes a lightweight HTTP health endpoint for container probes.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"tg_monitor_bot/internal/logging"
)

const (
	mongoPingTimeout   = 2 * time.Second
	readHeaderTimeout  = 2 * time.Second
	healthListenPrefix = ":"
)

// Mongo status values reported by /healthz.
const (
	MongoOK       = "ok"
	MongoError    = "error"
	MongoDisabled = "disabled"
)

// MongoChecker defines the subset of MongoDB client behavior required for health.
type MongoChecker interface {
	Ping(ctx context.Context) error
}

// SenderCounter reports how many senders the bot has recorded.
type SenderCounter interface {
	CountUsers(ctx context.Context) (int64, error)
	CountAuthorized(ctx context.Context) (int64, error)
}

// Option configures a Server.
type Option func(*Server)

// WithMongoChecker enables the mongo ping. Without it mongo is reported as
// disabled and does not degrade the status.
func WithMongoChecker(checker MongoChecker) Option {
	return func(s *Server) {
		s.mongoChecker = checker
	}
}

// WithSenderCounter adds recorded sender counts to the response.
func WithSenderCounter(counter SenderCounter) Option {
	return func(s *Server) {
		s.senders = counter
	}
}

// WithRosterSize reports the number of authorized chat ids loaded at startup.
func WithRosterSize(size int) Option {
	return func(s *Server) {
		s.rosterSize = size
	}
}

// Server hosts the health endpoint and owns the underlying HTTP server.
type Server struct {
	server       *http.Server
	logger       *logrus.Entry
	mongoChecker MongoChecker
	senders      SenderCounter
	rosterSize   int
}

type response struct {
	Status         string `json:"status"`
	Mongo          string `json:"mongo"`
	RosterSize     int    `json:"roster_size"`
	KnownSenders   *int64 `json:"known_senders,omitempty"`
	AuthorizedSeen *int64 `json:"authorized_senders,omitempty"`
}

// NewServer constructs a health server that exposes GET /healthz on the provided port.
func NewServer(port int, logger *logrus.Entry, opts ...Option) *Server {
	if logger == nil {
		logger = logging.Logger()
	}

	srv := &Server{logger: logger}
	for _, opt := range opts {
		opt(srv)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealth)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf("%s%d", healthListenPrefix, port),
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return srv
}

// ListenAndServe starts the health server and blocks until shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.WithFields(logging.Fields{
		"event": "health_listen",
		"addr":  s.server.Addr,
	}).Info("starting health server")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("health server listen: %w", err)
	}

	s.logger.WithField("event", "health_stopped").Info("health server stopped")
	return nil
}

// Shutdown gracefully stops the health server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}

	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := response{
		Status:     "ok",
		Mongo:      MongoDisabled,
		RosterSize: s.rosterSize,
	}

	ctx, cancel := context.WithTimeout(r.Context(), mongoPingTimeout)
	defer cancel()

	if s.mongoChecker != nil {
		resp.Mongo = MongoOK
		if err := s.mongoChecker.Ping(ctx); err != nil {
			resp.Mongo = MongoError
			resp.Status = "degraded"
			s.logger.WithField("event", "health_mongo_error").WithError(err).Warn("mongo ping failed during health check")
		}
	}

	if s.senders != nil && resp.Mongo != MongoError {
		s.fillSenderCounts(ctx, &resp)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.WithField("event", "health_write_error").WithError(err).Error("failed to encode health response")
	}
}

func (s *Server) fillSenderCounts(ctx context.Context, resp *response) {
	known, err := s.senders.CountUsers(ctx)
	if err != nil {
		s.logger.WithField("event", "health_stats_error").WithError(err).Warn("failed to count senders")
		return
	}
	resp.KnownSenders = &known

	authorized, err := s.senders.CountAuthorized(ctx)
	if err != nil {
		s.logger.WithField("event", "health_stats_error").WithError(err).Warn("failed to count authorized senders")
		return
	}
	resp.AuthorizedSeen = &authorized
}
