package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	streamPool  = "pool"
	streamSwaps = "swaps"
)

// Config holds the configuration for the server.
type Config struct {
	Pool     Pool
	Swaps    SwapFeed
	Differ   Differ
	Logger   Logger
	Registry prometheus.Registerer
	// Origins allowed to open websocket connections. Defaults to all.
	AllowedOrigins []string
}

// validate checks if the configuration is valid.
func (c *Config) validate() error {
	if c.Pool == nil {
		return errors.New("config: Pool is required")
	}
	if c.Swaps == nil {
		return errors.New("config: Swaps is required")
	}
	if c.Differ == nil {
		return errors.New("config: Differ is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.Registry == nil {
		return errors.New("config: Registry is required")
	}
	return nil
}

// Metrics holds the Prometheus metrics for the server.
type Metrics struct {
	subscribers  *prometheus.GaugeVec
	notifyErrors *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		subscribers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "amm_rpc_subscribers",
			Help: "Number of live RPC subscriptions, by stream.",
		}, []string{"stream"}),
		notifyErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "amm_rpc_notify_errors_total",
			Help: "Notifications that could not be delivered, by stream.",
		}, []string{"stream"}),
	}
	reg.MustRegister(m.subscribers, m.notifyErrors)
	return m
}

// Server exposes a pool over JSON-RPC, on HTTP for calls and websocket for subscriptions.
type Server struct {
	rpc     *rpc.Server
	origins []string
	logger  Logger
}

func New(cfg Config) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	api := &API{
		pool:    cfg.Pool,
		swaps:   cfg.Swaps,
		differ:  cfg.Differ,
		logger:  cfg.Logger,
		metrics: NewMetrics(cfg.Registry),
	}

	srv := rpc.NewServer()
	if err := srv.RegisterName(RpcNamespace, api); err != nil {
		return nil, fmt.Errorf("failed to register API: %w", err)
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{rpc: srv, origins: origins, logger: cfg.Logger}, nil
}

// RPC returns the underlying go-ethereum server, e.g. for rpc.DialInProc.
func (s *Server) RPC() *rpc.Server {
	return s.rpc
}

// Handler serves websocket upgrades and plain HTTP JSON-RPC on the same endpoint.
func (s *Server) Handler() http.Handler {
	ws := s.rpc.WebsocketHandler(s.origins)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isWebsocket(r) {
			ws.ServeHTTP(w, r)
			return
		}
		s.rpc.ServeHTTP(w, r)
	})
}

// Stop closes every open subscription and connection.
func (s *Server) Stop() {
	s.logger.Info("Stopping RPC server")
	s.rpc.Stop()
}

func isWebsocket(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket") &&
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}
