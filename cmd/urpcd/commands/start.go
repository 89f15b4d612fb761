package commands

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/marmos91/urpc/internal/logger"
	"github.com/marmos91/urpc/internal/metrics"
	"github.com/marmos91/urpc/internal/server"
	"github.com/marmos91/urpc/internal/transport/urpcshm"
	"github.com/marmos91/urpc/internal/transport/urpctcp"
	"github.com/marmos91/urpc/internal/transport/urpcudp"
	"github.com/marmos91/urpc/internal/urpcuri"
	"github.com/marmos91/urpc/pkg/config"
)

var (
	foreground bool
	pidFile    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the uRPC server",
	Long: `Start the uRPC server bound to the transport named by the configured
transport URI.

By default urpcd runs in the foreground. Use --pid-file to have it
record its PID for a supervisor or for "urpcd stop" to find it later.

Examples:
  # Start with the default config
  urpcd start

  # Start with a custom config file
  urpcd start --config /etc/urpc/config.yaml

  # Start with an environment variable override
  URPC_TRANSPORT_URI=udp://*:9001/ urpcd start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", true, "Run in foreground")
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file (default: none)")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	endpoint, err := urpcuri.Parse(cfg.Transport.URI)
	if err != nil {
		return fmt.Errorf("invalid transport.uri %q: %w", cfg.Transport.URI, err)
	}

	transport, err := bindTransport(endpoint, cfg)
	if err != nil {
		return fmt.Errorf("failed to bind transport %q: %w", cfg.Transport.URI, err)
	}

	reg := prometheus.NewRegistry()
	var m *metrics.Metrics
	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		m = metrics.New(reg)
		metricsSrv = startMetricsServer(reg, cfg.Metrics.Port)
	}

	srv := server.New(server.Config{
		ThreadsNum:  cfg.Server.ThreadsNum,
		MaxClients:  cfg.Server.MaxClients,
		MaxDataSize: cfg.Server.MaxDataSize,
		Timeout:     cfg.Server.Timeout,
	}, m)

	if err := srv.Bind(transport); err != nil {
		return fmt.Errorf("failed to bind server: %w", err)
	}

	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	logger.Info("urpcd started", "uri", cfg.Transport.URI, "threads", cfg.Server.ThreadsNum)
	fmt.Printf("urpcd listening on %s\n", cfg.Transport.URI)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	signal.Stop(sigChan)

	logger.Info("shutdown signal received, draining workers")
	if err := srv.Shutdown(); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if metricsSrv != nil {
		_ = metricsSrv.Close()
	}
	logger.Info("urpcd stopped")

	return nil
}

// bindTransport starts listening on endpoint, returning the concrete
// server.Transport implementation the scheme selects.
func bindTransport(endpoint urpcuri.Endpoint, cfg *config.Config) (server.Transport, error) {
	switch endpoint.Scheme {
	case urpcuri.SchemeTCP:
		return urpctcp.Listen(endpoint.HostPort, cfg.Server.ThreadsNum, cfg.Server.MaxClients, cfg.Server.MaxDataSize, cfg.Server.Timeout)
	case urpcuri.SchemeUDP:
		return urpcudp.Listen(endpoint.HostPort, cfg.Server.ThreadsNum, cfg.Server.MaxDataSize)
	case urpcuri.SchemeSHM:
		return urpcshm.Listen(endpoint.Name, cfg.Server.ThreadsNum, cfg.Server.MaxDataSize)
	default:
		return nil, fmt.Errorf("unsupported scheme %q", endpoint.Scheme)
	}
}

// startMetricsServer exposes reg's metrics over HTTP on port, returning
// the server so the caller can close it on shutdown.
func startMetricsServer(reg *prometheus.Registry, port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	return srv
}
