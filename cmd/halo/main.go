package main

import (
	"flag"
	"fmt"
	"net/netip"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/zde37/halo/internal/api"
	"github.com/zde37/halo/internal/config"
	"github.com/zde37/halo/internal/dht"
	"github.com/zde37/halo/internal/metrics/prom"
	"github.com/zde37/halo/internal/ring"
	"github.com/zde37/halo/internal/transport"
	"github.com/zde37/halo/pkg"
)

func main() {
	// Parse command-line flags
	host := flag.String("host", "127.0.0.1", "IPv4 address to bind to")
	port := flag.Int("port", 1400, "UDP port for overlay messages")
	httpPort := flag.Int("http-port", 8080, "Port for the HTTP admin server")
	id := flag.Int("id", -1, "Ring identifier (0-65535), -1 derives it from host:port")
	bootstrap := flag.String("bootstrap", "", "Bootstrap peer address (host:port) to join through")
	bootstrapID := flag.Int("bootstrap-id", -1, "Bootstrap peer's ring identifier, -1 derives it from its address")
	logLevel := flag.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	logFormat := flag.String("log-format", "console", "Log format (json, console)")
	flag.Parse()

	cfg := &config.Config{
		Host:          *host,
		Port:          *port,
		ID:            *id,
		HTTPPort:      *httpPort,
		Bootstrap:     *bootstrap,
		BootstrapID:   *bootstrapID,
		CacheSlots:    dht.DefaultCacheSlots,
		CacheValidity: dht.DefaultCacheValidity,
		LogLevel:      *logLevel,
		LogFormat:     *logFormat,
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logConfig := pkg.DefaultLogConfig()
	logConfig.Level = cfg.LogLevel
	logConfig.Format = cfg.LogFormat

	logger, err := pkg.NewLogger(logConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Int("http_port", cfg.HTTPPort).
		Msg("Starting Halo node")

	// Create the routing core
	node, err := dht.NewNode(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create node")
		os.Exit(1)
	}

	node.SetMetrics(prom.New(nil, "halo", nil))

	// Bind the UDP transport and wire it both ways
	udp, err := transport.NewUDPTransport(cfg.Host, cfg.Port, node, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to bind UDP transport")
		os.Exit(1)
	}
	node.SetSender(udp)

	// Create the HTTP admin server and feed it routing events
	server, err := api.NewServer(node, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create admin server")
		os.Exit(1)
	}
	node.SetBroadcaster(server.Hub())

	if err := server.Start(cfg.HTTPPort); err != nil {
		logger.Error().Err(err).Msg("Failed to start admin server")
		os.Exit(1)
	}

	var g errgroup.Group
	g.Go(udp.Serve)

	// Join through the bootstrap peer, or stand alone as a single-node ring
	if cfg.Bootstrap == "" {
		self := node.Self()
		node.SetPredecessor(self)
		node.SetSuccessor(self)
		logger.Info().Msg("Standalone ring created")
	} else {
		anchor, err := bootstrapPeer(cfg)
		if err != nil {
			logger.Error().Err(err).Str("bootstrap", cfg.Bootstrap).Msg("Invalid bootstrap peer")
			shutdown(udp, server, logger)
			os.Exit(1)
		}

		if err := node.Join(anchor); err != nil {
			logger.Error().Err(err).Msg("Failed to send join")
			shutdown(udp, server, logger)
			os.Exit(1)
		}
	}

	logger.Info().Msg("Halo node is ready")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info().
		Str("signal", sig.String()).
		Msg("Received shutdown signal")

	shutdown(udp, server, logger)

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("Transport stopped with error")
	}

	logger.Info().Msg("Halo node shutdown complete")
}

// bootstrapPeer builds the anchor peer from configuration. When no explicit
// identifier is configured it is derived from the address, the same way a
// node derives its own.
func bootstrapPeer(cfg *config.Config) (dht.Peer, error) {
	addrPort, err := netip.ParseAddrPort(cfg.Bootstrap)
	if err != nil {
		return dht.Peer{}, fmt.Errorf("parse bootstrap address: %w", err)
	}

	addr := addrPort.Addr().Unmap()
	if !addr.Is4() {
		return dht.Peer{}, fmt.Errorf("bootstrap address %s is not IPv4", addrPort)
	}

	id := ring.ID(cfg.BootstrapID)
	if cfg.BootstrapID < 0 {
		id = ring.Hash(cfg.Bootstrap)
	}

	return dht.NewPeer(id, addr, addrPort.Port()), nil
}

// shutdown performs graceful teardown of the transport and admin server.
func shutdown(udp *transport.UDPTransport, server *api.Server, logger *pkg.Logger) {
	if err := server.Stop(); err != nil {
		logger.Error().Err(err).Msg("Error stopping admin server")
	}

	if err := udp.Close(); err != nil {
		logger.Error().Err(err).Msg("Error closing UDP transport")
	}
}
