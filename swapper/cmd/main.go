package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/DmitryKodolbenko/ton-dev-study-tma/swapper/config"
	litequery "github.com/DmitryKodolbenko/ton-dev-study-tma/swapper/lite_query"
	"github.com/DmitryKodolbenko/ton-dev-study-tma/swapper/rpc"
)

var log zerolog.Logger

func init() {
	// Initialize zerolog with console writer
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Logger()

	// Share the logger with the RPC package
	rpc.SetLogger(log)
}

func main() {
	configRpc := flag.String("config-rpc", "", "toml config file for the rpc server, SWAPPER_* env vars are used when empty")
	configSwap := flag.String("config-swap", "", "swap defaults file (toml or json), overrides swap_config_path")
	flag.Parse()

	log.Info().
		Str("rpc_config", *configRpc).
		Str("swap_config", *configSwap).
		Msg("Starting TON Swapper")

	var rpcConfigPath *string
	if *configRpc != "" {
		rpcConfigPath = configRpc
	}
	rpcConfig, err := config.LoadRPCSwapperConfig(rpcConfigPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load RPC config")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to liteservers, the first config URL is primary and the rest are backups
	failover := litequery.DefaultFailoverConfig()
	failover.Timeout = rpcConfig.LiteserverTimeout
	failover.MaxRetries = rpcConfig.LiteserverRetries

	connectCtx, connectCancel := context.WithTimeout(ctx, 30*time.Second)
	liteClient, err := litequery.NewLiteQueryClientWithFailover(
		connectCtx,
		rpcConfig.LiteserverConfigURLs[0],
		rpcConfig.LiteserverConfigURLs[1:],
		failover,
	)
	connectCancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to liteservers")
	}
	defer liteClient.Close()

	swapConfigPath := rpcConfig.SwapConfigPath
	if *configSwap != "" {
		swapConfigPath = *configSwap
	}
	swapper, err := config.NewSwapConfigLoader().InitializeSwapper(swapConfigPath, liteClient.API())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize swapper")
	}

	server, err := rpc.NewServer(ctx, buildServerConfig(rpcConfig), swapper, liteClient)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create RPC server")
	}

	// Setup signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Server error")
			sigCh <- syscall.SIGTERM
		}
	}()

	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
}

// buildServerConfig converts the loaded RPCSwapperConfig to rpc.ServerConfig
func buildServerConfig(cfg *config.RPCSwapperConfig) *rpc.ServerConfig {
	serverConfig := &rpc.ServerConfig{
		Address:        net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		AllowedOrigins: cfg.AllowedOrigins,
		EnableMetrics:  cfg.UsePrometheus, // Enable metrics endpoint if prometheus is enabled
	}

	// Set rate limiting if configured
	if cfg.RatePerMinute > 0 {
		serverConfig.RatePerMinute = &cfg.RatePerMinute
	}
	if cfg.MaxConcurrentRequests > 0 {
		serverConfig.MaxConcurrentRequests = &cfg.MaxConcurrentRequests
	}

	// Set OpenTelemetry configuration if any telemetry is enabled
	if cfg.EnableTracing || cfg.EnableMetrics || cfg.EnableLogs || cfg.UsePrometheus {
		serverConfig.OTelConfig = &rpc.OTelConfig{
			ServiceName:     defaultString(cfg.ServiceName, "ton-swapper"),
			ServiceVersion:  defaultString(cfg.ServiceVersion, "0.1.0"),
			Environment:     defaultString(cfg.Environment, "development"),
			EnableTracing:   cfg.EnableTracing,
			UseOTLPTraces:   cfg.UseOTLPTraces,
			OTLPTracesURL:   cfg.OTLPTracesURL,
			EnableMetrics:   cfg.EnableMetrics,
			UsePrometheus:   cfg.UsePrometheus,
			UseOTLPMetrics:  cfg.UseOTLPMetrics,
			OTLPMetricsURL:  cfg.OTLPMetricsURL,
			EnableLogs:      cfg.EnableLogs,
			UseOTLPLogs:     cfg.UseOTLPLogs,
			OTLPLogsURL:     cfg.OTLPLogsURL,
			InsecureOTLP:    cfg.InsecureOTLP,
			DevelopmentMode: cfg.DevelopmentMode,
		}
	}

	return serverConfig
}

// defaultString returns the default value if s is empty
func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
