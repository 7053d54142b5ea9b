package litequery

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/xssnick/tonutils-go/liteclient"
	"github.com/xssnick/tonutils-go/ton"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "liteserver").Logger()
}

// LiteQueryClient provides access to TON liteservers with failover support.
// The liteservers are taken from a global network config; when the primary config
// cannot be used the backup configs are tried in order.
type LiteQueryClient struct {
	pool           *liteclient.ConnectionPool
	api            ton.APIClientWrapped
	activeURL      string
	healthy        atomic.Bool
	healthChecker  *healthChecker
	failoverConfig FailoverConfig
}

// FailoverConfig controls failover behavior
type FailoverConfig struct {
	// MaxRetries is the number of times a failed liteserver query is retried
	MaxRetries int
	// HealthCheckInterval is how often the liteservers are probed
	HealthCheckInterval time.Duration
	// Timeout is the per query timeout
	Timeout time.Duration
}

// DefaultFailoverConfig returns sensible defaults for failover behavior
func DefaultFailoverConfig() FailoverConfig {
	return FailoverConfig{
		MaxRetries:          3,
		HealthCheckInterval: 30 * time.Second,
		Timeout:             10 * time.Second,
	}
}

// healthChecker periodically checks if the liteservers answer
type healthChecker struct {
	client    *LiteQueryClient
	stopCh    chan struct{}
	stoppedCh chan struct{}
	isRunning bool
	mu        sync.Mutex
}

// NewLiteQueryClient creates a new LiteQueryClient from a single global config URL
func NewLiteQueryClient(ctx context.Context, configURL string) (*LiteQueryClient, error) {
	return NewLiteQueryClientWithFailover(ctx, configURL, nil, DefaultFailoverConfig())
}

// NewLiteQueryClientWithFailover creates a new LiteQueryClient trying the backup config URLs
// when the primary one cannot be loaded
func NewLiteQueryClientWithFailover(
	ctx context.Context,
	primaryURL string,
	backupURLs []string,
	config FailoverConfig,
) (*LiteQueryClient, error) {
	urls := make([]string, 0, len(backupURLs)+1)
	for _, u := range append([]string{primaryURL}, backupURLs...) {
		if _, err := url.ParseRequestURI(u); err != nil {
			log.Warn().Err(err).Str("url", u).Msg("Invalid liteserver config URL, skipping")
			continue
		}
		urls = append(urls, u)
	}
	if len(urls) == 0 {
		return nil, errors.New("no valid liteserver config URL")
	}

	var lastErr error
	for _, u := range urls {
		pool := liteclient.NewConnectionPool()
		if err := pool.AddConnectionsFromConfigUrl(ctx, u); err != nil {
			log.Warn().Err(err).Str("url", u).Msg("Failed to connect to liteservers, trying next config")
			lastErr = err
			continue
		}

		api := ton.NewAPIClient(pool, ton.ProofCheckPolicyFast).
			WithRetry(config.MaxRetries).
			WithTimeout(config.Timeout)

		client := &LiteQueryClient{
			pool:           pool,
			api:            api,
			activeURL:      u,
			failoverConfig: config,
		}
		client.healthy.Store(true)
		if config.HealthCheckInterval > 0 {
			client.startHealthChecker()
		}

		log.Info().
			Str("config", u).
			Int("retries", config.MaxRetries).
			Dur("timeout", config.Timeout).
			Msg("Liteserver client initialized")
		return client, nil
	}

	return nil, fmt.Errorf("failed to connect to liteservers from %d configs: %w", len(urls), lastErr)
}

// API returns the liteserver API client
func (c *LiteQueryClient) API() ton.APIClientWrapped {
	return c.api
}

// ActiveConfigURL returns the config URL the liteservers were loaded from
func (c *LiteQueryClient) ActiveConfigURL() string {
	return c.activeURL
}

// Healthy reports the result of the last health check
func (c *LiteQueryClient) Healthy() bool {
	return c.healthy.Load()
}

// Close stops the health checker and the liteserver connections
func (c *LiteQueryClient) Close() {
	if c.healthChecker != nil {
		c.healthChecker.stop()
	}
	c.pool.Stop()
}

// startHealthChecker starts the background health checker goroutine
func (c *LiteQueryClient) startHealthChecker() {
	c.healthChecker = &healthChecker{
		client:    c,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
	c.healthChecker.start()
}

func (h *healthChecker) start() {
	h.mu.Lock()
	if h.isRunning {
		h.mu.Unlock()
		return
	}
	h.isRunning = true
	h.mu.Unlock()

	go func() {
		defer close(h.stoppedCh)
		ticker := time.NewTicker(h.client.failoverConfig.HealthCheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-h.stopCh:
				return
			case <-ticker.C:
				h.check()
			}
		}
	}()
}

func (h *healthChecker) stop() {
	h.mu.Lock()
	if !h.isRunning {
		h.mu.Unlock()
		return
	}
	h.isRunning = false
	h.mu.Unlock()

	close(h.stopCh)
	<-h.stoppedCh
}

// check asks the liteservers for the latest masterchain block
func (h *healthChecker) check() {
	ctx, cancel := context.WithTimeout(context.Background(), h.client.failoverConfig.Timeout)
	defer cancel()

	block, err := h.client.api.CurrentMasterchainInfo(ctx)
	wasHealthy := h.client.healthy.Swap(err == nil)
	if err != nil {
		log.Debug().Err(err).Msg("Health check failed")
		if wasHealthy {
			log.Warn().Err(err).Str("config", h.client.activeURL).Msg("Liteservers became unhealthy")
		}
		return
	}

	if !wasHealthy {
		log.Info().Uint32("seqno", block.SeqNo).Msg("Liteservers healthy again")
	}
}
