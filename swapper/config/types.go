package config

import "time"

type RPCSwapperConfig struct {
	// rpc configs
	Port int    `toml:"port" mapstructure:"port"`
	Host string `toml:"host" mapstructure:"host"`

	// CORS configs
	AllowedOrigins []string `toml:"allowed_origins" mapstructure:"allowed_origins"`

	// rate limiting configs
	RatePerMinute         int `toml:"rate_per_minute" mapstructure:"rate_per_minute"`
	MaxConcurrentRequests int `toml:"max_concurrent_requests" mapstructure:"max_concurrent_requests"`

	// OpenTelemetry configs
	ServiceName    string `toml:"service_name" mapstructure:"service_name"`
	ServiceVersion string `toml:"service_version" mapstructure:"service_version"`
	Environment    string `toml:"environment" mapstructure:"environment"` // PROD, DEV, TEST, LOCAL
	EnableTracing  bool   `toml:"enable_tracing" mapstructure:"enable_tracing"`
	UseOTLPTraces  bool   `toml:"use_otlp_traces" mapstructure:"use_otlp_traces"`
	OTLPTracesURL  string `toml:"otlp_traces_url" mapstructure:"otlp_traces_url"`
	EnableMetrics  bool   `toml:"enable_metrics" mapstructure:"enable_metrics"`
	UsePrometheus  bool   `toml:"use_prometheus" mapstructure:"use_prometheus"`
	UseOTLPMetrics bool   `toml:"use_otlp_metrics" mapstructure:"use_otlp_metrics"`
	OTLPMetricsURL string `toml:"otlp_metrics_url" mapstructure:"otlp_metrics_url"`
	EnableLogs     bool   `toml:"enable_logs" mapstructure:"enable_logs"`
	UseOTLPLogs    bool   `toml:"use_otlp_logs" mapstructure:"use_otlp_logs"`
	OTLPLogsURL    string `toml:"otlp_logs_url" mapstructure:"otlp_logs_url"`

	InsecureOTLP bool `toml:"insecure_otlp" mapstructure:"insecure_otlp"`

	// Development mode uses stdout exporters
	DevelopmentMode bool `toml:"development_mode" mapstructure:"development_mode"`

	// TON liteserver configs, the first global config URL is primary and the rest are backups
	LiteserverConfigURLs []string      `toml:"liteserver_config_urls" mapstructure:"liteserver_config_urls"`
	LiteserverTimeout    time.Duration `toml:"liteserver_timeout" mapstructure:"liteserver_timeout"`
	LiteserverRetries    int           `toml:"liteserver_retries" mapstructure:"liteserver_retries"`

	// Optional path to the swap defaults file
	SwapConfigPath string `toml:"swap_config_path" mapstructure:"swap_config_path"`
}

// SwapConfig is the swap defaults file
type SwapConfig struct {
	Swap SwapSection `toml:"swap" json:"swap"`
}

// SwapSection holds the parameters used to build swaps
type SwapSection struct {
	SlippageBps    uint32 `toml:"slippage_bps" json:"slippage_bps"`
	GasReserve     string `toml:"gas_reserve" json:"gas_reserve"` // TON amount, e.g. "0.5"
	FactoryAddress string `toml:"factory_address" json:"factory_address"`
	QueryID        uint64 `toml:"query_id" json:"query_id"`
	PoolType       string `toml:"pool_type" json:"pool_type"` // volatile or stable
}
