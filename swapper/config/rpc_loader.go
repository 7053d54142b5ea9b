package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultLiteserverTimeout = 10 * time.Second
	defaultLiteserverRetries = 3
)

// LoadRPCSwapperConfig loads the RPC swapper config from the given path
func LoadRPCSwapperConfig(configPath *string) (*RPCSwapperConfig, error) {
	v := viper.New()
	setDefaults(v)

	if configPath == nil {
		// if no file expect envs
		config, err := loadEnv(v)
		if err != nil {
			return nil, fmt.Errorf("failed to load env config: %w", err)
		}
		return config, nil
	} else {
		config, err := loadFile(v, *configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load file config: %w", err)
		}
		return config, nil
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("liteserver_timeout", defaultLiteserverTimeout)
	v.SetDefault("liteserver_retries", defaultLiteserverRetries)
	v.SetDefault("service_name", "swapper")
}

func loadEnv(v *viper.Viper) (*RPCSwapperConfig, error) {
	// godot might fail if .env file is missing but
	// env can be applied through docker, systmed or other means, so skip error
	_ = godotenv.Load()
	v.SetEnvPrefix("SWAPPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	var config RPCSwapperConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal env config: %w", err)
	}
	if err := verifyConfig(&config); err != nil {
		return nil, fmt.Errorf("failed to verify config: %w", err)
	}
	return &config, nil
}

// bindEnvKeys binds each config key to its env var so Unmarshal sees env values
// when no config file is loaded (env-only mode).
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"port", "host", "allowed_origins",
		"rate_per_minute", "max_concurrent_requests",
		"service_name", "service_version", "environment",
		"enable_tracing", "use_otlp_traces", "otlp_traces_url",
		"enable_metrics", "use_prometheus", "use_otlp_metrics", "otlp_metrics_url",
		"enable_logs", "use_otlp_logs", "otlp_logs_url",
		"insecure_otlp", "development_mode",
		"liteserver_config_urls", "liteserver_timeout", "liteserver_retries",
		"swap_config_path",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

func loadFile(v *viper.Viper, configPath string) (*RPCSwapperConfig, error) {
	if !strings.HasSuffix(configPath, ".toml") {
		return nil, fmt.Errorf("config file must be a toml file")
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config RPCSwapperConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := verifyConfig(&config); err != nil {
		return nil, fmt.Errorf("failed to verify config: %w", err)
	}

	return &config, nil
}

func verifyConfig(config *RPCSwapperConfig) error {
	if config.Port <= 0 || config.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}

	if config.Host == "" {
		return fmt.Errorf("host is required")
	}

	if len(config.AllowedOrigins) == 0 {
		return fmt.Errorf("allowed_origins is required")
	}

	if len(config.LiteserverConfigURLs) == 0 {
		return fmt.Errorf("liteserver_config_urls is required")
	}

	for _, u := range config.LiteserverConfigURLs {
		if u == "" {
			return fmt.Errorf("liteserver_config_urls must not be empty")
		}
		if _, err := url.ParseRequestURI(u); err != nil {
			return fmt.Errorf("invalid liteserver config url %q: %w", u, err)
		}
	}

	if config.LiteserverTimeout <= 0 {
		return fmt.Errorf("liteserver_timeout must be positive")
	}

	if config.LiteserverRetries < 0 {
		return fmt.Errorf("liteserver_retries must not be negative")
	}

	return nil
}
