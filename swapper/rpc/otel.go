package rpc

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

// OTelConfig configures OpenTelemetry exporters
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Traces
	EnableTracing    bool
	UseOTLPTraces    bool    // Use OTLP for traces (Jaeger, Tempo, etc.)
	OTLPTracesURL    string  // Default: localhost:4318
	TraceSampleRatio float64 // Fraction of root spans kept, 0 or 1 keeps all

	// Metrics
	EnableMetrics  bool
	UsePrometheus  bool   // Register OTel metrics on the /server/metrics registry
	UseOTLPMetrics bool   // Use OTLP for metrics
	OTLPMetricsURL string // Default: localhost:4318

	// Logs
	EnableLogs  bool
	UseOTLPLogs bool   // Use OTLP for logs (Loki, etc.)
	OTLPLogsURL string // Default: localhost:4318

	// InsecureOTLP allows unencrypted connections to OTLP endpoints.
	// Only set to true for local development or testing.
	InsecureOTLP bool

	// Optional TLS files used when connecting to the observability backend
	OTLPClientCertFile string // Client certificate (for mTLS)
	OTLPClientKeyFile  string // Client key (for mTLS)
	OTLPCACertFile     string // CA certificate to verify the backend

	// Development mode uses stdout exporters
	DevelopmentMode bool
}

// DefaultOTelConfig returns a sensible default configuration
func DefaultOTelConfig() *OTelConfig {
	return &OTelConfig{
		ServiceName:     "ton-swapper",
		ServiceVersion:  "0.1.0",
		Environment:     "production",
		EnableTracing:   true,
		UseOTLPTraces:   true,
		OTLPTracesURL:   "localhost:4318",
		EnableMetrics:   true,
		UsePrometheus:   true,
		OTLPMetricsURL:  "localhost:4318",
		EnableLogs:      false, // zerolog handles app logs
		OTLPLogsURL:     "localhost:4318",
		InsecureOTLP:    false,
		DevelopmentMode: false,
	}
}

// NewOTelSDK bootstraps the OpenTelemetry pipeline with the given configuration.
// If it does not return an error, make sure to call the shutdown function for proper cleanup.
func NewOTelSDK(ctx context.Context, config *OTelConfig) (func(context.Context) error, error) {
	if config == nil {
		config = DefaultOTelConfig()
	}

	var shutdownFuncs []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}
	fail := func(err error) (func(context.Context) error, error) {
		return shutdown, errors.Join(err, shutdown(ctx))
	}

	res, err := newResource(config)
	if err != nil {
		return shutdown, fmt.Errorf("failed to create resource: %w", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tlsConfig, err := buildTLSConfig(config)
	if err != nil {
		return shutdown, err
	}

	if config.EnableTracing {
		tracerProvider, err := newTracerProvider(ctx, res, config, tlsConfig)
		if err != nil {
			return fail(err)
		}
		shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)
		otel.SetTracerProvider(tracerProvider)
	}

	if config.EnableMetrics {
		meterProvider, err := newMeterProvider(ctx, res, config, tlsConfig)
		if err != nil {
			return fail(err)
		}
		shutdownFuncs = append(shutdownFuncs, meterProvider.Shutdown)
		otel.SetMeterProvider(meterProvider)
		if err := initInstruments(); err != nil {
			return fail(err)
		}
	}

	if config.EnableLogs {
		loggerProvider, err := newLoggerProvider(ctx, res, config, tlsConfig)
		if err != nil {
			return fail(err)
		}
		shutdownFuncs = append(shutdownFuncs, loggerProvider.Shutdown)
		global.SetLoggerProvider(loggerProvider)
	}

	Logger.Info().
		Bool("tracing", config.EnableTracing).
		Bool("metrics", config.EnableMetrics).
		Bool("logs", config.EnableLogs).
		Bool("development", config.DevelopmentMode).
		Msg("OpenTelemetry initialized")
	return shutdown, nil
}

// newResource creates a resource with service information
func newResource(config *OTelConfig) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			semconv.DeploymentEnvironmentName(config.Environment),
		),
	)
}

// buildTLSConfig creates a TLS configuration for OTLP client connections, nil when insecure
func buildTLSConfig(config *OTelConfig) (*tls.Config, error) {
	if config.InsecureOTLP {
		return nil, nil
	}

	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	if config.OTLPCACertFile != "" {
		caCert, err := os.ReadFile(config.OTLPCACertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to append CA certificate")
		}
		tlsConfig.RootCAs = caCertPool
	}

	if config.OTLPClientCertFile != "" && config.OTLPClientKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(config.OTLPClientCertFile, config.OTLPClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

func newSampler(ratio float64) trace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return trace.ParentBased(trace.AlwaysSample())
	}
	return trace.ParentBased(trace.TraceIDRatioBased(ratio))
}

func newTracerProvider(ctx context.Context, res *resource.Resource, config *OTelConfig, tlsConfig *tls.Config) (*trace.TracerProvider, error) {
	opts := []trace.TracerProviderOption{
		trace.WithResource(res),
		trace.WithSampler(newSampler(config.TraceSampleRatio)),
	}

	var exporter trace.SpanExporter
	var err error
	switch {
	case config.DevelopmentMode:
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case config.UseOTLPTraces:
		otlpOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(config.OTLPTracesURL)}
		if tlsConfig == nil {
			otlpOpts = append(otlpOpts, otlptracehttp.WithInsecure())
		} else {
			otlpOpts = append(otlpOpts, otlptracehttp.WithTLSClientConfig(tlsConfig))
		}
		exporter, err = otlptracehttp.New(ctx, otlpOpts...)
	default:
		// spans are still created for context propagation but not exported
		return trace.NewTracerProvider(opts...), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	opts = append(opts, trace.WithBatcher(exporter, trace.WithBatchTimeout(5*time.Second)))
	return trace.NewTracerProvider(opts...), nil
}

func newMeterProvider(ctx context.Context, res *resource.Resource, config *OTelConfig, tlsConfig *tls.Config) (*metric.MeterProvider, error) {
	opts := []metric.Option{metric.WithResource(res)}

	if config.UsePrometheus {
		prometheusExporter, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		opts = append(opts, metric.WithReader(prometheusExporter))
	}

	if config.UseOTLPMetrics {
		var exporter metric.Exporter
		var err error
		interval := 60 * time.Second
		if config.DevelopmentMode {
			exporter, err = stdoutmetric.New()
			interval = 10 * time.Second
		} else {
			otlpOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(config.OTLPMetricsURL)}
			if tlsConfig == nil {
				otlpOpts = append(otlpOpts, otlpmetrichttp.WithInsecure())
			} else {
				otlpOpts = append(otlpOpts, otlpmetrichttp.WithTLSClientConfig(tlsConfig))
			}
			exporter, err = otlpmetrichttp.New(ctx, otlpOpts...)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create metric exporter: %w", err)
		}
		opts = append(opts, metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(interval))))
	}

	return metric.NewMeterProvider(opts...), nil
}

func newLoggerProvider(ctx context.Context, res *resource.Resource, config *OTelConfig, tlsConfig *tls.Config) (*log.LoggerProvider, error) {
	var exporter log.Exporter
	var err error
	switch {
	case config.DevelopmentMode:
		exporter, err = stdoutlog.New()
	case config.UseOTLPLogs:
		otlpOpts := []otlploghttp.Option{otlploghttp.WithEndpoint(config.OTLPLogsURL)}
		if tlsConfig == nil {
			otlpOpts = append(otlpOpts, otlploghttp.WithInsecure())
		} else {
			otlpOpts = append(otlpOpts, otlploghttp.WithTLSClientConfig(tlsConfig))
		}
		exporter, err = otlploghttp.New(ctx, otlpOpts...)
	default:
		return log.NewLoggerProvider(log.WithResource(res)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create log exporter: %w", err)
	}

	return log.NewLoggerProvider(
		log.WithProcessor(log.NewBatchProcessor(exporter)),
		log.WithResource(res),
	), nil
}
