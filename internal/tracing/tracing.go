// Package tracing exports OpenTelemetry spans over OTLP gRPC. It is
// only active in server mode; CLI diagnosis runs do not trace.
package tracing

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/incidentlab/responder/internal/logging"
)

// TracingProvider wraps the OpenTelemetry TracerProvider and implements
// lifecycle.Component.
type TracingProvider struct {
	tracerProvider *sdktrace.TracerProvider
	logger         *logging.Logger
	enabled        bool
}

// Config holds tracing configuration.
type Config struct {
	Enabled     bool
	Endpoint    string // OTLP gRPC endpoint (e.g., "otel-collector:4317")
	TLSCAPath   string // Path to CA certificate for TLS verification (optional)
	TLSInsecure bool   // Skip TLS certificate verification (insecure)
}

// NewTracingProvider creates and initializes the tracing provider.
// A disabled provider is valid and hands out no-op tracers.
func NewTracingProvider(cfg Config) (*TracingProvider, error) {
	logger := logging.GetLogger("tracing")

	if !cfg.Enabled {
		logger.Info("Tracing disabled by configuration")
		return &TracingProvider{
			logger:  logger,
			enabled: false,
		}, nil
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("tracing enabled but endpoint not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exporter, err := newExporter(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName("responder"),
		semconv.ServiceVersion("0.1.0"),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	// Diagnosis traffic is low-volume; sample everything.
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tracerProvider)

	logger.Info("Tracing exporting to %s", cfg.Endpoint)

	return &TracingProvider{
		tracerProvider: tracerProvider,
		logger:         logger,
		enabled:        true,
	}, nil
}

// newExporter builds the OTLP gRPC exporter with the configured
// transport security. The connection itself is established lazily by
// the batcher, so construction succeeds even without a collector.
func newExporter(ctx context.Context, cfg Config, logger *logging.Logger) (sdktrace.SpanExporter, error) {
	creds, plaintext, err := dialCredentials(cfg, logger)
	if err != nil {
		return nil, err
	}

	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(creds)),
	}
	if plaintext {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return otlptracegrpc.New(ctx, opts...)
}

// dialCredentials resolves the transport credentials for the collector
// connection. The second return reports a plaintext channel, which the
// OTLP client needs to be told about separately.
func dialCredentials(cfg Config, logger *logging.Logger) (credentials.TransportCredentials, bool, error) {
	switch {
	case cfg.TLSInsecure:
		logger.Warn("TLS certificate verification disabled for tracing")
		tlsCfg := &tls.Config{
			InsecureSkipVerify: true, // #nosec G402 -- explicit opt-in via TLSInsecure
			MinVersion:         tls.VersionTLS12,
		}
		return credentials.NewTLS(tlsCfg), false, nil

	case cfg.TLSCAPath != "":
		pool, err := loadCAPool(cfg.TLSCAPath)
		if err != nil {
			return nil, false, err
		}
		logger.Info("TLS enabled for tracing with CA from: %s", cfg.TLSCAPath)
		return credentials.NewTLS(&tls.Config{
			RootCAs:    pool,
			MinVersion: tls.VersionTLS12,
		}), false, nil

	default:
		logger.Info("TLS disabled for tracing (insecure mode)")
		return insecure.NewCredentials(), true, nil
	}
}

// loadCAPool reads a PEM bundle into a certificate pool.
func loadCAPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path) // #nosec G304 -- CA path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", path)
	}
	return pool, nil
}

// Start implements lifecycle.Component. Exporting is already running
// once the provider exists, so there is nothing to bring up here.
func (tp *TracingProvider) Start(ctx context.Context) error {
	if !tp.enabled {
		tp.logger.Info("Tracing disabled, nothing to start")
		return nil
	}
	tp.logger.Info("Tracing provider running")
	return nil
}

// Stop flushes remaining spans and shuts the exporter down.
func (tp *TracingProvider) Stop(ctx context.Context) error {
	if !tp.enabled {
		return nil
	}

	tp.logger.Info("Flushing spans and stopping tracing")
	if err := tp.tracerProvider.Shutdown(ctx); err != nil {
		tp.logger.Error("Error shutting down tracer provider: %v", err)
		return err
	}
	tp.logger.Info("Tracing provider stopped")
	return nil
}

// Name implements lifecycle.Component.
func (tp *TracingProvider) Name() string {
	return "Tracing Provider"
}

// GetTracer returns a tracer for instrumenting code. Works in disabled
// mode too; spans are then no-ops.
func (tp *TracingProvider) GetTracer(name string) trace.Tracer {
	return otel.GetTracerProvider().Tracer(name)
}

// IsEnabled returns whether tracing is enabled.
func (tp *TracingProvider) IsEnabled() bool {
	return tp.enabled
}
