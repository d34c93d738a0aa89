// Package telemetry wires the OpenTelemetry trace provider. Spans cover
// report fetches so slow or failing API calls are attributable per session.
package telemetry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/zjrosen/povtrack/internal/config"
	"github.com/zjrosen/povtrack/internal/log"
)

// Provider owns the trace provider lifecycle for one process run.
type Provider struct {
	tp        *sdktrace.TracerProvider
	closeFile func() error
	SessionID string
}

// Init builds and registers the global trace provider. When an OTLP endpoint
// is configured spans ship over gRPC; otherwise they land in traces.jsonl
// next to the database so a session can be inspected after the fact.
// Returns a no-op provider when telemetry is disabled.
func Init(ctx context.Context, cfg config.TelemetryConfig, dataDir string) (*Provider, error) {
	sessionID := uuid.NewString()
	if !cfg.Enabled {
		return &Provider{SessionID: sessionID}, nil
	}

	var (
		exporter  sdktrace.SpanExporter
		closeFile func() error
		err       error
	)
	if cfg.OTLPEndpoint != "" {
		exporter, err = otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint), otlptracegrpc.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("creating OTLP exporter: %w", err)
		}
	} else {
		path := filepath.Join(dataDir, "traces.jsonl")
		f, ferr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600) //nolint:gosec // G304: path is derived from the data directory
		if ferr != nil {
			return nil, fmt.Errorf("opening trace file: %w", ferr)
		}
		closeFile = f.Close
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(f))
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("creating stdout exporter: %w", err)
		}
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName("povtrack"),
		attribute.String("session.id", sessionID),
	))
	if err != nil {
		return nil, fmt.Errorf("building resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	log.Info(log.CatTelemetry, "Telemetry initialized", "session", sessionID, "otlp", cfg.OTLPEndpoint != "")
	return &Provider{tp: tp, closeFile: closeFile, SessionID: sessionID}, nil
}

// Shutdown flushes pending spans and releases the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := p.tp.Shutdown(ctx)
	if p.closeFile != nil {
		if cerr := p.closeFile(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		log.ErrorErr(log.CatTelemetry, "Telemetry shutdown failed", err)
	}
	return err
}
