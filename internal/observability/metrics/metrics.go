package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	quoteCreated     metric.Int64Counter
	quoteGenerated   metric.Int64Counter
	quoteEvents      metric.Int64Counter
	selectionUpdates metric.Int64Counter
	pdfRendered      metric.Int64Counter
	rateLimitAllowed metric.Int64Counter
	rateLimitDenied  metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "offertgenerator"
	}
	meter := provider.Meter(name)

	quoteCreated, err := meter.Int64Counter("offert_quotes_created_total")
	if err != nil {
		return nil, err
	}
	quoteGenerated, err := meter.Int64Counter("offert_quotes_generated_total")
	if err != nil {
		return nil, err
	}
	quoteEvents, err := meter.Int64Counter("offert_quote_events_total")
	if err != nil {
		return nil, err
	}
	selectionUpdates, err := meter.Int64Counter("offert_selection_updates_total")
	if err != nil {
		return nil, err
	}
	pdfRendered, err := meter.Int64Counter("offert_pdf_rendered_total")
	if err != nil {
		return nil, err
	}
	rateLimitAllowed, err := meter.Int64Counter("offert_rate_limit_allowed_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("offert_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		quoteCreated:     quoteCreated,
		quoteGenerated:   quoteGenerated,
		quoteEvents:      quoteEvents,
		selectionUpdates: selectionUpdates,
		pdfRendered:      pdfRendered,
		rateLimitAllowed: rateLimitAllowed,
		rateLimitDenied:  rateLimitDenied,
	}, nil
}

// RecordQuoteCreated increments quote creation counts.
func (m *Metrics) RecordQuoteCreated(ctx context.Context, companyID string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("company_id", strings.TrimSpace(companyID)))
	m.quoteCreated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordQuoteGenerated increments rule-based generation counts.
func (m *Metrics) RecordQuoteGenerated(ctx context.Context, roomType, finishLevel string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("room_type", strings.TrimSpace(roomType)),
		attribute.String("finish_level", strings.TrimSpace(finishLevel)),
	)
	m.quoteGenerated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordQuoteEvent increments quote lifecycle event counts.
func (m *Metrics) RecordQuoteEvent(ctx context.Context, eventType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("event_type", strings.TrimSpace(eventType)))
	m.quoteEvents.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSelectionUpdate increments customer selection update counts.
func (m *Metrics) RecordSelectionUpdate(ctx context.Context, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("status_code", strings.TrimSpace(status)))
	m.selectionUpdates.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPDFRendered increments PDF render counts.
func (m *Metrics) RecordPDFRendered(ctx context.Context) {
	if m == nil {
		return
	}
	m.pdfRendered.Add(ctx, 1)
}

// RecordRateLimitAllowed increments rate limit allow counts.
func (m *Metrics) RecordRateLimitAllowed(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("endpoint", strings.TrimSpace(endpoint)))
	m.rateLimitAllowed.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"company_id":   {},
	"endpoint":     {},
	"status_code":  {},
	"event_type":   {},
	"room_type":    {},
	"finish_level": {},
	"reason":       {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
