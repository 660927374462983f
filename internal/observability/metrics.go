package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/crewsight/crewsight/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

type AppMetrics struct {
	authResolutionCounter metric.Int64Counter
	sessionEventCounter   metric.Int64Counter
	logIngestCounter      metric.Int64Counter
	logPruneCounter       metric.Int64Counter
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics

	repoOpsOnce    sync.Once
	repoOpsCounter metric.Int64Counter

	rateLimitOnce    sync.Once
	rateLimitCounter metric.Int64Counter
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.OTELServiceName),
			attribute.String("deployment.environment", cfg.OTELEnvironment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)

	meter := mp.Meter("crewsight")
	authCounter, err := meter.Int64Counter("auth.resolutions")
	if err != nil {
		return nil, err
	}
	sessionCounter, err := meter.Int64Counter("sessions.events")
	if err != nil {
		return nil, err
	}
	ingestCounter, err := meter.Int64Counter("logs.ingested")
	if err != nil {
		return nil, err
	}
	pruneCounter, err := meter.Int64Counter("logs.pruned")
	if err != nil {
		return nil, err
	}

	metricsMu.Lock()
	appMetrics = &AppMetrics{
		authResolutionCounter: authCounter,
		sessionEventCounter:   sessionCounter,
		logIngestCounter:      ingestCounter,
		logPruneCounter:       pruneCounter,
	}
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

// RecordAuthResolution counts credential resolutions by source
// (cookie, bearer_user, bearer_team, none) and outcome.
func RecordAuthResolution(source, outcome string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.authResolutionCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("source", source),
			attribute.String("outcome", outcome),
		),
	)
}

func RecordSessionEvent(event string) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil {
		return
	}
	m.sessionEventCounter.Add(context.Background(), 1, metric.WithAttributes(attribute.String("event", event)))
}

func RecordLogIngest(count int) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil || count <= 0 {
		return
	}
	m.logIngestCounter.Add(context.Background(), int64(count))
}

func RecordLogPrune(deleted int64) {
	metricsMu.RLock()
	m := appMetrics
	metricsMu.RUnlock()
	if m == nil || deleted <= 0 {
		return
	}
	m.logPruneCounter.Add(context.Background(), deleted)
}

// RecordRateLimitDecision counts limiter outcomes per scope
// (allow, deny, bypass, backend_error).
func RecordRateLimitDecision(ctx context.Context, scope, decision string) {
	rateLimitOnce.Do(func() {
		counter, err := otel.Meter("crewsight").Int64Counter("ratelimit.decisions")
		if err == nil {
			rateLimitCounter = counter
		}
	})
	if rateLimitCounter == nil {
		return
	}
	rateLimitCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("decision", decision),
	))
}

// RecordRepositoryOperation counts store operations by entity, operation
// and outcome. Lazily bound so repository tests need no metrics setup.
func RecordRepositoryOperation(ctx context.Context, entity, operation, outcome string) {
	repoOpsOnce.Do(func() {
		counter, err := otel.Meter("crewsight").Int64Counter("repository.operations")
		if err == nil {
			repoOpsCounter = counter
		}
	})
	if repoOpsCounter == nil {
		return
	}
	repoOpsCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}
