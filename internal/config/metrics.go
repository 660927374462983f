package config

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var loadCounter = struct {
	once    sync.Once
	counter metric.Int64Counter
}{}

// recordConfigValidationEvent counts config loads by profile and outcome so
// crash-looping deployments with a bad environment show up on the dashboard.
func recordConfigValidationEvent(ctx context.Context, profile, outcome, errorClass string) {
	loadCounter.once.Do(func() {
		if c, err := otel.Meter("crewsight").Int64Counter("config.validation.events"); err == nil {
			loadCounter.counter = c
		}
	})
	if loadCounter.counter == nil {
		return
	}
	loadCounter.counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("profile", normalizeConfigProfile(profile)),
		attribute.String("outcome", outcome),
		attribute.String("error_class", errorClass),
	))
}

func normalizeConfigProfile(profile string) string {
	if v := strings.TrimSpace(strings.ToLower(profile)); v != "" {
		return v
	}
	return "unknown"
}

func classifyConfigLoadError(err error) string {
	if err == nil {
		return "none"
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "validate config:"):
		return "validation"
	case strings.Contains(msg, "parse "):
		return "parse"
	default:
		return "load"
	}
}
