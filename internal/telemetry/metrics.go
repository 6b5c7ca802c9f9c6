package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/layer-3/tollgate"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	AuthDecisions   metric.Int64Counter
	SessionsStarted metric.Int64Counter
	SessionsEnded   metric.Int64Counter
	StoreErrors     metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.AuthDecisions, _ = meter.Int64Counter(
		"tollgate.auth.decisions",
		metric.WithDescription("Authentication gate decisions by outcome"),
		metric.WithUnit("{request}"),
	)

	m.SessionsStarted, _ = meter.Int64Counter(
		"tollgate.sessions.started",
		metric.WithDescription("Sessions started at login"),
		metric.WithUnit("{session}"),
	)

	m.SessionsEnded, _ = meter.Int64Counter(
		"tollgate.sessions.ended",
		metric.WithDescription("Sessions ended at logout"),
		metric.WithUnit("{session}"),
	)

	m.StoreErrors, _ = meter.Int64Counter(
		"tollgate.store.errors",
		metric.WithDescription("Session store failures by operation"),
		metric.WithUnit("{error}"),
	)

	return m
}

// RecordAllowed counts an allowed request
func (m *Metrics) RecordAllowed(ctx context.Context) {
	m.AuthDecisions.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("allowed", true),
	))
}

// RecordRejected counts a rejected request with its reason
func (m *Metrics) RecordRejected(ctx context.Context, reason string) {
	m.AuthDecisions.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("allowed", false),
		attribute.String("reason", reason),
	))
}

// RecordStoreError counts a failed session store operation
func (m *Metrics) RecordStoreError(ctx context.Context, op string) {
	m.StoreErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}
