// Copyright 2026 The Intellitrader Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Config holds metrics configuration
type Config struct {
	Enabled bool
}

// Meter wraps OpenTelemetry meter
type Meter struct {
	meter metric.Meter
}

// New creates a meter. When metrics are disabled every instrument is a no-op.
func New(ctx context.Context, cfg Config, serviceName string) (*Meter, error) {
	if !cfg.Enabled {
		return &Meter{
			meter: noop.NewMeterProvider().Meter(serviceName),
		}, nil
	}

	// The global provider is configured by the exporter setup (OTEL_* env).
	return &Meter{
		meter: otel.Meter(serviceName),
	}, nil
}

// GetMeter returns the underlying meter
func (m *Meter) GetMeter() metric.Meter {
	return m.meter
}

// CreateCounter creates a new counter metric
func (m *Meter) CreateCounter(name, description string) (metric.Int64Counter, error) {
	counter, err := m.meter.Int64Counter(
		name,
		metric.WithDescription(description),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return counter, nil
}

// CreateHistogram creates a new histogram metric
func (m *Meter) CreateHistogram(name, description, unit string) (metric.Float64Histogram, error) {
	histogram, err := m.meter.Float64Histogram(
		name,
		metric.WithDescription(description),
		metric.WithUnit(unit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %s: %w", name, err)
	}
	return histogram, nil
}

// HTTPInstruments records per-route request counts and latencies.
type HTTPInstruments struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// NewHTTPInstruments creates the request instruments on m.
func NewHTTPInstruments(m *Meter) (*HTTPInstruments, error) {
	requests, err := m.CreateCounter("http_requests_total", "HTTP requests by route and status")
	if err != nil {
		return nil, err
	}
	duration, err := m.CreateHistogram("http_request_duration_ms", "HTTP request latency", "ms")
	if err != nil {
		return nil, err
	}
	return &HTTPInstruments{requests: requests, duration: duration}, nil
}

// Record adds one finished request.
func (h *HTTPInstruments) Record(ctx context.Context, method, route string, status int, ms float64) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	)
	h.requests.Add(ctx, 1, attrs)
	h.duration.Record(ctx, ms, attrs)
}
