// Package metrics holds the OpenTelemetry instruments for the recovery protocol.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "fleetsim"

// Metrics holds all protocol instruments. A nil *Metrics records nothing.
type Metrics struct {
	BlockedTransitions metric.Int64Counter
	AutoUnblocks       metric.Int64Counter
	Adoptions          metric.Int64Counter
	SwapOffers         metric.Int64Counter
	SwapCommits        metric.Int64Counter
	RateLimited        metric.Int64Counter
	CleanedGoals       metric.Int64Counter
	Reached            metric.Int64Counter
	DuplicateReaches   metric.Int64Counter
	UnknownReaches     metric.Int64Counter
}

// NewMetrics creates all instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	return NewMetricsWithMeter(otel.Meter(meterName))
}

// NewMetricsWithMeter creates all instruments on the given meter.
func NewMetricsWithMeter(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.BlockedTransitions, err = meter.Int64Counter("fleetsim.robot.blocked",
		metric.WithDescription("Number of Free to Blocked transitions"))
	if err != nil {
		return nil, err
	}

	m.AutoUnblocks, err = meter.Int64Counter("fleetsim.recovery.auto_unblocks",
		metric.WithDescription("Number of local recoveries without peer help"))
	if err != nil {
		return nil, err
	}

	m.Adoptions, err = meter.Int64Counter("fleetsim.recovery.adoptions",
		metric.WithDescription("Number of destinations adopted from peers"))
	if err != nil {
		return nil, err
	}

	m.SwapOffers, err = meter.Int64Counter("fleetsim.recovery.swap_offers",
		metric.WithDescription("Number of swap offers made"))
	if err != nil {
		return nil, err
	}

	m.SwapCommits, err = meter.Int64Counter("fleetsim.recovery.swap_commits",
		metric.WithDescription("Number of committed destination swaps"))
	if err != nil {
		return nil, err
	}

	m.RateLimited, err = meter.Int64Counter("fleetsim.recovery.rate_limited",
		metric.WithDescription("Number of peer exchanges refused by dwell or backoff"))
	if err != nil {
		return nil, err
	}

	m.CleanedGoals, err = meter.Int64Counter("fleetsim.cleanup.removed",
		metric.WithDescription("Number of route entries removed because a peer adopted them"))
	if err != nil {
		return nil, err
	}

	m.Reached, err = meter.Int64Counter("fleetsim.reach.reported",
		metric.WithDescription("Number of destinations reported reached"))
	if err != nil {
		return nil, err
	}

	m.DuplicateReaches, err = meter.Int64Counter("fleetsim.reach.duplicates",
		metric.WithDescription("Number of reach reports for destinations already reached"))
	if err != nil {
		return nil, err
	}

	m.UnknownReaches, err = meter.Int64Counter("fleetsim.reach.unknown",
		metric.WithDescription("Number of reached destinations the ledger does not track"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) add(ctx context.Context, c metric.Int64Counter, n int64, attrs ...attribute.KeyValue) {
	if m == nil || c == nil {
		return
	}
	c.Add(ctx, n, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordBlocked(ctx context.Context, robotID string) {
	if m == nil {
		return
	}
	m.add(ctx, m.BlockedTransitions, 1, attribute.String("robot", robotID))
}

func (m *Metrics) RecordAutoUnblock(ctx context.Context, robotID string, random bool) {
	if m == nil {
		return
	}
	m.add(ctx, m.AutoUnblocks, 1, attribute.String("robot", robotID), attribute.Bool("random", random))
}

func (m *Metrics) RecordAdoption(ctx context.Context, robotID string) {
	if m == nil {
		return
	}
	m.add(ctx, m.Adoptions, 1, attribute.String("robot", robotID))
}

func (m *Metrics) RecordSwapOffer(ctx context.Context, robotID string) {
	if m == nil {
		return
	}
	m.add(ctx, m.SwapOffers, 1, attribute.String("robot", robotID))
}

func (m *Metrics) RecordSwapCommit(ctx context.Context, robotID string) {
	if m == nil {
		return
	}
	m.add(ctx, m.SwapCommits, 1, attribute.String("robot", robotID))
}

// RecordRateLimited counts a refused exchange, reason is "dwell" or "backoff".
func (m *Metrics) RecordRateLimited(ctx context.Context, robotID, reason string) {
	if m == nil {
		return
	}
	m.add(ctx, m.RateLimited, 1, attribute.String("robot", robotID), attribute.String("reason", reason))
}

func (m *Metrics) RecordCleaned(ctx context.Context, robotID string, removed int) {
	if m == nil || removed == 0 {
		return
	}
	m.add(ctx, m.CleanedGoals, int64(removed), attribute.String("robot", robotID))
}

func (m *Metrics) RecordReached(ctx context.Context, robotID string, duplicate bool) {
	if m == nil {
		return
	}
	if duplicate {
		m.add(ctx, m.DuplicateReaches, 1, attribute.String("robot", robotID))
		return
	}
	m.add(ctx, m.Reached, 1, attribute.String("robot", robotID))
}

// RecordUnknownReach counts a reached off-route target, such as a random
// auto-unblock destination.
func (m *Metrics) RecordUnknownReach(ctx context.Context, robotID string) {
	if m == nil {
		return
	}
	m.add(ctx, m.UnknownReaches, 1, attribute.String("robot", robotID))
}
