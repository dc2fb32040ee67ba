// Package metrics records ledger activity through OpenTelemetry instruments.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "clubledger"

// Collector backs the transaction and reconciliation metrics interfaces.
type Collector struct {
	operationDuration metric.Float64Histogram
	operationResults  metric.Int64Counter
	balanceMovement   metric.Float64Counter

	runDuration         metric.Float64Histogram
	driftDetected       metric.Int64Counter
	walletsRepaired     metric.Int64Counter
	consistencyFailures metric.Int64Counter
}

// NewCollector creates the ledger instruments on provider, or on the global
// provider when nil.
func NewCollector(provider metric.MeterProvider) (*Collector, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)

	var (
		c   Collector
		err error
	)

	c.operationDuration, err = meter.Float64Histogram(
		"ledger.transaction.duration",
		metric.WithDescription("Time taken per transaction operation"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create ledger.transaction.duration histogram: %w", err)
	}

	c.operationResults, err = meter.Int64Counter(
		"ledger.transaction.operations",
		metric.WithDescription("Transaction operations by outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create ledger.transaction.operations counter: %w", err)
	}

	c.balanceMovement, err = meter.Float64Counter(
		"ledger.wallet.balance_movement",
		metric.WithDescription("Absolute amount moved in and out of club wallets"),
	)
	if err != nil {
		return nil, fmt.Errorf("create ledger.wallet.balance_movement counter: %w", err)
	}

	c.runDuration, err = meter.Float64Histogram(
		"ledger.reconciliation.duration",
		metric.WithDescription("Time taken per reconciliation run"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create ledger.reconciliation.duration histogram: %w", err)
	}

	c.driftDetected, err = meter.Int64Counter(
		"ledger.reconciliation.drift_detected",
		metric.WithDescription("Wallets found out of line with their transaction history"),
		metric.WithUnit("{wallet}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create ledger.reconciliation.drift_detected counter: %w", err)
	}

	c.walletsRepaired, err = meter.Int64Counter(
		"ledger.reconciliation.repaired",
		metric.WithDescription("Wallets overwritten with their derived totals"),
		metric.WithUnit("{wallet}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create ledger.reconciliation.repaired counter: %w", err)
	}

	c.consistencyFailures, err = meter.Int64Counter(
		"ledger.reconciliation.consistency_failures",
		metric.WithDescription("Wallets still inconsistent after a reconciliation run"),
		metric.WithUnit("{wallet}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create ledger.reconciliation.consistency_failures counter: %w", err)
	}

	return &c, nil
}

func (c *Collector) RecordOperationDuration(operation string, d time.Duration) {
	c.operationDuration.Record(context.Background(), d.Seconds(),
		metric.WithAttributes(attribute.String("operation", operation)))
}

func (c *Collector) RecordOperationResult(operation, result string) {
	c.operationResults.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("result", result),
		))
}

func (c *Collector) RecordBalanceChange(_ uint, oldBalance, newBalance decimal.Decimal) {
	direction := "in"
	if newBalance.LessThan(oldBalance) {
		direction = "out"
	}
	moved, _ := newBalance.Sub(oldBalance).Abs().Float64()
	c.balanceMovement.Add(context.Background(), moved,
		metric.WithAttributes(attribute.String("direction", direction)))
}

func (c *Collector) RecordRunDuration(d time.Duration, result string) {
	c.runDuration.Record(context.Background(), d.Seconds(),
		metric.WithAttributes(attribute.String("result", result)))
}

func (c *Collector) RecordDriftDetected(wallets int) {
	c.driftDetected.Add(context.Background(), int64(wallets))
}

func (c *Collector) RecordWalletsRepaired(wallets int) {
	c.walletsRepaired.Add(context.Background(), int64(wallets))
}

func (c *Collector) RecordConsistencyFailure(wallets int) {
	c.consistencyFailures.Add(context.Background(), int64(wallets))
}
