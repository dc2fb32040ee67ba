package metrics

import (
	"errors"
	"testing"
	"time"

	"clubledger/internal/services/reconciliation"
	"clubledger/internal/services/transaction"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

var (
	_ transaction.MetricsCollector    = (*Collector)(nil)
	_ reconciliation.MetricsCollector = (*Collector)(nil)
)

type testMeterProvider struct {
	metric.MeterProvider
	meter metric.Meter
}

func (p testMeterProvider) Meter(string, ...metric.MeterOption) metric.Meter {
	return p.meter
}

type failingMeter struct {
	metric.Meter
	failOnName string
}

func (m failingMeter) Int64Counter(name string, options ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	if name == m.failOnName {
		return nil, errors.New("boom")
	}
	return m.Meter.Int64Counter(name, options...)
}

func TestNewCollector(t *testing.T) {
	c, err := NewCollector(noop.NewMeterProvider())
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		c.RecordOperationDuration("approve", 15*time.Millisecond)
		c.RecordOperationResult("approve", "ok")
		c.RecordBalanceChange(1, decimal.NewFromInt(100), decimal.NewFromInt(40))
		c.RecordRunDuration(time.Second, "ok")
		c.RecordDriftDetected(2)
		c.RecordWalletsRepaired(2)
		c.RecordConsistencyFailure(0)
	})
}

func TestNewCollector_DefaultProvider(t *testing.T) {
	c, err := NewCollector(nil)
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestNewCollector_InstrumentError(t *testing.T) {
	provider := testMeterProvider{
		meter: failingMeter{
			Meter:      noop.NewMeterProvider().Meter("test"),
			failOnName: "ledger.reconciliation.repaired",
		},
	}

	_, err := NewCollector(provider)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger.reconciliation.repaired")
}
