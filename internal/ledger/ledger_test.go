package ledger

import (
	"context"
	"testing"

	"clubledger/internal/config"
	"clubledger/internal/metrics"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestNew(t *testing.T) {
	cfg := config.Load()

	t.Run("without redis", func(t *testing.T) {
		l := New(nil, nil, cfg, nil, nil)
		assert.Nil(t, l.Cache)
		assert.NotNil(t, l.Wallets)
		assert.NotNil(t, l.Transactions)
		assert.NotNil(t, l.Job)
		assert.NotNil(t, l.Scheduler)
	})

	t.Run("with redis and metrics", func(t *testing.T) {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		collector, err := metrics.NewCollector(noop.NewMeterProvider())
		require.NoError(t, err)

		l := New(nil, rdb, cfg, collector, nil)
		require.NotNil(t, l.Cache)
		assert.NoError(t, l.Cache.HealthCheck(context.Background()))
	})
}
