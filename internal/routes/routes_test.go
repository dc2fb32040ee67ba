package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	apperrors "clubledger/internal/errors"
	"clubledger/internal/handlers"
	"clubledger/internal/middleware"
	"clubledger/internal/models"
	"clubledger/internal/services/reconciliation"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockWalletService struct {
	mock.Mock
}

func (m *MockWalletService) GetOrCreateWallet(ctx context.Context, clubID uint) (*models.Wallet, error) {
	args := m.Called(ctx, clubID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockWalletService) EnsureAllWalletsExist(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockWalletService) GetWallet(ctx context.Context, clubID uint) (*models.WalletSummary, error) {
	args := m.Called(ctx, clubID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WalletSummary), args.Error(1)
}

func (m *MockWalletService) InvalidateWallet(ctx context.Context, clubID uint) {
	m.Called(ctx, clubID)
}

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) RunOnce(ctx context.Context) (*reconciliation.Report, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.Report), args.Error(1)
}

func newApp(wallets *MockWalletService, runner *MockRunner, pingErr error) *fiber.App {
	app := fiber.New()
	SetupRoutes(app, Handlers{
		Health: handlers.NewHealthHandler("test", map[string]handlers.Pinger{
			"database": handlers.PingFunc(func(context.Context) error { return nil }),
			"redis":    handlers.PingFunc(func(context.Context) error { return pingErr }),
		}).WithPoolStats("redis", func() interface{} { return &redis.PoolStats{Hits: 3, TotalConns: 2} }),
		Wallet:         handlers.NewWalletHandler(wallets),
		Reconciliation: handlers.NewReconciliationHandler(runner, nil),
	})
	return app
}

func decode(t *testing.T, app *fiber.App, method, path string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHealth(t *testing.T) {
	status, body := decode(t, newApp(nil, nil, nil), "GET", "/health")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	redisPool := body["pools"].(map[string]interface{})["redis"].(map[string]interface{})
	assert.EqualValues(t, 3, redisPool["Hits"])
	assert.EqualValues(t, 2, redisPool["TotalConns"])

	status, body = decode(t, newApp(nil, nil, errors.New("refused")), "GET", "/health")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "unavailable", body["services"].(map[string]interface{})["redis"])
}

func TestGetWallet(t *testing.T) {
	wallets := new(MockWalletService)
	wallets.On("GetWallet", mock.Anything, uint(3)).Return(&models.WalletSummary{ClubID: 3}, nil)
	wallets.On("GetWallet", mock.Anything, uint(4)).
		Return(nil, fmt.Errorf("%w: club 4", apperrors.ErrWalletNotFound))
	app := newApp(wallets, nil, nil)

	status, body := decode(t, app, "GET", "/ops/wallets/3")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(3), body["wallet"].(map[string]interface{})["club_id"])

	status, _ = decode(t, app, "GET", "/ops/wallets/4")
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = decode(t, app, "GET", "/ops/wallets/abc")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestRunReconciliation(t *testing.T) {
	tests := []struct {
		name   string
		report *reconciliation.Report
		err    error
		status int
	}{
		{"consistent", &reconciliation.Report{WalletsChecked: 4}, nil, fiber.StatusOK},
		{"already running", nil, reconciliation.ErrRunInProgress, fiber.StatusConflict},
		{"still inconsistent", &reconciliation.Report{},
			fmt.Errorf("%w: 1 wallets", apperrors.ErrConsistencyFailure), fiber.StatusInternalServerError},
		{"storage failure", nil, errors.New("connection reset"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := new(MockRunner)
			runner.On("RunOnce", mock.Anything).Return(tt.report, tt.err)

			status, body := decode(t, newApp(nil, runner, nil), "POST", "/ops/reconciliation")
			assert.Equal(t, tt.status, status)
			if errors.Is(tt.err, apperrors.ErrConsistencyFailure) {
				assert.Equal(t, "CONSISTENCY_FAILURE", body["code"])
				assert.NotNil(t, body["report"])
			}
			runner.AssertExpectations(t)
		})
	}
}

func TestOpsRoutesRequireToken(t *testing.T) {
	runner := new(MockRunner)
	app := fiber.New()
	SetupRoutes(app, Handlers{
		Health:         handlers.NewHealthHandler("test", nil),
		Wallet:         handlers.NewWalletHandler(new(MockWalletService)),
		Reconciliation: handlers.NewReconciliationHandler(runner, nil),
		OpsAuth:        middleware.NewOpsAuth("s3cret", nil),
	})

	status, _ := decode(t, app, "POST", "/ops/reconciliation")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	runner.AssertNotCalled(t, "RunOnce", mock.Anything)

	status, _ = decode(t, app, "GET", "/health")
	assert.Equal(t, fiber.StatusOK, status)
}
