package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agencypulse/internal/dashboard"
	"agencypulse/internal/shared/testutil"
	"agencypulse/pkg/contracts"
)

func TestHealthService(t *testing.T) {
	reg, err := dashboard.NewRegistry(dashboard.Builtin()...)
	require.NoError(t, err)
	logger, handler := testutil.NewTestLogger(t)
	ctx := context.Background()

	hs := NewHealthService("1.2.3", testutil.LoadDataset(t), reg, logger)

	t.Run("health", func(t *testing.T) {
		status := hs.HealthCheck(ctx)
		assert.Equal(t, "ok", status.Status)
		assert.Equal(t, "1.2.3", status.Version)
	})

	t.Run("ready", func(t *testing.T) {
		status := hs.ReadinessCheck(ctx)
		assert.Equal(t, "ready", status.Status)
		require.Contains(t, status.Services, "dataset")
		assert.Contains(t, status.Services["dataset"].Message, "6 records")
		assert.Equal(t, "2 layouts registered", status.Services["layouts"].Message)
	})

	t.Run("alive", func(t *testing.T) {
		status := hs.LivenessCheck(ctx)
		assert.Equal(t, "alive", status.Status)
		require.NotNil(t, status.Runtime)
		assert.Positive(t, status.Runtime.Goroutines)
	})

	t.Run("version", func(t *testing.T) {
		v := hs.Version()
		assert.Equal(t, "1.2.3", v.Version)
		assert.Equal(t, contracts.APIVersion, v.APIVersion)
		assert.Equal(t, contracts.IsStable(), v.Stable)
		assert.GreaterOrEqual(t, v.UptimeSeconds, 0.0)
	})

	assert.True(t, handler.ContainsMessage("HealthService initialized"))
}

func TestHealthService_NotReady(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	hs := NewHealthService("1.0.0", nil, nil, logger)

	status := hs.ReadinessCheck(context.Background())

	assert.Equal(t, "not_ready", status.Status)
	assert.Equal(t, "not_ready", status.Services["dataset"].Status)
	assert.Equal(t, "not_ready", status.Services["layouts"].Status)
	testutil.AssertLogContains(t, handler, slog.LevelWarn, "ReadinessCheck: service not ready")
}
