package gateway

import (
	"context"
	"testing"
	"time"

	"shareit/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicyNextDelay(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, BackoffFactor: 2, MaxDelay: 5 * time.Second}
	assert.Equal(t, time.Second, policy.NextDelay(1))
	assert.Equal(t, 2*time.Second, policy.NextDelay(2))
	assert.Equal(t, 5*time.Second, policy.NextDelay(5))
	assert.Equal(t, time.Second, policy.NextDelay(0))

	var zero RetryPolicy
	assert.Equal(t, 100*time.Millisecond, zero.NextDelay(1))
	assert.Equal(t, 200*time.Millisecond, zero.NextDelay(2))
}

func TestRetryPolicyFromConfig(t *testing.T) {
	policy := RetryPolicyFromConfig(config.RetryConfig{MaxRetries: 3, InitialDelayMS: 50, MaxDelayMS: 400, BackoffFactor: 3})
	assert.Equal(t, 3, policy.MaxRetries)
	assert.Equal(t, 50*time.Millisecond, policy.InitialDelay)
	assert.Equal(t, 150*time.Millisecond, policy.NextDelay(2))
	assert.Equal(t, 400*time.Millisecond, policy.NextDelay(4))
}

func TestRetryPolicyWaitHonoursContext(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, policy.wait(ctx, 1), context.Canceled)

	fast := RetryPolicy{InitialDelay: time.Millisecond}
	assert.NoError(t, fast.wait(context.Background(), 1))
}
