package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHealthStatusPredicates(t *testing.T) {
	assert.True(t, Healthy("connected").IsHealthy())
	assert.True(t, Unhealthy("connection refused").IsUnhealthy())
	assert.True(t, NewHealthStatus(HealthStateDegraded, "slow").IsDegraded())

	degraded := NewHealthStatus(HealthStateDegraded, "slow")
	assert.False(t, degraded.IsHealthy())
	assert.False(t, degraded.IsUnhealthy())
}

func TestHealthStatusTimestamp(t *testing.T) {
	before := time.Now()
	status := Healthy("ok")
	assert.False(t, status.CheckedAt.Before(before))
	assert.Equal(t, "ok", status.Message)
	assert.Equal(t, "healthy", status.State.String())
}
