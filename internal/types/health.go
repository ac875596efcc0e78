package types

import "time"

// HealthState classifies a gateway dependency: the graph store, the embedder,
// or an LLM provider.
type HealthState string

const (
	HealthStateHealthy   HealthState = "healthy"
	HealthStateDegraded  HealthState = "degraded"
	HealthStateUnhealthy HealthState = "unhealthy"
)

func (s HealthState) String() string {
	return string(s)
}

// HealthStatus is one dependency's check result. The health endpoint rolls
// component statuses up into the gateway's overall state: any unhealthy
// component makes the gateway unhealthy, any degraded one makes it degraded.
type HealthStatus struct {
	State     HealthState `json:"state"`
	Message   string      `json:"message,omitempty"`
	CheckedAt time.Time   `json:"checked_at"`
}

// NewHealthStatus stamps a check result with the current time.
func NewHealthStatus(state HealthState, message string) HealthStatus {
	return HealthStatus{
		State:     state,
		Message:   message,
		CheckedAt: time.Now(),
	}
}

// Healthy reports a passing check.
func Healthy(message string) HealthStatus {
	return NewHealthStatus(HealthStateHealthy, message)
}

// Unhealthy reports a failing check.
func Unhealthy(message string) HealthStatus {
	return NewHealthStatus(HealthStateUnhealthy, message)
}

func (h HealthStatus) IsHealthy() bool {
	return h.State == HealthStateHealthy
}

func (h HealthStatus) IsDegraded() bool {
	return h.State == HealthStateDegraded
}

func (h HealthStatus) IsUnhealthy() bool {
	return h.State == HealthStateUnhealthy
}
