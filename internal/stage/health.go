package stage

import "context"

// Health summarizes whether a stage collaborator can run.
type Health struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

// HealthChecker is implemented by collaborators that can verify their own
// prerequisites (binaries, endpoints) without doing real work.
type HealthChecker interface {
	HealthCheck(ctx context.Context) Health
}
