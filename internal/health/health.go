package health

import (
	"context"
	"time"
)

type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

type CheckResult struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Checker probes one dependency. Implementations must honor the context
// deadline; the runner caps every probe.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// ProbeRunner runs all registered checkers for the readiness endpoint.
type ProbeRunner struct {
	checkers []Checker
	timeout  time.Duration
}

func NewProbeRunner(timeout time.Duration, checkers ...Checker) *ProbeRunner {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ProbeRunner{checkers: checkers, timeout: timeout}
}

// Ready reports whether every dependency answered, with per-check detail.
func (p *ProbeRunner) Ready(ctx context.Context) (bool, []CheckResult) {
	results := make([]CheckResult, 0, len(p.checkers))
	ready := true
	for _, c := range p.checkers {
		probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := c.Check(probeCtx)
		cancel()
		result := CheckResult{Name: c.Name(), Status: StatusUp}
		if err != nil {
			result.Status = StatusDown
			result.Error = err.Error()
			ready = false
		}
		results = append(results, result)
	}
	return ready, results
}
