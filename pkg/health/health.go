// Package health probes the external stores a pipeline run depends on
// (Kafka, Redis, PostgreSQL). Checks run in parallel and are aggregated into
// a Report served on the metrics port for liveness and readiness probes.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Status represents the health state of a component or the system overall.
type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// Check is a function that probes a single dependency and returns its status.
type Check func(ctx context.Context) ComponentHealth

// ComponentHealth holds the result of a single component check.
type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Report is the aggregated result of all component checks.
type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

// Ping adapts a connectivity probe into a Check. A failing ping marks the
// component down when critical and degraded otherwise.
func Ping(critical bool, ping func(ctx context.Context) error) Check {
	return func(ctx context.Context) ComponentHealth {
		if err := ping(ctx); err != nil {
			status := StatusDegraded
			if critical {
				status = StatusDown
			}
			return ComponentHealth{Status: status, Message: err.Error()}
		}
		return ComponentHealth{Status: StatusUp}
	}
}

// Run phases reported by the liveness endpoint.
const (
	PhaseStarting   = "starting"
	PhaseIndexing   = "indexing"
	PhaseCommitting = "committing"
	PhaseDone       = "done"
	PhaseFailed     = "failed"
)

// Checker holds the store probes of one index run and the phase the run is
// in.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]Check
	jobID  string
	phase  string
	since  time.Time
	logger *slog.Logger
}

func NewChecker() *Checker {
	return &Checker{
		checks: make(map[string]Check),
		phase:  PhaseStarting,
		since:  time.Now(),
		logger: slog.Default().With("component", "health"),
	}
}

// Register adds a named store probe. Registering a name twice replaces the
// earlier probe.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// SetJob records the job id shown on the liveness endpoint.
func (c *Checker) SetJob(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobID = id
}

// SetPhase moves the run to phase.
func (c *Checker) SetPhase(phase string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != phase {
		c.logger.Debug("run phase changed", "from", c.phase, "to", phase)
	}
	c.phase = phase
	c.since = time.Now()
}

// Phase returns the current phase and when it started.
func (c *Checker) Phase() (string, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase, c.since
}

type namedHealth struct {
	name   string
	health ComponentHealth
}

// Run probes every store in parallel. The report is down if any critical
// store is down, degraded if any store is degraded, and up otherwise.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]Check, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	results := make(chan namedHealth, len(checks))
	for name, check := range checks {
		name, check := name, check
		go func() {
			start := time.Now()
			h := check(ctx)
			h.Latency = time.Since(start).Round(time.Millisecond).String()
			results <- namedHealth{name: name, health: h}
		}()
	}

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(checks)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	for range checks {
		r := <-results
		report.Components[r.name] = r.health
		switch r.health.Status {
		case StatusUp:
			continue
		case StatusDown:
			report.Status = StatusDown
		case StatusDegraded:
			if report.Status == StatusUp {
				report.Status = StatusDegraded
			}
		}
		c.logger.Warn("store check failing", "store", r.name, "status", r.health.Status, "message", r.health.Message)
	}
	return report
}

// LiveHandler reports the job and its phase. It answers 503 once the run has
// failed so an orchestrator can restart the job.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.mu.RLock()
		body := map[string]string{
			"job":   c.jobID,
			"phase": c.phase,
			"since": c.since.UTC().Format(time.RFC3339),
		}
		failed := c.phase == PhaseFailed
		c.mu.RUnlock()

		w.Header().Set("Content-Type", "application/json")
		if failed {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		json.NewEncoder(w).Encode(body)
	}
}

// ReadyHandler probes the stores and answers 503 unless all are up.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		report := c.Run(ctx)
		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusUp {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(report)
	}
}
