// internal/monitoring/health.go
package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// CheckFunc reports a component problem by returning an error.
type CheckFunc func(ctx context.Context) error

// CheckResult is the outcome of one health check.
type CheckResult struct {
	Name     string        `json:"name"`
	Status   HealthStatus  `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// SystemHealth is the aggregated health report.
type SystemHealth struct {
	Status     HealthStatus  `json:"status"`
	Timestamp  time.Time     `json:"timestamp"`
	Uptime     string        `json:"uptime"`
	Goroutines int           `json:"goroutines"`
	Checks     []CheckResult `json:"checks"`
}

// HealthManager runs registered checks on demand.
type HealthManager struct {
	mu      sync.RWMutex
	checks  map[string]CheckFunc
	timeout time.Duration
	started time.Time
}

// NewHealthManager creates a manager whose checks are each bounded by timeout.
func NewHealthManager(timeout time.Duration) *HealthManager {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthManager{
		checks:  make(map[string]CheckFunc),
		timeout: timeout,
		started: time.Now(),
	}
}

// RegisterCheck adds or replaces a named check.
func (hm *HealthManager) RegisterCheck(name string, check CheckFunc) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checks[name] = check
}

// GetHealth runs every check and aggregates the result. The system is
// unhealthy if any check fails.
func (hm *HealthManager) GetHealth(ctx context.Context) SystemHealth {
	hm.mu.RLock()
	names := make([]string, 0, len(hm.checks))
	for name := range hm.checks {
		names = append(names, name)
	}
	checks := make(map[string]CheckFunc, len(hm.checks))
	for k, v := range hm.checks {
		checks[k] = v
	}
	hm.mu.RUnlock()
	sort.Strings(names)

	health := SystemHealth{
		Status:     HealthStatusHealthy,
		Timestamp:  time.Now(),
		Uptime:     time.Since(hm.started).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		Checks:     make([]CheckResult, 0, len(names)),
	}
	for _, name := range names {
		result := hm.runCheck(ctx, name, checks[name])
		if result.Status != HealthStatusHealthy {
			health.Status = HealthStatusUnhealthy
		}
		health.Checks = append(health.Checks, result)
	}
	return health
}

func (hm *HealthManager) runCheck(ctx context.Context, name string, check CheckFunc) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, hm.timeout)
	defer cancel()

	start := time.Now()
	err := check(ctx)
	result := CheckResult{Name: name, Status: HealthStatusHealthy, Duration: time.Since(start)}
	if err != nil {
		result.Status = HealthStatusUnhealthy
		result.Error = err.Error()
	}
	return result
}

// HealthHandler serves the health report; unhealthy maps to 503.
func (hm *HealthManager) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := hm.GetHealth(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if health.Status != HealthStatusHealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	}
}

// WritableDirCheck verifies that files can be created in dir.
func WritableDirCheck(dir string) CheckFunc {
	return func(ctx context.Context) error {
		f, err := os.CreateTemp(dir, ".health-*")
		if err != nil {
			return fmt.Errorf("directory %s is not writable: %w", filepath.Clean(dir), err)
		}
		name := f.Name()
		f.Close()
		return os.Remove(name)
	}
}
