package monitoring

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

type HealthCheckFunc func(ctx context.Context) error

type HealthCheck struct {
	Name     string    `json:"name"`
	Status   string    `json:"status"`
	Critical bool      `json:"critical"`
	Message  string    `json:"message,omitempty"`
	Duration string    `json:"duration"`
	LastRun  time.Time `json:"last_run"`
}

type registeredCheck struct {
	fn       HealthCheckFunc
	critical bool
}

// RegisterHealthCheck adds a named check. A failing critical check makes
// the service unhealthy and not ready; a failing non-critical check only
// degrades it.
func (m *Monitor) RegisterHealthCheck(name string, critical bool, fn HealthCheckFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[name] = registeredCheck{fn: fn, critical: critical}
}

// RunHealthChecks runs every registered check concurrently, each bounded
// by the check timeout.
func (m *Monitor) RunHealthChecks(ctx context.Context) map[string]HealthCheck {
	m.mu.RLock()
	checks := make(map[string]registeredCheck, len(m.checks))
	for name, check := range m.checks {
		checks[name] = check
	}
	m.mu.RUnlock()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]HealthCheck, len(checks))
	)
	for name, check := range checks {
		wg.Add(1)
		go func(name string, check registeredCheck) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, m.checkTimeout)
			defer cancel()

			start := m.now()
			result := HealthCheck{Name: name, Status: StatusHealthy, Critical: check.critical, LastRun: start}
			if err := check.fn(checkCtx); err != nil {
				result.Status = StatusUnhealthy
				result.Message = err.Error()
			}
			result.Duration = m.now().Sub(start).String()

			mu.Lock()
			results[name] = result
			mu.Unlock()
		}(name, check)
	}
	wg.Wait()
	return results
}

// Overall folds check results into one status.
func Overall(checks map[string]HealthCheck) string {
	status := StatusHealthy
	for _, check := range checks {
		if check.Status == StatusHealthy {
			continue
		}
		if check.Critical {
			return StatusUnhealthy
		}
		status = StatusDegraded
	}
	return status
}

func sortedChecks(checks map[string]HealthCheck) []HealthCheck {
	out := make([]HealthCheck, 0, len(checks))
	for _, check := range checks {
		out = append(out, check)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *Monitor) HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := m.RunHealthChecks(c.Request.Context())
		overall := Overall(checks)

		status := http.StatusOK
		if overall == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"status":    overall,
			"timestamp": m.now(),
			"checks":    sortedChecks(checks),
			"uptime":    m.uptime().String(),
		})
	}
}

func (m *Monitor) ReadinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Overall(m.RunHealthChecks(c.Request.Context())) == StatusUnhealthy {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "not ready",
				"timestamp": m.now(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"timestamp": m.now(),
		})
	}
}

func (m *Monitor) LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "alive",
			"timestamp": m.now(),
			"uptime":    m.uptime().String(),
		})
	}
}
