package monitoring

import (
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type Metrics struct {
	RequestCount    int64            `json:"request_count"`
	RequestDuration time.Duration    `json:"avg_request_duration_ns"`
	ActiveRequests  int64            `json:"active_requests"`
	ErrorCount      int64            `json:"error_count"`
	StatusCodes     map[string]int64 `json:"status_codes"`
	Endpoints       map[string]int64 `json:"endpoint_calls"`
	StartTime       time.Time        `json:"start_time"`
	LastRequest     time.Time        `json:"last_request"`
}

// StatsFunc reports a component's internal counters, e.g. connection pool
// or cache statistics.
type StatsFunc func() map[string]interface{}

// Monitor collects request metrics and runs the registered health checks.
type Monitor struct {
	mu            sync.RWMutex
	metrics       Metrics
	totalDuration time.Duration
	checks        map[string]registeredCheck
	stats         map[string]StatsFunc
	checkTimeout  time.Duration
	now           func() time.Time
}

func New() *Monitor {
	return &Monitor{
		metrics: Metrics{
			StatusCodes: make(map[string]int64),
			Endpoints:   make(map[string]int64),
			StartTime:   time.Now(),
		},
		checks:       make(map[string]registeredCheck),
		stats:        make(map[string]StatsFunc),
		checkTimeout: 5 * time.Second,
		now:          time.Now,
	}
}

func (m *Monitor) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := m.now()

		m.mu.Lock()
		m.metrics.ActiveRequests++
		m.mu.Unlock()

		c.Next()

		duration := m.now().Sub(start)
		statusCode := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		m.metrics.RequestCount++
		m.metrics.ActiveRequests--
		m.totalDuration += duration
		m.metrics.RequestDuration = m.totalDuration / time.Duration(m.metrics.RequestCount)
		m.metrics.LastRequest = m.now()
		if statusCode >= 400 {
			m.metrics.ErrorCount++
		}
		m.metrics.StatusCodes[http.StatusText(statusCode)]++
		m.metrics.Endpoints[c.Request.Method+" "+route]++
	}
}

// RegisterStats adds a named stats source to the /metrics output.
func (m *Monitor) RegisterStats(name string, fn StatsFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats[name] = fn
}

func (m *Monitor) Snapshot() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := m.metrics
	snapshot.StatusCodes = make(map[string]int64, len(m.metrics.StatusCodes))
	snapshot.Endpoints = make(map[string]int64, len(m.metrics.Endpoints))
	for k, v := range m.metrics.StatusCodes {
		snapshot.StatusCodes[k] = v
	}
	for k, v := range m.metrics.Endpoints {
		snapshot.Endpoints[k] = v
	}
	return snapshot
}

func (m *Monitor) componentStats() map[string]map[string]interface{} {
	m.mu.RLock()
	sources := make(map[string]StatsFunc, len(m.stats))
	for name, fn := range m.stats {
		sources[name] = fn
	}
	m.mu.RUnlock()

	out := make(map[string]map[string]interface{}, len(sources))
	for name, fn := range sources {
		out[name] = fn()
	}
	return out
}

type SystemMetrics struct {
	Uptime         string      `json:"uptime"`
	MemoryUsage    MemoryStats `json:"memory"`
	GoroutineCount int         `json:"goroutine_count"`
	CPUCount       int         `json:"cpu_count"`
	GoVersion      string      `json:"go_version"`
}

type MemoryStats struct {
	Alloc        uint64 `json:"alloc_mb"`
	TotalAlloc   uint64 `json:"total_alloc_mb"`
	Sys          uint64 `json:"sys_mb"`
	NumGC        uint32 `json:"num_gc"`
	NextGC       uint64 `json:"next_gc_mb"`
	GCPauseTotal string `json:"gc_pause_total"`
}

func (m *Monitor) SystemMetrics() SystemMetrics {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return SystemMetrics{
		Uptime: m.uptime().String(),
		MemoryUsage: MemoryStats{
			Alloc:        bToMb(mem.Alloc),
			TotalAlloc:   bToMb(mem.TotalAlloc),
			Sys:          bToMb(mem.Sys),
			NumGC:        mem.NumGC,
			NextGC:       bToMb(mem.NextGC),
			GCPauseTotal: time.Duration(mem.PauseTotalNs).String(),
		},
		GoroutineCount: runtime.NumGoroutine(),
		CPUCount:       runtime.NumCPU(),
		GoVersion:      runtime.Version(),
	}
}

func (m *Monitor) uptime() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now().Sub(m.metrics.StartTime).Round(time.Second)
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}

func (m *Monitor) MetricsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"application": m.Snapshot(),
			"components":  m.componentStats(),
			"system":      m.SystemMetrics(),
			"timestamp":   m.now(),
		})
	}
}
