package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector keeps process-local request counters exposed on the admin API.
type Collector struct {
	startedAt       time.Time
	totalRequests   atomic.Uint64
	clientErrors    atomic.Uint64
	serverErrors    atomic.Uint64
	rateLimited     atomic.Uint64
	totalDurationMs atomic.Uint64

	mu      sync.Mutex
	byRoute map[string]uint64
}

type Snapshot struct {
	UptimeSeconds    int64             `json:"uptimeSeconds"`
	RequestsTotal    uint64            `json:"requestsTotal"`
	ClientErrors     uint64            `json:"clientErrorsTotal"`
	ServerErrors     uint64            `json:"serverErrorsTotal"`
	RateLimitedTotal uint64            `json:"rateLimitedTotal"`
	AvgDurationMs    float64           `json:"avgDurationMs"`
	ByRoute          map[string]uint64 `json:"byRoute"`
}

func New() *Collector {
	return &Collector{startedAt: time.Now(), byRoute: map[string]uint64{}}
}

// Record counts one finished request. route is the matched pattern, not the
// raw path, so ids do not explode the map.
func (c *Collector) Record(route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.totalRequests.Add(1)
	switch {
	case status == 429:
		c.rateLimited.Add(1)
		c.clientErrors.Add(1)
	case status >= 500:
		c.serverErrors.Add(1)
	case status >= 400:
		c.clientErrors.Add(1)
	}
	c.totalDurationMs.Add(uint64(duration.Milliseconds()))
	if route != "" {
		c.mu.Lock()
		c.byRoute[route]++
		c.mu.Unlock()
	}
}

func (c *Collector) Snapshot() Snapshot {
	total := c.totalRequests.Load()
	avg := float64(0)
	if total > 0 {
		avg = float64(c.totalDurationMs.Load()) / float64(total)
	}
	c.mu.Lock()
	routes := make(map[string]uint64, len(c.byRoute))
	for k, v := range c.byRoute {
		routes[k] = v
	}
	c.mu.Unlock()
	return Snapshot{
		UptimeSeconds:    int64(time.Since(c.startedAt).Seconds()),
		RequestsTotal:    total,
		ClientErrors:     c.clientErrors.Load(),
		ServerErrors:     c.serverErrors.Load(),
		RateLimitedTotal: c.rateLimited.Load(),
		AvgDurationMs:    avg,
		ByRoute:          routes,
	}
}
