package obs

import (
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector keeps process-wide, monotonically increasing security counters.
// Counts are mirrored into a Prometheus counter vector for scraping and kept
// in a guarded map so operators can read and reset them through the admin
// surface. Safe for concurrent use; one instance is shared per process.
type Collector struct {
	mu     sync.Mutex
	counts map[string]uint64
	vec    *prometheus.CounterVec
}

// NewCollector constructs a Collector registered against the given registry.
// Pass Registry for the process-wide instance; tests use their own.
func NewCollector(reg prometheus.Registerer) *Collector {
	vec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stridelog",
			Subsystem: "security",
			Name:      "events_total",
			Help:      "Security-relevant event counts by name.",
		},
		[]string{"name"},
	)
	if reg != nil {
		reg.MustRegister(vec)
	}
	return &Collector{
		counts: make(map[string]uint64),
		vec:    vec,
	}
}

// Increment bumps the named counter by one. Empty names are recorded under
// "unknown" rather than dropped so misuse stays visible.
func (c *Collector) Increment(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "unknown"
	}
	c.mu.Lock()
	c.counts[name]++
	c.mu.Unlock()
	c.vec.WithLabelValues(name).Inc()
}

// Metrics returns a copy of the current counters.
func (c *Collector) Metrics() map[string]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]uint64, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// Names returns the counter names in sorted order.
func (c *Collector) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.counts))
	for k := range c.counts {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Reset clears all counters. Explicit operator action only; counters carry
// no persistence guarantee across restarts.
func (c *Collector) Reset() {
	c.mu.Lock()
	c.counts = make(map[string]uint64)
	c.mu.Unlock()
	c.vec.Reset()
}
