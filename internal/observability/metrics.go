package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu              sync.Mutex
	requestCount    map[string]int64
	requestLatency  map[string]time.Duration
	errorCount      map[string]int64
	transitionCount map[string]int64
	sideEffectFails map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:    make(map[string]int64),
		requestLatency:  make(map[string]time.Duration),
		errorCount:      make(map[string]int64),
		transitionCount: make(map[string]int64),
		sideEffectFails: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.requestLatency[key] += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordTransition counts committed status changes.
func (m *Metrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitionCount[from+"->"+to]++
}

// RecordSideEffectFailure counts failed best-effort operations by name.
func (m *Metrics) RecordSideEffectFailure(operation string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sideEffectFails[operation]++
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Requests           map[string]int64
	Errors             map[string]int64
	Transitions        map[string]int64
	SideEffectFailures map[string]int64
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Requests:           copyCounts(m.requestCount),
		Errors:             copyCounts(m.errorCount),
		Transitions:        copyCounts(m.transitionCount),
		SideEffectFailures: copyCounts(m.sideEffectFails),
	}
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
