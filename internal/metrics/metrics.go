package metrics

import (
	"sort"
	"sync"
	"time"
)

// Stats is a snapshot of one backend's counters.
type Stats struct {
	Backend      string        `json:"backend"`
	Calls        int           `json:"calls"`
	Failures     int           `json:"failures"`
	Tokens       int           `json:"tokens"`
	TotalLatency time.Duration `json:"total_latency_ns"`
}

// Usage tracks per-backend call counts, token usage and latency.
type Usage struct {
	mu    sync.Mutex
	stats map[string]*Stats
}

func NewUsage() *Usage {
	return &Usage{stats: make(map[string]*Stats)}
}

func (u *Usage) entry(backend string) *Stats {
	s, ok := u.stats[backend]
	if !ok {
		s = &Stats{Backend: backend}
		u.stats[backend] = s
	}
	return s
}

// Record adds one pipeline run.
func (u *Usage) Record(backend string, tokens int, elapsed time.Duration, err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	s := u.entry(backend)
	s.Calls++
	s.TotalLatency += elapsed
	if err != nil {
		s.Failures++
		return
	}
	s.Tokens += tokens
}

// Snapshot returns a copy of every backend's counters ordered by name.
func (u *Usage) Snapshot() []Stats {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]Stats, 0, len(u.stats))
	for _, s := range u.stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Backend < out[j].Backend })
	return out
}
