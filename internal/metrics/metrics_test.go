package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordAndSnapshot(t *testing.T) {
	u := NewUsage()
	u.Record("openai", 30, 2*time.Second, nil)
	u.Record("openai", 99, time.Second, errors.New("unavailable"))
	u.Record("echo", 0, time.Millisecond, nil)

	snap := u.Snapshot()
	require.Len(t, snap, 2)
	require.Equal(t, "echo", snap[0].Backend)
	require.Equal(t, Stats{Backend: "openai", Calls: 2, Failures: 1, Tokens: 30, TotalLatency: 3 * time.Second}, snap[1])
}

func TestRecordConcurrent(t *testing.T) {
	u := NewUsage()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u.Record("ollama", 1, time.Millisecond, nil)
		}()
	}
	wg.Wait()
	require.Equal(t, 50, u.Snapshot()[0].Calls)
	require.Equal(t, 50, u.Snapshot()[0].Tokens)
}
