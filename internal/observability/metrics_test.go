package observability

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics()
	m.Record("cut", 10*time.Millisecond, false)
	m.Record("cut", 30*time.Millisecond, true)
	m.Record("extract", 5*time.Millisecond, false)

	assert.Equal(t, int64(3), m.GetRequestTotal())
	assert.Equal(t, int64(1), m.GetRequestFailed())
	assert.Equal(t, []string{"cut", "extract"}, m.Operations())

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Operations["cut"].ExecutionCount)
	assert.Equal(t, int64(20), snap.Operations["cut"].AverageDuration)
	assert.Equal(t, int64(1), snap.Operations["cut"].ErrorCount)
	assert.InDelta(t, 66.67, snap.SuccessRate(), 0.01)

	m.Reset()
	assert.Equal(t, int64(0), m.GetRequestTotal())
	assert.Empty(t, m.Operations())
	assert.Equal(t, 100.0, m.Snapshot().SuccessRate())
}

func TestMetrics_Concurrent(t *testing.T) {
	m := NewMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Record("batch", time.Millisecond, i%2 == 0)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), m.GetRequestTotal())
	assert.Equal(t, int64(25), m.GetRequestFailed())
}
