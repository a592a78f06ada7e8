package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-publisher/internal/testutil"
	"github.com/i474232898/weather-publisher/internal/uploader"
)

type countingPruner struct {
	calls atomic.Int32
}

func (p *countingPruner) Prune() int {
	p.calls.Add(1)
	return 2
}

type staticStats uploader.Stats

func (s staticStats) Stats() uploader.Stats { return uploader.Stats(s) }

func TestRunOnce(t *testing.T) {
	pruner := &countingPruner{}
	logger := &testutil.MockLogger{}
	s := New(time.Minute, pruner, logger, staticStats{Protocol: "Xively", Posted: 4, Failed: 1})

	s.RunOnce()

	assert.Equal(t, int32(1), pruner.calls.Load())
	assert.True(t, logger.Contains("debug", "pruned 2"))
	assert.True(t, logger.Contains("info", "Xively: queued=0 posted=4 failed=1"))
	assert.True(t, logger.Contains("info", "last_post=never"))
}

func TestStartRunsPeriodically(t *testing.T) {
	pruner := &countingPruner{}
	s := New(50*time.Millisecond, pruner, &testutil.MockLogger{})
	require.NoError(t, s.Start())
	defer s.Stop()

	require.Eventually(t, func() bool {
		return pruner.calls.Load() >= 1
	}, 3*time.Second, 10*time.Millisecond)
}
