package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveOperationCountsByResult(t *testing.T) {
	before := testutil.ToFloat64(operations.WithLabelValues("merge", "success"))
	ObserveOperation("merge", "success", 20*time.Millisecond)
	ObserveOperation("merge", "invalid_input", time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(operations.WithLabelValues("merge", "success")))
}

func TestInflightGauge(t *testing.T) {
	base := testutil.ToFloat64(inflight)
	RequestStarted()
	RequestStarted()
	assert.Equal(t, base+2, testutil.ToFloat64(inflight))
	RequestFinished()
	RequestFinished()
	assert.Equal(t, base, testutil.ToFloat64(inflight))
}

func TestArchiveAndCleanupCounters(t *testing.T) {
	entries := testutil.ToFloat64(archiveEntries.WithLabelValues("split"))
	AddArchiveEntries("split", 3)
	assert.Equal(t, entries+3, testutil.ToFloat64(archiveEntries.WithLabelValues("split")))

	failures := testutil.ToFloat64(cleanupFailures)
	IncCleanupFailure()
	assert.Equal(t, failures+1, testutil.ToFloat64(cleanupFailures))
}
