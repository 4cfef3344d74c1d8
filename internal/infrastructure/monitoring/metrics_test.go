package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserverEvents(t *testing.T) {
	m := NewMetrics()

	m.SyscallExecuted("send", 42)
	m.SyscallExecuted("send", -1)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SyscallsTotal.WithLabelValues("send")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SyscallErrors.WithLabelValues("send")))

	m.ContextSwitch()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ContextSwitches))

	m.FaultTaken("page_fault")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Faults.WithLabelValues("page_fault")))

	m.ProcessSpawned()
	m.ProcessSpawned()
	m.ProcessExited()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ProcessesSpawned))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProcessesActive))
}

func TestFrameGauges(t *testing.T) {
	m := NewMetrics()
	m.SetFrames(100, 28)
	assert.Equal(t, 100.0, testutil.ToFloat64(m.FramesFree))
	assert.Equal(t, 28.0, testutil.ToFloat64(m.FramesUsed))
}

func TestHTTPRecording(t *testing.T) {
	m := NewMetrics()
	m.RecordHTTPRequest("GET", "/processes", "200", 5*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/processes", "200")))
}

func TestIndependentRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()
	a.ContextSwitch()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ContextSwitches))
}
