package monitoring

import (
	"time"
)

// Timer measures one host call and records it on Stop.
type Timer struct {
	start   time.Time
	metrics *Metrics
	op      string
}

// NewTimer starts timing a host call.
func NewTimer(metrics *Metrics, op string) *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: metrics,
		op:      op,
	}
}

// Stop records the call with its outcome status.
func (t *Timer) Stop(status string) {
	t.metrics.RecordHostCall(t.op, status, time.Since(t.start))
}

// PodTimer measures one storage node round trip.
type PodTimer struct {
	start   time.Time
	metrics *Metrics
	op      string
}

// NewPodTimer starts timing a node round trip.
func NewPodTimer(metrics *Metrics, op string) *PodTimer {
	return &PodTimer{
		start:   time.Now(),
		metrics: metrics,
		op:      op,
	}
}

// Stop records the round trip with its outcome status.
func (t *PodTimer) Stop(status string) {
	t.metrics.RecordPodRoundTrip(t.op, status, time.Since(t.start))
}
