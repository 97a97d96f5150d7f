package pod

import (
	"context"

	"github.com/wrbnet/wrbhost/internal/infrastructure/monitoring"
)

// InstrumentedBackend wraps a Backend and records every node round trip.
type InstrumentedBackend struct {
	inner   Backend
	metrics *monitoring.Metrics
}

// Instrument decorates a backend with round-trip metrics. A nil metrics
// collector returns the backend unchanged.
func Instrument(inner Backend, metrics *monitoring.Metrics) Backend {
	if metrics == nil {
		return inner
	}
	return &InstrumentedBackend{inner: inner, metrics: metrics}
}

func (b *InstrumentedBackend) ListSlots(ctx context.Context, ref string) ([]SlotMetadata, error) {
	timer := monitoring.NewPodTimer(b.metrics, "list_slots")
	out, err := b.inner.ListSlots(ctx, ref)
	timer.Stop(status(err))
	return out, err
}

func (b *InstrumentedBackend) GetSlot(ctx context.Context, ref string, slot uint32) ([]byte, error) {
	timer := monitoring.NewPodTimer(b.metrics, "get_slot")
	out, err := b.inner.GetSlot(ctx, ref, slot)
	// A never-written slot is a defined outcome, not a node fault.
	if err == ErrNoSuchSlot {
		timer.Stop("ok")
	} else {
		timer.Stop(status(err))
	}
	return out, err
}

func (b *InstrumentedBackend) PutSlot(ctx context.Context, ref string, chunk Chunk) (PutResult, error) {
	timer := monitoring.NewPodTimer(b.metrics, "put_slot")
	out, err := b.inner.PutSlot(ctx, ref, chunk)
	timer.Stop(status(err))
	return out, err
}

func (b *InstrumentedBackend) Owner(ctx context.Context, ref string) (string, error) {
	timer := monitoring.NewPodTimer(b.metrics, "owner")
	out, err := b.inner.Owner(ctx, ref)
	timer.Stop(status(err))
	return out, err
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
