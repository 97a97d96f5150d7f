package pod

import (
	"context"
	"fmt"
	"sync"
)

// MemBackend is an in-process Backend with versioned slots and opaque signer
// bytes. It is the default for tests and for hosting pages against purely
// local state; it enforces the same stale-version rejection a replicated
// backend would.
type MemBackend struct {
	mu   sync.Mutex
	pods map[string]*memPod

	// Signer is attached to every accepted write's metadata.
	Signer []byte
	// OwnerID is reported as every pod's controlling identity.
	OwnerID string
}

type memSlot struct {
	version uint64
	data    []byte
	signer  []byte
}

type memPod struct {
	slots map[uint32]*memSlot
}

// NewMemBackend creates an empty in-memory backend.
func NewMemBackend() *MemBackend {
	return &MemBackend{pods: make(map[string]*memPod)}
}

func (b *MemBackend) pod(ref string) *memPod {
	p, ok := b.pods[ref]
	if !ok {
		p = &memPod{slots: make(map[uint32]*memSlot)}
		b.pods[ref] = p
	}
	return p
}

// ListSlots returns metadata for every written slot of the pod.
func (b *MemBackend) ListSlots(_ context.Context, ref string) ([]SlotMetadata, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.pod(ref)
	out := make([]SlotMetadata, 0, len(p.slots))
	for id, s := range p.slots {
		out = append(out, SlotMetadata{Slot: id, Version: s.version, Signer: s.signer})
	}
	return out, nil
}

// GetSlot returns the latest payload for a slot.
func (b *MemBackend) GetSlot(_ context.Context, ref string, slot uint32) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.pod(ref).slots[slot]
	if !ok {
		return nil, ErrNoSuchSlot
	}
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out, nil
}

// PutSlot accepts a write only at a version strictly above the current one;
// a stale write is declined with the latest metadata attached.
func (b *MemBackend) PutSlot(_ context.Context, ref string, chunk Chunk) (PutResult, error) {
	if len(chunk.Data) > MaxChunkSize {
		return PutResult{}, fmt.Errorf("chunk of %d bytes exceeds maximum %d", len(chunk.Data), MaxChunkSize)
	}
	if chunk.Slot >= MaxSlots {
		return PutResult{}, fmt.Errorf("slot %d out of range", chunk.Slot)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.pod(ref)
	if cur, ok := p.slots[chunk.Slot]; ok && chunk.Version <= cur.version {
		return PutResult{
			Accepted: false,
			Reason:   "stale version",
			Latest:   &SlotMetadata{Slot: chunk.Slot, Version: cur.version, Signer: cur.signer},
		}, nil
	}
	data := make([]byte, len(chunk.Data))
	copy(data, chunk.Data)
	p.slots[chunk.Slot] = &memSlot{version: chunk.Version, data: data, signer: b.Signer}
	return PutResult{Accepted: true}, nil
}

// Owner reports the configured owning identity.
func (b *MemBackend) Owner(_ context.Context, _ string) (string, error) {
	return b.OwnerID, nil
}
