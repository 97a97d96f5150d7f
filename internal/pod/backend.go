// Package pod manages sessions against replicated slot storage. A pod is a
// named storage location holding fixed-size, versioned, signed slots; pages
// stage byte-slice edits locally and commit them a slot at a time with
// optimistic version tracking. The transport behind the Backend interface is
// an external collaborator.
package pod

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	// MaxSlots caps a pod's physical slot count, including the superblock.
	MaxSlots = 4096

	// MaxChunkSize bounds a slot's encoded payload and any single slice.
	MaxChunkSize = 786000

	// SuperblockSlot is reserved for the pod's allocation table.
	SuperblockSlot = 0
)

// ErrNoSuchSlot is reported by a Backend when a slot has never been written.
var ErrNoSuchSlot = errors.New("no such slot")

// Location names a pod: a backend endpoint reference plus the slot index of
// its superblock.
type Location struct {
	BackendRef string `json:"backend_ref" toml:"backend_ref"`
	SlotIndex  uint32 `json:"slot_index" toml:"slot_index"`
}

// Validate checks the location structurally; it performs no network I/O.
func (l Location) Validate() error {
	if strings.TrimSpace(l.BackendRef) == "" {
		return errors.New("empty backend reference")
	}
	if l.SlotIndex >= MaxSlots {
		return fmt.Errorf("superblock slot %d out of range", l.SlotIndex)
	}
	return nil
}

func (l Location) String() string {
	return fmt.Sprintf("%s/%d", l.BackendRef, l.SlotIndex)
}

// SlotMetadata is the authoritative per-slot bookkeeping a backend reports.
// Signer is opaque to this layer; verifying it is the backend's job.
type SlotMetadata struct {
	Slot    uint32 `json:"slot"`
	Version uint64 `json:"version"`
	Signer  []byte `json:"signer,omitempty"`
}

// Chunk is one slot write.
type Chunk struct {
	Slot    uint32 `json:"slot"`
	Version uint64 `json:"version"`
	Data    []byte `json:"data"`
}

// PutResult reports a slot write outcome. A declined write carries the
// backend's latest metadata so the caller can retry at a newer version.
type PutResult struct {
	Accepted bool          `json:"accepted"`
	Reason   string        `json:"reason,omitempty"`
	Latest   *SlotMetadata `json:"latest,omitempty"`
}

// Backend is the storage capability injected into the session manager.
// Implementations own transport, replication, and signature checking.
type Backend interface {
	// ListSlots returns metadata for every slot of the pod at ref.
	ListSlots(ctx context.Context, ref string) ([]SlotMetadata, error)

	// GetSlot returns the latest payload for one slot, or ErrNoSuchSlot if
	// the slot has never been written.
	GetSlot(ctx context.Context, ref string, slot uint32) ([]byte, error)

	// PutSlot writes a slot at a specific version. A stale version yields a
	// declined PutResult, not an error.
	PutSlot(ctx context.Context, ref string, chunk Chunk) (PutResult, error)

	// Owner reports the identity that controls the pod, for owned-pod
	// detection at open time.
	Owner(ctx context.Context, ref string) (string, error)
}
