package pod

import (
	"github.com/bytedance/sonic"
)

// appState records one application's slot allocation within a pod.
type appState struct {
	Version  uint8    `json:"version"`
	CodeHash []byte   `json:"code_hash,omitempty"`
	Slots    []uint32 `json:"slots"`
}

// superblock is the pod's allocation table, stored in SuperblockSlot. App
// slot ids are logical: an app's slots are numbered 0..n and map through
// this table to physical slot ids shared by every app in the pod.
type superblock struct {
	Version uint8                `json:"version"`
	Apps    map[string]*appState `json:"apps"`
}

func newSuperblock() *superblock {
	return &superblock{Apps: make(map[string]*appState)}
}

func decodeSuperblock(data []byte) (*superblock, error) {
	var sb superblock
	if err := sonic.Unmarshal(data, &sb); err != nil {
		return nil, err
	}
	if sb.Apps == nil {
		sb.Apps = make(map[string]*appState)
	}
	return &sb, nil
}

func (sb *superblock) encode() ([]byte, error) {
	return sonic.Marshal(sb)
}

// findFreeSlot returns the lowest unallocated physical slot, skipping the
// superblock and any ids in pending.
func (sb *superblock) findFreeSlot(pending []uint32) (uint32, bool) {
	occupied := make(map[uint32]struct{})
	occupied[SuperblockSlot] = struct{}{}
	for _, st := range sb.Apps {
		for _, s := range st.Slots {
			occupied[s] = struct{}{}
		}
	}
	for _, s := range pending {
		occupied[s] = struct{}{}
	}
	for s := uint32(1); s < MaxSlots; s++ {
		if _, ok := occupied[s]; !ok {
			return s, true
		}
	}
	return 0, false
}

// allocate reserves count more physical slots for app, creating its state if
// needed. Returns false when the pod has no room; the table is unchanged in
// that case.
func (sb *superblock) allocate(app string, codeHash []byte, count uint32) bool {
	var pending []uint32
	for i := uint32(0); i < count; i++ {
		s, ok := sb.findFreeSlot(pending)
		if !ok {
			return false
		}
		pending = append(pending, s)
	}

	st, ok := sb.Apps[app]
	if !ok {
		sb.Apps[app] = &appState{CodeHash: codeHash, Slots: pending}
		return true
	}
	st.Slots = append(st.Slots, pending...)
	return true
}

// numSlots reports an app's allocated slot count.
func (sb *superblock) numSlots(app string) uint32 {
	st, ok := sb.Apps[app]
	if !ok {
		return 0
	}
	return uint32(len(st.Slots))
}

// physicalSlot maps an app's logical slot id to its physical slot id.
func (sb *superblock) physicalSlot(app string, appSlot uint32) (uint32, bool) {
	st, ok := sb.Apps[app]
	if !ok || int(appSlot) >= len(st.Slots) {
		return 0, false
	}
	return st.Slots[appSlot], true
}
