package pod

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// Bundle wire format: a one-byte format tag, a big-endian uint64 slice
// count, then per slice an 8-byte id, an 8-byte length and the raw payload.
// The framing stores payloads verbatim, so the tracked size is exactly the
// chunk the backend receives.
const (
	bundleFormat     = 1
	bundleHeaderSize = 1 + 8
	sliceOverhead    = 8 + 8
)

// slotSlices is the staged slice bundle for one slot: the unit of local
// editing between fetch and sync. Size accounting keeps the encoded bundle
// within MaxChunkSize before a write is accepted.
type slotSlices struct {
	slices map[uint64][]byte

	dirty       bool
	encodedSize uint64
}

func newSlotSlices() *slotSlices {
	return &slotSlices{
		slices:      make(map[uint64][]byte),
		encodedSize: bundleHeaderSize,
	}
}

func decodeSlotSlices(data []byte) (*slotSlices, error) {
	if len(data) < bundleHeaderSize {
		return nil, fmt.Errorf("slice bundle truncated: %d bytes", len(data))
	}
	if data[0] != bundleFormat {
		return nil, fmt.Errorf("unknown slice bundle format %d", data[0])
	}
	count := binary.BigEndian.Uint64(data[1:bundleHeaderSize])
	ss := newSlotSlices()
	rest := data[bundleHeaderSize:]
	for i := uint64(0); i < count; i++ {
		if uint64(len(rest)) < sliceOverhead {
			return nil, fmt.Errorf("slice bundle truncated at entry %d", i)
		}
		id := binary.BigEndian.Uint64(rest[:8])
		size := binary.BigEndian.Uint64(rest[8:sliceOverhead])
		rest = rest[sliceOverhead:]
		if uint64(len(rest)) < size {
			return nil, fmt.Errorf("slice %d truncated: want %d bytes, have %d", id, size, len(rest))
		}
		buf := make([]byte, size)
		copy(buf, rest[:size])
		rest = rest[size:]
		ss.slices[id] = buf
		ss.encodedSize += sliceOverhead + size
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("slice bundle has %d trailing bytes", len(rest))
	}
	return ss, nil
}

// encode frames the bundle in slice-id order. The result is always exactly
// encodedSize bytes long.
func (ss *slotSlices) encode() ([]byte, error) {
	ids := make([]uint64, 0, len(ss.slices))
	for id := range ss.slices {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]byte, bundleHeaderSize, ss.encodedSize)
	out[0] = bundleFormat
	binary.BigEndian.PutUint64(out[1:bundleHeaderSize], uint64(len(ids)))
	for _, id := range ids {
		var hdr [sliceOverhead]byte
		binary.BigEndian.PutUint64(hdr[:8], id)
		binary.BigEndian.PutUint64(hdr[8:], uint64(len(ss.slices[id])))
		out = append(out, hdr[:]...)
		out = append(out, ss.slices[id]...)
	}
	if uint64(len(out)) != ss.encodedSize {
		return nil, fmt.Errorf("slice bundle accounting drift: encoded %d bytes, tracked %d", len(out), ss.encodedSize)
	}
	return out, nil
}

// canFit reports whether a slice of the given length fits, accounting for
// whether the id already exists in the bundle.
func (ss *slotSlices) canFit(id uint64, size int) bool {
	next := ss.encodedSize + uint64(size)
	if existing, ok := ss.slices[id]; ok {
		next -= uint64(len(existing))
	} else {
		next += sliceOverhead
	}
	return next <= MaxChunkSize
}

// put stages a slice and marks the bundle dirty. Returns false, leaving the
// bundle unchanged, when the slice would not fit.
func (ss *slotSlices) put(id uint64, data []byte) bool {
	if !ss.canFit(id, len(data)) {
		return false
	}
	if existing, ok := ss.slices[id]; ok {
		ss.encodedSize -= uint64(len(existing))
	} else {
		ss.encodedSize += sliceOverhead
	}
	ss.encodedSize += uint64(len(data))
	buf := make([]byte, len(data))
	copy(buf, data)
	ss.slices[id] = buf
	ss.dirty = true
	return true
}

// get returns a staged slice by id.
func (ss *slotSlices) get(id uint64) ([]byte, bool) {
	b, ok := ss.slices[id]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, true
}
