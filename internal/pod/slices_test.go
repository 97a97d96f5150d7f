package pod

import (
	"bytes"
	"testing"
)

func TestSlotSlicesPutGet(t *testing.T) {
	ss := newSlotSlices()
	if ss.dirty {
		t.Error("fresh bundle must be clean")
	}
	if !ss.put(7, []byte("hello")) {
		t.Fatal("put failed")
	}
	if !ss.dirty {
		t.Error("put must mark the bundle dirty")
	}
	got, ok := ss.get(7)
	if !ok || string(got) != "hello" {
		t.Fatalf("get: %q %v", got, ok)
	}
	if _, ok := ss.get(8); ok {
		t.Error("unknown slice id should miss")
	}
}

func TestSlotSlicesCopiesPayloads(t *testing.T) {
	ss := newSlotSlices()
	src := []byte("mutable")
	ss.put(0, src)
	src[0] = 'X'
	got, _ := ss.get(0)
	if string(got) != "mutable" {
		t.Error("put must not alias the caller's buffer")
	}
	got[0] = 'Y'
	again, _ := ss.get(0)
	if string(again) != "mutable" {
		t.Error("get must not alias the stored buffer")
	}
}

func TestSlotSlicesSizeAccounting(t *testing.T) {
	ss := newSlotSlices()
	if !ss.put(1, make([]byte, MaxChunkSize-bundleHeaderSize-sliceOverhead)) {
		t.Fatal("one maximal slice should fit")
	}
	if ss.put(2, []byte("overflow")) {
		t.Error("second slice must be rejected once the bundle is full")
	}
	if _, ok := ss.get(2); ok {
		t.Error("rejected put must leave the bundle unchanged")
	}

	// overwriting an existing id reuses its budget
	if !ss.put(1, make([]byte, 128)) {
		t.Fatal("shrinking an existing slice should always fit")
	}
	if !ss.put(2, make([]byte, 4096)) {
		t.Error("freed budget should admit new slices")
	}
}

// An accepted bundle must encode to a chunk the backend will take: the
// tracked size is the framed size, byte for byte.
func TestSlotSlicesEncodedSizeIsExact(t *testing.T) {
	ss := newSlotSlices()
	if !ss.put(0, make([]byte, 700000)) {
		t.Fatal("a 700000-byte slice must fit in an empty bundle")
	}
	ss.put(1, []byte("index"))

	data, err := ss.encode()
	if err != nil {
		t.Fatal(err)
	}
	if uint64(len(data)) != ss.encodedSize {
		t.Errorf("encoded %d bytes but tracked %d", len(data), ss.encodedSize)
	}
	if len(data) > MaxChunkSize {
		t.Errorf("accepted bundle encodes to %d bytes, over the %d chunk bound", len(data), MaxChunkSize)
	}
}

func TestSlotSlicesEncodeDecode(t *testing.T) {
	ss := newSlotSlices()
	ss.put(0, []byte{0x00, 0xff, 0x10})
	ss.put(42, []byte("state"))

	data, err := ss.encode()
	if err != nil {
		t.Fatal(err)
	}
	back, err := decodeSlotSlices(data)
	if err != nil {
		t.Fatal(err)
	}
	if back.dirty {
		t.Error("decoded bundle starts clean")
	}
	for id, want := range ss.slices {
		got, ok := back.get(id)
		if !ok || !bytes.Equal(got, want) {
			t.Errorf("slice %d: got %x want %x", id, got, want)
		}
	}
	if back.encodedSize != ss.encodedSize {
		t.Errorf("decode must rebuild size accounting: got %d want %d", back.encodedSize, ss.encodedSize)
	}
}

func TestDecodeSlotSlicesRejectsGarbage(t *testing.T) {
	cases := map[string][]byte{
		"empty":          nil,
		"short header":   {bundleFormat, 0, 0},
		"unknown format": {0xee, 0, 0, 0, 0, 0, 0, 0, 0},
		"truncated body": {bundleFormat, 0, 0, 0, 0, 0, 0, 0, 1, 0xab},
	}
	for name, data := range cases {
		if _, err := decodeSlotSlices(data); err == nil {
			t.Errorf("%s: expected decode error", name)
		}
	}
}

func TestDecodeEmptyBundle(t *testing.T) {
	data, err := newSlotSlices().encode()
	if err != nil {
		t.Fatal(err)
	}
	ss, err := decodeSlotSlices(data)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ss.get(0); ok {
		t.Error("empty bundle has no slices")
	}
	if !ss.put(0, []byte("first")) {
		t.Error("empty bundle must accept writes")
	}
}
