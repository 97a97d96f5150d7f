package runtime

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/wrbnet/wrbhost/internal/pod"
	"github.com/wrbnet/wrbhost/internal/wrberr"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt, err := New(Options{
		Backend:  pod.NewMemBackend(),
		Identity: "alice",
		App:      "demo.app",
	})
	if err != nil {
		t.Fatal(err)
	}
	return rt
}

func dispatch(t *testing.T, rt *Runtime, op string, params Params) *Result {
	t.Helper()
	res := rt.Dispatch(context.Background(), op, params)
	if res.Err != nil {
		t.Fatalf("%s: %v", op, res.Err)
	}
	return res
}

func TestUnknownOp(t *testing.T) {
	rt := newTestRuntime(t)
	res := rt.Dispatch(context.Background(), "no.such_op", nil)
	if res.Err == nil || res.Err.Code != wrberr.CodeInvalid {
		t.Fatalf("expected Invalid, got %v", res.Err)
	}
	if rt.LastError() == nil {
		t.Error("failures must be recorded as the last error")
	}
}

// Two root viewports enumerate most-recently-created first.
func TestViewportCreateAndEnumerate(t *testing.T) {
	rt := newTestRuntime(t)

	dispatch(t, rt, "viewport.create_root", Params{
		"id": 0, "start_row": 0, "start_col": 0, "num_rows": 120, "num_cols": 60,
	})
	dispatch(t, rt, "viewport.create_root", Params{
		"id": 1, "start_row": 0, "start_col": 60, "num_rows": 120, "num_cols": 60,
	})

	res := dispatch(t, rt, "viewport.enumerate", Params{})
	vps := res.Data["viewports"].([]interface{})
	if len(vps) != 2 {
		t.Fatalf("expected 2 viewports, got %d", len(vps))
	}
	first := vps[0].(map[string]interface{})
	if first["id"].(uint64) != 1 {
		t.Errorf("most recently created must come first, got %v", first["id"])
	}
}

func TestViewportErrorsSurface(t *testing.T) {
	rt := newTestRuntime(t)
	ctx := context.Background()

	dispatch(t, rt, "viewport.create_root", Params{
		"id": 0, "num_rows": 10, "num_cols": 10,
	})

	res := rt.Dispatch(ctx, "viewport.create_root", Params{"id": 0, "num_rows": 1, "num_cols": 1})
	if res.Err == nil || res.Err.Code != wrberr.CodeExists {
		t.Errorf("duplicate id: expected Exists, got %v", res.Err)
	}

	res = rt.Dispatch(ctx, "viewport.create_child", Params{
		"id": 7, "parent": 99, "num_rows": 1, "num_cols": 1,
	})
	if res.Err == nil || res.Err.Code != wrberr.CodeNotFound {
		t.Errorf("missing parent: expected NotFound, got %v", res.Err)
	}

	res = rt.Dispatch(ctx, "viewport.create_root", Params{
		"id": 8, "start_row": 65000, "num_rows": 1000, "num_cols": 1,
	})
	if res.Err == nil || res.Err.Code != wrberr.CodeInvalid {
		t.Errorf("bad geometry: expected Invalid, got %v", res.Err)
	}
}

func TestStaticTextAndReadback(t *testing.T) {
	rt := newTestRuntime(t)

	dispatch(t, rt, "viewport.create_root", Params{"id": 0, "num_rows": 20, "num_cols": 80})
	res := dispatch(t, rt, "static.add_text", Params{
		"viewport": 0, "row": 2, "col": 4, "text": "hello",
	})
	eid := res.Data["element"].(string)

	got := dispatch(t, rt, "element.get_text", Params{"element": eid})
	src := got.Data["source"].(map[string]interface{})
	if src["text"].(string) != "hello" {
		t.Errorf("read back %v", src)
	}

	// absent lookups are empty, not errors
	miss := dispatch(t, rt, "element.get_text", Params{"element": "s:9999"})
	if miss.Data != nil {
		t.Errorf("expected absent result, got %v", miss.Data)
	}
}

func TestPrintlnSetsNewline(t *testing.T) {
	rt := newTestRuntime(t)

	res := dispatch(t, rt, "static.add_println", Params{"viewport": 0, "text": "line"})
	eid := res.Data["element"].(string)
	got := dispatch(t, rt, "element.get_print", Params{"element": eid})
	if got.Data["newline"].(bool) != true {
		t.Error("println must set the newline flag")
	}

	res = dispatch(t, rt, "static.add_print", Params{"viewport": 0, "text": "run"})
	got = dispatch(t, rt, "element.get_print", Params{"element": res.Data["element"].(string)})
	if got.Data["newline"].(bool) != false {
		t.Error("print must not set the newline flag")
	}
}

// Dynamic capacity: 1024 adds succeed, the 1025th fails cleanly.
func TestDynamicCapacityThroughDispatch(t *testing.T) {
	rt := newTestRuntime(t)
	ctx := context.Background()

	for i := 0; i < 1024; i++ {
		res := rt.Dispatch(ctx, "dynamic.add_text", Params{
			"viewport": 0, "row": 0, "col": 0, "handle": uint64(i),
		})
		if res.Err != nil {
			t.Fatalf("add %d failed: %v", i, res.Err)
		}
	}
	res := rt.Dispatch(ctx, "dynamic.add_text", Params{
		"viewport": 0, "row": 0, "col": 0, "handle": 1024,
	})
	if res.Err == nil {
		t.Fatal("1025th dynamic add must fail")
	}

	texts := dispatch(t, rt, "dynamic.texts", Params{"viewport": 0})
	if got := len(texts.Data["texts"].([]interface{})); got != 1024 {
		t.Errorf("prior entries corrupted: %d", got)
	}
}

func TestClearViewportThroughDispatch(t *testing.T) {
	rt := newTestRuntime(t)

	dispatch(t, rt, "dynamic.add_text", Params{"viewport": 0, "handle": 1, "row": 0, "col": 0})
	dispatch(t, rt, "dynamic.add_text", Params{"viewport": 1, "handle": 2, "row": 0, "col": 0})
	staticRes := dispatch(t, rt, "static.add_text", Params{"viewport": 0, "text": "keep"})

	dispatch(t, rt, "dynamic.clear", Params{"viewport": 0})

	if got := dispatch(t, rt, "dynamic.texts", Params{"viewport": 0}); len(got.Data["texts"].([]interface{})) != 0 {
		t.Error("viewport 0 dynamics should be cleared")
	}
	if got := dispatch(t, rt, "dynamic.texts", Params{"viewport": 1}); len(got.Data["texts"].([]interface{})) != 1 {
		t.Error("viewport 1 dynamics must survive")
	}
	if got := dispatch(t, rt, "element.get_text", Params{"element": staticRes.Data["element"].(string)}); got.Data == nil {
		t.Error("static elements are untouched by clear")
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	rt := newTestRuntime(t)

	dispatch(t, rt, "payload.store", Params{"handle": 42, "text": "large payload body"})
	if got := dispatch(t, rt, "payload.load", Params{"handle": 42}); got.Data["text"].(string) != "large payload body" {
		t.Error("load mismatch")
	}
	if got := dispatch(t, rt, "payload.bypass_load", Params{"handle": 42}); got.Data["text"].(string) != "large payload body" {
		t.Error("bypass load must observe the same value")
	}
	if got := dispatch(t, rt, "payload.load", Params{"handle": 43}); got.Data != nil {
		t.Error("absent handle is empty, not an error")
	}
}

func TestEventConfigThroughDispatch(t *testing.T) {
	rt := newTestRuntime(t)

	dispatch(t, rt, "event.set_loop", Params{"name": "on-tick"})
	if got := dispatch(t, rt, "event.get_loop", Params{}); got.Data["name"].(string) != "on-tick" {
		t.Error("entry point name")
	}

	dispatch(t, rt, "event.subscribe", Params{"category": 1})
	dispatch(t, rt, "event.subscribe", Params{"category": 2})
	dispatch(t, rt, "event.subscribe", Params{"category": 1})
	subs := dispatch(t, rt, "event.subscriptions", Params{}).Data["subscriptions"].([]interface{})
	if len(subs) != 3 {
		t.Errorf("duplicates are allowed, got %d", len(subs))
	}

	if got := dispatch(t, rt, "event.get_tick_delay", Params{}); got.Data["ms"].(uint64) != 33 {
		t.Errorf("default tick delay: %v", got.Data["ms"])
	}
	dispatch(t, rt, "event.set_tick_delay", Params{"ms": 100})
	if got := dispatch(t, rt, "event.get_tick_delay", Params{}); got.Data["ms"].(uint64) != 100 {
		t.Errorf("tick delay: %v", got.Data["ms"])
	}
}

func TestPodFlowThroughDispatch(t *testing.T) {
	rt := newTestRuntime(t)

	res := dispatch(t, rt, "pod.open", Params{"backend_ref": "alice.pods/home"})
	sid := res.Data["session"].(uint64)

	fetch := dispatch(t, rt, "pod.fetch_slot", Params{"session": sid, "slot": 0})
	if fetch.Data["version"].(uint64) != 0 {
		t.Errorf("fresh slot fetches at version 0: %v", fetch.Data)
	}

	miss := rt.Dispatch(context.Background(), "pod.get_slice", Params{"session": sid, "slot": 0, "slice": 0})
	if miss.Err == nil || miss.Err.Code != wrberr.CodeNoSlice {
		t.Fatalf("expected NoSlice, got %v", miss.Err)
	}

	payload := base64.StdEncoding.EncodeToString([]byte("durable"))
	dispatch(t, rt, "pod.put_slice", Params{"session": sid, "slot": 0, "slice": 0, "data": payload})
	sync := dispatch(t, rt, "pod.sync_slot", Params{"session": sid, "slot": 0})
	if sync.Data["synced"].(bool) != true {
		t.Fatal("sync should commit")
	}

	got := dispatch(t, rt, "pod.get_slice", Params{"session": sid, "slot": 0, "slice": 0})
	raw, err := base64.StdEncoding.DecodeString(got.Data["data"].(string))
	if err != nil || string(raw) != "durable" {
		t.Errorf("round trip: %q %v", raw, err)
	}
}

func TestLastErrorLifecycle(t *testing.T) {
	rt := newTestRuntime(t)
	ctx := context.Background()

	rt.Dispatch(ctx, "pod.get_slice", Params{"session": 5, "slot": 0, "slice": 0})
	last := rt.LastError()
	if last == nil || last.Code != wrberr.CodePodNotOpen {
		t.Fatalf("expected recorded PodNotOpen, got %v", last)
	}
	if len(last.Message) > wrberr.MaxMessageLen {
		t.Error("diagnostics must stay bounded")
	}

	rt.ClearLastError()
	if rt.LastError() != nil {
		t.Error("cleared")
	}
}

func TestOpsListsEveryHandler(t *testing.T) {
	rt := newTestRuntime(t)
	ops := rt.Ops()
	if len(ops) < 35 {
		t.Errorf("host surface looks truncated: %d ops", len(ops))
	}
	seen := make(map[string]bool)
	for _, op := range ops {
		if seen[op] {
			t.Errorf("duplicate op %s", op)
		}
		seen[op] = true
	}
	for _, want := range []string{"viewport.enumerate", "pod.sync_slot", "payload.bypass_load", "util.buff_to_utf8"} {
		if !seen[want] {
			t.Errorf("missing op %s", want)
		}
	}
}

func TestWidgetLifecycle(t *testing.T) {
	rt := newTestRuntime(t)

	button := dispatch(t, rt, "widget.add_button", Params{
		"viewport": 0, "row": 1, "col": 1, "text": "OK",
	})
	got := dispatch(t, rt, "element.get_button", Params{"element": button.Data["element"].(string)})
	if got.Data["text"].(string) != "OK" {
		t.Error("button text")
	}

	options := make([]interface{}, 3)
	for i := range options {
		options[i] = fmt.Sprintf("option %d", i)
	}
	cb := dispatch(t, rt, "widget.add_checkbox", Params{
		"viewport": 0, "row": 2, "col": 1, "options": options,
	})
	desc := dispatch(t, rt, "element.descriptor", Params{"element": cb.Data["element"].(string)})
	if desc.Data["kind"].(uint8) != 7 {
		t.Errorf("checkbox kind code: %v", desc.Data["kind"])
	}

	tl := dispatch(t, rt, "widget.add_textline", Params{
		"viewport": 0, "row": 3, "col": 1, "max_len": 40, "text": "prefill",
	})
	gotTL := dispatch(t, rt, "element.get_textline", Params{"element": tl.Data["element"].(string)})
	if gotTL.Data["text"].(string) != "prefill" || gotTL.Data["max_len"].(uint64) != 40 {
		t.Errorf("textline payload: %v", gotTL.Data)
	}
}
