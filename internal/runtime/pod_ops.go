package runtime

import (
	"context"
	"encoding/base64"
	"encoding/hex"

	"github.com/wrbnet/wrbhost/internal/pod"
	"github.com/wrbnet/wrbhost/internal/wrberr"
)

func (r *Runtime) podOpen(ctx context.Context, params Params) *Result {
	ref, ok := params.String("backend_ref")
	if !ok {
		return failuref(wrberr.CodeOpenFailure, "open: backend_ref required")
	}
	slotIndex, _ := params.Uint64("slot_index")
	loc := pod.Location{BackendRef: ref, SlotIndex: uint32(slotIndex)}

	sid, werr := r.Pods.Open(ctx, loc, r.app)
	if werr != nil {
		return failure(werr)
	}
	s, _ := r.Pods.Get(sid)
	return success(map[string]interface{}{
		"session": sid,
		"owned":   s.Owned,
	})
}

func (r *Runtime) podNumSlots(_ context.Context, params Params) *Result {
	sid, ok := params.Uint64("session")
	if !ok {
		return failuref(wrberr.CodeInvalid, "num_slots: session required")
	}
	app, ok := params.String("app")
	if !ok {
		app = r.app
	}
	n, werr := r.Pods.NumSlots(sid, app)
	if werr != nil {
		return failure(werr)
	}
	return success(map[string]interface{}{"num_slots": n})
}

func (r *Runtime) podAlloc(ctx context.Context, params Params) *Result {
	sid, ok := params.Uint64("session")
	if !ok {
		return failuref(wrberr.CodeInvalid, "alloc: session required")
	}
	count, ok := params.Uint64("count")
	if !ok {
		return failuref(wrberr.CodeInvalid, "alloc: count required")
	}
	allocated, werr := r.Pods.AllocSlots(ctx, sid, uint32(count))
	if werr != nil {
		return failure(werr)
	}
	return success(map[string]interface{}{"allocated": allocated})
}

func (r *Runtime) podFetchSlot(ctx context.Context, params Params) *Result {
	sid, ok := params.Uint64("session")
	if !ok {
		return failuref(wrberr.CodeInvalid, "fetch_slot: session required")
	}
	slot, ok := params.Uint64("slot")
	if !ok {
		return failuref(wrberr.CodeInvalid, "fetch_slot: slot required")
	}
	rec, werr := r.Pods.FetchSlot(ctx, sid, uint32(slot))
	if werr != nil {
		return failure(werr)
	}
	m := map[string]interface{}{"version": rec.Version}
	if rec.Signer != nil {
		m["signer"] = hex.EncodeToString(rec.Signer)
	}
	return success(m)
}

func (r *Runtime) podGetSlice(_ context.Context, params Params) *Result {
	sid, ok := params.Uint64("session")
	if !ok {
		return failuref(wrberr.CodeInvalid, "get_slice: session required")
	}
	slot, ok := params.Uint64("slot")
	if !ok {
		return failuref(wrberr.CodeInvalid, "get_slice: slot required")
	}
	slice, ok := params.Uint64("slice")
	if !ok {
		return failuref(wrberr.CodeInvalid, "get_slice: slice required")
	}
	data, werr := r.Pods.GetSlice(sid, uint32(slot), slice)
	if werr != nil {
		return failure(werr)
	}
	return success(map[string]interface{}{
		"data": base64.StdEncoding.EncodeToString(data),
	})
}

func (r *Runtime) podPutSlice(_ context.Context, params Params) *Result {
	sid, ok := params.Uint64("session")
	if !ok {
		return failuref(wrberr.CodeInvalid, "put_slice: session required")
	}
	slot, ok := params.Uint64("slot")
	if !ok {
		return failuref(wrberr.CodeInvalid, "put_slice: slot required")
	}
	slice, ok := params.Uint64("slice")
	if !ok {
		return failuref(wrberr.CodeInvalid, "put_slice: slice required")
	}
	data, ok := params.Bytes("data")
	if !ok {
		return failuref(wrberr.CodePutSliceFailure, "put_slice: data required")
	}
	staged, werr := r.Pods.PutSlice(sid, uint32(slot), slice, data)
	if werr != nil {
		return failure(werr)
	}
	return success(map[string]interface{}{"staged": staged})
}

func (r *Runtime) podSyncSlot(ctx context.Context, params Params) *Result {
	sid, ok := params.Uint64("session")
	if !ok {
		return failuref(wrberr.CodeInvalid, "sync_slot: session required")
	}
	slot, ok := params.Uint64("slot")
	if !ok {
		return failuref(wrberr.CodeInvalid, "sync_slot: slot required")
	}
	synced, werr := r.Pods.SyncSlot(ctx, sid, uint32(slot))
	if werr != nil {
		return failure(werr)
	}
	return success(map[string]interface{}{"synced": synced})
}
