package runtime

import (
	"context"
	"time"

	"github.com/wrbnet/wrbhost/internal/event"
	"github.com/wrbnet/wrbhost/internal/wrberr"
)

func (r *Runtime) eventSetLoop(_ context.Context, params Params) *Result {
	name, ok := params.String("name")
	if !ok {
		return failuref(wrberr.CodeInvalid, "set_loop: name required")
	}
	r.Events.SetEventLoop(name)
	return success(nil)
}

func (r *Runtime) eventGetLoop(_ context.Context, _ Params) *Result {
	return success(map[string]interface{}{"name": r.Events.EventLoopName()})
}

func (r *Runtime) eventSubscribe(_ context.Context, params Params) *Result {
	cat, ok := params.Uint64("category")
	if !ok {
		return failuref(wrberr.CodeInvalid, "subscribe: category required")
	}
	index := r.Events.Subscribe(event.Category(cat))
	return success(map[string]interface{}{"index": index})
}

func (r *Runtime) eventSubscriptions(_ context.Context, _ Params) *Result {
	subs := r.Events.Subscriptions()
	out := make([]interface{}, 0, len(subs))
	for _, cat := range subs {
		out = append(out, uint64(cat))
	}
	return success(map[string]interface{}{"subscriptions": out})
}

func (r *Runtime) eventSetTickDelay(_ context.Context, params Params) *Result {
	ms, ok := params.Uint64("ms")
	if !ok {
		return failuref(wrberr.CodeInvalid, "set_tick_delay: ms required")
	}
	r.Events.SetTickDelay(time.Duration(ms) * time.Millisecond)
	return success(nil)
}

func (r *Runtime) eventGetTickDelay(_ context.Context, _ Params) *Result {
	return success(map[string]interface{}{
		"ms": uint64(r.Events.TickDelay() / time.Millisecond),
	})
}
