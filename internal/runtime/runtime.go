// Package runtime owns all page state and exposes it to the script engine
// as a flat set of named host calls.
package runtime

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wrbnet/wrbhost/internal/event"
	"github.com/wrbnet/wrbhost/internal/infrastructure/logging"
	"github.com/wrbnet/wrbhost/internal/infrastructure/monitoring"
	"github.com/wrbnet/wrbhost/internal/pod"
	"github.com/wrbnet/wrbhost/internal/shared/id"
	"github.com/wrbnet/wrbhost/internal/ui/element"
	"github.com/wrbnet/wrbhost/internal/ui/textcache"
	"github.com/wrbnet/wrbhost/internal/ui/viewport"
	"github.com/wrbnet/wrbhost/internal/wrberr"
)

// ReadonlyCaller executes read-only contract calls against the node on
// behalf of the page. Implementations live at the transport layer; tests
// inject fakes.
type ReadonlyCaller interface {
	Call(ctx context.Context, contract, function string, args []string) (string, error)
}

// Handler executes one host call.
type Handler func(ctx context.Context, params Params) *Result

// Options configures a Runtime.
type Options struct {
	Backend  pod.Backend
	Identity string
	// App names the page for pod slot accounting.
	App      string
	Readonly ReadonlyCaller
	Metrics  *monitoring.Metrics
	Log      *logging.Logger
	// EnumerationCap preserves the legacy bounded viewport traversal when
	// nonzero.
	EnumerationCap int
}

// Runtime is the owned context for one page process: every component the
// host calls mutate, with no ambient globals. One tick runs to completion
// before the next; the dispatch surface itself is also safe for the debug
// server's concurrent reads.
type Runtime struct {
	PageID id.PageID

	Viewports *viewport.Registry
	Elements  *element.Store
	Texts     *textcache.Cache
	Events    *event.Config
	Pods      *pod.Manager

	readonly ReadonlyCaller
	metrics  *monitoring.Metrics
	log      *logging.Logger
	app      string

	handlers map[string]Handler

	mu        sync.Mutex
	lastError *wrberr.Error
}

// New creates a page runtime over the given storage backend.
func New(opts Options) (*Runtime, error) {
	if opts.Log == nil {
		opts.Log = logging.NewNop()
	}
	if opts.App == "" {
		opts.App = "wrbhost"
	}

	texts, err := textcache.New()
	if err != nil {
		return nil, err
	}

	backend := pod.Instrument(opts.Backend, opts.Metrics)

	r := &Runtime{
		PageID:    id.NewPageID(),
		Viewports: viewport.NewRegistry(),
		Elements:  element.NewStore(),
		Texts:     texts,
		Events:    event.NewConfig(),
		Pods:      pod.NewManager(backend, opts.Identity, opts.Log),
		readonly:  opts.Readonly,
		metrics:   opts.Metrics,
		log:       opts.Log.Named("runtime"),
		app:       opts.App,
	}
	if opts.EnumerationCap > 0 {
		r.Viewports.SetEnumerationCap(opts.EnumerationCap)
	}
	if opts.Metrics != nil {
		r.Pods.SetConflictHook(opts.Metrics.IncSyncConflict)
		r.Texts.SetFastPathHook(func(hit bool) {
			if hit {
				opts.Metrics.IncCacheHit()
			} else {
				opts.Metrics.IncCacheMiss()
			}
		})
	}
	r.handlers = r.buildHandlers()
	return r, nil
}

func (r *Runtime) buildHandlers() map[string]Handler {
	return map[string]Handler{
		"ui.set_root":           r.setRoot,
		"viewport.create_root":  r.viewportCreateRoot,
		"viewport.create_child": r.viewportCreateChild,
		"viewport.set_dims":     r.viewportSetDims,
		"viewport.set_visible":  r.viewportSetVisible,
		"viewport.get":          r.viewportGet,
		"viewport.enumerate":    r.viewportEnumerate,

		"static.add_text":    r.staticAddText,
		"static.add_print":   r.staticAddPrint,
		"static.add_println": r.staticAddPrintln,
		"static.set_colors":  r.staticSetColors,

		"dynamic.add_text":    r.dynamicAddText,
		"dynamic.add_print":   r.dynamicAddPrint,
		"dynamic.add_println": r.dynamicAddPrintln,
		"dynamic.set_colors":  r.dynamicSetColors,
		"dynamic.clear":       r.dynamicClear,
		"dynamic.texts":       r.dynamicTexts,
		"dynamic.prints":      r.dynamicPrints,

		"widget.add_button":    r.widgetAddButton,
		"widget.add_checkbox":  r.widgetAddCheckbox,
		"widget.add_textline":  r.widgetAddTextLine,
		"widget.add_textarea":  r.widgetAddTextArea,
		"widget.set_colors":    r.widgetSetColors,
		"element.descriptor":   r.elementDescriptor,
		"element.get_text":     r.elementGetText,
		"element.get_print":    r.elementGetPrint,
		"element.get_button":   r.elementGetButton,
		"element.get_checkbox": r.elementGetCheckbox,
		"element.get_textline": r.elementGetTextLine,
		"element.get_textarea": r.elementGetTextArea,

		"payload.store":       r.payloadStore,
		"payload.load":        r.payloadLoad,
		"payload.bypass_load": r.payloadBypassLoad,

		"event.set_loop":       r.eventSetLoop,
		"event.get_loop":       r.eventGetLoop,
		"event.subscribe":      r.eventSubscribe,
		"event.subscriptions":  r.eventSubscriptions,
		"event.set_tick_delay": r.eventSetTickDelay,
		"event.get_tick_delay": r.eventGetTickDelay,

		"pod.open":       r.podOpen,
		"pod.num_slots":  r.podNumSlots,
		"pod.alloc":      r.podAlloc,
		"pod.fetch_slot": r.podFetchSlot,
		"pod.get_slice":  r.podGetSlice,
		"pod.put_slice":  r.podPutSlice,
		"pod.sync_slot":  r.podSyncSlot,

		"util.buff_to_utf8":  r.buffToUTF8,
		"util.ascii_to_utf8": r.asciiToUTF8,
		"node.readonly_call": r.readonlyCall,
	}
}

// Dispatch routes one host call by name. Failures are recorded as the
// page's last error for the status region.
func (r *Runtime) Dispatch(ctx context.Context, op string, params Params) *Result {
	handler, ok := r.handlers[op]
	if !ok {
		res := failuref(wrberr.CodeInvalid, "unknown host call %q", op)
		r.recordError(res.Err)
		return res
	}

	var timer *monitoring.Timer
	if r.metrics != nil {
		timer = monitoring.NewTimer(r.metrics, op)
	}
	res := handler(ctx, params)
	if timer != nil {
		status := "ok"
		if res.Err != nil {
			status = "error"
		}
		timer.Stop(status)
	}
	if res.Err != nil {
		r.recordError(res.Err)
		r.log.Debug("host call failed",
			zap.String("op", op),
			zap.String("call_id", string(id.NewCallID())),
			zap.Uint32("code", uint32(res.Err.Code)),
			zap.String("message", res.Err.Message))
	}
	r.updateGauges()
	return res
}

// Ops lists the dispatchable host call names.
func (r *Runtime) Ops() []string {
	out := make([]string, 0, len(r.handlers))
	for op := range r.handlers {
		out = append(out, op)
	}
	return out
}

func (r *Runtime) recordError(err *wrberr.Error) {
	r.mu.Lock()
	r.lastError = err
	r.mu.Unlock()
}

// LastError returns the most recent host call failure, if any. The
// surrounding application renders it in a status region; how long is the
// renderer's choice.
func (r *Runtime) LastError() *wrberr.Error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastError
}

// ClearLastError discards the recorded failure.
func (r *Runtime) ClearLastError() {
	r.mu.Lock()
	r.lastError = nil
	r.mu.Unlock()
}

func (r *Runtime) updateGauges() {
	if r.metrics == nil {
		return
	}
	r.metrics.SetViewports(r.Viewports.Len())
	r.metrics.SetElements(r.Elements.Len())
	r.metrics.SetSessionsOpen(len(r.Pods.Sessions()))
	r.metrics.SetSlicesStaged(r.Pods.StagedSlices())
}
