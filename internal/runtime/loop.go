package runtime

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wrbnet/wrbhost/internal/event"
	"github.com/wrbnet/wrbhost/internal/infrastructure/monitoring"
	"github.com/wrbnet/wrbhost/internal/shared/id"
	"github.com/wrbnet/wrbhost/internal/wrberr"
)

// MaxEventPayload bounds the byte payload delivered with one event.
const MaxEventPayload = 1024

// Event is one delivery into the page entry point. Non-UI events (timer,
// close, resize, open) carry zero-value kind and element sentinels.
type Event struct {
	Category event.Category
	// ElementKind is the element.Kind code for UI-originated events, 0
	// otherwise.
	ElementKind uint8
	// Element is the textual element id for UI-originated events, empty
	// otherwise.
	Element string
	Payload []byte
}

// Engine is the sandboxed script side of the page: the host invokes its
// entry point once per tick and per delivered event. The returned bool
// reports whether the page wants to keep running.
type Engine interface {
	Main(ctx context.Context, ev Event) (bool, *wrberr.Error)
}

// Loop drives the page: one entry-point invocation at a time, paced by the
// configured tick delay, with queued events delivered in arrival order
// before the timer tick fires.
type Loop struct {
	rt      *Runtime
	engine  Engine
	log     *zap.Logger
	metrics *monitoring.Metrics

	queue chan Event
}

// NewLoop creates the tick loop for a page.
func (r *Runtime) NewLoop(engine Engine) *Loop {
	return &Loop{
		rt:      r,
		engine:  engine,
		log:     r.log.Logger.Named("loop"),
		metrics: r.metrics,
		queue:   make(chan Event, 256),
	}
}

// Deliver queues an event for the next tick. UI-originated events, Open
// and Close are always delivered; other categories pass the subscription
// filter, which admits everything while the page has no subscriptions.
// Oversized payloads and a full queue are rejected.
func (l *Loop) Deliver(ev Event) *wrberr.Error {
	if len(ev.Payload) > MaxEventPayload {
		return wrberr.New(wrberr.CodeInvalid,
			"event payload of %d bytes exceeds maximum %d", len(ev.Payload), MaxEventPayload)
	}
	if ev.ElementKind == 0 && !l.deliverable(ev.Category) {
		return nil
	}
	select {
	case l.queue <- ev:
		return nil
	default:
		return wrberr.New(wrberr.CodeInvalid, "event queue full")
	}
}

func (l *Loop) deliverable(cat event.Category) bool {
	if cat == event.CategoryOpen || cat == event.CategoryClose {
		return true
	}
	subs := l.rt.Events.Subscriptions()
	if len(subs) == 0 {
		return true
	}
	for _, sub := range subs {
		if sub == cat {
			return true
		}
	}
	return false
}

// Run executes ticks until the context is canceled, the page asks to
// stop, or a Close event is processed. Each queued event is one tick; the
// timer tick fires when the tick delay elapses with no queued event. One
// tick always runs to completion before the next starts.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info("event loop started",
		zap.String("entry_point", l.rt.Events.EventLoopName()),
		zap.Duration("tick_delay", l.rt.Events.TickDelay()))

	for {
		timer := time.NewTimer(l.rt.Events.TickDelay())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case ev := <-l.queue:
			timer.Stop()
			proceed := l.tick(ctx, ev)
			if ev.Category == event.CategoryClose && ev.ElementKind == 0 {
				// the page sees the Close tick but cannot refuse it
				l.log.Info("close event, stopping loop")
				return nil
			}
			if !proceed {
				return nil
			}
		case <-timer.C:
			if !l.tick(ctx, Event{Category: event.CategoryTimer}) {
				return nil
			}
		}
	}
}

// tick invokes the entry point once and reports whether the page wants to
// continue. Entry-point failures are recorded, rendered by the status
// region, and do not stop the loop.
func (l *Loop) tick(ctx context.Context, ev Event) bool {
	start := time.Now()
	evID := id.NewEventID()

	proceed, werr := l.engine.Main(ctx, ev)
	if l.metrics != nil {
		l.metrics.RecordTick(time.Since(start))
	}
	if werr != nil {
		l.rt.recordError(werr)
		l.log.Warn("tick failed",
			zap.String("event", evID.String()),
			zap.Uint64("category", uint64(ev.Category)),
			zap.Uint32("code", uint32(werr.Code)),
			zap.String("message", werr.Message))
		return true
	}
	return proceed
}
