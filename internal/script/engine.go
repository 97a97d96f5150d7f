// Package script hosts page logic in a sandboxed JavaScript engine and
// bridges its calls onto the runtime's host surface.
package script

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/wrbnet/wrbhost/internal/infrastructure/logging"
	"github.com/wrbnet/wrbhost/internal/runtime"
	"github.com/wrbnet/wrbhost/internal/wrberr"
)

// DefaultEntryPoint is invoked when the page never names one.
const DefaultEntryPoint = "main"

// Config tunes the sandbox.
type Config struct {
	// Timeout interrupts one entry-point invocation or script load.
	Timeout time.Duration
}

// Sandbox is a goja VM wired to one page runtime. The wrb global carries
// every host call; dangerous Node-isms are removed. A sandbox runs one
// invocation at a time, matching the one-tick-at-a-time page model.
type Sandbox struct {
	vm  *goja.Runtime
	rt  *runtime.Runtime
	cfg Config
	log *logging.Logger

	mu sync.Mutex
}

var _ runtime.Engine = (*Sandbox)(nil)

// New creates a sandbox over the page runtime.
func New(rt *runtime.Runtime, cfg Config, log *logging.Logger) (*Sandbox, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if log == nil {
		log = logging.NewNop()
	}

	vm := goja.New()
	vm.SetMaxCallStackSize(1024)

	s := &Sandbox{
		vm:  vm,
		rt:  rt,
		cfg: cfg,
		log: log.Named("script"),
	}
	if err := s.setupGlobals(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sandbox) setupGlobals() error {
	for _, name := range []string{"require", "process", "module", "exports"} {
		if err := s.vm.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}

	console := s.vm.NewObject()
	for level, fn := range map[string]func(string){
		"log":   func(m string) { s.log.Info(m) },
		"info":  func(m string) { s.log.Info(m) },
		"warn":  func(m string) { s.log.Warn(m) },
		"error": func(m string) { s.log.Error(m) },
	} {
		emit := fn
		if err := console.Set(level, func(call goja.FunctionCall) goja.Value {
			msg := ""
			for i, arg := range call.Arguments {
				if i > 0 {
					msg += " "
				}
				msg += arg.String()
			}
			emit(msg)
			return goja.Undefined()
		}); err != nil {
			return err
		}
	}
	if err := s.vm.Set("console", console); err != nil {
		return err
	}

	wrb := s.vm.NewObject()
	if err := wrb.Set("call", s.hostCall); err != nil {
		return err
	}
	return s.vm.Set("wrb", wrb)
}

// hostCall is the single bridge from script to host: wrb.call(op, params)
// returns {ok, data} on success and {ok: false, code, message} on failure,
// mirroring the host surface's structured errors.
func (s *Sandbox) hostCall(call goja.FunctionCall) goja.Value {
	if len(call.Arguments) < 1 {
		panic(s.vm.ToValue("wrb.call: op name required"))
	}
	op := call.Arguments[0].String()

	params := runtime.Params{}
	if len(call.Arguments) > 1 && !goja.IsUndefined(call.Arguments[1]) && !goja.IsNull(call.Arguments[1]) {
		exported := call.Arguments[1].Export()
		m, ok := exported.(map[string]interface{})
		if !ok {
			panic(s.vm.ToValue("wrb.call: params must be an object"))
		}
		params = runtime.Params(m)
	}

	res := s.rt.Dispatch(context.Background(), op, params)
	out := s.vm.NewObject()
	_ = out.Set("ok", res.Ok)
	if res.Data != nil {
		_ = out.Set("data", res.Data)
	}
	if res.Err != nil {
		_ = out.Set("code", uint32(res.Err.Code))
		_ = out.Set("message", res.Err.Message)
	}
	return out
}

// Load evaluates the page source, letting it declare its setup state and
// entry point.
func (s *Sandbox) Load(ctx context.Context, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stop := s.armInterrupt(ctx)
	defer stop()

	if _, err := s.vm.RunString(source); err != nil {
		return fmt.Errorf("load page script: %w", err)
	}
	return nil
}

// Main invokes the page entry point for one event delivery. The entry
// point receives (element_kind, element_id, event_category, payload) and
// its truthiness decides whether the page keeps running.
func (s *Sandbox) Main(ctx context.Context, ev runtime.Event) (bool, *wrberr.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := s.rt.Events.EventLoopName()
	if name == "" {
		name = DefaultEntryPoint
	}

	fn, ok := goja.AssertFunction(s.vm.Get(name))
	if !ok {
		return false, wrberr.New(wrberr.CodeNotFound, "no entry point %q", name)
	}

	stop := s.armInterrupt(ctx)
	defer stop()

	val, err := fn(goja.Undefined(),
		s.vm.ToValue(ev.ElementKind),
		s.vm.ToValue(ev.Element),
		s.vm.ToValue(uint64(ev.Category)),
		s.vm.ToValue(s.vm.NewArrayBuffer(ev.Payload)),
	)
	if err != nil {
		return false, wrberr.New(wrberr.CodeInvalid, "entry point: %s", err.Error())
	}
	return val.ToBoolean(), nil
}

// armInterrupt interrupts the VM on timeout or context cancellation.
func (s *Sandbox) armInterrupt(ctx context.Context) (stop func()) {
	done := make(chan struct{})
	timer := time.NewTimer(s.cfg.Timeout)

	go func() {
		select {
		case <-timer.C:
			s.vm.Interrupt("execution timeout exceeded")
			s.log.Warn("script interrupted", zap.Duration("timeout", s.cfg.Timeout))
		case <-ctx.Done():
			s.vm.Interrupt("context canceled")
		case <-done:
		}
	}()

	return func() {
		timer.Stop()
		close(done)
		s.vm.ClearInterrupt()
	}
}
