package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/wrbnet/wrbhost/internal/event"
	"github.com/wrbnet/wrbhost/internal/infrastructure/config"
	"github.com/wrbnet/wrbhost/internal/infrastructure/logging"
	"github.com/wrbnet/wrbhost/internal/infrastructure/monitoring"
	"github.com/wrbnet/wrbhost/internal/pod"
	"github.com/wrbnet/wrbhost/internal/pod/remote"
	"github.com/wrbnet/wrbhost/internal/runtime"
	"github.com/wrbnet/wrbhost/internal/script"
	"github.com/wrbnet/wrbhost/internal/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "TOML profile path")
	localPods := flag.Bool("local-pods", false, "stage pod writes in memory instead of a storage node")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: wrbhost [flags] <page-script>")
		flag.PrintDefaults()
		return 2
	}
	pagePath := flag.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wrbhost: %v\n", err)
		return 1
	}

	log, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "wrbhost: logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	metrics := monitoring.NewMetrics()

	var backend pod.Backend
	var readonly runtime.ReadonlyCaller
	if *localPods {
		backend = pod.NewMemBackend()
	} else {
		client := remote.NewClient(remote.Config{
			BaseURL:   cfg.Node.Endpoint,
			Timeout:   time.Duration(cfg.Node.TimeoutMS) * time.Millisecond,
			Retries:   cfg.Node.Retries,
			RateLimit: cfg.Node.RateLimit,
		})
		backend = client
		readonly = client
	}

	rt, err := runtime.New(runtime.Options{
		Backend:        backend,
		Identity:       cfg.Pod.Identity,
		App:            cfg.Pod.App,
		Readonly:       readonly,
		Metrics:        metrics,
		Log:            log.Named("runtime"),
		EnumerationCap: cfg.UI.EnumerationCap,
	})
	if err != nil {
		log.Error("runtime setup failed", zap.Error(err))
		return 1
	}
	rt.Events.SetTickDelay(time.Duration(cfg.UI.TickDelayMS) * time.Millisecond)

	source, err := os.ReadFile(pagePath)
	if err != nil {
		log.Error("read page script", zap.String("path", pagePath), zap.Error(err))
		return 1
	}

	sandbox, err := script.New(rt, script.Config{
		Timeout: time.Duration(cfg.Script.TimeoutMS) * time.Millisecond,
	}, log.Named("script"))
	if err != nil {
		log.Error("script sandbox setup failed", zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("loading page",
		zap.String("page_id", string(rt.PageID)),
		zap.String("path", pagePath))
	if err := sandbox.Load(ctx, string(source)); err != nil {
		log.Error("page script failed to load", zap.Error(err))
		return 1
	}

	if cfg.Pod.Home != "" {
		sid, werr := rt.Pods.Open(ctx, pod.Location{BackendRef: cfg.Pod.Home}, cfg.Pod.App)
		if werr != nil {
			log.Warn("home pod unavailable",
				zap.String("pod", cfg.Pod.Home),
				zap.String("error", werr.Message))
		} else {
			log.Info("home pod open",
				zap.String("pod", cfg.Pod.Home),
				zap.Uint64("session", sid))
		}
	}

	var dbg *server.Server
	if cfg.Debug.Enabled {
		dbg = server.New(server.Config{Addr: cfg.Debug.Addr}, rt, metrics, log.Named("debug"))
		go func() {
			if err := dbg.Start(); err != nil {
				log.Error("debug server failed", zap.Error(err))
			}
		}()
	}

	loop := rt.NewLoop(sandbox)
	if werr := loop.Deliver(runtime.Event{Category: event.CategoryOpen}); werr != nil {
		log.Warn("open event rejected", zap.String("error", werr.Message))
	}

	runErr := loop.Run(ctx)

	if dbg != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := dbg.Shutdown(shutdownCtx); err != nil {
			log.Warn("debug server shutdown", zap.Error(err))
		}
	}

	if runErr != nil && ctx.Err() == nil {
		log.Error("event loop failed", zap.Error(runErr))
		return 1
	}
	log.Info("page closed")
	return 0
}
