package app

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"nudge/internal/clock"
	"nudge/internal/config"
	"nudge/internal/eventbus"
	"nudge/internal/notifier"
	"nudge/internal/observability/debughttp"
	"nudge/internal/reminder"
	"nudge/internal/runtime/supervisor"
	"nudge/internal/scheduler"
	"nudge/internal/storage"
	"nudge/pkg/logx"
)

// Options tune how the app runs in the current process.
type Options struct {
	// Interactive routes logs away from the terminal (TUI mode).
	Interactive bool
	// Clock overrides the wall clock (tests).
	Clock clock.Clock
}

type App struct {
	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor
	opts Options

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	reg    *reminder.Registry
	disp   *scheduler.Dispatcher
	sched  *scheduler.Service
	notif  *notifier.Service
	seeder *seeder
	debug  *debughttp.Server

	stopping atomic.Bool
}

func New(cfgPath string, opts Options) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	if opts.Clock == nil {
		opts.Clock = clock.SystemClock{}
	}

	logSvc, log := logx.New(mapLoggingConfig(cfg, opts.Interactive))
	a, err := build(cfgm, cfg, opts, logSvc, log)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	return a, nil
}

func build(cfgm *config.ConfigManager, cfg *config.Config, opts Options, logSvc *logx.Service, root logx.Logger) (*App, error) {
	log := root.With(logx.String("comp", "app"))
	bus := eventbus.New()

	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, root.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver), logx.String("path", sc.Path))
	}

	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return nil, err
	}
	sinks, err := buildSinks(cfg, root)
	if err != nil {
		return nil, err
	}
	notif := notifier.New(ncfg, sinks, root.With(logx.String("comp", "notifier")), bus)

	scfg, err := mapSchedulerConfig(cfg)
	if err != nil {
		return nil, err
	}
	disp := scheduler.NewDispatcher(scfg, notif, root.With(logx.String("comp", "dispatch")))
	reg := reminder.NewRegistry(
		reminder.WithClock(opts.Clock),
		reminder.WithBus(bus),
		reminder.WithFireFunc(disp.Fire),
	)
	sched := scheduler.New(scfg, reg, opts.Clock, root.With(logx.String("comp", "scheduler")), bus)

	a := &App{
		cfgm:   cfgm,
		opts:   opts,
		log:    log,
		logs:   logSvc,
		bus:    bus,
		store:  store,
		reg:    reg,
		disp:   disp,
		sched:  sched,
		notif:  notif,
		seeder: newSeeder(reg, root.With(logx.String("comp", "seed"))),
	}
	a.debug = debughttp.New(debughttp.Probes{Healthy: a.healthy, Status: a.status}, root.With(logx.String("comp", "debug")))
	return a, nil
}

func (a *App) Registry() *reminder.Registry { return a.reg }
func (a *App) Bus() eventbus.Bus { return a.bus }
func (a *App) Logs() *logx.Service { return a.logs }
func (a *App) Scheduler() *scheduler.Service { return a.sched }
func (a *App) Notifier() *notifier.Service { return a.notif }
func (a *App) Config() *config.ConfigManager { return a.cfgm }
func (a *App) Logger() logx.Logger { return a.log }

// Done is closed when the app context is cancelled (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))

	a.notif.Start(a.sup.Context())
	if !a.notif.Enabled() {
		a.log.Warn("notifier disabled; reminders will fire without notifications")
	}

	if a.store != nil {
		events, unsub := a.bus.Subscribe(256, eventbus.NotifierSent, eventbus.NotifierFailed)
		a.sup.Go0("firelog", func(c context.Context) {
			defer unsub()
			recordFires(c, events, a.store, a.log.With(logx.String("comp", "firelog")))
		})
	}

	// Seed after the notifier is up so interval reminders that start active
	// deliver their activation notification.
	if n := a.seeder.apply(a.cfgm.Get().Reminders); n > 0 {
		a.log.Info("reminders seeded from config", logx.Int("count", n))
	}

	a.sched.Start(a.sup.Context())

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		last := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case next, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts and apply only the newest.
				for drained := false; !drained; {
					select {
					case newer := <-sub:
						if newer != nil {
							next = newer
						}
					default:
						drained = true
					}
				}
				if a.stopping.Load() {
					return
				}
				a.applyConfig(c, last, next)
				last = next
			}
		}
	})
	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	if err := a.debug.Apply(a.sup.Context(), mapDebugConfig(a.cfgm.Get())); err != nil {
		a.log.Warn("debug server not started", logx.Err(err))
	}

	a.sup.Go0("systemd.watchdog", func(c context.Context) {
		watchdog(c, a.log, a.healthy)
	})
	sdNotify(a.log, daemon.SdNotifyReady)

	snap := a.sched.Snapshot()
	a.log.Info("app started",
		logx.Int("reminders", len(snap.Reminders)),
		logx.Bool("scheduler", snap.Running),
		logx.String("sinks", strings.Join(a.notif.Sinks(), ",")),
	)
	return nil
}

// Status is the /status document of the debug server.
type Status struct {
	Healthy   bool               `json:"healthy"`
	Scheduler scheduler.Snapshot `json:"scheduler"`
	Notifier  NotifierStatus     `json:"notifier"`
}

type NotifierStatus struct {
	Enabled bool                   `json:"enabled"`
	Sinks   []string               `json:"sinks"`
	Recent  []notifier.HistoryItem `json:"recent"`
}

func (a *App) status() any {
	return Status{
		Healthy:   a.healthy(),
		Scheduler: a.sched.Snapshot(),
		Notifier: NotifierStatus{
			Enabled: a.notif.Enabled(),
			Sinks:   a.notif.Sinks(),
			Recent:  a.notif.Snapshot(),
		},
	}
}

// healthy reports whether the scheduler is ticking (or intentionally off).
func (a *App) healthy() bool {
	snap := a.sched.Snapshot()
	if !snap.Running {
		return true
	}
	if snap.Heartbeat.IsZero() {
		return true
	}
	return time.Since(snap.Heartbeat) < 3*snap.Tick+time.Second
}

func (a *App) applyConfig(ctx context.Context, oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	changed := map[string]bool{}
	for _, s := range sections {
		changed[s] = true
	}

	if changed["logging"] {
		a.logs.Apply(mapLoggingConfig(newCfg, a.opts.Interactive))
	}

	if changed["scheduler"] || changed["notification"] {
		if scfg, err := mapSchedulerConfig(newCfg); err != nil {
			a.log.Warn("invalid scheduler config; keeping previous", logx.Err(err))
		} else {
			a.disp.Apply(scfg)
			wasEnabled := a.sched.Enabled()
			a.sched.Apply(scfg)
			if !wasEnabled && scfg.Enabled {
				a.sched.Start(ctx)
			}
		}
	}

	if changed["notifier"] {
		if ncfg, err := mapNotifierConfig(newCfg); err != nil {
			a.log.Warn("invalid notifier config; keeping previous", logx.Err(err))
		} else {
			was := a.notif.Enabled()
			a.notif.Apply(ncfg)
			switch {
			case was && !ncfg.Enabled:
				stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				a.notif.Stop(stopCtx)
				cancel()
			case !was && ncfg.Enabled:
				a.notif.Start(ctx)
			}
		}
	}

	if changed["desktop"] || changed["telegram"] {
		if sinks, err := buildSinks(newCfg, a.logs.Logger()); err != nil {
			a.log.Warn("invalid sink config; keeping previous", logx.Err(err))
		} else {
			a.notif.SetSinks(sinks)
		}
	}

	if changed["storage"] {
		a.log.Warn("storage config changed; restart required for changes to take effect")
	}

	if changed["debug"] {
		if err := a.debug.Apply(ctx, mapDebugConfig(newCfg)); err != nil {
			a.log.Warn("debug server not applied", logx.Err(err))
		}
	}

	if changed["reminders"] {
		if n := a.seeder.apply(newCfg.Reminders); n > 0 {
			a.log.Info("reminders added from config", logx.Int("count", n))
		}
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

// Stop shuts components down in order, each step bounded in time.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	if !a.stopping.CompareAndSwap(false, true) {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	sdNotify(a.log, daemon.SdNotifyStopping)

	a.step(ctx, "debug", time.Second, func(c context.Context) error { a.debug.Stop(c); return nil })
	a.step(ctx, "scheduler", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	// Drain pending notifications while the fire log recorder still runs.
	a.step(ctx, "notifier", 3*time.Second, func(c context.Context) error { return a.notif.Close(c) })
	a.sup.Cancel()
	a.step(ctx, "supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	a.step(ctx, "storage", time.Second, func(context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	a.log.Info("stopped")
	return a.logs.Close()
}

// step runs fn with its own deadline (capped by ctx) and never blocks past it.
func (a *App) step(ctx context.Context, name string, max time.Duration, fn func(context.Context) error) {
	start := time.Now()
	if dl, ok := ctx.Deadline(); ok {
		max = min(max, time.Until(dl))
	}
	if max <= 0 {
		a.log.Warn("stop step skipped (deadline reached)", logx.String("name", name))
		return
	}
	stepCtx, cancel := context.WithTimeout(ctx, max)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	case <-stepCtx.Done():
		a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
	}
}
