package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"nudge/internal/clock"
	"nudge/internal/eventbus"
	"nudge/internal/reminder"
	"nudge/pkg/logx"
)

// Service owns the tick source. It is safe for concurrent use.
type Service struct {
	mu  sync.Mutex
	cfg Config
	c   *cron.Cron

	reg   *reminder.Registry
	clock clock.Clock
	log   logx.Logger
	bus   eventbus.Bus

	ticks    atomic.Uint64
	fires    atomic.Uint64
	lastTick atomic.Int64 // unix nanos, tick clock
	lastBeat atomic.Int64 // unix nanos, wall clock
}

func New(cfg Config, reg *reminder.Registry, clk clock.Clock, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if bus == nil {
		bus = eventbus.Nop{}
	}
	return &Service{cfg: cfg.withDefaults(), reg: reg, clock: clk, log: log, bus: bus}
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled
}

// Apply updates the config. A running tick source is restarted when the tick
// changes and stopped when the scheduler is disabled.
func (s *Service) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.cfg
	s.cfg = cfg
	if s.c == nil {
		return
	}
	switch {
	case !cfg.Enabled:
		s.stopLocked()
		s.log.Info("scheduler disabled")
	case old.Tick != cfg.Tick:
		s.stopLocked()
		s.startLocked()
		s.log.Info("tick changed", logx.Duration("from", old.Tick), logx.Duration("to", cfg.Tick))
	}
}

// Start is idempotent and a no-op when disabled.
func (s *Service) Start(context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil || !s.cfg.Enabled {
		return
	}
	s.startLocked()
	s.log.Info("scheduler started", logx.Duration("tick", s.cfg.Tick), logx.Int("reminders", s.reg.Len()))
}

func (s *Service) startLocked() {
	cl := cronLogger{log: s.log}
	s.c = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	s.c.Schedule(cron.Every(s.cfg.Tick), cron.FuncJob(func() { s.Tick(s.clock.Now()) }))
	s.c.Start()
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("scheduler stopped", logx.Uint64("ticks", s.ticks.Load()))
}

func (s *Service) stopLocked() {
	if s.c == nil {
		return
	}
	s.c.Stop()
	s.c = nil
}

// Tick evaluates every active reminder at now and returns the number of fires.
func (s *Service) Tick(now time.Time) int {
	n := s.reg.Evaluate(now)
	s.ticks.Add(1)
	s.fires.Add(uint64(n))
	s.lastTick.Store(now.UnixNano())
	s.lastBeat.Store(time.Now().UnixNano())
	s.bus.Publish(eventbus.Event{Type: eventbus.SchedulerTick, Time: now, Data: TickInfo{At: now, Fires: n}})
	if n > 0 {
		s.log.Debug("tick", logx.Time("at", now), logx.Int("fires", n))
	}
	return n
}

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	running, tick := s.c != nil, s.cfg.Tick
	s.mu.Unlock()

	snap := Snapshot{
		Running:   running,
		Tick:      tick,
		Ticks:     s.ticks.Load(),
		Fires:     s.fires.Load(),
		Reminders: s.reg.List(),
	}
	if ns := s.lastTick.Load(); ns != 0 {
		snap.LastTick = time.Unix(0, ns)
	}
	if ns := s.lastBeat.Load(); ns != 0 {
		snap.Heartbeat = time.Unix(0, ns)
	}
	return snap
}
