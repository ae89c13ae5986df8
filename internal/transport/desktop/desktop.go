// Package desktop delivers notifications through the freedesktop.org
// notification service on the D-Bus session bus.
package desktop

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	kit "nudge/internal/transport"
	"nudge/pkg/logx"
)

const (
	busName    = "org.freedesktop.Notifications"
	objectPath = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifyCall = busName + ".Notify"
)

type Config struct {
	AppName string
	Icon    string
}

// caller is the subset of dbus.BusObject used here.
type caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...any) *dbus.Call
}

// Sink sends notifications over D-Bus. The session bus is dialled lazily and
// re-dialled after a failed call.
type Sink struct {
	cfg Config
	log logx.Logger

	mu   sync.Mutex
	conn *dbus.Conn
	obj  caller
	dial func() (*dbus.Conn, caller, error)
}

func New(cfg Config, log logx.Logger) *Sink {
	if strings.TrimSpace(cfg.AppName) == "" {
		cfg.AppName = "nudge"
	}
	return &Sink{cfg: cfg, log: log, dial: dialSession}
}

func dialSession() (*dbus.Conn, caller, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, nil, fmt.Errorf("connect session bus: %w", err)
	}
	return conn, conn.Object(busName, objectPath), nil
}

// expireTimeout maps d to the Notify expire_timeout in milliseconds.
// -1 leaves expiry to the server; long durations saturate at MaxInt32.
func expireTimeout(d time.Duration) int32 {
	if d <= 0 {
		return -1
	}
	ms := d.Milliseconds()
	if ms > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(ms)
}

func (s *Sink) Name() string { return "desktop" }

func (s *Sink) Send(ctx context.Context, n kit.Notification) error {
	obj, err := s.object()
	if err != nil {
		return err
	}
	call := obj.CallWithContext(ctx, notifyCall, 0,
		s.cfg.AppName,
		uint32(0),
		s.cfg.Icon,
		n.Title,
		n.Body,
		[]string{},
		map[string]dbus.Variant{},
		expireTimeout(n.Timeout),
	)
	if call.Err != nil {
		s.reset()
		return fmt.Errorf("desktop notify: %w", call.Err)
	}
	var id uint32
	if err := call.Store(&id); err == nil {
		s.log.Debug("desktop notification shown", logx.Int64("dbus_id", int64(id)), logx.String("title", n.Title))
	}
	return nil
}

func (s *Sink) object() (caller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.obj != nil {
		return s.obj, nil
	}
	conn, obj, err := s.dial()
	if err != nil {
		return nil, err
	}
	s.conn, s.obj = conn, obj
	return obj, nil
}

func (s *Sink) reset() {
	s.mu.Lock()
	conn := s.conn
	s.conn, s.obj = nil, nil
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (s *Sink) Close() error {
	s.reset()
	return nil
}
