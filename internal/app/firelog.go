package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nudge/internal/config"
	"nudge/internal/eventbus"
	"nudge/internal/notifier"
	"nudge/internal/storage"
	"nudge/pkg/logx"
)

// ErrNoFireLog is returned by OpenFireLog when storage is disabled.
var ErrNoFireLog = errors.New("fire log disabled (set storage.driver)")

// recordFires writes one fire log row per final delivery outcome until ctx
// is done, then drains what is already buffered.
func recordFires(ctx context.Context, events <-chan eventbus.Event, st storage.Store, log logx.Logger) {
	write := func(e eventbus.Event) {
		ev, ok := e.Data.(notifier.Event)
		if !ok {
			return
		}
		status := storage.StatusSent
		if e.Type == eventbus.NotifierFailed {
			status = storage.StatusFailed
		}
		wctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		err := st.AppendFire(wctx, storage.FireRecord{
			At:         ev.At,
			FiredAt:    ev.FiredAt,
			FireID:     ev.ID,
			ReminderID: ev.ReminderID,
			Name:       ev.Body,
			Title:      ev.Title,
			Sink:       ev.Sink,
			Status:     status,
			Attempts:   ev.Attempts,
			Error:      ev.Error,
		})
		if err != nil {
			log.Warn("fire log append failed", logx.String("fire_id", ev.ID), logx.Err(err))
		}
	}

	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			write(e)
		case <-ctx.Done():
			for {
				select {
				case e, ok := <-events:
					if !ok {
						return
					}
					write(e)
				default:
					return
				}
			}
		}
	}
}

// OpenFireLog opens the fire log described by cfgPath for reading. It
// returns ErrNoFireLog when storage is disabled.
func OpenFireLog(cfgPath string, log logx.Logger) (storage.Store, error) {
	cfg, err := config.NewConfigManager(cfgPath).Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	sc, enabled, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, ErrNoFireLog
	}
	return storage.Open(sc, log)
}
