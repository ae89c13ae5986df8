package app

import (
	"strings"
	"sync"

	"nudge/internal/config"
	"nudge/internal/reminder"
	"nudge/pkg/logx"
)

// seeder adds config reminders to the registry. Each (name, schedule) pair is
// added once per process; reloads only append new pairs and never remove.
type seeder struct {
	reg *reminder.Registry
	log logx.Logger

	mu   sync.Mutex
	seen map[string]int
}

func newSeeder(reg *reminder.Registry, log logx.Logger) *seeder {
	return &seeder{reg: reg, log: log, seen: map[string]int{}}
}

// apply returns the number of reminders added.
func (s *seeder) apply(items []config.ReminderConfig) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Duplicates within one list are separate reminders.
	want := map[string]int{}
	added := 0
	for _, it := range items {
		key := strings.TrimSpace(it.Name) + "\x00" + strings.TrimSpace(it.Schedule)
		want[key]++
		if want[key] <= s.seen[key] {
			continue
		}
		id, err := s.reg.Add(it.Name, it.Schedule)
		if err != nil {
			s.log.Warn("config reminder skipped", logx.String("name", it.Name), logx.String("schedule", it.Schedule), logx.Err(err))
			continue
		}
		s.seen[key]++
		added++
		if it.Active {
			if _, err := s.reg.Activate(id); err != nil {
				s.log.Warn("config reminder not activated", logx.Int("id", int(id)), logx.Err(err))
			}
		}
		s.log.Info("reminder loaded", logx.Int("id", int(id)), logx.String("name", it.Name), logx.String("schedule", it.Schedule), logx.Bool("active", it.Active))
	}
	return added
}
