package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"nudge/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil || st != nil {
			t.Fatalf("Open(%q) = %v, %v; want nil, nil", driver, st, err)
		}
	}
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if _, err := Open(Config{Driver: "file"}, logx.Nop()); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestStoresRoundTripNewestFirst(t *testing.T) {
	t.Parallel()
	drivers := []struct {
		driver string
		file   string
	}{
		{driver: "file", file: "fires.jsonl"},
		{driver: "sqlite", file: "nudge.db"},
	}
	for _, d := range drivers {
		d := d
		t.Run(d.driver, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "nested", d.file)
			st, err := Open(Config{Driver: d.driver, Path: path, BusyTimeout: time.Second}, logx.Nop())
			if err != nil {
				t.Fatalf("Open error: %v", err)
			}
			defer st.Close()

			ctx := context.Background()
			base := time.Date(2024, 5, 6, 9, 30, 0, 0, time.UTC)
			for i := 1; i <= 5; i++ {
				r := FireRecord{
					At:         base.Add(time.Duration(i) * time.Second),
					FiredAt:    base,
					FireID:     fmt.Sprintf("f%d", i),
					ReminderID: i,
					Name:       "Stretch",
					Title:      "Reminder!",
					Sink:       "log",
					Status:     StatusSent,
					Attempts:   1,
				}
				if i == 5 {
					r.Status, r.Error = StatusFailed, "bus closed"
				}
				if err := st.AppendFire(ctx, r); err != nil {
					t.Fatalf("AppendFire error: %v", err)
				}
			}

			got, err := st.RecentFires(ctx, 3)
			if err != nil {
				t.Fatalf("RecentFires error: %v", err)
			}
			if len(got) != 3 {
				t.Fatalf("len = %d, want 3", len(got))
			}
			for i, want := range []string{"f5", "f4", "f3"} {
				if got[i].FireID != want {
					t.Fatalf("got[%d] = %s, want %s", i, got[i].FireID, want)
				}
			}
			if got[0].Status != StatusFailed || got[0].Error != "bus closed" {
				t.Fatalf("unexpected newest record %+v", got[0])
			}
			if !got[1].FiredAt.Equal(base) || got[1].Name != "Stretch" {
				t.Fatalf("unexpected record %+v", got[1])
			}

			all, err := st.RecentFires(ctx, 100)
			if err != nil || len(all) != 5 {
				t.Fatalf("RecentFires(100) = %d, %v", len(all), err)
			}
		})
	}
}

func TestFileStoreSkipsMalformedLines(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "fires.jsonl")
	if err := os.WriteFile(path, []byte("{not json}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer st.Close()
	_ = st.AppendFire(context.Background(), FireRecord{FireID: "ok"})

	got, err := st.RecentFires(context.Background(), 10)
	if err != nil || len(got) != 1 || got[0].FireID != "ok" {
		t.Fatalf("RecentFires = %+v, %v", got, err)
	}
}
