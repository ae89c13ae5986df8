package reminder

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestParseScheduleInterval(t *testing.T) {
	t.Parallel()
	for _, n := range []int{1, 5, 59, 60, 1440, 100000} {
		raw := fmt.Sprint(n)
		s, err := ParseSchedule(raw)
		if err != nil {
			t.Fatalf("ParseSchedule(%q) error: %v", raw, err)
		}
		if s.Kind() != KindInterval || s.Minutes() != n {
			t.Fatalf("ParseSchedule(%q) = %v/%d, want interval/%d", raw, s.Kind(), s.Minutes(), n)
		}
		if s.Period() != time.Duration(n)*time.Minute {
			t.Fatalf("Period = %v", s.Period())
		}
	}
}

func TestParseScheduleClockTimeFullRange(t *testing.T) {
	t.Parallel()
	for h := 0; h < 24; h++ {
		for m := 0; m < 60; m++ {
			raw := fmt.Sprintf("%d:%d", h, m)
			s, err := ParseSchedule(raw)
			if err != nil {
				t.Fatalf("ParseSchedule(%q) error: %v", raw, err)
			}
			gh, gm := s.ClockTime()
			if s.Kind() != KindClockTime || gh != h || gm != m {
				t.Fatalf("ParseSchedule(%q) = %v %d:%d", raw, s.Kind(), gh, gm)
			}
		}
	}
}

func TestParseScheduleErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want error
	}{
		{raw: "0", want: ErrInvalidInterval},
		{raw: "-5", want: ErrInvalidInterval},
		{raw: "abc", want: ErrParse},
		{raw: "5m", want: ErrParse},
		{raw: "1.5", want: ErrParse},
		{raw: "", want: ErrParse},
		{raw: "24:00", want: ErrInvalidTimeFormat},
		{raw: "25:00", want: ErrInvalidTimeFormat},
		{raw: "12:60", want: ErrInvalidTimeFormat},
		{raw: "-1:30", want: ErrInvalidTimeFormat},
		{raw: "ab:30", want: ErrParse},
		{raw: "12:xx", want: ErrParse},
		{raw: ":", want: ErrParse},
		{raw: "12:30:00", want: ErrParse},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			_, err := ParseSchedule(tt.raw)
			if !errors.Is(err, tt.want) {
				t.Fatalf("ParseSchedule(%q) err = %v, want %v", tt.raw, err, tt.want)
			}
			if !IsValidation(err) {
				t.Fatalf("IsValidation(%v) = false", err)
			}
		})
	}
}

func TestScheduleLabel(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"5":     "5 min",
		" 90 ":  "90 min",
		"9:30":  "@09:30",
		"0:0":   "@00:00",
		"23:59": "@23:59",
	}
	for raw, want := range tests {
		s, err := ParseSchedule(raw)
		if err != nil {
			t.Fatalf("ParseSchedule(%q) error: %v", raw, err)
		}
		if got := s.Label(); got != want {
			t.Fatalf("Label(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestScheduleNext(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 3, 1, 10, 0, 30, 0, time.UTC)

	every, _ := Every(15)
	if got, want := every.Next(now), now.Add(15*time.Minute); !got.Equal(want) {
		t.Fatalf("interval Next = %v, want %v", got, want)
	}

	later, _ := At(11, 5)
	if got, want := later.Next(now), time.Date(2024, 3, 1, 11, 5, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("clock Next = %v, want %v", got, want)
	}

	earlier, _ := At(9, 30)
	if got, want := earlier.Next(now), time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("clock Next (tomorrow) = %v, want %v", got, want)
	}
}
