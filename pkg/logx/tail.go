package logx

import (
	"strings"
	"sync"
)

// tailBuffer is a fixed-size ring of rendered log lines.
type tailBuffer struct {
	mu    sync.Mutex
	lines []string
	next  int
	full  bool
}

func newTailBuffer(n int) *tailBuffer {
	if n <= 0 {
		n = 1
	}
	return &tailBuffer{lines: make([]string, n)}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	s := strings.TrimRight(string(p), "\n")
	t.mu.Lock()
	for _, line := range strings.Split(s, "\n") {
		t.lines[t.next] = line
		t.next = (t.next + 1) % len(t.lines)
		if t.next == 0 {
			t.full = true
		}
	}
	t.mu.Unlock()
	return len(p), nil
}

func (t *tailBuffer) Resize(n int) {
	if n <= 0 {
		n = 1
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if n == len(t.lines) {
		return
	}
	keep := t.lastLocked(n)
	t.lines = make([]string, n)
	copy(t.lines, keep)
	t.next = len(keep) % n
	t.full = len(keep) == n
}

func (t *tailBuffer) Last(n int) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastLocked(n)
}

func (t *tailBuffer) lastLocked(n int) []string {
	size := t.next
	if t.full {
		size = len(t.lines)
	}
	if n <= 0 || n > size {
		n = size
	}
	out := make([]string, 0, n)
	start := t.next - n
	if start < 0 {
		start += len(t.lines)
	}
	for i := 0; i < n; i++ {
		out = append(out, t.lines[(start+i)%len(t.lines)])
	}
	return out
}
