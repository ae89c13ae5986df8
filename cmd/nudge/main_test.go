package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--env", filepath.Join(t.TempDir(), "missing.env")))
	err := root.Execute()
	return out.String(), err
}

func TestCheckCommand(t *testing.T) {
	t.Parallel()
	tests := []struct {
		arg     string
		want    string
		wantErr bool
	}{
		{arg: "30", want: "label: 30 min"},
		{arg: "09:05", want: "label: @09:05"},
		{arg: "0", wantErr: true},
		{arg: "24:00", wantErr: true},
		{arg: "soon", wantErr: true},
	}
	for _, tt := range tests {
		out, err := execute(t, "check", tt.arg)
		if (err != nil) != tt.wantErr {
			t.Fatalf("check %q: err = %v, wantErr %v", tt.arg, err, tt.wantErr)
		}
		if !tt.wantErr && !strings.Contains(out, tt.want) {
			t.Fatalf("check %q output %q missing %q", tt.arg, out, tt.want)
		}
	}
}

func TestHistoryWithoutStorage(t *testing.T) {
	t.Parallel()
	cfg := filepath.Join(t.TempDir(), "nudge.json")
	writeFile(t, cfg, `{"reminders":[]}`)
	if _, err := execute(t, "history", "--config", cfg); err == nil || !strings.Contains(err.Error(), "fire log disabled") {
		t.Fatalf("err = %v, want fire log disabled", err)
	}
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}
