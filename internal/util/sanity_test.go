package util

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCheckPaths(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "input.str")
	if err := os.WriteFile(file, []byte("data"), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	tests := []struct {
		name    string
		checks  []PathCheck
		wantErr error
	}{
		{
			name:   "all present",
			checks: []PathCheck{{Label: "input file", Path: file}, {Label: "output directory", Path: dir, WantDir: true}},
		},
		{
			name:   "empty path skipped",
			checks: []PathCheck{{Label: "popfile", Path: ""}},
		},
		{
			name:    "missing binary",
			checks:  []PathCheck{{Label: "binary", Path: filepath.Join(dir, "structure")}},
			wantErr: ErrInputMissing,
		},
		{
			name:   "missing output allowed",
			checks: []PathCheck{{Label: "output directory", Path: filepath.Join(dir, "out"), WantDir: true, MayBeMissing: true}},
		},
		{
			name:    "output is a file",
			checks:  []PathCheck{{Label: "output directory", Path: file, WantDir: true, MayBeMissing: true}},
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "input is a directory",
			checks:  []PathCheck{{Label: "input file", Path: dir}},
			wantErr: ErrInputMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPaths(tt.checks...)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestResolveWorkers(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		cpus      int
		want      int
	}{
		{name: "within limit", requested: 2, cpus: 8, want: 2},
		{name: "clamped", requested: 16, cpus: 4, want: 4},
		{name: "zero uses all", requested: 0, cpus: 6, want: 6},
		{name: "negative uses all", requested: -1, cpus: 3, want: 3},
		{name: "bogus cpu count", requested: 0, cpus: 0, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveWorkers(tt.requested, tt.cpus, nil); got != tt.want {
				t.Errorf("resolveWorkers(%d, %d) = %d, want %d", tt.requested, tt.cpus, got, tt.want)
			}
		})
	}
}
