package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aryankumar/threader/internal/executor"
	"github.com/aryankumar/threader/internal/harvest"
	"github.com/aryankumar/threader/internal/stats"
)

func TestNewTableFormatter(t *testing.T) {
	tests := []struct {
		name string
		opts *Options
	}{
		{
			name: "nil options",
			opts: nil,
		},
		{
			name: "with options",
			opts: &Options{NoColor: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter := NewTableFormatter(tt.opts)
			if formatter == nil {
				t.Fatal("NewTableFormatter returned nil")
			}
			if formatter.options == nil {
				t.Error("formatter.options is nil")
			}
		})
	}
}

func TestTableFormatter_Format(t *testing.T) {
	tests := []struct {
		name     string
		data     interface{}
		contains []string
	}{
		{
			name:     "map data",
			data:     map[string]interface{}{"program": "structure", "workers": 4},
			contains: []string{"KEY", "VALUE", "program", "structure", "workers", "4"},
		},
		{
			name:     "string data",
			data:     "simple string",
			contains: []string{"simple string"},
		},
		{
			name:     "integer falls back to fmt",
			data:     42,
			contains: []string{"42"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			formatter := NewTableFormatter(&Options{NoColor: true})
			if err := formatter.Format(&buf, tt.data); err != nil {
				t.Fatalf("Format() error = %v", err)
			}

			out := buf.String()
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestTableFormatter_Format_NormalizedInKOrder(t *testing.T) {
	var buf bytes.Buffer
	formatter := NewTableFormatter(&Options{NoColor: true})
	err := formatter.Format(&buf, []stats.Normalized{
		{K: 10, Mean: 0.5, Lower: 0.4, Upper: 0.6},
		{K: 2, Mean: 0.25, Lower: 0.2, Upper: 0.3},
		{K: 1, Mean: 0.125, Lower: 0.1, Upper: 0.15},
	})
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header and 3 rows, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "EVIDENCE MEAN") {
		t.Errorf("missing header: %q", lines[0])
	}
	for i, k := range []string{"1", "2", "10"} {
		if got := strings.Fields(lines[i+1])[0]; got != k {
			t.Errorf("row %d: K = %s, want %s", i+1, got, k)
		}
	}
	if !strings.Contains(lines[3], "0.5") || !strings.Contains(lines[3], "0.6") {
		t.Errorf("K=10 row missing values: %q", lines[3])
	}
}

func TestTableFormatter_FormatDataset(t *testing.T) {
	var buf bytes.Buffer
	formatter := NewTableFormatter(&Options{NoColor: true})
	if err := formatter.FormatDataset(&buf, evannoDataset()); err != nil {
		t.Fatalf("FormatDataset() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"K", "REPS", "DELTA K", "-100.0000", "-95.0000", "5.000000", "2.000000", NA} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "MARGINAL LIKELIHOOD") {
		t.Error("marginal likelihood column shown for STRUCTURE data")
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Errorf("got %d lines, want header plus 3 rows:\n%s", len(lines), out)
	}
}

func TestTableFormatter_FormatDataset_MarginalLikelihood(t *testing.T) {
	ds := harvest.NewDataset([]harvest.RunRecord{{K: 3, MarginalLikelihood: fptr(-0.5)}})

	var buf bytes.Buffer
	if err := NewTableFormatter(&Options{NoColor: true}).FormatDataset(&buf, ds); err != nil {
		t.Fatalf("FormatDataset() error = %v", err)
	}
	if !strings.Contains(buf.String(), "MARGINAL LIKELIHOOD") || !strings.Contains(buf.String(), "-0.500000") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestTableFormatter_FormatDataset_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTableFormatter(nil).FormatDataset(&buf, harvest.NewDataset(nil)); err != nil {
		t.Fatalf("FormatDataset() error = %v", err)
	}
	if !strings.Contains(buf.String(), "No results") {
		t.Errorf("got %q, want No results", buf.String())
	}
}

func TestTableFormatter_FormatDispatch(t *testing.T) {
	tests := []struct {
		name        string
		opts        *Options
		results     []executor.Result
		contains    []string
		notContains []string
	}{
		{
			name:        "narrow",
			opts:        &Options{NoColor: true},
			results:     dispatchResults(),
			contains:    []string{"JOB", "STATUS", "K3_rep1", "Success", "Failed", "1 successful", "1 failed", "Failed jobs: K2_rep1"},
			notContains: []string{"OUTPUT", "/out/K3_rep1"},
		},
		{
			name:     "wide",
			opts:     &Options{NoColor: true, Wide: true},
			results:  dispatchResults(),
			contains: []string{"OUTPUT", "ERROR", "/out/K3_rep1", "exit status 1"},
		},
		{
			name:        "no headers",
			opts:        &Options{NoColor: true, NoHeaders: true},
			results:     dispatchResults(),
			contains:    []string{"K3_rep1"},
			notContains: []string{"JOB"},
		},
		{
			name:     "empty",
			opts:     &Options{NoColor: true},
			results:  nil,
			contains: []string{"No jobs"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewTableFormatter(tt.opts).FormatDispatch(&buf, tt.results); err != nil {
				t.Fatalf("FormatDispatch() error = %v", err)
			}

			out := buf.String()
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
			for _, unwanted := range tt.notContains {
				if strings.Contains(out, unwanted) {
					t.Errorf("output contains %q:\n%s", unwanted, out)
				}
			}
		})
	}
}

func TestFormatValue(t *testing.T) {
	if got := formatValue(nil, "%f"); got != NA {
		t.Errorf("formatValue(nil) = %q, want %q", got, NA)
	}
	if got := formatValue(fptr(1.23456), "%.4f"); got != "1.2346" {
		t.Errorf("formatValue(1.23456) = %q, want 1.2346", got)
	}
}
