package output

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aryankumar/threader/internal/executor"
	"github.com/aryankumar/threader/internal/harvest"
	"github.com/aryankumar/threader/internal/util"
)

func fptr(v float64) *float64 { return &v }

// evannoDataset is three Ks with statistics filled in the way the Evanno
// method leaves them: boundaries carry no derivatives
func evannoDataset() *harvest.Dataset {
	var recs []harvest.RunRecord
	for k, vals := range map[int][]float64{1: {-101, -99}, 2: {-96, -94}, 3: {-93, -91}} {
		for i, v := range vals {
			recs = append(recs, harvest.RunRecord{
				K:             k,
				Replicate:     i + 1,
				EstLnProbData: fptr(v),
				SourceFile:    "/out/K_rep_f",
			})
		}
	}
	ds := harvest.NewDataset(recs)
	ds.EstLnProbMeans = map[int]float64{1: -100, 2: -95, 3: -92}
	ds.EstLnProbStdevs = map[int]float64{1: 1, 2: 1, 3: 1}
	ds.LnPK[2] = 5
	ds.LnPPK[2] = 2
	ds.DeltaK[2] = 2
	return ds
}

func dispatchResults() []executor.Result {
	return []executor.Result{
		{Name: "K3_rep1", Data: "/out/K3_rep1", Duration: 2 * time.Second},
		{Name: "K2_rep1", Data: "/out/K2_rep1", Error: errors.New("exit status 1"), Duration: time.Second},
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		name         string
		format       Format
		opts         []Option
		expectedType string
	}{
		{
			name:         "table formatter default",
			format:       FormatTable,
			expectedType: "*output.TableFormatter",
		},
		{
			name:         "json formatter",
			format:       FormatJSON,
			expectedType: "*output.JSONFormatter",
		},
		{
			name:         "yaml formatter",
			format:       FormatYAML,
			expectedType: "*output.YAMLFormatter",
		},
		{
			name:         "unknown format defaults to table",
			format:       "unknown",
			expectedType: "*output.TableFormatter",
		},
		{
			name:         "table with multiple options",
			format:       FormatTable,
			opts:         []Option{WithNoColor(true), WithNoHeaders(true), WithWide(true)},
			expectedType: "*output.TableFormatter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter := NewFormatter(tt.format, tt.opts...)
			if formatter == nil {
				t.Fatal("NewFormatter returned nil")
			}

			switch tt.expectedType {
			case "*output.TableFormatter":
				if _, ok := formatter.(*TableFormatter); !ok {
					t.Errorf("expected TableFormatter, got %T", formatter)
				}
			case "*output.JSONFormatter":
				if _, ok := formatter.(*JSONFormatter); !ok {
					t.Errorf("expected JSONFormatter, got %T", formatter)
				}
			case "*output.YAMLFormatter":
				if _, ok := formatter.(*YAMLFormatter); !ok {
					t.Errorf("expected YAMLFormatter, got %T", formatter)
				}
			}
		})
	}
}

func TestOptions(t *testing.T) {
	options := &Options{}
	for _, opt := range []Option{WithNoColor(true), WithNoHeaders(true), WithWide(true)} {
		opt(options)
	}

	if !options.NoColor || !options.NoHeaders || !options.Wide {
		t.Errorf("options = %+v, want all set", options)
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"json":  FormatJSON,
		"yaml":  FormatYAML,
		"table": FormatTable,
		"":      FormatTable,
		"xml":   FormatTable,
	}
	for in, want := range tests {
		if got := ParseFormat(in); got != want {
			t.Errorf("ParseFormat(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDatasetRows(t *testing.T) {
	rows := DatasetRows(evannoDataset())
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	for i, k := range []int{1, 2, 3} {
		if rows[i].K != k {
			t.Errorf("rows[%d].K = %d, want %d", i, rows[i].K, k)
		}
		if rows[i].Reps != 2 {
			t.Errorf("rows[%d].Reps = %d, want 2", i, rows[i].Reps)
		}
	}

	if rows[0].DeltaK != nil || rows[2].DeltaK != nil {
		t.Error("boundary K values must have no DeltaK")
	}
	if rows[1].DeltaK == nil || *rows[1].DeltaK != 2 {
		t.Errorf("rows[1].DeltaK = %v, want 2", rows[1].DeltaK)
	}
	if rows[1].MarginalLikelihood != nil {
		t.Error("STRUCTURE rows carry no marginal likelihood")
	}
}

func TestDatasetRows_MarginalLikelihood(t *testing.T) {
	ds := harvest.NewDataset([]harvest.RunRecord{
		{K: 2, MarginalLikelihood: fptr(-1.2)},
		{K: 2, MarginalLikelihood: fptr(-0.9)},
	})

	rows := DatasetRows(ds)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].MarginalLikelihood == nil || *rows[0].MarginalLikelihood != -0.9 {
		t.Errorf("MarginalLikelihood = %v, want -0.9", rows[0].MarginalLikelihood)
	}
	if rows[0].MeanLnP != nil {
		t.Error("MeanLnP should be undefined")
	}
}

func TestDispatchRows(t *testing.T) {
	rows := DispatchRows(dispatchResults())

	if rows[0].Status != StatusSuccess || rows[0].Output != "/out/K3_rep1" || rows[0].Error != "" {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	if rows[1].Status != StatusFailed || rows[1].Error != "exit status 1" {
		t.Errorf("rows[1] = %+v", rows[1])
	}
	if rows[1].Duration != "1s" {
		t.Errorf("rows[1].Duration = %q, want 1s", rows[1].Duration)
	}
}

func TestDispatchRows_Cancelled(t *testing.T) {
	results := append(dispatchResults(), executor.Result{
		Name:  "K1_rep1",
		Error: fmt.Errorf("K1_rep1 not started: %w", util.ErrCancelled),
	})

	rows := DispatchRows(results)
	if rows[2].Status != StatusCancelled {
		t.Errorf("rows[2].Status = %q, want %q", rows[2].Status, StatusCancelled)
	}

	var buf bytes.Buffer
	if err := NewTableFormatter(&Options{NoColor: true}).FormatDispatch(&buf, results); err != nil {
		t.Fatalf("FormatDispatch() error = %v", err)
	}
	for _, want := range []string{"Cancelled", "2 failed (1 cancelled)", "Failed jobs: K2_rep1, K1_rep1"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %q:\n%s", want, buf.String())
		}
	}
}
