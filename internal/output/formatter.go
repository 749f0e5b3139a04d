package output

import (
	"io"

	"github.com/aryankumar/threader/internal/executor"
	"github.com/aryankumar/threader/internal/harvest"
	"github.com/aryankumar/threader/internal/util"
)

// Format represents the output format type
type Format string

const (
	// FormatTable outputs data as a borderless table
	FormatTable Format = "table"
	// FormatJSON outputs data in JSON format
	FormatJSON Format = "json"
	// FormatYAML outputs data in YAML format
	FormatYAML Format = "yaml"
)

// Formatter renders harvested results and job outcomes for the terminal.
// The report files under bestK/ are written by the Write* functions instead.
type Formatter interface {
	// Format outputs a single data item to the writer
	Format(w io.Writer, data interface{}) error

	// FormatDataset outputs the per-K statistics of a harvested dataset
	FormatDataset(w io.Writer, ds *harvest.Dataset) error

	// FormatDispatch outputs one line per finished job
	FormatDispatch(w io.Writer, results []executor.Result) error
}

// Option is a functional option for configuring formatters
type Option func(*Options)

// Options holds configuration for formatters
type Options struct {
	// NoColor disables color output
	NoColor bool

	// NoHeaders disables table headers
	NoHeaders bool

	// Wide adds the output path and error columns
	Wide bool
}

// WithNoColor disables color output
func WithNoColor(noColor bool) Option {
	return func(o *Options) {
		o.NoColor = noColor
	}
}

// WithNoHeaders disables table headers
func WithNoHeaders(noHeaders bool) Option {
	return func(o *Options) {
		o.NoHeaders = noHeaders
	}
}

// WithWide enables wide output
func WithWide(wide bool) Option {
	return func(o *Options) {
		o.Wide = wide
	}
}

// ParseFormat maps a flag value onto a Format; anything unknown is a table
func ParseFormat(s string) Format {
	switch Format(s) {
	case FormatJSON, FormatYAML:
		return Format(s)
	default:
		return FormatTable
	}
}

// NewFormatter creates a new formatter based on the specified format
func NewFormatter(format Format, opts ...Option) Formatter {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	switch format {
	case FormatJSON:
		return NewJSONFormatter(options)
	case FormatYAML:
		return NewYAMLFormatter(options)
	case FormatTable:
		fallthrough
	default:
		return NewTableFormatter(options)
	}
}

// DatasetRow is the per-K view of a Dataset shared by every formatter.
// Nil fields have no defined value at that K.
type DatasetRow struct {
	K                  int      `json:"k" yaml:"k"`
	Reps               int      `json:"reps" yaml:"reps"`
	MeanLnP            *float64 `json:"meanLnP,omitempty" yaml:"meanLnP,omitempty"`
	StdevLnP           *float64 `json:"stdevLnP,omitempty" yaml:"stdevLnP,omitempty"`
	LnPK               *float64 `json:"lnPK,omitempty" yaml:"lnPK,omitempty"`
	LnPPK              *float64 `json:"lnPPK,omitempty" yaml:"lnPPK,omitempty"`
	DeltaK             *float64 `json:"deltaK,omitempty" yaml:"deltaK,omitempty"`
	MarginalLikelihood *float64 `json:"marginalLikelihood,omitempty" yaml:"marginalLikelihood,omitempty"`
}

// DatasetRows lists one row per K in ascending order
func DatasetRows(ds *harvest.Dataset) []DatasetRow {
	rows := make([]DatasetRow, 0, len(ds.SortedKs))
	for _, k := range ds.SortedKs {
		row := DatasetRow{
			K:        k,
			Reps:     ds.Reps(k),
			MeanLnP:  lookup(ds.EstLnProbMeans, k),
			StdevLnP: lookup(ds.EstLnProbStdevs, k),
			LnPK:     lookup(ds.LnPK, k),
			LnPPK:    lookup(ds.LnPPK, k),
			DeltaK:   lookup(ds.DeltaK, k),
		}
		for _, r := range ds.Records[k] {
			if r.MarginalLikelihood == nil {
				continue
			}
			if row.MarginalLikelihood == nil || *r.MarginalLikelihood > *row.MarginalLikelihood {
				v := *r.MarginalLikelihood
				row.MarginalLikelihood = &v
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// Job statuses in DispatchRow
const (
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// DispatchRow is the formatter view of one finished job
type DispatchRow struct {
	Job      string `json:"job" yaml:"job"`
	Status   string `json:"status" yaml:"status"`
	Duration string `json:"duration" yaml:"duration"`
	Output   string `json:"output,omitempty" yaml:"output,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// DispatchRows converts pool results; Data carries the job's output path
func DispatchRows(results []executor.Result) []DispatchRow {
	rows := make([]DispatchRow, len(results))
	for i, r := range results {
		row := DispatchRow{
			Job:      r.Name,
			Status:   StatusSuccess,
			Duration: r.Duration.String(),
		}
		if s, ok := r.Data.(string); ok {
			row.Output = s
		}
		switch {
		case util.IsCancelled(r.Error):
			row.Status = StatusCancelled
			row.Error = r.Error.Error()
		case r.Error != nil:
			row.Status = StatusFailed
			row.Error = r.Error.Error()
		}
		rows[i] = row
	}
	return rows
}

func lookup(m map[int]float64, k int) *float64 {
	v, ok := m[k]
	if !ok {
		return nil
	}
	return &v
}
