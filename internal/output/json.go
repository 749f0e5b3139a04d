package output

import (
	"encoding/json"
	"io"

	"github.com/aryankumar/threader/internal/executor"
	"github.com/aryankumar/threader/internal/harvest"
)

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	options *Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(opts *Options) *JSONFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &JSONFormatter{
		options: opts,
	}
}

// Format outputs a single data item as JSON
func (f *JSONFormatter) Format(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// FormatDataset outputs the per-K rows as a JSON array
func (f *JSONFormatter) FormatDataset(w io.Writer, ds *harvest.Dataset) error {
	return f.Format(w, DatasetRows(ds))
}

// FormatDispatch outputs the job results as a JSON array
func (f *JSONFormatter) FormatDispatch(w io.Writer, results []executor.Result) error {
	return f.Format(w, DispatchRows(results))
}
