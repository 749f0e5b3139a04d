package output

import (
	"io"

	"github.com/aryankumar/threader/internal/executor"
	"github.com/aryankumar/threader/internal/harvest"
	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats output as YAML
type YAMLFormatter struct {
	options *Options
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(opts *Options) *YAMLFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &YAMLFormatter{
		options: opts,
	}
}

// Format outputs a single data item as YAML
func (f *YAMLFormatter) Format(w io.Writer, data interface{}) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	return encoder.Encode(data)
}

// FormatDataset outputs the per-K rows as a YAML sequence
func (f *YAMLFormatter) FormatDataset(w io.Writer, ds *harvest.Dataset) error {
	return f.Format(w, DatasetRows(ds))
}

// FormatDispatch outputs the job results as a YAML sequence
func (f *YAMLFormatter) FormatDispatch(w io.Writer, results []executor.Result) error {
	return f.Format(w, DispatchRows(results))
}
