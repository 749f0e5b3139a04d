package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aryankumar/threader/internal/executor"
	"github.com/aryankumar/threader/internal/harvest"
	"github.com/aryankumar/threader/internal/stats"
	"github.com/olekukonko/tablewriter"
)

// NA marks a statistic with no defined value
const NA = "NA"

// TableFormatter formats output as a borderless table
type TableFormatter struct {
	options *Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(opts *Options) *TableFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &TableFormatter{
		options: opts,
	}
}

// Format outputs a single data item as a table
func (f *TableFormatter) Format(w io.Writer, data interface{}) error {
	table := f.createTable(w)

	switch v := data.(type) {
	case map[string]interface{}:
		return f.formatMap(table, v)
	case []stats.Normalized:
		return f.formatNormalized(w, table, v)
	case string:
		fmt.Fprintln(w, v)
		return nil
	default:
		fmt.Fprintln(w, v)
		return nil
	}
}

// FormatDataset outputs one row per K with the Evanno statistics; the
// marginal likelihood column appears when any run reported one
func (f *TableFormatter) FormatDataset(w io.Writer, ds *harvest.Dataset) error {
	rows := DatasetRows(ds)
	if len(rows) == 0 {
		fmt.Fprintln(w, "No results")
		return nil
	}

	colors := NewColorScheme(w, f.options.NoColor)
	table := f.createTable(w)

	showML := false
	for _, r := range rows {
		if r.MarginalLikelihood != nil {
			showML = true
			break
		}
	}

	headers := []string{"K", "REPS", "MEAN LNP(K)", "STDEV LNP(K)", "LN'(K)", "|LN''(K)|", "DELTA K"}
	if showML {
		headers = append(headers, "MARGINAL LIKELIHOOD")
	}
	f.setHeader(table, headers, colors)

	for _, r := range rows {
		cell := func(v *float64, verb string) string {
			if v == nil {
				return colors.Undefined("%s", NA)
			}
			return formatValue(v, verb)
		}
		row := []string{
			colors.K("%d", r.K),
			fmt.Sprintf("%d", r.Reps),
			cell(r.MeanLnP, "%.4f"),
			cell(r.StdevLnP, "%.4f"),
			cell(r.LnPK, "%f"),
			cell(r.LnPPK, "%f"),
			cell(r.DeltaK, "%f"),
		}
		if showML {
			row = append(row, cell(r.MarginalLikelihood, "%f"))
		}
		table.Append(row)
	}

	table.Render()
	return nil
}

// FormatDispatch outputs one row per job followed by a summary line
func (f *TableFormatter) FormatDispatch(w io.Writer, results []executor.Result) error {
	if len(results) == 0 {
		fmt.Fprintln(w, "No jobs")
		return nil
	}

	colors := NewColorScheme(w, f.options.NoColor)
	table := f.createTable(w)

	headers := []string{"JOB", "STATUS", "DURATION"}
	if f.options.Wide {
		headers = append(headers, "OUTPUT", "ERROR")
	}
	f.setHeader(table, headers, colors)

	for _, row := range DispatchRows(results) {
		table.Append(f.formatDispatchRow(row, colors))
	}

	table.Render()

	f.printSummary(w, results, colors)

	return nil
}

func (f *TableFormatter) formatDispatchRow(row DispatchRow, colors *ColorScheme) []string {
	status := strings.ToUpper(row.Status[:1]) + row.Status[1:]
	job := colors.K("%s", row.Job)
	status = colors.Status(row.Status)("%s", status)
	duration := colors.Duration("%s", row.Duration)

	out := []string{job, status, duration}
	if f.options.Wide {
		errText := row.Error
		if len(errText) > 60 {
			errText = errText[:57] + "..."
		}
		out = append(out, row.Output, errText)
	}
	return out
}

func (f *TableFormatter) setHeader(table *tablewriter.Table, headers []string, colors *ColorScheme) {
	if f.options.NoHeaders {
		return
	}
	colored := make([]string, len(headers))
	for i, h := range headers {
		colored[i] = colors.Header("%s", h)
	}
	table.SetHeader(colored)
}

// formatMap formats a map as a two-column table, keys sorted
func (f *TableFormatter) formatMap(table *tablewriter.Table, data map[string]interface{}) error {
	if !f.options.NoHeaders {
		table.SetHeader([]string{"KEY", "VALUE"})
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		table.Append([]string{k, fmt.Sprintf("%v", data[k])})
	}

	table.Render()
	return nil
}

// formatNormalized outputs one row per K, ascending, with the bootstrap
// mean and interval of the evidence
func (f *TableFormatter) formatNormalized(w io.Writer, table *tablewriter.Table, ns []stats.Normalized) error {
	sorted := append([]stats.Normalized(nil), ns...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].K < sorted[j].K })

	colors := NewColorScheme(w, f.options.NoColor)
	f.setHeader(table, []string{"K", "EVIDENCE MEAN", "LOWER 2.5%", "UPPER 97.5%"}, colors)
	for _, n := range sorted {
		table.Append([]string{
			colors.K("%d", n.K),
			fmt.Sprintf("%g", n.Mean),
			fmt.Sprintf("%g", n.Lower),
			fmt.Sprintf("%g", n.Upper),
		})
	}

	table.Render()
	return nil
}

// createTable creates a borderless, tab-padded table
func (f *TableFormatter) createTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	return table
}

// printSummary prints job counts and the failing jobs
func (f *TableFormatter) printSummary(w io.Writer, results []executor.Result, colors *ColorScheme) {
	summary := executor.Summarize(results)

	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Summary: ")

	successText := colors.Success("%d successful", summary.Successful)

	failedText := fmt.Sprintf("%d failed", summary.Failed)
	if summary.Cancelled > 0 {
		failedText += fmt.Sprintf(" (%d cancelled)", summary.Cancelled)
	}
	if summary.Failed > 0 {
		failedText = colors.Error("%s", failedText)
	}

	durationText := colors.Duration("avg=%s", summary.AvgDuration.Round(time.Millisecond))

	fmt.Fprintf(w, "%s, %s, %s\n", successText, failedText, durationText)

	if summary.Failed > 0 {
		var names []string
		for _, r := range executor.FilterFailed(results) {
			names = append(names, r.Name)
		}
		warn := colors.Warning("Failed jobs: %s", strings.Join(names, ", "))
		fmt.Fprintln(w, warn)
	}
}

func formatValue(v *float64, verb string) string {
	if v == nil {
		return NA
	}
	return fmt.Sprintf(verb, *v)
}
