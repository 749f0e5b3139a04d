// Package output renders threader results.
//
// Two kinds of output live here. Formatters (table, JSON, YAML) print the
// harvested per-K statistics and the job outcomes of a dispatch to the
// terminal:
//
//	formatter := output.NewFormatter(output.FormatTable, output.WithNoColor(true))
//	formatter.FormatDataset(os.Stdout, ds)
//	formatter.FormatDispatch(os.Stdout, results)
//
// The Write* functions produce the report files under the bestK directory:
// the Evanno table, the raw per-replicate summary, the fastStructure choose-K
// lines and the MavericK evidence reports. WriteReportFile creates the file
// and its directory around any of them:
//
//	err := output.WriteReportFile(path, func(w io.Writer) error {
//	    return output.WriteEvannoTable(w, ds, time.Now())
//	})
//
// Undefined statistics are rendered as NA, never as zero.
//
// Colors are enabled only when writing to a terminal and can be turned off
// with WithNoColor.
package output
