package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/aryankumar/threader/internal/harvest"
	"github.com/aryankumar/threader/internal/output"
	"github.com/aryankumar/threader/internal/program"
	"github.com/aryankumar/threader/internal/stats"
	"github.com/spf13/viper"
)

// analysisView is the machine-readable shape of an Analysis
type analysisView struct {
	Program    string                  `json:"program" yaml:"program"`
	BestK      int                     `json:"bestK,omitempty" yaml:"bestK,omitempty"`
	ChooseK    *stats.ChooseKResult    `json:"chooseK,omitempty" yaml:"chooseK,omitempty"`
	Runs       []output.DatasetRow     `json:"runs,omitempty" yaml:"runs,omitempty"`
	Evidence   []harvest.EvidenceEntry `json:"evidence,omitempty" yaml:"evidence,omitempty"`
	Normalized []stats.Normalized      `json:"normalized,omitempty" yaml:"normalized,omitempty"`
	Reports    []string                `json:"reports" yaml:"reports"`
}

func newAnalysisView(a *program.Analysis) analysisView {
	v := analysisView{
		Program:    a.Kind.String(),
		BestK:      a.BestK,
		ChooseK:    a.ChooseK,
		Evidence:   a.Evidence,
		Normalized: a.Normalized,
		Reports:    a.Reports,
	}
	if a.Dataset != nil {
		v.Runs = output.DatasetRows(a.Dataset)
	}
	return v
}

// printAnalysis writes the harvested statistics and the best K to w
func printAnalysis(w io.Writer, a *program.Analysis) error {
	f := newFormatter()
	if output.ParseFormat(viper.GetString("output")) != output.FormatTable {
		return f.Format(w, newAnalysisView(a))
	}

	fmt.Fprintln(w)
	if a.Dataset != nil {
		if err := f.FormatDataset(w, a.Dataset); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}

	summary := map[string]interface{}{
		"Program": a.Kind.String(),
		"Reports": strings.Join(a.Reports, ", "),
	}
	if a.BestK > 0 {
		summary["Best K"] = a.BestK
	} else {
		summary["Best K"] = output.NA
	}
	if a.ChooseK != nil {
		summary["Components K"] = kOrNA(a.ChooseK.ComponentsK)
	}
	if len(a.Normalized) > 0 {
		if err := f.Format(w, a.Normalized); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	return f.Format(w, summary)
}

func kOrNA(k int) interface{} {
	if k == 0 {
		return output.NA
	}
	return k
}
