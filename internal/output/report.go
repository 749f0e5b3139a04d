package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aryankumar/threader/internal/harvest"
	"github.com/aryankumar/threader/internal/stats"
	"github.com/aryankumar/threader/pkg/version"
)

// Report file names under the bestK directory
const (
	EvannoFile        = "evanno.txt"
	SummaryFile       = "summary.txt"
	ChooseKFile       = "chooseK.txt"
	IntegrationFile   = "TI_integration.txt"
	NormalizationFile = "TI_normalization.txt"
)

// TimestampLayout is used for the "File generated at" line
const TimestampLayout = "2006-01-02 15:04:05"

const sectionBreak = "\n##########\n"

// WriteReportFile creates path (and its directory) and hands a buffered
// writer to write
func WriteReportFile(path string, write func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	w := bufio.NewWriter(f)
	if err := write(w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WriteEvannoTable writes the Evanno table. Apart from the timestamp line the
// output depends only on ds.
func WriteEvannoTable(w io.Writer, ds *harvest.Dataset, generated time.Time) error {
	ks := make([]string, len(ds.SortedKs))
	for i, k := range ds.SortedKs {
		ks[i] = fmt.Sprintf("%d", k)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Generated by threader %s\n", version.Get().Short())
	fmt.Fprintf(&b, "# File generated at %s\n", generated.Format(TimestampLayout))
	b.WriteString("#\n")
	fmt.Fprintf(&b, "# Values of K tested: %s\n", strings.Join(ks, " "))
	fmt.Fprintf(&b, "# Total runs harvested: %d\n", ds.Len())
	b.WriteString("#\n")
	b.WriteString("# Delta K = |Ln''(K)| / Stdev LnP(K) (Evanno, Regnaut and Goudet 2005).\n")
	b.WriteString("# NA marks a value that is undefined at that K.\n")
	b.WriteString(sectionBreak)
	b.WriteString("# K\tReps\tMean LnP(K)\tStdev LnP(K)\tLn'(K)\t|Ln''(K)|\tDelta K\n")

	for _, r := range DatasetRows(ds) {
		fmt.Fprintf(&b, "%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
			r.K, r.Reps,
			formatValue(r.MeanLnP, "%.4f"),
			formatValue(r.StdevLnP, "%.4f"),
			formatValue(r.LnPK, "%f"),
			formatValue(r.LnPPK, "%f"),
			formatValue(r.DeltaK, "%f"))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteRawSummary dumps every harvested record sorted by K, then replicate
func WriteRawSummary(w io.Writer, ds *harvest.Dataset) error {
	var b strings.Builder
	b.WriteString("# File\tK\tRep\tEst. Ln Prob of Data\tMean ln likelihood\tVariance of ln likelihood\tMean alpha\tMarginal likelihood\n")

	for _, r := range ds.Ordered() {
		fmt.Fprintf(&b, "%s\t%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
			filepath.Base(r.SourceFile), r.K, r.Replicate,
			formatValue(r.EstLnProbData, "%.4f"),
			formatValue(r.MeanLnLikelihood, "%.4f"),
			formatValue(r.VarLnLikelihood, "%.4f"),
			formatValue(r.MeanAlpha, "%.4f"),
			formatValue(r.MarginalLikelihood, "%f"))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteChooseK writes the fastStructure report lines. Values that could not
// be computed are left out; report integers found in the logs follow as a
// comment.
func WriteChooseK(w io.Writer, res stats.ChooseKResult) error {
	var b strings.Builder
	if res.MarginalLikelihoodK > 0 {
		fmt.Fprintf(&b, "%s = %d\n", harvest.ReportMarginalLikelihoodK, res.MarginalLikelihoodK)
	}
	if res.ComponentsK > 0 {
		fmt.Fprintf(&b, "%s = %d\n", harvest.ReportComponentsK, res.ComponentsK)
	}
	if len(res.ReportedKs) > 0 {
		ks := make([]string, len(res.ReportedKs))
		for i, k := range res.ReportedKs {
			ks[i] = fmt.Sprintf("%d", k)
		}
		fmt.Fprintf(&b, "# Reported in logs: %s\n", strings.Join(ks, " "))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteBestEvidenceK writes the MavericK best-K sentence
func WriteBestEvidenceK(w io.Writer, k int, tiEnabled bool) error {
	var err error
	if tiEnabled {
		_, err = fmt.Fprintf(w, "Best K by thermodynamic integration (maximum log evidence): K = %d\n", k)
	} else {
		_, err = fmt.Fprintf(w, "Thermodynamic integration disabled; best K by the STRUCTURE estimator of log evidence: K = %d\n", k)
	}
	return err
}

// WriteNormalization writes one line per K with the bootstrap mean and 95%
// interval of the evidence
func WriteNormalization(w io.Writer, norm []stats.Normalized) error {
	var b strings.Builder
	b.WriteString("# K\tMean\tLower 95%\tUpper 95%\n")
	for _, n := range norm {
		fmt.Fprintf(&b, "%d\t%g\t%g\t%g\n", n.K, n.Mean, n.Lower, n.Upper)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
