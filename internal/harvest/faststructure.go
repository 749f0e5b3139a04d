package harvest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/aryankumar/threader/internal/util"
)

// Report lines written by fastStructure's choose-K step
const (
	ReportMarginalLikelihoodK = "Model complexity that maximizes marginal likelihood"
	ReportComponentsK         = "Model components used to explain structure in data"

	FieldMarginalLikelihood = "Marginal Likelihood"
	FieldMeanQ              = "meanQ"
)

var (
	fastLogNameRe   = regexp.MustCompile(`\.(\d+)\.log$`)
	fastMeanQNameRe = regexp.MustCompile(`\.(\d+)\.meanQ$`)
)

// ParseChooseKReport extracts the trailing integer of every choose-K report
// line, in the order the lines appear
func ParseChooseKReport(r io.Reader) ([]int, error) {
	var ks []int

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, ReportMarginalLikelihoodK) && !strings.HasPrefix(line, ReportComponentsK) {
			continue
		}

		fields := strings.Fields(line)
		last := fields[len(fields)-1]
		k, err := strconv.Atoi(last)
		if err != nil {
			label := ReportMarginalLikelihoodK
			if strings.HasPrefix(line, ReportComponentsK) {
				label = ReportComponentsK
			}
			return nil, util.NewUnexpectedValue("", label, last)
		}
		ks = append(ks, k)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return ks, nil
}

// ParseFastStructureLog reads one "<prefix>.<K>.log" file written by fastStructure.
// The marginal likelihood is required unless the log only carries report lines.
func ParseFastStructureLog(path string) (RunRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return RunRecord{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return parseFastStructureLog(f, path)
}

func parseFastStructureLog(r io.Reader, path string) (RunRecord, error) {
	name := filepath.Base(path)
	rec := RunRecord{SourceFile: path}

	m := fastLogNameRe.FindStringSubmatch(name)
	if m == nil {
		return RunRecord{}, util.NewUnexpectedValue(name, FieldK, "<missing>")
	}
	k, err := strconv.Atoi(m[1])
	if err != nil || k < 1 {
		return RunRecord{}, util.NewUnexpectedValue(name, FieldK, m[1])
	}
	rec.K = k

	var rawML string
	var lines strings.Builder

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Text()
		if rawML == "" && strings.Contains(line, FieldMarginalLikelihood) {
			if idx := strings.LastIndex(line, "="); idx >= 0 {
				rawML = strings.TrimSpace(line[idx+1:])
			}
		}
		lines.WriteString(line)
		lines.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return RunRecord{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	reported, err := ParseChooseKReport(strings.NewReader(lines.String()))
	if err != nil {
		var uv *util.UnexpectedValueError
		if errors.As(err, &uv) {
			uv.File = name
		}
		return RunRecord{}, err
	}
	rec.ReportedKs = reported

	if rawML == "" {
		if len(reported) > 0 {
			return rec, nil
		}
		return RunRecord{}, util.NewUnexpectedValue(name, FieldMarginalLikelihood, "<missing>")
	}

	ml, err := parseFinite(rawML)
	if err != nil {
		return RunRecord{}, util.NewUnexpectedValue(name, FieldMarginalLikelihood, rawML)
	}
	rec.MarginalLikelihood = ptr(ml)

	return rec, nil
}

// MeanQ is the component count derived from one fastStructure ".meanQ" file
type MeanQ struct {
	K          int
	Components int
	SourceFile string
}

// ParseMeanQ reads a "<prefix>.<K>.meanQ" admixture matrix and returns the
// number of model components needed to explain structure in the data
func ParseMeanQ(path string) (MeanQ, error) {
	f, err := os.Open(path)
	if err != nil {
		return MeanQ{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return parseMeanQ(f, path)
}

func parseMeanQ(r io.Reader, path string) (MeanQ, error) {
	name := filepath.Base(path)
	out := MeanQ{SourceFile: path}

	if m := fastMeanQNameRe.FindStringSubmatch(name); m != nil {
		out.K, _ = strconv.Atoi(m[1])
	}

	var colSums []float64
	rows := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if colSums == nil {
			colSums = make([]float64, len(fields))
		}
		if len(fields) != len(colSums) {
			return MeanQ{}, util.NewUnexpectedValue(name, FieldMeanQ,
				fmt.Sprintf("row %d has %d columns, expected %d", rows+1, len(fields), len(colSums)))
		}

		row := make([]float64, len(fields))
		total := 0.0
		for i, s := range fields {
			v, err := parseFinite(s)
			if err != nil || v < 0 {
				return MeanQ{}, util.NewUnexpectedValue(name, FieldMeanQ, s)
			}
			row[i] = v
			total += v
		}
		if total <= 0 {
			return MeanQ{}, util.NewUnexpectedValue(name, FieldMeanQ, scanner.Text())
		}
		for i := range row {
			colSums[i] += row[i] / total
		}
		rows++
	}
	if err := scanner.Err(); err != nil {
		return MeanQ{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if rows == 0 {
		return MeanQ{}, util.NewUnexpectedValue(name, FieldMeanQ, "<empty>")
	}

	out.Components = componentsExplaining(colSums, float64(rows))
	return out, nil
}

// componentsExplaining counts the largest ancestry components whose cumulative
// mass stays below n-1, plus one
func componentsExplaining(colSums []float64, n float64) int {
	sorted := append([]float64(nil), colSums...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	count := 0
	cum := 0.0
	for _, v := range sorted {
		cum += v
		if cum < n-1 {
			count++
		}
	}
	return count + 1
}
