package stats

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"

	"github.com/aryankumar/threader/internal/harvest"
	"github.com/aryankumar/threader/internal/util"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// MergedDir holds the evidence files concatenated across K
const MergedDir = "merged"

// Bootstrap interval bounds
const (
	LowerQuantile = 0.025
	UpperQuantile = 0.975
)

// EvidenceRow is one data line of a merged evidence file and the K it came from
type EvidenceRow struct {
	K    int
	Line string
}

// MergedEvidence is the result of concatenating the per-K evidence files
type MergedEvidence struct {
	// Dir is the directory the merged files were written to
	Dir string

	// Rows are the outputEvidence.csv data lines in ascending K
	Rows []EvidenceRow
}

// Normalized is the bootstrap summary of exp(log evidence) at one K
type Normalized struct {
	K     int     `json:"k"`
	Mean  float64 `json:"mean"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// MergeEvidence concatenates outputEvidence.csv and outputEvidenceDetails.csv
// of every mav_K<k> directory under outDir into outDir/merged, in ascending K,
// keeping only the first file's header
func MergeEvidence(outDir string, ks []int) (MergedEvidence, error) {
	sorted := append([]int(nil), ks...)
	sort.Ints(sorted)

	merged := MergedEvidence{Dir: filepath.Join(outDir, MergedDir)}
	if err := os.MkdirAll(merged.Dir, 0755); err != nil {
		return MergedEvidence{}, fmt.Errorf("failed to create %s: %w", merged.Dir, err)
	}

	for _, name := range []string{harvest.EvidenceFile, harvest.EvidenceDetailsFile} {
		rows, err := mergeFile(outDir, merged.Dir, name, sorted)
		if err != nil {
			return MergedEvidence{}, err
		}
		if name == harvest.EvidenceFile {
			merged.Rows = rows
		}
	}
	return merged, nil
}

func mergeFile(outDir, mergedDir, name string, ks []int) (rows []EvidenceRow, err error) {
	dst := filepath.Join(mergedDir, name)
	f, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", dst, cerr)
		}
	}()

	w := bufio.NewWriter(f)
	for i, k := range ks {
		src := filepath.Join(outDir, harvest.EvidenceDir(k), name)
		header, lines, err := harvest.ReadEvidenceFile(src)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%s: %w", src, util.ErrInputMissing)
			}
			return nil, err
		}
		// a header without rows is what a MavericK run that died early leaves
		if name == harvest.EvidenceFile && len(lines) == 0 {
			return nil, util.NewUnexpectedValue(src, harvest.FieldEvidenceRow, "<missing>")
		}
		if i == 0 {
			fmt.Fprintln(w, header)
		}
		for _, line := range lines {
			fmt.Fprintln(w, line)
			rows = append(rows, EvidenceRow{K: k, Line: line})
		}
	}
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return rows, nil
}

// EvidenceEntries builds one entry per K from the merged evidence rows. The
// first row of each K is used.
func EvidenceEntries(merged MergedEvidence, tiEnabled bool) ([]harvest.EvidenceEntry, error) {
	source := filepath.Join(merged.Dir, harvest.EvidenceFile)

	var entries []harvest.EvidenceEntry
	seen := make(map[int]bool)
	for _, row := range merged.Rows {
		if seen[row.K] {
			continue
		}
		seen[row.K] = true

		e, err := harvest.ParseEvidenceRow(row.Line, row.K, tiEnabled, source)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("no evidence rows in %s: %w", source, util.ErrInputMissing)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].K < entries[j].K })
	return entries, nil
}

// BestEvidenceK returns the K with the largest log evidence, the smallest
// such K on ties
func BestEvidenceK(entries []harvest.EvidenceEntry) (k int, ok bool) {
	best := math.Inf(-1)
	for _, e := range entries {
		if !ok || e.LogEvidenceMean > best || (e.LogEvidenceMean == best && e.K < k) {
			k, best, ok = e.K, e.LogEvidenceMean, true
		}
	}
	return k, ok
}

// Normalize draws samples from Normal(mean, sd) of every entry's log evidence,
// exponentiates and sorts them, and reports their mean with a 95% interval.
// Each K gets its own stream seeded from seed and K, so results do not depend
// on entry order.
func Normalize(entries []harvest.EvidenceEntry, draws int, seed uint64) []Normalized {
	if draws < 1 {
		draws = 1
	}

	out := make([]Normalized, 0, len(entries))
	z := make([]float64, draws)
	for _, e := range entries {
		if e.LogEvidenceSd == 0 {
			v := math.Exp(e.LogEvidenceMean)
			out = append(out, Normalized{K: e.K, Mean: v, Lower: v, Upper: v})
			continue
		}

		dist := distuv.Normal{
			Mu:    e.LogEvidenceMean,
			Sigma: e.LogEvidenceSd,
			Src:   rand.NewPCG(seed, uint64(e.K)),
		}
		for i := range z {
			z[i] = math.Exp(dist.Rand())
		}
		sort.Float64s(z)

		out = append(out, Normalized{
			K:     e.K,
			Mean:  stat.Mean(z, nil),
			Lower: percentile(LowerQuantile, z),
			Upper: percentile(UpperQuantile, z),
		})
	}
	return out
}

// percentile interpolates linearly between the order statistics around
// position (n-1)p of sorted x
func percentile(p float64, x []float64) float64 {
	n := len(x)
	if n == 0 {
		return math.NaN()
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return x[n-1]
	}
	return x[lo] + (h-float64(lo))*(x[lo+1]-x[lo])
}
