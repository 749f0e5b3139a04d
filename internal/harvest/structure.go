package harvest

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/aryankumar/threader/internal/util"
)

// STRUCTURE _f field labels
const (
	FieldK                = "K"
	FieldEstLnProb        = "Estimated Ln Prob of Data"
	FieldMeanLnLikelihood = "Mean value of ln likelihood"
	FieldVarLnLikelihood  = "Variance of ln likelihood"
	FieldMeanAlpha        = "Mean value of alpha"

	populationsAssumed = "populations assumed"
)

// maxLineSize covers the widest Q-matrix rows STRUCTURE writes
const maxLineSize = 1 << 20

var structureNameRe = regexp.MustCompile(`K(\d+)_rep(\d+)`)

// ParseStructureFile reads one STRUCTURE "_f" output file
func ParseStructureFile(path string) (RunRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return RunRecord{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return parseStructure(f, path)
}

func parseStructure(r io.Reader, path string) (RunRecord, error) {
	name := filepath.Base(path)
	rec := RunRecord{SourceFile: path}

	if m := structureNameRe.FindStringSubmatch(name); m != nil {
		rec.K, _ = strconv.Atoi(m[1])
		rec.Replicate, _ = strconv.Atoi(m[2])
	}

	raw := map[string]string{}
	kFromContent := ""

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Text()

		if kFromContent == "" && strings.Contains(line, populationsAssumed) {
			if fields := strings.Fields(line); len(fields) > 0 {
				kFromContent = fields[0]
			}
			continue
		}

		for _, field := range []string{FieldEstLnProb, FieldMeanLnLikelihood, FieldVarLnLikelihood, FieldMeanAlpha} {
			if _, seen := raw[field]; seen || !strings.Contains(line, field) {
				continue
			}
			if idx := strings.Index(line, "="); idx >= 0 {
				raw[field] = strings.TrimSpace(line[idx+1:])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return RunRecord{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if kFromContent != "" {
		k, err := strconv.Atoi(kFromContent)
		if err != nil {
			return RunRecord{}, util.NewUnexpectedValue(name, FieldK, kFromContent)
		}
		rec.K = k
	}
	if rec.K < 1 {
		return RunRecord{}, util.NewUnexpectedValue(name, FieldK, valueOrMissing(kFromContent))
	}

	est, err := requireFloat(name, FieldEstLnProb, raw)
	if err != nil {
		return RunRecord{}, err
	}
	if est > 0 {
		return RunRecord{}, util.NewUnexpectedValue(name, FieldEstLnProb, raw[FieldEstLnProb])
	}
	rec.EstLnProbData = ptr(est)

	if v, ok, err := optionalFloat(name, FieldMeanLnLikelihood, raw); err != nil {
		return RunRecord{}, err
	} else if ok {
		rec.MeanLnLikelihood = ptr(v)
	}

	if v, ok, err := optionalFloat(name, FieldVarLnLikelihood, raw); err != nil {
		return RunRecord{}, err
	} else if ok {
		if v < 0 {
			return RunRecord{}, util.NewUnexpectedValue(name, FieldVarLnLikelihood, raw[FieldVarLnLikelihood])
		}
		rec.VarLnLikelihood = ptr(v)
	}

	if v, ok, err := optionalFloat(name, FieldMeanAlpha, raw); err != nil {
		return RunRecord{}, err
	} else if ok {
		rec.MeanAlpha = ptr(v)
	}

	return rec, nil
}

func requireFloat(file, field string, raw map[string]string) (float64, error) {
	v, ok, err := optionalFloat(file, field, raw)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, util.NewUnexpectedValue(file, field, valueOrMissing(""))
	}
	return v, nil
}

func optionalFloat(file, field string, raw map[string]string) (float64, bool, error) {
	s, ok := raw[field]
	if !ok {
		return 0, false, nil
	}
	v, err := parseFinite(s)
	if err != nil {
		return 0, false, util.NewUnexpectedValue(file, field, s)
	}
	return v, true, nil
}

// parseFinite rejects NaN and infinities along with unparsable text
func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

func valueOrMissing(s string) string {
	if s == "" {
		return "<missing>"
	}
	return s
}
