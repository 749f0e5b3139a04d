package harvest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/aryankumar/threader/internal/util"
)

// MavericK output files merged across K
const (
	EvidenceFile        = "outputEvidence.csv"
	EvidenceDetailsFile = "outputEvidenceDetails.csv"

	FieldLogEvidence   = "log evidence"
	FieldLogEvidenceSd = "log evidence SD"
	FieldEvidenceRow   = "data row"
)

// Column offsets from the end of an evidence row
const (
	offsetTI        = 2
	offsetStructure = 4
)

var mavDirRe = regexp.MustCompile(`^mav_K(\d+)$`)

// MavericKParams holds the parts of a MavericK parameter file threader acts on
type MavericKParams struct {
	// TIEnabled is false when thermodynamic_on is f, false or 0
	TIEnabled bool

	// Alpha and AlphaPropSD hold comma-separated values; more than one value
	// means one value per K
	Alpha       []string
	AlphaPropSD []string
}

// ParseMavericKParams reads a MavericK parameter file. TI defaults to enabled.
func ParseMavericKParams(path string) (MavericKParams, error) {
	f, err := os.Open(path)
	if err != nil {
		return MavericKParams{}, fmt.Errorf("failed to open parameter file %s: %w", path, err)
	}
	defer f.Close()

	return parseMavericKParams(f)
}

func parseMavericKParams(r io.Reader) (MavericKParams, error) {
	p := MavericKParams{TIEnabled: true}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		switch strings.ToLower(fields[0]) {
		case "thermodynamic_on":
			switch strings.ToLower(fields[1]) {
			case "f", "false", "0":
				p.TIEnabled = false
			}
		case "alpha":
			p.Alpha = strings.Split(fields[1], ",")
		case "alphapropsd":
			p.AlphaPropSD = strings.Split(fields[1], ",")
		}
	}
	if err := scanner.Err(); err != nil {
		return MavericKParams{}, err
	}

	return p, nil
}

// PerK maps a multi-valued parameter onto the K list. A single value (or no
// value) returns nil so the parameter file value applies unchanged.
func PerK(name string, values []string, ks []int) (map[int]string, error) {
	if len(values) <= 1 {
		return nil, nil
	}
	if len(values) != len(ks) {
		return nil, util.NewValidationError(name, strings.Join(values, ","),
			fmt.Sprintf("%d values given for %d values of K", len(values), len(ks)))
	}
	out := make(map[int]string, len(ks))
	for i, k := range ks {
		out[k] = values[i]
	}
	return out, nil
}

// EvidenceDir is the per-K MavericK output directory name
func EvidenceDir(k int) string {
	return "mav_K" + strconv.Itoa(k)
}

// KFromEvidenceDir extracts K from a "mav_K<k>" directory name
func KFromEvidenceDir(dir string) (int, bool) {
	m := mavDirRe.FindStringSubmatch(filepath.Base(filepath.Clean(dir)))
	if m == nil {
		return 0, false
	}
	k, err := strconv.Atoi(m[1])
	if err != nil || k < 1 {
		return 0, false
	}
	return k, true
}

// ReadEvidenceFile returns the header line and the data lines of a MavericK CSV
func ReadEvidenceFile(path string) (string, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var header string
	var rows []string

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for first := true; scanner.Scan(); first = false {
		if first {
			header = scanner.Text()
			continue
		}
		if strings.TrimSpace(scanner.Text()) != "" {
			rows = append(rows, scanner.Text())
		}
	}
	if err := scanner.Err(); err != nil {
		return "", nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if header == "" {
		return "", nil, util.NewUnexpectedValue(filepath.Base(path), "header", "<missing>")
	}

	return header, rows, nil
}

// ParseEvidenceRow selects the log-evidence mean and SD columns of one row.
// With TI enabled the mean sits two columns from the end, otherwise four; the
// SD is the column right after the mean.
func ParseEvidenceRow(row string, k int, tiEnabled bool, source string) (EvidenceEntry, error) {
	fields := strings.Split(strings.TrimSpace(row), ",")

	offset := offsetStructure
	if tiEnabled {
		offset = offsetTI
	}

	idx := len(fields) - offset
	if idx < 0 {
		return EvidenceEntry{}, util.NewUnexpectedValue(source, FieldEvidenceRow, row)
	}

	mean, err := parseFinite(fields[idx])
	if err != nil {
		return EvidenceEntry{}, util.NewUnexpectedValue(source, FieldLogEvidence, fields[idx])
	}
	sd, err := parseFinite(fields[idx+1])
	if err != nil || sd < 0 {
		return EvidenceEntry{}, util.NewUnexpectedValue(source, FieldLogEvidenceSd, fields[idx+1])
	}

	return EvidenceEntry{K: k, LogEvidenceMean: mean, LogEvidenceSd: sd}, nil
}
