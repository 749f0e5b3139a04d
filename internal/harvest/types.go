package harvest

import "sort"

// RunRecord is one completed analysis at a fixed K and replicate.
// Records are values; nothing mutates them after parsing.
type RunRecord struct {
	// K is the number of assumed clusters (>= 1)
	K int `json:"k"`

	// Replicate is the replicate index (>= 1), or 0 for single-run programs
	Replicate int `json:"replicate,omitempty"`

	// EstLnProbData is STRUCTURE's estimated Ln Prob of Data; nil for formats
	// that report no such value
	EstLnProbData *float64 `json:"estLnProbData,omitempty"`

	// MeanLnLikelihood is STRUCTURE's mean value of ln likelihood
	MeanLnLikelihood *float64 `json:"meanLnLikelihood,omitempty"`

	// VarLnLikelihood is STRUCTURE's variance of ln likelihood
	VarLnLikelihood *float64 `json:"varLnLikelihood,omitempty"`

	// MeanAlpha is STRUCTURE's mean value of alpha, when reported
	MeanAlpha *float64 `json:"meanAlpha,omitempty"`

	// MarginalLikelihood is fastStructure's marginal likelihood
	MarginalLikelihood *float64 `json:"marginalLikelihood,omitempty"`

	// ReportedKs holds the trailing integers of choose-K report lines found
	// in the file, in file order
	ReportedKs []int `json:"reportedKs,omitempty"`

	// SourceFile is the file the record was parsed from
	SourceFile string `json:"sourceFile"`
}

// EvidenceEntry is the per-K log-evidence summary of a MavericK run
type EvidenceEntry struct {
	K               int     `json:"k"`
	LogEvidenceMean float64 `json:"logEvidenceMean"`
	LogEvidenceSd   float64 `json:"logEvidenceSd"`
}

// Dataset holds every RunRecord of one harvesting pass, grouped by K, and the
// per-K statistics computed from them.
//
// The derivative maps (LnPK, LnPPK, DeltaK) only ever contain interior K
// values. A K missing from a map has no defined value; it is never zero.
type Dataset struct {
	// Records maps K to its records in discovery order
	Records map[int][]RunRecord `json:"records"`

	// SortedKs is the ascending, de-duplicated list of K values present
	SortedKs []int `json:"sortedKs"`

	EstLnProbMeans  map[int]float64 `json:"estLnProbMeans"`
	EstLnProbStdevs map[int]float64 `json:"estLnProbStdevs"`
	LnPK            map[int]float64 `json:"lnPK"`
	LnPPK           map[int]float64 `json:"lnPPK"`
	DeltaK          map[int]float64 `json:"deltaK"`
}

// NewDataset groups records by K, keeping their order within each K
func NewDataset(records []RunRecord) *Dataset {
	d := &Dataset{
		Records:         make(map[int][]RunRecord),
		EstLnProbMeans:  make(map[int]float64),
		EstLnProbStdevs: make(map[int]float64),
		LnPK:            make(map[int]float64),
		LnPPK:           make(map[int]float64),
		DeltaK:          make(map[int]float64),
	}
	for _, r := range records {
		d.Records[r.K] = append(d.Records[r.K], r)
	}

	d.SortedKs = make([]int, 0, len(d.Records))
	for k := range d.Records {
		d.SortedKs = append(d.SortedKs, k)
	}
	sort.Ints(d.SortedKs)

	return d
}

// Reps returns the number of records at K
func (d *Dataset) Reps(k int) int {
	return len(d.Records[k])
}

// Len returns the total number of records
func (d *Dataset) Len() int {
	n := 0
	for _, recs := range d.Records {
		n += len(recs)
	}
	return n
}

// Has reports whether K is present
func (d *Dataset) Has(k int) bool {
	_, ok := d.Records[k]
	return ok
}

// Ordered returns every record sorted by K, then replicate, then source file
func (d *Dataset) Ordered() []RunRecord {
	out := make([]RunRecord, 0, d.Len())
	for _, k := range d.SortedKs {
		out = append(out, d.Records[k]...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].K != out[j].K {
			return out[i].K < out[j].K
		}
		if out[i].Replicate != out[j].Replicate {
			return out[i].Replicate < out[j].Replicate
		}
		return out[i].SourceFile < out[j].SourceFile
	})
	return out
}

func ptr(v float64) *float64 {
	return &v
}
