package stats

import (
	"github.com/aryankumar/threader/internal/harvest"
	"github.com/aryankumar/threader/internal/util"
)

// MethodChooseK names the fastStructure method in precondition failures
const MethodChooseK = "the fastStructure choose-K method"

// ChooseKResult is the fastStructure model choice. A zero K means the value
// could not be computed from the harvested files.
type ChooseKResult struct {
	// MarginalLikelihoodK is the K whose run has the largest marginal likelihood
	MarginalLikelihoodK int `json:"marginalLikelihoodK,omitempty"`

	// ComponentsK is the most frequent number of components needed to
	// explain structure across the meanQ files
	ComponentsK int `json:"componentsK,omitempty"`

	// ReportedKs is every choose-K report integer found in the logs, in file order
	ReportedKs []int `json:"reportedKs,omitempty"`
}

// ChooseK reads off the fastStructure model choice from harvested logs and
// meanQ files. meanQs may be empty.
func ChooseK(ds *harvest.Dataset, meanQs []harvest.MeanQ) (ChooseKResult, error) {
	var res ChooseKResult

	bestML := 0.0
	for _, rec := range ds.Ordered() {
		res.ReportedKs = append(res.ReportedKs, rec.ReportedKs...)

		if rec.MarginalLikelihood == nil {
			continue
		}
		ml := *rec.MarginalLikelihood
		if res.MarginalLikelihoodK == 0 || ml > bestML || (ml == bestML && rec.K < res.MarginalLikelihoodK) {
			res.MarginalLikelihoodK, bestML = rec.K, ml
		}
	}

	counts := make(map[int]int)
	for _, q := range meanQs {
		counts[q.Components]++
	}
	for c, n := range counts {
		best := counts[res.ComponentsK]
		if res.ComponentsK == 0 || n > best || (n == best && c < res.ComponentsK) {
			res.ComponentsK = c
		}
	}

	if res.MarginalLikelihoodK == 0 && res.ComponentsK == 0 && len(res.ReportedKs) == 0 {
		return ChooseKResult{}, &util.PreconditionError{
			Method:  MethodChooseK,
			Reasons: []string{"no marginal likelihood, meanQ file or choose-K report was found"},
		}
	}
	return res, nil
}
