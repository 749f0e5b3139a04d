package stats

import (
	"fmt"
	"sort"

	"github.com/aryankumar/threader/internal/harvest"
	"github.com/aryankumar/threader/internal/util"
	"gonum.org/v1/gonum/stat"
)

// Epsilon is the smallest standard deviation DeltaK is divided by
const Epsilon = 1e-7

// MethodEvanno names the method in precondition failures
const MethodEvanno = "the Evanno method"

// CalculateMeansAndStdevs fills the per-K mean and sample standard deviation
// of the estimated Ln Prob of Data. A single replicate has a stdev of 0.
func CalculateMeansAndStdevs(ds *harvest.Dataset) error {
	for _, k := range ds.SortedKs {
		recs := ds.Records[k]
		if len(recs) == 0 {
			continue
		}

		xs := make([]float64, 0, len(recs))
		for _, r := range recs {
			if r.EstLnProbData == nil {
				return util.NewUnexpectedValue(r.SourceFile, harvest.FieldEstLnProb, "<missing>")
			}
			xs = append(xs, *r.EstLnProbData)
		}

		mean, std := stat.MeanStdDev(xs, nil)
		if len(xs) < 2 {
			std = 0
		}
		ds.EstLnProbMeans[k] = mean
		ds.EstLnProbStdevs[k] = std
	}
	return nil
}

// EvannoTests checks every precondition of the Evanno method and reports all
// of the unmet ones at once
func EvannoTests(ds *harvest.Dataset) error {
	var reasons []string

	if len(ds.SortedKs) < 3 {
		reasons = append(reasons,
			fmt.Sprintf("the test requires at least 3 values of K, found %d", len(ds.SortedKs)))
	}

	for _, k := range ds.SortedKs {
		if n := ds.Reps(k); n < 2 {
			reasons = append(reasons,
				fmt.Sprintf("K=%d has %d replicate(s), at least 2 are required", k, n))
		}
	}

	if len(ds.SortedKs) >= 3 && len(interiorKs(ds)) == 0 {
		reasons = append(reasons, "no value of K has both K-1 and K+1 present")
	}

	if len(reasons) > 0 {
		return &util.PreconditionError{Method: MethodEvanno, Reasons: reasons}
	}
	return nil
}

// CalculateDerivatives fills LnPK, LnPPK and DeltaK for every interior K.
// DeltaK is left undefined where the stdev is not above Epsilon.
func CalculateDerivatives(ds *harvest.Dataset) {
	means := ds.EstLnProbMeans
	for _, k := range interiorKs(ds) {
		ds.LnPK[k] = means[k] - means[k-1]
		lnppk := means[k+1] - 2*means[k] + means[k-1]
		if lnppk < 0 {
			lnppk = -lnppk
		}
		ds.LnPPK[k] = lnppk

		if sd := ds.EstLnProbStdevs[k]; sd > Epsilon {
			ds.DeltaK[k] = lnppk / sd
		}
	}
}

// Evanno runs the precondition checks, then fills every statistic of ds
func Evanno(ds *harvest.Dataset) error {
	if err := EvannoTests(ds); err != nil {
		return err
	}
	if err := CalculateMeansAndStdevs(ds); err != nil {
		return err
	}
	CalculateDerivatives(ds)
	return nil
}

// BestK returns the K with the largest DeltaK, the smallest such K on ties.
// ok is false when no DeltaK is defined.
func BestK(ds *harvest.Dataset) (k int, ok bool) {
	ks := make([]int, 0, len(ds.DeltaK))
	for kk := range ds.DeltaK {
		ks = append(ks, kk)
	}
	sort.Ints(ks)

	for _, kk := range ks {
		if !ok || ds.DeltaK[kk] > ds.DeltaK[k] {
			k, ok = kk, true
		}
	}
	return k, ok
}

// interiorKs returns the K values that are neither the smallest nor the
// largest and have both neighbours present
func interiorKs(ds *harvest.Dataset) []int {
	present := make(map[int]bool, len(ds.SortedKs))
	for _, k := range ds.SortedKs {
		present[k] = true
	}

	var out []int
	for _, k := range ds.SortedKs {
		if present[k-1] && present[k+1] {
			out = append(out, k)
		}
	}
	return out
}
