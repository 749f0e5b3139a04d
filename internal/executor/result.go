package executor

import (
	"fmt"
	"time"

	"github.com/aryankumar/threader/internal/util"
)

// CountFailed returns the number of results carrying an error
func CountFailed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Error != nil {
			n++
		}
	}
	return n
}

// FilterFailed returns the results carrying an error, in order
func FilterFailed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if r.Error != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

// Summary aggregates a set of results
type Summary struct {
	Total      int
	Successful int

	// Failed counts every result with an error, Cancelled the subset that
	// was interrupted or never started
	Failed    int
	Cancelled int

	// AvgDuration and MaxDuration only cover tasks that ran
	AvgDuration time.Duration
	MaxDuration time.Duration
}

// Summarize creates a summary of the results
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}

	var total time.Duration
	ran := 0
	for _, r := range results {
		switch {
		case r.Error == nil:
			s.Successful++
		case util.IsCancelled(r.Error):
			s.Failed++
			s.Cancelled++
		default:
			s.Failed++
		}

		if r.Duration > 0 {
			ran++
			total += r.Duration
			s.MaxDuration = max(s.MaxDuration, r.Duration)
		}
	}
	if ran > 0 {
		s.AvgDuration = total / time.Duration(ran)
	}
	return s
}

// String returns a one-line form for logs
func (s Summary) String() string {
	out := fmt.Sprintf("%d jobs: %d successful, %d failed", s.Total, s.Successful, s.Failed)
	if s.Cancelled > 0 {
		out += fmt.Sprintf(" (%d cancelled)", s.Cancelled)
	}
	if s.MaxDuration > 0 {
		out += fmt.Sprintf(", avg %s, max %s", s.AvgDuration.Round(time.Millisecond), s.MaxDuration.Round(time.Millisecond))
	}
	return out
}
