package dispatch

import (
	"fmt"
	"path/filepath"
	"sort"
)

// LogSuffix is appended to a job name to form its log file
const LogSuffix = ".stlog"

// Cell is one (K, replicate) point of the run grid
type Cell struct {
	K         int
	Replicate int
}

// Name is the "K<k>_rep<r>" label shared by output files and logs
func (c Cell) Name() string {
	return fmt.Sprintf("K%d_rep%d", c.K, c.Replicate)
}

// Job is one external program invocation
type Job struct {
	Cell

	// Argv is the full command line; Argv[0] is the executable
	Argv []string

	// Dir is the child's working directory; empty means the current one
	Dir string

	// OutputPath is where the program writes its results. Unique per job.
	OutputPath string

	// LogPath receives the captured program output
	LogPath string

	// Prepare runs before the program starts, e.g. to create an output directory
	Prepare func() error
}

// Planner describes the jobs of one wrapped program
type Planner interface {
	// Grid lists the cells to run, in submission order
	Grid() []Cell

	// Job builds the invocation for one cell
	Job(cell Cell) (Job, error)
}

// Grid returns every (K, replicate) combination, largest K first and
// replicates ascending within a K
func Grid(ks, reps []int) []Cell {
	sortedKs := append([]int(nil), ks...)
	sort.Sort(sort.Reverse(sort.IntSlice(sortedKs)))
	sortedReps := append([]int(nil), reps...)
	sort.Ints(sortedReps)

	cells := make([]Cell, 0, len(ks)*len(reps))
	for _, k := range sortedKs {
		for _, r := range sortedReps {
			cells = append(cells, Cell{K: k, Replicate: r})
		}
	}
	return cells
}

// LogPath is the log file of cell under outDir
func LogPath(outDir string, cell Cell) string {
	return filepath.Join(outDir, cell.Name()+LogSuffix)
}
