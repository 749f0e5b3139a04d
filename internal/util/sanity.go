package util

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
)

// PathCheck describes one path the run depends on
type PathCheck struct {
	// Label names the path in diagnostics ("input file", "popfile", ...)
	Label string

	// Path is the location on disk; empty paths are skipped
	Path string

	// WantDir requires a directory when true. When false the path must not be
	// a directory.
	WantDir bool

	// MayBeMissing allows the path to be absent (output directories are created later)
	MayBeMissing bool
}

// CheckPaths verifies every path before any job is dispatched.
// All failures are collected so the operator sees them at once.
func CheckPaths(checks ...PathCheck) error {
	errs := &MultiError{}

	for _, c := range checks {
		if c.Path == "" {
			continue
		}

		info, err := os.Stat(c.Path)
		if err != nil {
			if os.IsNotExist(err) && c.MayBeMissing {
				continue
			}
			errs.Add(fmt.Errorf("%s %q: %w", c.Label, c.Path, ErrInputMissing))
			continue
		}

		switch {
		case c.WantDir && !info.IsDir():
			errs.Add(fmt.Errorf("%s %q points to an existing file but a directory is required: %w",
				c.Label, c.Path, ErrInvalidConfig))
		case !c.WantDir && info.IsDir():
			errs.Add(fmt.Errorf("%s %q is a directory: %w", c.Label, c.Path, ErrInputMissing))
		}
	}

	return errs.ErrorOrNil()
}

// ResolveWorkers clamps the requested worker count to the available CPUs.
// Zero or negative requests use every CPU.
func ResolveWorkers(requested int, logger *slog.Logger) int {
	return resolveWorkers(requested, runtime.NumCPU(), logger)
}

func resolveWorkers(requested, cpus int, logger *slog.Logger) int {
	if logger == nil {
		logger = slog.Default()
	}
	if cpus < 1 {
		cpus = 1
	}

	if requested <= 0 {
		return cpus
	}

	if requested > cpus {
		logger.Warn("more workers requested than available CPUs, using all CPUs instead",
			"requested", requested,
			"cpus", cpus)
		return cpus
	}

	return requested
}
