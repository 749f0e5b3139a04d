package program

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aryankumar/threader/internal/config"
	"github.com/aryankumar/threader/internal/dispatch"
	"github.com/aryankumar/threader/internal/harvest"
	"github.com/aryankumar/threader/internal/stats"
	"github.com/aryankumar/threader/internal/util"
)

// Kind identifies a wrapped clustering program
type Kind int

const (
	KindStructure Kind = iota + 1
	KindFastStructure
	KindMavericK
)

// Kinds lists every supported program
var Kinds = []Kind{KindStructure, KindFastStructure, KindMavericK}

// String returns the name used on the command line
func (k Kind) String() string {
	switch k {
	case KindStructure:
		return config.ProgramStructure
	case KindFastStructure:
		return config.ProgramFastStructure
	case KindMavericK:
		return config.ProgramMavericK
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a program name onto its Kind, ignoring case
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}
	return 0, util.NewValidationError("program", s,
		fmt.Sprintf("must be one of %s, %s, %s", KindStructure, KindFastStructure, KindMavericK))
}

// Analysis is what a variant computed from the harvested outputs. Only the
// fields of the variant that produced it are set.
type Analysis struct {
	Kind Kind `json:"program"`

	// Dataset holds the harvested runs (STRUCTURE and fastStructure)
	Dataset *harvest.Dataset `json:"-"`

	// BestK is the estimated number of clusters; zero when none was chosen
	BestK int `json:"bestK,omitempty"`

	// ChooseK is the fastStructure model choice
	ChooseK *stats.ChooseKResult `json:"chooseK,omitempty"`

	// Evidence and Normalized are the MavericK per-K evidence summaries
	Evidence   []harvest.EvidenceEntry `json:"evidence,omitempty"`
	Normalized []stats.Normalized      `json:"normalized,omitempty"`

	// Reports are the files written under the bestK directory
	Reports []string `json:"reports"`
}

// Program is one wrapped program: it plans the jobs and analyses their
// outputs once every job has finished
type Program interface {
	dispatch.Planner

	// Kind identifies the variant
	Kind() Kind

	// Analyze harvests the output directory and writes the bestK reports
	Analyze(ctx context.Context, h *harvest.Harvester) (*Analysis, error)
}

// New selects the variant for cfg.Program. cfg must already be validated.
func New(cfg config.Run, logger *slog.Logger) (Program, error) {
	if logger == nil {
		logger = slog.Default()
	}

	kind, err := ParseKind(cfg.Program)
	if err != nil {
		return nil, err
	}

	logger = logger.With("program", kind.String())
	switch kind {
	case KindStructure:
		return &Structure{cfg: cfg, logger: logger}, nil
	case KindFastStructure:
		return &FastStructure{cfg: cfg, logger: logger}, nil
	default:
		m, err := NewMavericK(cfg, logger)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}
