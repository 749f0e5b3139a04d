package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aryankumar/threader/internal/util"
	"github.com/spf13/viper"
)

const (
	defaultConfigName = ".threader"
	defaultConfigDir  = ".threader"

	// DefaultWorkers is used when neither flags nor the config file set a worker count
	DefaultWorkers = 4

	// DefaultReplicates is the number of STRUCTURE runs per K
	DefaultReplicates = 20

	// DefaultDraws is the number of normalization draws per K
	DefaultDraws = 1000000

	// DefaultInterpreter runs fastStructure
	DefaultInterpreter = "python2"
)

// Program names accepted in Run.Program
const (
	ProgramStructure     = "structure"
	ProgramFastStructure = "faststructure"
	ProgramMavericK      = "maverick"
)

// Manager handles threader configuration
type Manager struct {
	configPath string
	config     *FileConfig
	viper      *viper.Viper
}

// NewManager creates a new configuration manager
func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
		viper:      viper.New(),
		config:     &FileConfig{},
	}
}

// Load loads the configuration file. A missing file yields the defaults.
func (m *Manager) Load() (*FileConfig, error) {
	if m.configPath != "" {
		m.viper.SetConfigFile(m.configPath)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		// ~/.threader/.threader.yaml, then ~/.threader.yaml
		m.viper.AddConfigPath(filepath.Join(home, defaultConfigDir))
		m.viper.AddConfigPath(home)
		m.viper.SetConfigName(defaultConfigName)
		m.viper.SetConfigType("yaml")
	}

	m.viper.SetEnvPrefix("THREADER")
	m.viper.AutomaticEnv()

	m.config = &FileConfig{}

	if err := m.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		m.applyDefaults()
		return m.config, nil
	}

	if err := m.viper.Unmarshal(m.config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	m.applyDefaults()

	return m.config, nil
}

// applyDefaults sets default values for configuration
func (m *Manager) applyDefaults() {
	if m.config == nil {
		return
	}

	d := &m.config.Defaults
	if d.Workers == 0 {
		d.Workers = DefaultWorkers
	}
	if d.Replicates == 0 {
		d.Replicates = DefaultReplicates
	}
	if d.Draws == 0 {
		d.Draws = DefaultDraws
	}
	if d.Interpreter == "" {
		d.Interpreter = DefaultInterpreter
	}
	if d.OutputFormat == "" {
		d.OutputFormat = "table"
	}
}

// Validate checks the run configuration. All problems are reported together.
func (r Run) Validate() error {
	errs := &util.MultiError{}

	switch strings.ToLower(r.Program) {
	case ProgramStructure, ProgramFastStructure, ProgramMavericK:
	default:
		errs.Add(util.NewValidationError("program", r.Program,
			"must be one of structure, faststructure, maverick"))
	}

	if r.Binary == "" {
		errs.Add(util.NewValidationError("binary", nil, "path to the external program is required"))
	}
	if r.InputFile == "" {
		errs.Add(util.NewValidationError("input", nil, "input file is required"))
	}
	if r.OutputDir == "" {
		errs.Add(util.NewValidationError("output", nil, "output directory is required"))
	}
	if r.MinK < 1 {
		errs.Add(util.NewValidationError("minK", r.MinK, "must be >= 1"))
	}
	if r.MaxK < r.MinK {
		errs.Add(util.NewValidationError("maxK", r.MaxK, fmt.Sprintf("must be >= minK (%d)", r.MinK)))
	}
	if r.Replicates < 1 {
		errs.Add(util.NewValidationError("replicates", r.Replicates, "must be >= 1"))
	}
	if r.Workers < 1 {
		errs.Add(util.NewValidationError("workers", r.Workers, "must be >= 1"))
	}
	if strings.EqualFold(r.Program, ProgramMavericK) && r.ParamsFile == "" {
		errs.Add(util.NewValidationError("params", nil, "MavericK requires a parameter file"))
	}
	if r.Draws < 1 {
		errs.Add(util.NewValidationError("draws", r.Draws, "must be >= 1"))
	}

	return errs.ErrorOrNil()
}

// Ks returns the inclusive K range in ascending order, or nil when no valid
// range is set
func (r Run) Ks() []int {
	if r.MinK < 1 || r.MaxK < r.MinK {
		return nil
	}
	ks := make([]int, 0, r.MaxK-r.MinK+1)
	for k := r.MinK; k <= r.MaxK; k++ {
		ks = append(ks, k)
	}
	return ks
}

// ReplicateIndexes returns 1..Replicates
func (r Run) ReplicateIndexes() []int {
	reps := make([]int, 0, r.Replicates)
	for i := 1; i <= r.Replicates; i++ {
		reps = append(reps, i)
	}
	return reps
}

// Abs returns a copy with every path made absolute. A bare binary name is
// left for PATH lookup.
func (r Run) Abs() (Run, error) {
	paths := []*string{&r.InputFile, &r.OutputDir, &r.PopFile, &r.ParamsFile}
	if strings.ContainsRune(r.Binary, os.PathSeparator) {
		paths = append(paths, &r.Binary)
	}
	for _, p := range paths {
		if *p == "" {
			continue
		}
		abs, err := filepath.Abs(*p)
		if err != nil {
			return r, fmt.Errorf("failed to resolve %q: %w", *p, err)
		}
		*p = abs
	}
	return r, nil
}

// BestKDir is where the estimator reports are written
func (r Run) BestKDir() string {
	return filepath.Join(r.OutputDir, "bestK")
}
