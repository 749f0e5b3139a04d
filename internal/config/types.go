package config

// FileConfig represents the threader configuration file structure
type FileConfig struct {
	// Defaults contains default settings for runs
	Defaults DefaultsConfig `yaml:"defaults,omitempty" json:"defaults,omitempty"`
}

// DefaultsConfig contains default configuration values
type DefaultsConfig struct {
	// Workers is the number of concurrent external program runs
	Workers int `yaml:"workers,omitempty" json:"workers,omitempty"`

	// Replicates is the number of STRUCTURE runs per K
	Replicates int `yaml:"replicates,omitempty" json:"replicates,omitempty"`

	// Draws is the number of Monte-Carlo draws per K for evidence normalization
	Draws int `yaml:"draws,omitempty" json:"draws,omitempty"`

	// Interpreter runs fastStructure's structure.py
	Interpreter string `yaml:"interpreter,omitempty" json:"interpreter,omitempty"`

	// OutputFormat is the default stdout format (table, json, yaml)
	OutputFormat string `yaml:"outputFormat,omitempty" json:"outputFormat,omitempty"`

	// NoColor disables colored output
	NoColor bool `yaml:"noColor,omitempty" json:"noColor,omitempty"`
}

// Run is the immutable configuration of one threader invocation.
// It is built once at the CLI boundary and passed by value to every component.
type Run struct {
	// Program is the wrapped program name (structure, faststructure, maverick)
	Program string `json:"program"`

	// Binary is the path to the external program
	Binary string `json:"binary"`

	// Interpreter runs Binary when set (fastStructure is a python script)
	Interpreter string `json:"interpreter,omitempty"`

	// InputFile is the genotype data file
	InputFile string `json:"inputFile"`

	// OutputDir receives every job output and the bestK reports
	OutputDir string `json:"outputDir"`

	// PopFile is an optional population file used by plotting tools
	PopFile string `json:"popFile,omitempty"`

	// ParamsFile is MavericK's parameter file
	ParamsFile string `json:"paramsFile,omitempty"`

	// MinK and MaxK bound the inclusive K range
	MinK int `json:"minK"`
	MaxK int `json:"maxK"`

	// Replicates is the number of runs per K (ignored for single-run programs)
	Replicates int `json:"replicates"`

	// Workers bounds the pool
	Workers int `json:"workers"`

	// Log writes every job's captured stdout next to its output
	Log bool `json:"log"`

	// NoTests skips the best-K estimation
	NoTests bool `json:"noTests"`

	// Draws is the Monte-Carlo draw count for evidence normalization
	Draws int `json:"draws"`

	// Seed seeds the normalization sampler
	Seed uint64 `json:"seed"`
}
