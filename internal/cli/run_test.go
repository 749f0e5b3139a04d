package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/aryankumar/threader/internal/harvest"
	"github.com/aryankumar/threader/internal/output"
	"github.com/aryankumar/threader/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCommand_Validation(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "data.str")
	binary := filepath.Join(dir, "structure")
	require.NoError(t, os.WriteFile(input, []byte("ind1 1 2\n"), 0644))
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\n"), 0755))
	outdir := filepath.Join(dir, "out")

	tests := []struct {
		name    string
		args    []string
		wantErr error
		msg     string
	}{
		{
			name:    "missing required flags",
			args:    []string{"run", "-p", "structure"},
			wantErr: util.ErrInvalidConfig,
			msg:     "--binary",
		},
		{
			name:    "unknown program",
			args:    []string{"run", "-p", "admixture", "-b", binary, "-i", input, "-d", outdir, "--maxk", "3"},
			wantErr: util.ErrInvalidConfig,
			msg:     "program",
		},
		{
			name:    "maxk below mink",
			args:    []string{"run", "-p", "structure", "-b", binary, "-i", input, "-d", outdir, "--mink", "4", "--maxk", "2"},
			wantErr: util.ErrInvalidConfig,
			msg:     "maxK",
		},
		{
			name:    "maverick without params",
			args:    []string{"run", "-p", "maverick", "-b", binary, "-i", input, "-d", outdir, "--maxk", "3"},
			wantErr: util.ErrInvalidConfig,
			msg:     "parameter file",
		},
		{
			name:    "missing input file",
			args:    []string{"run", "-p", "structure", "-b", binary, "-i", filepath.Join(dir, "nope.str"), "-d", outdir, "--maxk", "3"},
			wantErr: util.ErrInputMissing,
			msg:     "input file",
		},
		{
			name:    "binary not on PATH",
			args:    []string{"run", "-p", "structure", "-b", "threader-no-such-binary", "-i", input, "-d", outdir, "--maxk", "3"},
			wantErr: util.ErrInputMissing,
			msg:     "not found in PATH",
		},
		{
			name:    "output directory is a file",
			args:    []string{"run", "-p", "structure", "-b", binary, "-i", input, "-d", input, "--maxk", "3"},
			wantErr: util.ErrInvalidConfig,
			msg:     "directory is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := executeCommand(t, tt.args...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}

	_, statErr := os.Stat(outdir)
	assert.True(t, os.IsNotExist(statErr), "no output directory before validation passes")
}

func TestHarvestCommand_Structure(t *testing.T) {
	dir := t.TempDir()
	writeStructureOutputs(t, dir, map[int][]float64{
		1: {-101, -102},
		2: {-91, -92},
		3: {-89, -90},
	})

	stdout, _, err := executeCommand(t, "harvest", "-p", "structure", "-d", dir, "-o", "json")
	require.NoError(t, err)

	var view analysisView
	require.NoError(t, json.Unmarshal([]byte(stdout), &view))
	assert.Equal(t, "structure", view.Program)
	assert.Equal(t, 2, view.BestK)
	require.Len(t, view.Runs, 3)
	assert.Nil(t, view.Runs[0].DeltaK)
	require.NotNil(t, view.Runs[1].DeltaK)
	assert.Nil(t, view.Runs[2].DeltaK)

	assert.Equal(t, []string{
		filepath.Join(dir, "bestK", output.SummaryFile),
		filepath.Join(dir, "bestK", output.EvannoFile),
	}, view.Reports)
	assert.FileExists(t, filepath.Join(dir, "bestK", output.EvannoFile))
}

func TestHarvestCommand_TableOutput(t *testing.T) {
	dir := t.TempDir()
	writeStructureOutputs(t, dir, map[int][]float64{
		1: {-101, -102},
		2: {-91, -92},
		3: {-89, -90},
	})

	stdout, _, err := executeCommand(t, "harvest", "-p", "structure", "-d", dir, "--no-color")
	require.NoError(t, err)
	assert.Contains(t, stdout, "DELTA K")
	assert.Contains(t, stdout, "Best K")
	assert.Contains(t, stdout, output.NA)
}

func TestHarvestCommand_NoTests(t *testing.T) {
	dir := t.TempDir()
	writeStructureOutputs(t, dir, map[int][]float64{1: {-101}, 2: {-91}})

	stdout, _, err := executeCommand(t, "harvest", "-p", "structure", "-d", dir, "--no-tests", "-o", "json")
	require.NoError(t, err)

	var view analysisView
	require.NoError(t, json.Unmarshal([]byte(stdout), &view))
	assert.Zero(t, view.BestK)
	assert.NoFileExists(t, filepath.Join(dir, "bestK", output.EvannoFile))
	assert.FileExists(t, filepath.Join(dir, "bestK", output.SummaryFile))
}

func TestHarvestCommand_PreconditionUnmet(t *testing.T) {
	dir := t.TempDir()
	writeStructureOutputs(t, dir, map[int][]float64{1: {-101, -102}, 2: {-91, -92}})

	_, _, err := executeCommand(t, "harvest", "-p", "structure", "-d", dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrPreconditionUnmet), "got %v", err)
}

func TestHarvestCommand_Validation(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"missing outdir flag", []string{"harvest", "-p", "structure"}, util.ErrInvalidConfig},
		{"unknown program", []string{"harvest", "-p", "admixture", "-d", dir}, util.ErrInvalidConfig},
		{"maverick without params", []string{"harvest", "-p", "maverick", "-d", dir}, util.ErrInvalidConfig},
		{"missing outdir", []string{"harvest", "-p", "structure", "-d", filepath.Join(dir, "nope")}, util.ErrInputMissing},
		{"no outputs", []string{"harvest", "-p", "structure", "-d", dir}, util.ErrInputMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := executeCommand(t, tt.args...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestHarvestCommand_MavericKEvidenceInKOrder(t *testing.T) {
	dir := t.TempDir()
	params := filepath.Join(dir, "parameters.txt")
	require.NoError(t, os.WriteFile(params, []byte("thermodynamic_on\tt\n"), 0644))

	for k, ti := range map[int]float64{1: -15, 2: -12, 10: -14} {
		mav := filepath.Join(dir, harvest.EvidenceDir(k))
		require.NoError(t, os.MkdirAll(mav, 0755))
		row := fmt.Sprintf("K,structure_mean,structure_SE,TI_mean,TI_SE\n%d,-20.0,1.0,%.1f,0.1\n", k, ti)
		require.NoError(t, os.WriteFile(filepath.Join(mav, harvest.EvidenceFile), []byte(row), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(mav, harvest.EvidenceDetailsFile), []byte("K\n"), 0644))
	}

	stdout, _, err := executeCommand(t, "harvest", "-p", "maverick", "-d", dir,
		"--params", params, "--draws", "200", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, stdout, "EVIDENCE MEAN")

	var order []string
	for _, line := range strings.Split(stdout, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 4 {
			continue
		}
		if _, err := strconv.Atoi(fields[0]); err == nil {
			order = append(order, fields[0])
		}
	}
	assert.Equal(t, []string{"1", "2", "10"}, order)
}
