package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// executeCommand runs the root command with args and a config path that does
// not exist, so only built-in defaults apply
func executeCommand(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	cmd := newRootCmd()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "threader.yaml")}, args...))

	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

const structureOutput = `Run parameters:
   %d populations assumed

Estimated Ln Prob of Data   = %s
Mean value of ln likelihood = -3912.4
Variance of ln likelihood   = 10.2
Mean value of alpha         = 0.0435
`

// writeStructureOutputs writes one "_f" file per (K, replicate) with the
// estimated ln probability from lnp
func writeStructureOutputs(t *testing.T, dir string, lnp map[int][]float64) {
	t.Helper()
	for k, values := range lnp {
		for i, v := range values {
			name := fmt.Sprintf("K%d_rep%d_f", k, i+1)
			content := fmt.Sprintf(structureOutput, k, fmt.Sprintf("%.1f", v))
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
		}
	}
}
