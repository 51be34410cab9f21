package zimport

import (
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestBuildWithCGODisabled checks that the module builds without cgo.
func TestBuildWithCGODisabled(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the whole module")
	}
	modRoot, err := os.Getwd()
	require.NoError(t, err)

	cmd := exec.Command("go", "build", "./...")
	cmd.Dir = modRoot
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "build failed with CGO disabled:\n%s", out)
}
