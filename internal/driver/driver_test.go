package driver

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTool writes a small shell script standing in for the external tool and
// returns its path. script receives the full argument list on $@.
func fakeTool(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tool scripts are POSIX shell only")
	}

	path := filepath.Join(t.TempDir(), "fake-dnf")
	content := "#!/bin/sh\n" + script + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	return path
}

func TestScratchDir_CreatesOnDemand(t *testing.T) {
	d := &Driver{Tool: "true", BaseDir: t.TempDir()}
	dir, err := d.ScratchDir("f40", "x86_64")
	require.NoError(t, err)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestScratchDir_RejectsNonDirectory(t *testing.T) {
	base := t.TempDir()
	release := filepath.Join(base, "f40")
	require.NoError(t, os.MkdirAll(release, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(release, "x86_64"), []byte("oops"), 0o644))

	d := &Driver{Tool: "true", BaseDir: base}
	_, err := d.ScratchDir("f40", "x86_64")
	assert.Error(t, err)
}

func TestRefreshCache_Success(t *testing.T) {
	tool := fakeTool(t, "exit 0")
	d := &Driver{Tool: tool, BaseDir: t.TempDir()}
	err := d.RefreshCache(context.Background(), "f40", "x86_64", []string{"fedora"})
	assert.NoError(t, err)
}

func TestEnumerateContents_ParsesOutput(t *testing.T) {
	tool := fakeTool(t, `echo "bash bash 0 5.2 1.fc40 x86_64"`)
	d := &Driver{Tool: tool, BaseDir: t.TempDir()}
	pkgs, err := d.EnumerateContents(context.Background(), "f40", "x86_64", []string{"fedora"})
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.Equal(t, "bash", pkgs[0].Name)
}

func TestClosureCheck_ToleratesNonZeroExit(t *testing.T) {
	tool := fakeTool(t, `
cat <<'EOF'
package: java-websocket-1.5.3-1.fc40.x86_64 from fedora
  unresolved deps:
    libfoo.so.1()(64bit)
EOF
exit 1
`)
	d := &Driver{Tool: tool, BaseDir: t.TempDir()}
	deps, err := d.ClosureCheck(context.Background(), "f40", "x86_64", []string{"fedora"}, []string{"x86_64"}, []string{"fedora"})
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "java-websocket", deps[0].Package)
}

func TestClosureCheck_LaunchFailureSurfaces(t *testing.T) {
	d := &Driver{Tool: filepath.Join(t.TempDir(), "does-not-exist"), BaseDir: t.TempDir()}
	_, err := d.ClosureCheck(context.Background(), "f40", "x86_64", []string{"fedora"}, []string{"x86_64"}, []string{"fedora"})
	assert.Error(t, err)
}
