package wl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/firesim/marshal/pkg/br"
)

func writeWorkload(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadNormalizesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "frags"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frags", "extra.kfrag"), []byte("BR2_A=y\n"), 0o600))

	path := writeWorkload(t, dir, "test-wl.yaml", `name: test-wl
distro:
  name: br
  opts:
    configs:
      - frags/extra.kfrag
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "test-wl", cfg.Name)
	require.Equal(t, br.DistroKind, cfg.Distro.Kind)
	require.NotNil(t, cfg.Distro.BR)
	require.Len(t, cfg.Distro.BR.Configs, 1)
	require.True(t, filepath.IsAbs(cfg.Distro.BR.Configs[0]))
	require.Equal(t, filepath.Join(dir, "frags", "extra.kfrag"), cfg.Distro.BR.Configs[0])
}

func TestLoadKeepsAbsolutePaths(t *testing.T) {
	dir := t.TempDir()
	fragment := filepath.Join(dir, "extra.kfrag")
	require.NoError(t, os.WriteFile(fragment, []byte("BR2_A=y\n"), 0o600))

	path := writeWorkload(t, dir, "abs-wl.yaml", `distro:
  name: br
  opts:
    configs:
      - `+fragment+`
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{fragment}, []string(cfg.Distro.BR.Configs))
}

func TestLoadDefaultsNameFromFile(t *testing.T) {
	dir := t.TempDir()
	path := writeWorkload(t, dir, "my-workload.yaml", `distro:
  name: br
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "my-workload", cfg.Name)
	require.Empty(t, cfg.Distro.BR.Configs)
}

func TestLoadRejectsUnknownDistro(t *testing.T) {
	dir := t.TempDir()
	path := writeWorkload(t, dir, "bad.yaml", `distro:
  name: fedora
`)

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "fedora")
}

func TestLoadRejectsMissingFragment(t *testing.T) {
	dir := t.TempDir()
	path := writeWorkload(t, dir, "missing.yaml", `distro:
  name: br
  opts:
    configs:
      - does-not-exist.kfrag
`)

	_, err := Load(path)
	require.Error(t, err)
}
