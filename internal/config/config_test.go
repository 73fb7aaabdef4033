package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)
	require.Equal(t, &Config{}, c)
}

func TestLoadParsesSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sphinx.yaml")
	content := "wordSize: 4\noutputContext: unsigned\nmaxCycles: 100000\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, &Config{WordSize: 4, OutputContext: "unsigned", MaxCycles: 100000}, c)
}

func TestLoadRejectsInvalidOutputContext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sphinx.yaml")
	require.NoError(t, os.WriteFile(path, []byte("outputContext: bogus\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsNegativeMaxCycles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sphinx.yaml")
	require.NoError(t, os.WriteFile(path, []byte("maxCycles: -1\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
