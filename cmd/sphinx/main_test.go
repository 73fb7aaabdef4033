package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenTraceWritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.txt")
	closer, w, err := openTrace(path, false, "prog.s")
	require.NoError(t, err)
	w.Write([]byte("cycle=1 pc=0\n"))
	require.NoError(t, closer.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(content), "Sphinx execution trace"))
	require.True(t, strings.Contains(string(content), "prog.s"))
	require.True(t, strings.Contains(string(content), "cycle=1 pc=0"))
}

func TestOpenTraceCompressedRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.zst")
	closer, w, err := openTrace(path, true, "prog.s")
	require.NoError(t, err)
	w.Write([]byte("cycle=1 pc=0\n"))
	require.NoError(t, closer.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.True(t, info.Size() > 0)
}

type failingCloser struct{ err error }

func (f failingCloser) Close() error { return f.err }

func TestMultiCloserReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	mc := multiCloser{failingCloser{nil}, failingCloser{boom}, failingCloser{errors.New("later")}}
	require.Equal(t, boom, mc.Close())
}

// TestDisasmFlagPrintsCodeTableAndExitsWithoutRunning exercises -disasm:
// it should assemble the program and print internal/vm's CodeTable
// rendering instead of executing it.
func TestDisasmFlagPrintsCodeTableAndExitsWithoutRunning(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.s")
	require.NoError(t, os.WriteFile(path, []byte("flag win\nhalt\n"), 0o644))

	*disasm = true
	defer func() { *disasm = false }()

	stdout := captureStdout(t, func() {
		require.NoError(t, run(path, nil))
	})

	require.Equal(t, "flag \nhalt \n", stdout)
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	require.NoError(t, w.Close())
	os.Stdout = old

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}
