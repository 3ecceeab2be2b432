package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)

	var out bytes.Buffer
	cmd := newRootCmd(func() {})
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "pitchdeck "+version+"\n", out)
}

func TestListBuiltin(t *testing.T) {
	out, err := run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Decathlon")
	assert.Contains(t, out, "7. Content Strategy\n")
	assert.Contains(t, out, "7. Content Strategy (Platform Examples)")
	assert.Contains(t, out, "18 slides\n")
}

func TestListDirectory(t *testing.T) {
	slidesDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(slidesDir, "01.md"), []byte("# Hello"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(slidesDir, "02.md"), []byte("---\nid: 9\n---\n# World"), 0o600))

	out, err := run(t, "list", "--slides", slidesDir)
	require.NoError(t, err)
	assert.Contains(t, out, "1  Hello\n")
	assert.Contains(t, out, "9  World\n")
	assert.Contains(t, out, "2 slides\n")
}

func TestListEmptyDirectory(t *testing.T) {
	_, err := run(t, "list", "--slides", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deck has no slides")
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := run(t, "list", "--log-level", "loud")
	require.Error(t, err)
}

func TestWatchExecutableStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	require.NoError(t, watchExecutable(ctx, func() { close(stopped) }))
	cancel()
	select {
	case <-stopped:
		t.Fatal("stop must not be called when nothing changed")
	case <-time.After(50 * time.Millisecond):
	}
}
