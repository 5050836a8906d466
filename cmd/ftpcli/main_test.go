package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/fatih/color"
	"github.com/halfduplex/ftp"
	"github.com/halfduplex/ftp/internal/ftptest"
	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

// run executes the app against srv and returns what it printed on stdout.
func run(t *testing.T, srv *ftptest.Server, args ...string) (string, error) {
	t.Helper()
	out, _, err := runCapture(t, srv, args...)
	return out, err
}

// runCapture executes the app against srv and returns stdout and stderr.
func runCapture(t *testing.T, srv *ftptest.Server, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut

	full := append([]string{"ftpcli",
		"--host", srv.Host(),
		"--port", strconv.Itoa(srv.Port()),
		"--user", "alice",
		"--password", "secret",
		"--timeout", "5s",
	}, args...)
	err := app.Run(full)
	return out.String(), errOut.String(), err
}

func TestPwd(t *testing.T) {
	srv := ftptest.NewServer(t)
	out, err := run(t, srv, "pwd")
	require.NoError(t, err)
	assert.Equal(t, "/\n", out)
	assert.Contains(t, srv.Received(), "USER alice")
}

func TestLs(t *testing.T) {
	srv := ftptest.NewServer(t)
	srv.PutFile("a.txt", []byte("hello"))
	out, err := run(t, srv, "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "a.txt")
	assert.Contains(t, out, "-rw-r--r--")
}

func TestGetAndPut(t *testing.T) {
	srv := ftptest.NewServer(t)
	srv.PutFile("one.txt", []byte("first"))
	srv.PutFile("two.txt", []byte("second"))
	srv.PutFile("three.txt", []byte("third"))
	dir := t.TempDir()

	out, err := run(t, srv, "get", "--output", dir, "one.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "OK one.txt -> "+filepath.Join(dir, "one.txt"))
	data, err := os.ReadFile(filepath.Join(dir, "one.txt"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	out, err = run(t, srv, "get", "--output", dir, "--parallel", "2", "two.txt", "three.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "OK two.txt")
	assert.Contains(t, out, "OK three.txt")
	for name, want := range map[string]string{"two.txt": "second", "three.txt": "third"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, want, string(data))
	}

	out, err = run(t, srv, "put", filepath.Join(dir, "one.txt"), "copy.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "-> copy.txt")
	stored, ok := srv.File("copy.txt")
	require.True(t, ok)
	assert.Equal(t, "first", string(stored))
}

func TestGetParallelReportsFailures(t *testing.T) {
	srv := ftptest.NewServer(t)
	srv.PutFile("ok.txt", []byte("ok"))
	dir := t.TempDir()

	out, errOut, err := runCapture(t, srv, "get", "--output", dir, "--parallel", "2", "ok.txt", "missing.txt")
	require.Error(t, err)
	assert.Contains(t, out, "OK ok.txt")
	assert.Contains(t, errOut, "FAILED missing.txt")
	assert.Contains(t, err.Error(), "1 of 2 downloads failed: missing.txt")
	assert.FileExists(t, filepath.Join(dir, "ok.txt"))
}

func TestFileCommands(t *testing.T) {
	srv := ftptest.NewServer(t)
	srv.PutFile("old.txt", []byte("x"))

	_, err := run(t, srv, "mv", "old.txt", "new.txt")
	require.NoError(t, err)
	_, ok := srv.File("new.txt")
	assert.True(t, ok)

	_, err = run(t, srv, "rm", "new.txt")
	require.NoError(t, err)
	_, ok = srv.File("new.txt")
	assert.False(t, ok)

	_, err = run(t, srv, "rm", "new.txt")
	assert.ErrorIs(t, err, ftp.KindFileUnavailable)

	_, err = run(t, srv, "mkdir", "d")
	require.NoError(t, err)
	_, err = run(t, srv, "rmdir", "d")
	require.NoError(t, err)

	_, err = run(t, srv, "mv", "only-one")
	assert.Error(t, err)
}

func TestLocalTarget(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "file.iso"), localTarget("out", "/pub/dist/file.iso"))
	assert.Equal(t, filepath.Join("out", "file.iso"), localTarget("out", "file.iso"))

	home, err := homedir.Dir()
	require.NoError(t, err)
	expanded, err := homedir.Expand("~/downloads")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "downloads"), expanded)
}

func TestFormatEntry(t *testing.T) {
	entry, err := ftp.ParseEntry("lrwxrwxrwx   1 root     root            7 Feb  1 10:00 latest -> v1.2.3")
	require.NoError(t, err)
	assert.Equal(t, "lrwxrwxrwx            7 Feb  1 10:00 latest -> v1.2.3", formatEntry(entry))
}
