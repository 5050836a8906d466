package ftp

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/halfduplex/ftp/internal/ftptest"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialClient(t *testing.T, srv *ftptest.Server, options ...Option) *Client {
	t.Helper()
	c, err := Dial(srv.Addr, testOptions(options...)...)
	require.NoError(t, err)
	require.NoError(t, c.Login("alice", "secret"))
	t.Cleanup(func() { _ = c.Quit() })
	return c
}

func TestSplitAddr(t *testing.T) {
	t.Parallel()
	tests := []struct {
		addr     string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{addr: "ftp.example.com", wantHost: "ftp.example.com", wantPort: 21},
		{addr: "ftp.example.com:2121", wantHost: "ftp.example.com", wantPort: 2121},
		{addr: "[::1]:21", wantHost: "::1", wantPort: 21},
		{addr: "ftp.example.com:abc", wantErr: true},
		{addr: "ftp.example.com:70000", wantErr: true},
	}

	for _, tt := range tests {
		host, port, err := splitAddr(tt.addr)
		if tt.wantErr {
			assert.Error(t, err, tt.addr)
			continue
		}
		require.NoError(t, err, tt.addr)
		assert.Equal(t, tt.wantHost, host)
		assert.Equal(t, tt.wantPort, port)
	}
}

func TestConnect(t *testing.T) {
	t.Parallel()

	t.Run("anonymous", func(t *testing.T) {
		t.Parallel()
		srv := ftptest.NewServer(t)

		c, err := Connect("ftp://"+srv.Addr, testOptions()...)
		require.NoError(t, err)
		defer func() { _ = c.Quit() }()

		assert.Equal(t, []string{"USER anonymous", "PASS anonymous@"}, srv.Received())
		assert.NoError(t, c.Noop())
	})

	t.Run("credentials and path", func(t *testing.T) {
		t.Parallel()
		srv := ftptest.NewServer(t)

		c, err := Connect("ftp://bob:pw@"+srv.Addr+"/pub", testOptions()...)
		require.NoError(t, err)
		defer func() { _ = c.Quit() }()

		assert.Equal(t, "bob", c.Control().Session().User)
		dir, err := c.CurrentDir()
		require.NoError(t, err)
		assert.Equal(t, "/pub", dir)
	})

	t.Run("login refused", func(t *testing.T) {
		t.Parallel()
		srv := ftptest.NewServer(t)
		srv.Handle("PASS", func(c *ftptest.Conn, _ string) { c.Reply("530 Login incorrect.") })

		_, err := Connect("ftp://bob:bad@"+srv.Addr, testOptions()...)
		assert.True(t, errors.Is(err, KindNotLoggedIn))
	})

	t.Run("wrong scheme", func(t *testing.T) {
		t.Parallel()
		_, err := Connect("sftp://example.com")
		assert.Error(t, err)
	})
}

func TestClient_Directories(t *testing.T) {
	t.Parallel()
	srv := ftptest.NewServer(t)
	c := dialClient(t, srv)

	dir, err := c.CurrentDir()
	require.NoError(t, err)
	assert.Equal(t, "/", dir)

	require.NoError(t, c.ChangeDir("/srv/data"))
	dir, err = c.CurrentDir()
	require.NoError(t, err)
	assert.Equal(t, "/srv/data", dir)

	assert.NoError(t, c.ChangeToParent())
	assert.NoError(t, c.MakeDir("new"))
	assert.NoError(t, c.RemoveDir("new"))
	assert.Equal(t, 1, srv.Count("MKD"))
	assert.Equal(t, 1, srv.Count("RMD"))
}

func TestParsePWD(t *testing.T) {
	t.Parallel()
	tests := []struct {
		text    string
		want    string
		wantErr bool
	}{
		{text: `"/home/user" is the current directory`, want: "/home/user"},
		{text: `"/with ""quotes""" is cwd`, want: `/with "quotes"`},
		{text: `"/"`, want: "/"},
		{text: `no quotes`, wantErr: true},
		{text: `"/unterminated`, wantErr: true},
	}

	for _, tt := range tests {
		got, err := parsePWD(tt.text)
		if tt.wantErr {
			assert.Error(t, err, tt.text)
			continue
		}
		require.NoError(t, err, tt.text)
		assert.Equal(t, tt.want, got)
	}
}

func TestClient_DeleteAndRename(t *testing.T) {
	t.Parallel()
	srv := ftptest.NewServer(t)
	srv.PutFile("old.txt", []byte("content"))
	c := dialClient(t, srv)

	require.NoError(t, c.Rename("old.txt", "new.txt"))
	_, ok := srv.File("old.txt")
	assert.False(t, ok)
	data, ok := srv.File("new.txt")
	require.True(t, ok)
	assert.Equal(t, "content", string(data))

	require.NoError(t, c.Delete("new.txt"))
	_, ok = srv.File("new.txt")
	assert.False(t, ok)

	err := c.Delete("new.txt")
	assert.True(t, errors.Is(err, KindFileUnavailable))

	err = c.Rename("missing.txt", "x.txt")
	assert.True(t, errors.Is(err, KindFileUnavailable))
	assert.Equal(t, 1, srv.Count("RNTO"))
}

func TestClient_List(t *testing.T) {
	t.Parallel()
	srv := ftptest.NewServer(t)
	srv.PutFile("a.txt", []byte("12345"))
	srv.PutFile("b file.bin", bytes.Repeat([]byte{0}, 2048))
	c := dialClient(t, srv)

	lines, err := c.NameLines("")
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, "total 2", lines[0])

	entries, err := c.List("")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a.txt", entries[0].Name)
	assert.Equal(t, int64(5), entries[0].Size)
	assert.Equal(t, "b file.bin", entries[1].Name)
	assert.Equal(t, int64(2048), entries[1].Size)

	// The control connection is in sync after each transfer.
	assert.NoError(t, c.Noop())
	assert.Equal(t, 2, srv.Count("PASV"))
}

func TestClient_MachineListing(t *testing.T) {
	t.Parallel()
	srv := ftptest.NewServer(t)
	srv.PutFile("report.csv", []byte("a,b,c\n"))
	c := dialClient(t, srv)

	entries, err := c.MLList("")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].IsDir())
	assert.Equal(t, "report.csv", entries[1].Name)
	assert.Equal(t, int64(6), entries[1].Size)
	assert.Equal(t, "r", entries[1].Perm)
	assert.Equal(t, 2024, entries[1].ModTime.Year())

	entry, err := c.MLStat("report.csv")
	require.NoError(t, err)
	assert.Equal(t, "file", entry.Type)
	assert.Equal(t, int64(6), entry.Size)

	_, err = c.MLStat("missing")
	assert.True(t, errors.Is(err, KindFileUnavailable))
}

func TestParseMLEntry(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		input    string
		wantName string
		wantType string
		wantSize int64
		wantErr  bool
	}{
		{
			name:     "file entry",
			input:    "type=file;size=1234;modify=20231220143000; example.txt",
			wantName: "example.txt",
			wantType: "file",
			wantSize: 1234,
		},
		{
			name:     "directory entry",
			input:    "Type=Dir;modify=20231220143000;perm=flcdmpe; mydir",
			wantName: "mydir",
			wantType: "dir",
		},
		{
			name:     "file with spaces",
			input:    "type=file;size=5678; my file.txt",
			wantName: "my file.txt",
			wantType: "file",
			wantSize: 5678,
		},
		{name: "no separator", input: "no-space-separator", wantErr: true},
		{name: "bad size", input: "type=file;size=lots; f", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := parseMLEntry(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, entry.Name)
			assert.Equal(t, tt.wantType, entry.Type)
			assert.Equal(t, tt.wantSize, entry.Size)
		})
	}
}

func TestClient_RetrieveAndStore(t *testing.T) {
	t.Parallel()
	srv := ftptest.NewServer(t)
	payload := bytes.Repeat([]byte("payload-"), 1000)
	srv.PutFile("remote.bin", payload)
	c := dialClient(t, srv)

	var last int64
	got, err := c.Retrieve("remote.bin", func(total, current int64) {
		assert.Equal(t, int64(len(payload)), total)
		assert.Greater(t, current, last)
		last = current
	})
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Equal(t, int64(len(payload)), last)

	var calls int
	require.NoError(t, c.Store("copy.bin", got, func(int64, int64) { calls++ }))
	stored, ok := srv.File("copy.bin")
	require.True(t, ok)
	assert.Equal(t, payload, stored)
	assert.Equal(t, (len(payload)+DefaultBlockSize-1)/DefaultBlockSize, calls)

	// TYPE I is sent once per control connection.
	assert.Equal(t, 1, srv.Count("TYPE"))
	assert.NoError(t, c.Noop())
}

func TestClient_RetrieveMissing(t *testing.T) {
	t.Parallel()
	srv := ftptest.NewServer(t)
	c := dialClient(t, srv)

	_, err := c.Retrieve("missing.bin", nil)
	assert.True(t, errors.Is(err, KindFileUnavailable))

	_, err = c.RetrieveSized("missing.bin", 10, nil)
	assert.True(t, errors.Is(err, KindFileUnavailable))
	assert.NoError(t, c.Noop())
}

func TestClient_RetrieveTruncated(t *testing.T) {
	t.Parallel()
	srv := ftptest.NewServer(t)
	srv.PutFile("short.bin", []byte("only ten b"))
	srv.Handle("SIZE", func(c *ftptest.Conn, _ string) { c.Reply("213 100") })
	c := dialClient(t, srv)

	got, err := c.Retrieve("short.bin", nil)
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, ErrTruncatedStream))

	// The 226 after the short transfer was consumed.
	assert.NoError(t, c.Noop())
}

func TestClient_Size(t *testing.T) {
	t.Parallel()
	srv := ftptest.NewServer(t)
	srv.PutFile("f", []byte("abc"))
	c := dialClient(t, srv)

	size, err := c.Size("f")
	require.NoError(t, err)
	assert.Equal(t, int64(3), size)

	srv.Handle("SIZE", func(c *ftptest.Conn, _ string) { c.Reply("213 many") })
	_, err = c.Size("f")
	assert.Error(t, err)
}

func TestClient_TypeResentAfterReconnect(t *testing.T) {
	t.Parallel()
	srv := ftptest.NewServer(t)
	srv.PutFile("f", []byte("abc"))
	c := dialClient(t, srv)

	_, err := c.Retrieve("f", nil)
	require.NoError(t, err)
	require.Equal(t, 1, srv.Count("TYPE"))

	// The next command finds an idle timeout notice and reconnects.
	srv.Handle("NOOP", func(conn *ftptest.Conn, _ string) {
		conn.Reply("200 NOOP ok.")
		if conn.N == 1 {
			conn.Reply("421 Idle timeout.")
			conn.Hangup()
		}
	})
	require.NoError(t, c.Noop())

	_, err = c.Retrieve("f", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, srv.Connections())
	assert.Equal(t, 2, srv.Count("TYPE"))
}

func TestClient_RetrieveStaleDataConn(t *testing.T) {
	t.Parallel()
	srv := ftptest.NewServer(t)
	srv.PutFile("f", []byte("abc"))
	// The first connection times out right after announcing its data port.
	srv.Handle("PASV", func(conn *ftptest.Conn, _ string) {
		if err := conn.Passive(); err != nil {
			conn.Reply("425 Can't open passive listener.")
			return
		}
		if conn.N == 1 {
			conn.Reply("421 Idle timeout.")
		}
	})
	c := dialClient(t, srv)

	_, err := c.RetrieveSized("f", 3, nil)
	assert.True(t, errors.Is(err, ErrStaleDataConn), "got %v", err)
	assert.Equal(t, 2, srv.Connections())
	assert.Equal(t, 1, srv.Count("RETR"))

	got, err := c.RetrieveSized("f", 3, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
	assert.Equal(t, 2, srv.Connections())
}

func TestClient_LocalFiles(t *testing.T) {
	t.Parallel()
	srv := ftptest.NewServer(t)
	srv.PutFile("remote.txt", []byte("hello"))
	c := dialClient(t, srv)
	dir := t.TempDir()

	local := filepath.Join(dir, "local.txt")
	require.NoError(t, c.RetrieveTo("remote.txt", local, nil))
	data, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, c.StoreFrom("uploaded.txt", local, nil))
	stored, ok := srv.File("uploaded.txt")
	require.True(t, ok)
	assert.Equal(t, "hello", string(stored))

	assert.Error(t, c.StoreFrom("x", filepath.Join(dir, "missing"), nil))
	assert.Error(t, c.RetrieveTo("missing", filepath.Join(dir, "never"), nil))
	_, err = os.Stat(filepath.Join(dir, "never"))
	assert.True(t, os.IsNotExist(err))
}

func TestClient_Quote(t *testing.T) {
	t.Parallel()
	srv := ftptest.NewServer(t)
	srv.Handle("SITE", func(c *ftptest.Conn, args string) {
		c.Reply("200 SITE %q", args)
	})
	c := dialClient(t, srv)

	reply, err := c.Quote("SITE", "CHMOD", "755", "f")
	require.NoError(t, err)
	assert.Equal(t, 200, reply.Code)
	assert.Equal(t, `SITE "CHMOD 755 f"`, reply.Text)

	reply, err = c.Quote("BOGUS")
	require.NoError(t, err)
	assert.Equal(t, 502, reply.Code)
}
