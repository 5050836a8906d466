// Package ftptest provides a scripted in-process FTP server for tests.
//
// The server understands the commands the client sends (USER, PASS, PWD,
// CWD, CDUP, MKD, RMD, DELE, RNFR, RNTO, TYPE, SIZE, NOOP, QUIT, PASV, LIST,
// MLSD, MLST, RETR, STOR) backed by an in-memory file map. Any command can be
// overridden with Handle to script unusual server behaviour, such as
// unsolicited replies or dropped connections.
package ftptest

import (
	"fmt"
	"net"
	"net/textproto"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// HandlerFunc handles one command on one control connection.
type HandlerFunc func(c *Conn, args string)

// Server is a scripted FTP server listening on 127.0.0.1.
type Server struct {
	// Addr is the "host:port" address of the control listener
	Addr string

	listener net.Listener

	mu       sync.Mutex
	handlers map[string]HandlerFunc
	greeting func(n int) string
	files    map[string][]byte
	commands []string
	received []string
	active   map[*Conn]struct{}
	conns    int

	wg sync.WaitGroup
}

// NewServer starts a server and registers its shutdown with t.Cleanup.
func NewServer(t testing.TB) *Server {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	s := &Server{
		Addr:     l.Addr().String(),
		listener: l,
		handlers: make(map[string]HandlerFunc),
		files:    make(map[string][]byte),
		active:   make(map[*Conn]struct{}),
	}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

// Host returns the listening host.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.Addr)
	return host
}

// Port returns the listening port.
func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.Addr)
	n, _ := strconv.Atoi(port)
	return n
}

// Handle overrides the handler for a command verb.
func (s *Server) Handle(cmd string, h HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[strings.ToUpper(cmd)] = h
}

// SetGreeting sets the greeting line sent on the n-th connection (1-based).
func (s *Server) SetGreeting(f func(n int) string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.greeting = f
}

// PutFile stores a file in the in-memory file system.
func (s *Server) PutFile(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = append([]byte(nil), data...)
}

// File returns the contents of a stored file.
func (s *Server) File(path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[path]
	return data, ok
}

// Commands returns the verbs received so far, in order, across all
// connections.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// Received returns the full command lines received so far, in order.
func (s *Server) Received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

// Count returns how many times a verb was received.
func (s *Server) Count(cmd string) int {
	n := 0
	for _, c := range s.Commands() {
		if c == cmd {
			n++
		}
	}
	return n
}

// Connections returns the number of control connections accepted so far.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns
}

// Close stops the server and drops all connections.
func (s *Server) Close() {
	_ = s.listener.Close()

	s.mu.Lock()
	for c := range s.active {
		c.Hangup()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		raw, err := s.listener.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		s.conns++
		c := &Conn{
			Conn: textproto.NewConn(raw),
			N:    s.conns,
			raw:  raw,
			cwd:  "/",
		}
		s.active[c] = struct{}{}
		greeting := s.greeting
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.run(c, greeting)
		}()
	}
}

func (s *Server) run(c *Conn, greeting func(int) string) {
	defer func() {
		c.Hangup()
		c.DropData()
		s.mu.Lock()
		delete(s.active, c)
		s.mu.Unlock()
	}()

	line := "220 ftptest ready"
	if greeting != nil {
		line = greeting(c.N)
	}
	c.Reply("%s", line)
	if strings.HasPrefix(line, "421") || strings.HasPrefix(line, "120") {
		return
	}

	for {
		line, err := c.ReadLine()
		if err != nil {
			return
		}

		cmd, args, _ := strings.Cut(line, " ")
		cmd = strings.ToUpper(cmd)

		s.mu.Lock()
		s.commands = append(s.commands, cmd)
		s.received = append(s.received, line)
		h, ok := s.handlers[cmd]
		s.mu.Unlock()

		if ok {
			h(c, args)
			continue
		}
		if !s.builtin(c, cmd, args) {
			return
		}
	}
}

// builtin runs the default behaviour for cmd. It returns false when the
// connection should be closed.
func (s *Server) builtin(c *Conn, cmd, args string) bool {
	switch cmd {
	case "USER":
		c.Reply("331 User name okay, need password.")
	case "PASS":
		c.Reply("230 User logged in, proceed.")
	case "PWD":
		c.Reply("257 %q is the current directory.", c.cwd)
	case "CWD":
		c.cwd = args
		c.Reply("250 Directory changed.")
	case "CDUP":
		c.Reply("250 Directory changed.")
	case "MKD":
		c.Reply("257 %q created.", args)
	case "RMD":
		c.Reply("250 Directory removed.")
	case "TYPE":
		c.Reply("200 Type set to %s.", args)
	case "NOOP":
		c.Reply("200 NOOP ok.")
	case "QUIT":
		c.Reply("221 Goodbye.")
		return false
	case "SIZE":
		if data, ok := s.File(args); ok {
			c.Reply("213 %d", len(data))
		} else {
			c.Reply("550 %s: No such file.", args)
		}
	case "DELE":
		s.mu.Lock()
		_, ok := s.files[args]
		delete(s.files, args)
		s.mu.Unlock()
		if ok {
			c.Reply("250 File deleted.")
		} else {
			c.Reply("550 %s: No such file.", args)
		}
	case "RNFR":
		if _, ok := s.File(args); ok {
			c.renameFrom = args
			c.Reply("350 Ready for RNTO.")
		} else {
			c.Reply("550 %s: No such file.", args)
		}
	case "RNTO":
		if c.renameFrom == "" {
			c.Reply("503 Bad sequence of commands.")
			break
		}
		s.mu.Lock()
		s.files[args] = s.files[c.renameFrom]
		delete(s.files, c.renameFrom)
		s.mu.Unlock()
		c.renameFrom = ""
		c.Reply("250 Rename successful.")
	case "PASV":
		if err := c.Passive(); err != nil {
			c.Reply("425 Can't open passive listener.")
		}
	case "LIST":
		c.SendData(s.listing())
	case "MLSD":
		c.SendData(s.machineListing())
	case "MLST":
		data, ok := s.File(args)
		if !ok {
			c.Reply("550 %s: No such file.", args)
			break
		}
		c.Reply("250-Listing %s", args)
		c.Reply(" type=file;size=%d;modify=20240102150405; %s", len(data), args)
		c.Reply("250 End")
	case "RETR":
		data, ok := s.File(args)
		if !ok {
			c.DropData()
			c.Reply("550 %s: No such file.", args)
			break
		}
		c.SendData(data)
	case "STOR":
		data, err := c.ReceiveData()
		if err != nil {
			return true
		}
		s.PutFile(args, data)
	default:
		c.Reply("502 Command not implemented.")
	}
	return true
}

func (s *Server) listing() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "total %d\r\n", len(names))
	for _, name := range names {
		fmt.Fprintf(&b, "-rw-r--r--   1 ftp      ftp      %8d Jan 02 15:04 %s\r\n",
			len(s.files[name]), strings.TrimPrefix(name, "/"))
	}
	return []byte(b.String())
}

func (s *Server) machineListing() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("type=cdir;modify=20240102150405; .\r\n")
	for _, name := range names {
		fmt.Fprintf(&b, "type=file;size=%d;modify=20240102150405;perm=r; %s\r\n",
			len(s.files[name]), strings.TrimPrefix(name, "/"))
	}
	return []byte(b.String())
}
