package ftptest

import (
	"io"
	"net"
	"net/textproto"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const acceptTimeout = 5 * time.Second

var errNoPassive = errors.New("no passive listener")

// Conn is the server side of one control connection.
type Conn struct {
	*textproto.Conn

	// N is the 1-based number of this connection on its server
	N int

	raw net.Conn

	pasv       net.Listener
	cwd        string
	renameFrom string

	closeOnce sync.Once
}

// Reply writes one reply line.
func (c *Conn) Reply(format string, args ...any) {
	_ = c.PrintfLine(format, args...)
}

// Hangup closes the control connection without a reply. It may be called
// from any goroutine.
func (c *Conn) Hangup() {
	c.closeOnce.Do(func() { _ = c.raw.Close() })
}

// Passive opens a data listener and announces it with a 227 reply.
func (c *Conn) Passive() error {
	c.DropData()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	// A client that never connects must not block the connection forever.
	_ = l.(*net.TCPListener).SetDeadline(time.Now().Add(acceptTimeout))
	c.pasv = l

	port := l.Addr().(*net.TCPAddr).Port
	c.Reply("227 Entering Passive Mode (127,0,0,1,%d,%d).", port/256, port%256)
	return nil
}

// DropData closes the passive listener, if any.
func (c *Conn) DropData() {
	if c.pasv != nil {
		_ = c.pasv.Close()
		c.pasv = nil
	}
}

// AcceptData waits for the client's data connection. The passive listener
// is closed afterwards, so every transfer needs a new PASV.
func (c *Conn) AcceptData() (net.Conn, error) {
	if c.pasv == nil {
		return nil, errNoPassive
	}
	defer c.DropData()
	return c.pasv.Accept()
}

// SendData replies 150, writes data on the data connection, closes it and
// replies 226.
func (c *Conn) SendData(data []byte) {
	if c.pasv == nil {
		c.Reply("425 Use PASV first.")
		return
	}
	c.Reply("150 Opening data connection.")

	dc, err := c.AcceptData()
	if err != nil {
		c.Reply("425 Can't open data connection.")
		return
	}
	_, err = dc.Write(data)
	_ = dc.Close()
	if err != nil {
		c.Reply("426 Connection closed; transfer aborted.")
		return
	}
	c.Reply("226 Transfer complete.")
}

// ReceiveData replies 150, reads the data connection until the client
// closes it and replies 226.
func (c *Conn) ReceiveData() ([]byte, error) {
	if c.pasv == nil {
		c.Reply("425 Use PASV first.")
		return nil, errNoPassive
	}
	c.Reply("150 Ok to send data.")

	dc, err := c.AcceptData()
	if err != nil {
		c.Reply("425 Can't open data connection.")
		return nil, err
	}
	data, err := io.ReadAll(dc)
	_ = dc.Close()
	if err != nil {
		c.Reply("426 Connection closed; transfer aborted.")
		return nil, err
	}
	c.Reply("226 Transfer complete.")
	return data, nil
}
