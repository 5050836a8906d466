package ftp

import (
	"bufio"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ControlConn is the command/reply channel to an FTP server.
//
// The protocol is strictly half-duplex: a ControlConn must not be used from
// more than one goroutine at a time. Callers needing concurrency open one
// ControlConn (or Client) per goroutine.
type ControlConn struct {
	// conn is the control socket; nil while disconnected
	conn net.Conn

	reader *bufio.Reader
	writer *bufio.Writer

	// session remembers where we connected and who we logged in as, for
	// reconnect-and-relogin
	session Session

	// established is set by the first successful login and never cleared
	established bool

	// connected reports whether the socket is usable
	connected bool

	// quit is set by Quit and disables reconnection
	quit bool

	// generation counts successful opens; per-socket server state such as
	// the transfer type is lost when it changes
	generation int

	cfg    *config
	logger *slog.Logger
}

// NewControlConn returns a control channel that is not yet connected.
// Call Open and Login before sending commands.
func NewControlConn(options ...Option) (*ControlConn, error) {
	cfg, err := newConfig(options)
	if err != nil {
		return nil, err
	}
	return newControlConn(cfg), nil
}

func newControlConn(cfg *config) *ControlConn {
	return &ControlConn{
		cfg:    cfg,
		logger: cfg.logger.With("channel", "control"),
	}
}

// Connected reports whether the control socket is currently usable.
func (c *ControlConn) Connected() bool { return c.connected }

// Established reports whether a login ever succeeded on this channel.
func (c *ControlConn) Established() bool { return c.established }

// Session returns the descriptor used for reconnecting.
func (c *ControlConn) Session() Session { return c.session }

// Open establishes the control connection and reads the server greeting.
// Any previously open socket is closed first. A greeting of 120 (ready in
// nnn minutes) or 421 (service unavailable) closes the socket and fails with
// a *ReplyError of kind KindServiceUnavailable.
func (c *ControlConn) Open(host string, port int) error {
	if c.conn != nil {
		_ = c.Close()
	}
	c.quit = false
	c.session = Session{Host: host, Port: port, User: c.session.User, Password: c.session.Password}

	addr := c.session.Addr()
	c.logger.Debug("connecting to ftp server", "addr", addr)

	conn, err := c.cfg.dialer.Dial("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "failed to connect to %s", addr)
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.writer = bufio.NewWriter(conn)

	reply, err := c.readReply()
	if err != nil {
		_ = c.Close()
		return errors.Wrap(err, "failed to read greeting")
	}

	if reply.Code == CodeServiceReadyLater || reply.Code == CodeServiceUnavailable {
		_ = c.Close()
		return Classify("CONNECT", reply)
	}
	if err := Classify("CONNECT", reply); err != nil {
		_ = c.Close()
		return err
	}

	c.connected = true
	c.generation++
	return nil
}

// Login authenticates with USER and PASS. It fails with ErrNoConnection if
// the channel is not connected. A 421 reply closes the connection; 530 and
// 332 fail without closing it. On success the credentials are remembered for
// reconnecting.
func (c *ControlConn) Login(user, password string) error {
	if !c.connected {
		return ErrNoConnection
	}
	c.logger.Debug("logging in", "user", user)

	reply, err := c.exchange("USER", user)
	if err != nil {
		return err
	}
	if reply.Code == CodeUserLoggedIn {
		c.loggedIn(user, password)
		return nil
	}
	if err := Classify("USER", reply); err != nil {
		return err
	}

	reply, err = c.exchange("PASS", password)
	if err != nil {
		return err
	}
	if err := Classify("PASS", reply); err != nil {
		return err
	}

	c.loggedIn(user, password)
	return nil
}

func (c *ControlConn) loggedIn(user, password string) {
	c.session = c.session.withCredentials(user, password)
	c.established = true
	c.logger.Debug("logged in", "user", user)
}

// SendCommand sends a command and returns the reply that belongs to it.
//
// If the channel is down and a login ever succeeded, it reconnects and logs
// in again before sending. Unsolicited replies waiting on the socket (such as
// an idle-timeout notice) are read and discarded first; a pending 421 is
// treated like a dropped connection. Reconnects are bounded by
// WithMaxReconnects, after which ErrReconnectLimit is returned.
//
// The reply is returned as is; use Classify to turn negative replies into
// errors.
func (c *ControlConn) SendCommand(command string, args ...string) (*Reply, error) {
	reconnects := 0
	for {
		if c.quit {
			return nil, errors.Wrap(ErrNoConnection, "control connection was quit")
		}

		if !c.connected {
			if !c.established {
				return nil, ErrNoConnection
			}
			if reconnects >= c.cfg.maxReconnects {
				return nil, errors.Wrapf(ErrReconnectLimit, "%s after %d attempts", command, reconnects)
			}
			reconnects++
			if err := c.restore(c.session); err != nil {
				return nil, errors.Wrap(err, "failed to restore connection")
			}
			continue
		}

		pending, err := c.pendingReply()
		if err != nil {
			c.logger.Debug("control connection lost", "error", err)
			_ = c.Close()
			if !c.established {
				return nil, errors.Wrap(ErrNoConnection, err.Error())
			}
			continue
		}

		if pending {
			reply, err := c.readReply()
			if err != nil {
				return nil, errors.Wrap(err, "failed to read unsolicited reply")
			}
			if reply.Code == CodeServiceUnavailable {
				if !c.established {
					return nil, Classify(command, reply)
				}
				continue
			}
			c.logger.Debug("discarding unsolicited reply", "code", reply.Code, "text", reply.Text)
			continue
		}

		return c.exchange(command, args...)
	}
}

// ReadReply reads the next reply from the server without sending anything.
// It is used to collect the completion reply after a data transfer.
func (c *ControlConn) ReadReply() (*Reply, error) {
	if !c.connected {
		return nil, ErrNoConnection
	}
	return c.readReply()
}

// Quit sends QUIT, ignoring its outcome, and closes the connection.
// A channel that was quit never reconnects.
func (c *ControlConn) Quit() error {
	c.quit = true
	if c.connected {
		_, _ = c.exchange("QUIT")
	}
	return c.Close()
}

// Close closes the control socket. It is safe to call more than once.
func (c *ControlConn) Close() error {
	c.connected = false
	if c.conn == nil {
		return nil
	}
	c.logger.Debug("closing control connection")

	err := c.conn.Close()
	c.conn = nil
	c.reader = nil
	c.writer = nil
	return errors.Wrap(err, "failed to close control connection")
}

// exchange writes one command line and reads exactly one reply.
func (c *ControlConn) exchange(command string, args ...string) (*Reply, error) {
	line := formatCommand(command, args...)
	if command == "PASS" {
		c.logger.Debug("ftp command", "cmd", "PASS ****")
	} else {
		c.logger.Debug("ftp command", "cmd", line)
	}

	if c.cfg.timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.timeout)); err != nil {
			return nil, errors.Wrap(err, "failed to set write deadline")
		}
	}

	if _, err := c.writer.WriteString(line + "\r\n"); err != nil {
		_ = c.Close()
		return nil, errors.Wrap(err, "failed to send command")
	}
	if err := c.writer.Flush(); err != nil {
		_ = c.Close()
		return nil, errors.Wrap(err, "failed to send command")
	}

	return c.readReply()
}

// readReply reads one reply. A transport failure or a 421 reply closes the
// socket and marks the channel disconnected; a framing error leaves it open.
func (c *ControlConn) readReply() (*Reply, error) {
	if c.cfg.timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.timeout)); err != nil {
			return nil, errors.Wrap(err, "failed to set read deadline")
		}
	}

	reply, err := ReadReply(c.reader)
	if err != nil {
		if !errors.Is(err, ErrMalformedReply) {
			_ = c.Close()
		}
		return nil, errors.Wrap(err, "failed to read reply")
	}

	c.logger.Debug("ftp reply", "code", reply.Code, "text", reply.Text)

	if reply.Code == CodeServiceUnavailable {
		c.logger.Debug("server is closing the control connection", "text", reply.Text)
		_ = c.Close()
	}
	return reply, nil
}

// pendingReply reports whether the server has sent bytes we have not read.
// It waits at most the configured pending window. An error means the socket
// is unusable.
func (c *ControlConn) pendingReply() (bool, error) {
	if c.reader.Buffered() > 0 {
		return true, nil
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.pendingWindow)); err != nil {
		return false, errors.Wrap(err, "failed to set read deadline")
	}
	_, err := c.reader.Peek(1)
	if resetErr := c.conn.SetReadDeadline(time.Time{}); resetErr != nil && err == nil {
		return false, errors.Wrap(resetErr, "failed to reset read deadline")
	}

	if err == nil {
		return true, nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return false, nil
	}
	return false, err
}

// formatCommand joins a verb and its arguments into one command line.
func formatCommand(command string, args ...string) string {
	if len(args) == 0 {
		return command
	}
	return command + " " + strings.Join(args, " ")
}
