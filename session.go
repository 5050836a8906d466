package ftp

import (
	"net"
	"strconv"
)

// Session describes the server and credentials a control channel was
// opened and logged in with. It is a value; the control channel replaces it
// wholesale instead of mutating fields.
type Session struct {
	Host     string
	Port     int
	User     string
	Password string
}

// Addr returns the "host:port" dial address of the session.
func (s Session) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// withCredentials returns a copy of s carrying user and password.
func (s Session) withCredentials(user, password string) Session {
	s.User = user
	s.Password = password
	return s
}

// restore re-opens the control channel and logs in again using only the
// given session descriptor.
func (c *ControlConn) restore(s Session) error {
	c.logger.Debug("restoring control connection", "addr", s.Addr(), "user", s.User)

	if err := c.Open(s.Host, s.Port); err != nil {
		return err
	}
	if err := c.Login(s.User, s.Password); err != nil {
		// Not logged in: the next command has to go through restore again.
		_ = c.Close()
		return err
	}
	return nil
}
