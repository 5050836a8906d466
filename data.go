package ftp

import (
	"bufio"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// DataConn is a passive-mode data connection carrying exactly one transfer.
// Every transfer method closes the connection when it returns, successfully
// or not; a DataConn is never reused.
type DataConn struct {
	conn      net.Conn
	blockSize int
	throttle  *throttle
	logger    *slog.Logger
}

// parsePASV extracts the data address from a PASV reply text.
// Example: "Entering Passive Mode (192,168,1,1,195,149)."
// Returns: "192.168.1.1", 50069 (195*256 + 149)
func parsePASV(text string) (string, int, error) {
	start := strings.IndexByte(text, '(')
	end := strings.IndexByte(text, ')')
	if start == -1 || end == -1 || end < start {
		return "", 0, errors.Errorf("invalid PASV reply: %q", text)
	}

	parts := strings.Split(text[start+1:end], ",")
	if len(parts) != 6 {
		return "", 0, errors.Errorf("invalid PASV reply: %q", text)
	}

	var n [6]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 || v > 255 {
			return "", 0, errors.Errorf("invalid PASV address part %q", p)
		}
		n[i] = v
	}

	host := strconv.Itoa(n[0]) + "." + strconv.Itoa(n[1]) + "." + strconv.Itoa(n[2]) + "." + strconv.Itoa(n[3])
	return host, n[4]*256 + n[5], nil
}

// Passive sends PASV and returns the address the server is listening on.
// A 421 or 530 reply is returned as a *ReplyError. If the server answers
// with 0.0.0.0, the control connection host is used instead.
func (c *ControlConn) Passive() (string, int, error) {
	reply, err := c.SendCommand("PASV")
	if err != nil {
		return "", 0, errors.Wrap(err, "PASV failed")
	}
	if err := Classify("PASV", reply); err != nil {
		return "", 0, err
	}

	host, port, err := parsePASV(reply.Text)
	if err != nil {
		return "", 0, err
	}
	if host == "0.0.0.0" {
		host = c.session.Host
	}
	return host, port, nil
}

// OpenPassive negotiates passive mode and connects to the data port.
func (c *ControlConn) OpenPassive() (*DataConn, error) {
	host, port, err := c.Passive()
	if err != nil {
		return nil, err
	}
	return openDataConn(c.cfg, host, port)
}

func openDataConn(cfg *config, host string, port int) (*DataConn, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	logger := cfg.logger.With("channel", "data")
	logger.Debug("opening data connection", "addr", addr)

	conn, err := cfg.dialer.Dial("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to data port %s", addr)
	}
	if cfg.timeout > 0 {
		conn = &deadlineConn{Conn: conn, timeout: cfg.timeout}
	}

	return &DataConn{
		conn:      conn,
		blockSize: cfg.blockSize,
		throttle:  newThrottle(cfg.bandwidth, cfg.blockSize),
		logger:    logger,
	}, nil
}

// ReadLines reads text lines until the server closes the data connection.
// Lines may be of any length.
func (d *DataConn) ReadLines() ([]string, error) {
	if d.conn == nil {
		return nil, ErrDataConnClosed
	}
	defer d.Close()

	var lines []string
	r := bufio.NewReader(d.throttle.reader(d.conn))
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			lines = append(lines, strings.TrimRight(line, "\r\n"))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to read lines")
		}
	}

	d.logger.Debug("read lines", "count", len(lines))
	return lines, nil
}

// GetBytes reads exactly size bytes. progress, if not nil, is called after
// every read with the running total. If the server closes the connection
// early, GetBytes fails with ErrTruncatedStream and returns no data.
func (d *DataConn) GetBytes(size int64, progress ProgressFunc) ([]byte, error) {
	if d.conn == nil {
		return nil, ErrDataConnClosed
	}
	defer d.Close()

	if size < 0 {
		return nil, errors.Errorf("negative transfer size %d", size)
	}
	d.logger.Debug("reading bytes", "size", size)

	buf := make([]byte, size)
	var total int64
	for total < size {
		chunk := buf[total:]
		if limit := d.throttle.maxChunk(); limit > 0 && len(chunk) > limit {
			chunk = chunk[:limit]
		}

		n, err := d.conn.Read(chunk)
		if n > 0 {
			total += int64(n)
			d.throttle.wait(n)
			if progress != nil {
				progress(size, total)
			}
		}
		if err == io.EOF {
			if total < size {
				d.logger.Debug("data stream ended prematurely", "read", total, "size", size)
				return nil, errors.Wrapf(ErrTruncatedStream, "read %d of %d bytes", total, size)
			}
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to read data")
		}
	}

	return buf, nil
}

// WriteBytes writes b in chunks of the configured block size, calling
// progress after each chunk, then closes the connection so the server sees
// the end of the file. Each chunk is a single write on the socket.
func (d *DataConn) WriteBytes(b []byte, progress ProgressFunc) error {
	if d.conn == nil {
		return ErrDataConnClosed
	}
	defer d.Close()

	d.logger.Debug("writing bytes", "size", len(b))

	size := int64(len(b))
	for off := 0; off < len(b); off += d.blockSize {
		end := min(off+d.blockSize, len(b))
		if _, err := d.conn.Write(b[off:end]); err != nil {
			return errors.Wrap(err, "failed to write data")
		}
		d.throttle.wait(end - off)
		if progress != nil {
			progress(size, int64(end))
		}
	}

	return nil
}

// Close closes the data connection. It is safe to call more than once.
func (d *DataConn) Close() error {
	if d.conn == nil {
		return nil
	}
	d.logger.Debug("closing data connection")

	err := d.conn.Close()
	d.conn = nil
	return errors.Wrap(err, "failed to close data connection")
}
