package ftp

import (
	"log/slog"
	"net"
	"time"

	"github.com/pkg/errors"
)

// DefaultPort is the standard FTP control port.
const DefaultPort = 21

// DefaultBlockSize is the chunk size used when writing to a data connection.
const DefaultBlockSize = 1024

// Dialer establishes control and data connections. *net.Dialer satisfies it.
type Dialer interface {
	Dial(network, address string) (net.Conn, error)
}

// config holds the settings shared by the control and data channels.
type config struct {
	// timeout is the per-operation socket deadline; zero disables deadlines
	timeout time.Duration

	// pendingWindow is how long the control channel waits for unsolicited
	// bytes before sending a command
	pendingWindow time.Duration

	// maxReconnects bounds reconnect-and-relogin attempts per command
	maxReconnects int

	// blockSize is the chunk size for data channel writes
	blockSize int

	// bandwidth limits data transfers in bytes per second; zero is unlimited
	bandwidth int64

	dialer Dialer
	logger *slog.Logger
}

func defaultConfig() *config {
	return &config{
		pendingWindow: 5 * time.Millisecond,
		maxReconnects: 3,
		blockSize:     DefaultBlockSize,
		dialer:        &net.Dialer{},
		logger:        slog.New(slog.DiscardHandler),
	}
}

func newConfig(options []Option) (*config, error) {
	cfg := defaultConfig()
	for _, opt := range options {
		if err := opt(cfg); err != nil {
			return nil, errors.Wrap(err, "failed to apply option")
		}
	}
	if d, ok := cfg.dialer.(*net.Dialer); ok && d.Timeout == 0 && cfg.timeout > 0 {
		// The dialer may belong to the caller; configure a copy.
		dialer := *d
		dialer.Timeout = cfg.timeout
		cfg.dialer = &dialer
	}
	return cfg, nil
}

// Option is a functional option for configuring an FTP client.
type Option func(*config) error

// WithTimeout sets a deadline applied to every socket operation on the
// control and data connections, and to dialing when the default dialer is
// used. The engine itself enforces no timeout when this is zero (the default).
func WithTimeout(timeout time.Duration) Option {
	return func(c *config) error {
		if timeout < 0 {
			return errors.Errorf("negative timeout %s", timeout)
		}
		c.timeout = timeout
		return nil
	}
}

// WithLogger enables debug logging using the provided logger.
// All FTP commands and replies will be logged at debug level.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	}))
//	client, _ := ftp.Dial("ftp.example.com:21", ftp.WithLogger(logger))
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) error {
		if logger == nil {
			return errors.New("nil logger")
		}
		c.logger = logger
		return nil
	}
}

// WithDialer sets a custom dialer for establishing connections.
// This can be used to configure source addresses, keep-alive settings, etc.
func WithDialer(dialer Dialer) Option {
	return func(c *config) error {
		if dialer == nil {
			return errors.New("nil dialer")
		}
		c.dialer = dialer
		return nil
	}
}

// WithMaxReconnects bounds how many times a single command may trigger a
// reconnect-and-relogin after the server reports itself unavailable.
// Zero disables automatic reconnection.
func WithMaxReconnects(n int) Option {
	return func(c *config) error {
		if n < 0 {
			return errors.Errorf("negative reconnect limit %d", n)
		}
		c.maxReconnects = n
		return nil
	}
}

// WithPendingReplyWindow sets how long the control channel waits for
// unsolicited data (e.g., an idle-timeout notice) before writing a command.
func WithPendingReplyWindow(d time.Duration) Option {
	return func(c *config) error {
		if d <= 0 {
			return errors.Errorf("pending reply window must be positive, got %s", d)
		}
		c.pendingWindow = d
		return nil
	}
}

// WithBlockSize sets the chunk size for uploads. Progress is reported once
// per chunk.
func WithBlockSize(size int) Option {
	return func(c *config) error {
		if size <= 0 {
			return errors.Errorf("block size must be positive, got %d", size)
		}
		c.blockSize = size
		return nil
	}
}

// WithBandwidthLimit limits data transfers to bytesPerSecond.
// Zero removes the limit.
//
// Example:
//
//	client, _ := ftp.Dial("ftp.example.com:21",
//	    ftp.WithBandwidthLimit(512*1024),
//	)
func WithBandwidthLimit(bytesPerSecond int64) Option {
	return func(c *config) error {
		if bytesPerSecond < 0 {
			return errors.Errorf("negative bandwidth limit %d", bytesPerSecond)
		}
		c.bandwidth = bytesPerSecond
		return nil
	}
}
