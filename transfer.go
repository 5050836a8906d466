package ftp

import (
	"os"

	"github.com/pkg/errors"
)

// transfer runs one passive data transfer: it negotiates the data
// connection, sends command, hands the connection to fn and then reads the
// completion reply from the control connection.
func (c *Client) transfer(command, path string, fn func(*DataConn) error) error {
	data, err := c.control.OpenPassive()
	if err != nil {
		return err
	}
	defer data.Close()
	generation := c.control.generation

	var args []string
	if path != "" {
		args = append(args, path)
	}
	reply, err := c.control.SendCommand(command, args...)
	if err != nil {
		return err
	}
	if c.control.generation != generation {
		c.logger.Debug("control connection restored after PASV", "command", command, "code", reply.Code)
		return errors.Wrapf(ErrStaleDataConn, "%s %s", command, path)
	}
	if err := Classify(command, reply); err != nil {
		return err
	}
	if !reply.IsPreliminary() && !reply.Is2xx() {
		return &ReplyError{Kind: KindOf(reply.Code), Command: command, Code: reply.Code, Message: reply.Text}
	}

	fnErr := fn(data)
	if reply.Is2xx() {
		// Some servers skip the 1xx mark and report completion right away.
		return fnErr
	}

	// The completion reply is read even after a failed transfer so the next
	// command sees its own reply.
	final, err := c.control.ReadReply()
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return errors.Wrap(err, "failed to read completion reply")
	}
	return expectSuccess(command, final)
}

// Retrieve downloads a remote file into memory. The size is queried with
// SIZE first; the transfer fails with ErrTruncatedStream if fewer bytes
// arrive. The transfer is performed in binary mode (TYPE I).
//
// Example:
//
//	data, err := client.Retrieve("remote.txt", func(total, current int64) {
//	    fmt.Printf("\r%d/%d", current, total)
//	})
func (c *Client) Retrieve(remotePath string, progress ProgressFunc) ([]byte, error) {
	if err := c.Type("I"); err != nil {
		return nil, errors.Wrap(err, "failed to set binary mode")
	}

	size, err := c.Size(remotePath)
	if err != nil {
		return nil, err
	}
	return c.RetrieveSized(remotePath, size, progress)
}

// RetrieveSized downloads exactly size bytes of a remote file, for callers
// that already know the size (e.g., from List).
func (c *Client) RetrieveSized(remotePath string, size int64, progress ProgressFunc) ([]byte, error) {
	if err := c.Type("I"); err != nil {
		return nil, errors.Wrap(err, "failed to set binary mode")
	}

	var buf []byte
	err := c.transfer("RETR", remotePath, func(data *DataConn) error {
		var err error
		buf, err = data.GetBytes(size, progress)
		return err
	})
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// RetrieveTo downloads a remote file to a local path. The local file is
// only written once the whole transfer succeeded.
func (c *Client) RetrieveTo(remotePath, localPath string, progress ProgressFunc) error {
	data, err := c.Retrieve(remotePath, progress)
	if err != nil {
		return err
	}
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write local file")
	}
	return nil
}

// Store uploads data to the remote path in binary mode (TYPE I).
//
// Example:
//
//	err := client.Store("remote.txt", []byte("hello"), nil)
func (c *Client) Store(remotePath string, data []byte, progress ProgressFunc) error {
	if err := c.Type("I"); err != nil {
		return errors.Wrap(err, "failed to set binary mode")
	}

	return c.transfer("STOR", remotePath, func(conn *DataConn) error {
		return conn.WriteBytes(data, progress)
	})
}

// StoreFrom uploads a local file to the remote path.
func (c *Client) StoreFrom(remotePath, localPath string, progress ProgressFunc) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return errors.Wrap(err, "failed to read local file")
	}
	return c.Store(remotePath, data, progress)
}
