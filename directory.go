package ftp

import (
	"strings"

	"github.com/pkg/errors"
)

// CurrentDir returns the current working directory.
func (c *Client) CurrentDir() (string, error) {
	reply, err := c.expect2xx("PWD")
	if err != nil {
		return "", err
	}
	return parsePWD(reply.Text)
}

// parsePWD extracts the quoted path of a 257 reply.
// Example: "\"/home/user\" is the current directory"
// A doubled quote inside the path stands for one quote character.
func parsePWD(text string) (string, error) {
	start := strings.IndexByte(text, '"')
	if start == -1 {
		return "", errors.Errorf("invalid PWD reply: %s", text)
	}

	var b strings.Builder
	for i := start + 1; i < len(text); i++ {
		if text[i] != '"' {
			b.WriteByte(text[i])
			continue
		}
		if i+1 < len(text) && text[i+1] == '"' {
			b.WriteByte('"')
			i++
			continue
		}
		return b.String(), nil
	}
	return "", errors.Errorf("invalid PWD reply: %s", text)
}

// ChangeDir changes the current working directory.
func (c *Client) ChangeDir(path string) error {
	_, err := c.expect2xx("CWD", path)
	return err
}

// ChangeToParent changes the working directory to its parent.
func (c *Client) ChangeToParent() error {
	_, err := c.expect2xx("CDUP")
	return err
}

// MakeDir creates a new directory.
func (c *Client) MakeDir(path string) error {
	_, err := c.expect2xx("MKD", path)
	return err
}

// RemoveDir removes an empty directory.
func (c *Client) RemoveDir(path string) error {
	_, err := c.expect2xx("RMD", path)
	return err
}

// Delete deletes a file.
func (c *Client) Delete(path string) error {
	_, err := c.expect2xx("DELE", path)
	return err
}

// Rename renames a file or directory.
func (c *Client) Rename(from, to string) error {
	reply, err := c.control.SendCommand("RNFR", from)
	if err != nil {
		return err
	}
	if err := Classify("RNFR", reply); err != nil {
		return err
	}
	if reply.Code != CodeFileActionPending {
		return &ReplyError{Kind: KindUnknown, Command: "RNFR", Code: reply.Code, Message: reply.Text}
	}

	_, err = c.expect2xx("RNTO", to)
	return err
}

// NameLines returns the raw lines of a LIST reply for path.
// If path is empty, it lists the current directory.
func (c *Client) NameLines(path string) ([]string, error) {
	var lines []string
	err := c.transfer("LIST", path, func(data *DataConn) error {
		var err error
		lines, err = data.ReadLines()
		return err
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// List returns the entries of path, or of the current directory if path is
// empty. Lines that are not Unix-style entries, such as "total 12", are
// skipped.
//
// Example:
//
//	entries, err := client.List("/pub")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, entry := range entries {
//	    fmt.Printf("%s: %d bytes (dir=%v)\n", entry.Name, entry.Size, entry.IsDir())
//	}
func (c *Client) List(path string) ([]*Entry, error) {
	lines, err := c.NameLines(path)
	if err != nil {
		return nil, err
	}

	entries := make([]*Entry, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "total ") {
			continue
		}
		entry, err := ParseEntry(line)
		if err != nil {
			c.logger.Debug("skipping unparsable LIST line", "raw", line, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
