package ftp

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// MLEntry is one machine-readable directory entry from MLST or MLSD
// (RFC 3659).
type MLEntry struct {
	// Name is the file or directory name
	Name string

	// Type is "file", "dir", "cdir", "pdir" or an OS-specific type
	Type string

	// Size is the file size in bytes; zero when the server omits it
	Size int64

	// ModTime is the modification time in UTC
	ModTime time.Time

	// Perm lists the permission letters granted to the user
	Perm string

	// Facts contains all raw facts, keyed by lower-cased name
	Facts map[string]string
}

// IsDir reports whether the entry is a directory.
func (e *MLEntry) IsDir() bool {
	return e.Type == "dir" || e.Type == "cdir" || e.Type == "pdir"
}

// MLStat describes a single path with MLST. The entry is carried on the
// control connection inside a multi-line 250 reply.
func (c *Client) MLStat(path string) (*MLEntry, error) {
	reply, err := c.expect2xx("MLST", path)
	if err != nil {
		return nil, err
	}

	// 250-Listing path
	//  type=file;size=10; path
	// 250 End
	for _, line := range reply.Lines[1:] {
		if !strings.HasPrefix(line, " ") {
			continue
		}
		entry, err := parseMLEntry(strings.TrimPrefix(line, " "))
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse MLST entry")
		}
		return entry, nil
	}
	return nil, errors.Errorf("no entry in MLST reply %q", reply.Text)
}

// MLList lists a directory with MLSD. Lines that cannot be parsed are
// skipped.
func (c *Client) MLList(path string) ([]*MLEntry, error) {
	var lines []string
	err := c.transfer("MLSD", path, func(d *DataConn) error {
		var err error
		lines, err = d.ReadLines()
		return err
	})
	if err != nil {
		return nil, err
	}

	entries := make([]*MLEntry, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entry, err := parseMLEntry(line)
		if err != nil {
			c.logger.Debug("skipping unparsable MLSD line", "line", line, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// parseMLEntry parses "fact1=value1;fact2=value2; name".
func parseMLEntry(line string) (*MLEntry, error) {
	factsStr, name, ok := strings.Cut(line, " ")
	if !ok || name == "" {
		return nil, errors.Errorf("missing name in entry %q", line)
	}

	facts := make(map[string]string)
	for _, pair := range strings.Split(factsStr, ";") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			continue
		}
		facts[strings.ToLower(key)] = value
	}

	entry := &MLEntry{
		Name:  name,
		Type:  strings.ToLower(facts["type"]),
		Perm:  facts["perm"],
		Facts: facts,
	}

	if v, ok := facts["size"]; ok {
		size, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid size fact %q", v)
		}
		entry.Size = size
	}

	if v, ok := facts["modify"]; ok {
		// YYYYMMDDHHMMSS[.sss]
		stamp, _, _ := strings.Cut(v, ".")
		if t, err := time.Parse("20060102150405", stamp); err == nil {
			entry.ModTime = t.UTC()
		}
	}

	return entry, nil
}
