package ftp

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Entry is one line of a Unix-style LIST reply.
type Entry struct {
	Permissions string
	Links       int
	Owner       string
	Group       string
	Size        int64
	Month       string
	Day         int
	Time        string // "15:04" for recent files, the year otherwise
	Name        string
	Target      string // For symlinks, the target path
	Raw         string // The raw line from the LIST command
}

// IsDir reports whether the entry is a directory.
func (e *Entry) IsDir() bool {
	return strings.HasPrefix(e.Permissions, "d")
}

// IsLink reports whether the entry is a symbolic link.
func (e *Entry) IsLink() bool {
	return strings.HasPrefix(e.Permissions, "l")
}

// ParseEntry parses one `ls -l` style line:
//
//	-rw-r--r--   1 owner  group      4096 Mar 14 09:26 notes.txt
//
// Servers that omit the group column (8 fields) are accepted too. File names
// may contain spaces; for symlinks "name -> target" is split.
func ParseEntry(line string) (*Entry, error) {
	fields := strings.Fields(line)
	if len(fields) < 8 {
		return nil, errors.Errorf("too few fields in listing line %q", line)
	}
	if !isPermissions(fields[0]) {
		return nil, errors.Errorf("invalid permissions in listing line %q", line)
	}

	links, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, errors.Wrapf(err, "invalid link count in listing line %q", line)
	}

	entry := &Entry{
		Permissions: fields[0],
		Links:       links,
		Owner:       fields[2],
		Raw:         line,
	}

	// perms links owner group size month day time name...
	// perms links owner size month day time name...
	rest := fields[3:]
	if len(fields) >= 9 {
		if size, err := strconv.ParseInt(fields[4], 10, 64); err == nil {
			entry.Group = fields[3]
			entry.Size = size
			rest = fields[5:]
		}
	}
	if entry.Group == "" {
		size, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid size in listing line %q", line)
		}
		entry.Size = size
		rest = fields[4:]
	}

	entry.Month = rest[0]
	entry.Day, err = strconv.Atoi(rest[1])
	if err != nil {
		return nil, errors.Wrapf(err, "invalid day in listing line %q", line)
	}
	entry.Time = rest[2]

	name := strings.Join(rest[3:], " ")
	if entry.IsLink() {
		if before, after, ok := strings.Cut(name, " -> "); ok {
			name = before
			entry.Target = after
		}
	}
	entry.Name = name

	return entry, nil
}

func isPermissions(s string) bool {
	if len(s) != 10 {
		return false
	}
	return strings.IndexByte("-dlbcps", s[0]) >= 0
}
