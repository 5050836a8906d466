package ftp

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Reply represents one logical FTP server reply.
type Reply struct {
	// Code is the three-digit reply code (e.g., 220, 550)
	Code int

	// Text is the reply text. Multi-line replies are joined with "\n".
	Text string

	// Lines contains the raw lines of the reply as received
	Lines []string
}

// Is2xx returns true if the reply code is in the 2xx range (success).
func (r *Reply) Is2xx() bool {
	return r.Code >= 200 && r.Code < 300
}

// IsPreliminary returns true if the reply code is in the 1xx range.
func (r *Reply) IsPreliminary() bool {
	return r.Code >= 100 && r.Code < 200
}

// String returns the reply as the server sent it.
func (r *Reply) String() string {
	return strings.Join(r.Lines, "\n")
}

// ReadReply reads a complete FTP reply from the reader.
// It handles both single-line and multi-line replies.
//
// Single-line format: "220 Welcome\r\n"
// Multi-line format:
//
//	"220-Welcome to FTP\r\n"
//	"220-This is line 2\r\n"
//	"220 Ready\r\n"
//
// A multi-line reply is complete when a line starts with the code followed
// by a space. Only the first and the last line lose their "<code>-" and
// "<code> " prefixes; lines in between are kept verbatim.
func ReadReply(r *bufio.Reader) (*Reply, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, errors.Wrap(err, "read reply")
	}

	if len(line) < 3 {
		return nil, errors.Wrapf(ErrMalformedReply, "short reply line %q", line)
	}

	prefix := line[:3]
	code, err := strconv.Atoi(prefix)
	if err != nil || !isDigits(prefix) {
		return nil, errors.Wrapf(ErrMalformedReply, "invalid reply code %q", prefix)
	}

	lines := []string{line}
	if len(line) == 3 || line[3] != '-' {
		return &Reply{Code: code, Text: textAfterCode(line), Lines: lines}, nil
	}

	text := []string{line[4:]}
	for {
		line, err = readLine(r)
		if err == io.EOF {
			return nil, errors.Wrapf(ErrMalformedReply, "missing terminator for %d reply: %v", code, io.ErrUnexpectedEOF)
		}
		if err != nil {
			return nil, errors.Wrap(err, "read reply")
		}
		lines = append(lines, line)

		if strings.HasPrefix(line, prefix+" ") {
			text = append(text, line[4:])
			return &Reply{Code: code, Text: strings.Join(text, "\n"), Lines: lines}, nil
		}
		text = append(text, line)
	}
}

// readLine reads one line and strips the CRLF (or bare LF) terminator.
// A final line without terminator is returned as is; io.EOF is returned only
// when nothing was read.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func textAfterCode(line string) string {
	if len(line) <= 4 {
		return ""
	}
	return line[4:]
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
