// Package relay implements the byte-level plumbing between a client
// connection and its upstream origin: line reading, header filtering,
// the response copy loop and the canned error page.
package relay

import (
	"bufio"
	"errors"
)

var ErrLineTooLong = errors.New("line exceeds read buffer")

// ReadLine reads one line, terminator included, from a bounded reader.
// A line longer than the reader's buffer is an error, not a partial
// result. EOF before any bytes yields an empty string and the EOF.
func ReadLine(br *bufio.Reader) (string, error) {
	b, err := br.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		return "", ErrLineTooLong
	}
	if err != nil {
		return string(b), err
	}
	return string(b), nil
}
