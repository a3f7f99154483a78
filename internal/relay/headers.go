package relay

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// suppressedHeaderPrefixes are client header lines never forwarded upstream;
// the pipeline substitutes its own versions of all four.
var suppressedHeaderPrefixes = []string{
	"Host:",
	"Connection:",
	"User-Agent:",
	"Proxy-Connection:",
}

// ForwardHeaders streams client header lines to w until the blank-line
// terminator or end of input. Lines matching one of the suppressed header
// prefixes are dropped; every other line is forwarded byte-for-byte,
// terminator included. The blank line itself is consumed but not written —
// the caller emits its own terminator after its synthesized headers.
// Returns the bytes written to w; the first write failure aborts the scan.
func ForwardHeaders(br *bufio.Reader, w io.Writer) (int64, error) {
	var written int64
	for {
		line, err := ReadLine(br)
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, fmt.Errorf("read header line: %w", err)
		}
		if line == "\r\n" {
			return written, nil
		}
		if suppressed(line) {
			continue
		}
		n, err := io.WriteString(w, line)
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("forward header line: %w", err)
		}
	}
}

func suppressed(line string) bool {
	for _, prefix := range suppressedHeaderPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
