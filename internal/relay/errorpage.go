package relay

import (
	"fmt"
	"io"
)

// Buffer bounds for the generated error response. A header block or body
// that would exceed its bound is dropped silently rather than truncated.
const (
	maxErrorHeaderBytes = 8192
	maxErrorBodyBytes   = 8192
)

const errorBodyTemplate = "<!DOCTYPE html>\r\n" +
	"<html>\r\n" +
	"<head><title>Tiny Error</title></head>\r\n" +
	"<body bgcolor=\"ffffff\">\r\n" +
	"<h1>%s: %s</h1>\r\n" +
	"<p>%s</p>\r\n" +
	"<hr /><em>The Tiny Web server</em>\r\n" +
	"</body></html>\r\n"

// WriteError sends a complete HTTP/1.0 error response to the client: status
// line, Content-Type and an exact Content-Length, then the fixed HTML body.
// Oversized output is dropped without writing anything.
func WriteError(w io.Writer, code, short, long string) error {
	body := fmt.Sprintf(errorBodyTemplate, code, short, long)
	if len(body) > maxErrorBodyBytes {
		return nil
	}

	header := fmt.Sprintf("HTTP/1.0 %s %s\r\nContent-Type: text/html\r\nContent-Length: %d\r\n\r\n",
		code, short, len(body))
	if len(header) > maxErrorHeaderBytes {
		return nil
	}

	if _, err := io.WriteString(w, header); err != nil {
		return fmt.Errorf("write error response headers: %w", err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return fmt.Errorf("write error response body: %w", err)
	}
	return nil
}
