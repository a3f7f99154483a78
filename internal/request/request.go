// Package request parses HTTP request lines read off a client connection.
package request

import (
	"errors"
	"strings"
)

var ErrMalformedLine = errors.New("malformed request line")

// Request is the parsed first line of a client request. It is built once
// per connection and never mutated afterwards.
type Request struct {
	Method  string
	Target  string
	Version string
}

// ParseLine tokenizes one request line of the form
// "METHOD SP request-target SP HTTP-version CRLF". Runs of whitespace
// between tokens are tolerated; anything other than exactly three tokens
// is malformed. Method policy is the pipeline's concern, not the parser's.
func ParseLine(line string) (Request, error) {
	fields := strings.Fields(strings.TrimRight(line, "\r\n"))
	if len(fields) != 3 {
		return Request{}, ErrMalformedLine
	}
	return Request{
		Method:  fields[0],
		Target:  fields[1],
		Version: fields[2],
	}, nil
}
