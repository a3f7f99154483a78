// Package target decomposes absolute-form request URIs into host, port and path.
package target

import (
	"errors"
	"strings"
)

const schemePrefix = "http://"

// maxPathBytes bounds the path component copied out of a request target.
const maxPathBytes = 8192

var (
	ErrMissingScheme = errors.New("request target lacks http:// prefix")
	ErrEmptyHost     = errors.New("request target has empty host")
	ErrEmptyPort     = errors.New("request target has empty port")
	ErrPathTooLong   = errors.New("request target path exceeds maximum length")
)

// Target is the destination extracted from an absolute-form URI.
// Path keeps its leading slash and is empty (not "/") when the URI
// stops at the host or port.
type Target struct {
	Host string
	Port string
	Path string
}

// Addr returns the dial address as host:port.
func (t Target) Addr() string {
	return t.Host + ":" + t.Port
}

// Parse splits an absolute-form URI of the shape http://host[:port][/path]
// into its components. The port defaults to "80" when absent. Targets
// without the literal http:// prefix are rejected rather than decomposed
// into garbage.
func Parse(raw string) (Target, error) {
	if !strings.HasPrefix(raw, schemePrefix) {
		return Target{}, ErrMissingScheme
	}
	rest := raw[len(schemePrefix):]

	// Host runs until ':', '/', space or end of input.
	i := 0
	for i < len(rest) && rest[i] != ':' && rest[i] != '/' && rest[i] != ' ' {
		i++
	}
	host := rest[:i]
	if host == "" {
		return Target{}, ErrEmptyHost
	}

	// An explicit port runs from after the ':' until '/', space or end.
	port := "80"
	if i < len(rest) && rest[i] == ':' {
		j := i + 1
		for j < len(rest) && rest[j] != '/' && rest[j] != ' ' {
			j++
		}
		port = rest[i+1 : j]
		if port == "" {
			return Target{}, ErrEmptyPort
		}
		i = j
	}

	// The path, when present, is the remainder starting at the '/'.
	path := ""
	if i < len(rest) && rest[i] == '/' {
		path = rest[i:]
		if len(path) > maxPathBytes {
			return Target{}, ErrPathTooLong
		}
	}

	return Target{Host: host, Port: port, Path: path}, nil
}
