package request

import (
	"errors"
	"testing"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Request
	}{
		{
			"simple GET",
			"GET http://example.com/index.html HTTP/1.1\r\n",
			Request{Method: "GET", Target: "http://example.com/index.html", Version: "HTTP/1.1"},
		},
		{
			"no trailing CRLF",
			"GET http://a.com/ HTTP/1.0",
			Request{Method: "GET", Target: "http://a.com/", Version: "HTTP/1.0"},
		},
		{
			"extra spaces between tokens",
			"GET  http://a.com/   HTTP/1.1\r\n",
			Request{Method: "GET", Target: "http://a.com/", Version: "HTTP/1.1"},
		},
		{
			"non-GET method",
			"POST http://a.com/ HTTP/1.0\r\n",
			Request{Method: "POST", Target: "http://a.com/", Version: "HTTP/1.0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLine(tt.line)
			if err != nil {
				t.Fatalf("ParseLine(%q) error = %v", tt.line, err)
			}
			if got != tt.want {
				t.Errorf("ParseLine(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseLine_Malformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"blank line", "\r\n"},
		{"one token", "GET\r\n"},
		{"two tokens", "GET http://a.com/\r\n"},
		{"four tokens", "GET http://a.com/ HTTP/1.1 junk\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLine(tt.line)
			if !errors.Is(err, ErrMalformedLine) {
				t.Errorf("ParseLine(%q) error = %v, want %v", tt.line, err, ErrMalformedLine)
			}
		})
	}
}
