package proxy

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lisa9300/HTTP-Proxy/internal/config"
	"github.com/lisa9300/HTTP-Proxy/internal/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	cfg, err := config.Load(&config.CLI{Port: 8080})
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return NewPipeline(cfg, testLogger(), metrics.New())
}

// origin is a fake upstream server. It captures each request it receives,
// headers included, and answers with respond(request).
type origin struct {
	addr string
	reqs chan string
}

func startOrigin(t *testing.T, respond func(req string) string) *origin {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	o := &origin{addr: ln.Addr().String(), reqs: make(chan string, 32)}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				br := bufio.NewReader(c)
				var sb strings.Builder
				for {
					line, err := br.ReadString('\n')
					sb.WriteString(line)
					if err != nil || line == "\r\n" {
						break
					}
				}
				req := sb.String()
				o.reqs <- req
				_, _ = io.WriteString(c, respond(req))
			}(conn)
		}
	}()
	return o
}

// received returns the next request the origin saw, or fails the test.
func (o *origin) received(t *testing.T) string {
	t.Helper()
	select {
	case req := <-o.reqs:
		return req
	case <-time.After(5 * time.Second):
		t.Fatal("origin received no request")
		return ""
	}
}

// roundTrip sends raw request bytes through the pipeline over a net.Pipe and
// returns everything written back to the client before teardown.
func roundTrip(t *testing.T, p *Pipeline, rawRequest string) string {
	t.Helper()
	client, server := net.Pipe()
	defer client.Close()

	srv := NewServer(p, testLogger())
	done := make(chan struct{})
	go func() {
		srv.handle(server)
		close(done)
	}()

	if _, err := client.Write([]byte(rawRequest)); err != nil {
		t.Fatalf("write request: %v", err)
	}
	resp, _ := io.ReadAll(client)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not finish")
	}
	return string(resp)
}

func TestPipeline_RelaysGET(t *testing.T) {
	originResponse := "HTTP/1.0 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 5\r\n\r\nhello"
	o := startOrigin(t, func(string) string { return originResponse })

	p := newTestPipeline(t)
	rawRequest := "GET http://" + o.addr + "/index.html HTTP/1.1\r\n" +
		"Host: stale.example.com\r\n" +
		"User-Agent: curl/8.0\r\n" +
		"Connection: keep-alive\r\n" +
		"Proxy-Connection: keep-alive\r\n" +
		"Accept: */*\r\n" +
		"\r\n"

	got := roundTrip(t, p, rawRequest)
	if got != originResponse {
		t.Errorf("client received %q, want the origin response verbatim %q", got, originResponse)
	}

	upstream := o.received(t)
	want := "GET /index.html HTTP/1.0\r\n" +
		"Host: " + o.addr + "\r\n" +
		"User-Agent: " + userAgent + "\r\n" +
		"Connection: close\r\n" +
		"Proxy-Connection: close\r\n" +
		"Accept: */*\r\n" +
		"\r\n"
	if upstream != want {
		t.Errorf("origin received:\n%q\nwant:\n%q", upstream, want)
	}
}

func TestPipeline_EmptyPathQuirk(t *testing.T) {
	// A target with no path segment forwards an empty path token; the
	// origin sees two consecutive spaces in the request line.
	o := startOrigin(t, func(string) string { return "HTTP/1.0 200 OK\r\n\r\n" })

	p := newTestPipeline(t)
	roundTrip(t, p, "GET http://"+o.addr+" HTTP/1.1\r\n\r\n")

	upstream := o.received(t)
	wantLine := "GET  HTTP/1.0\r\n"
	if !strings.HasPrefix(upstream, wantLine) {
		t.Errorf("origin request starts with %q, want %q", upstream[:min(len(upstream), len(wantLine))], wantLine)
	}
}

func TestPipeline_NonGETGets501(t *testing.T) {
	p := newTestPipeline(t)

	for _, method := range []string{"POST", "PUT", "DELETE", "HEAD"} {
		t.Run(method, func(t *testing.T) {
			got := roundTrip(t, p, method+" http://a.com/ HTTP/1.0\r\n\r\n")

			wantBody := "<!DOCTYPE html>\r\n" +
				"<html>\r\n" +
				"<head><title>Tiny Error</title></head>\r\n" +
				"<body bgcolor=\"ffffff\">\r\n" +
				"<h1>501: Not Implemented</h1>\r\n" +
				"<p>Tiny does not implement this method</p>\r\n" +
				"<hr /><em>The Tiny Web server</em>\r\n" +
				"</body></html>\r\n"
			want := fmt.Sprintf("HTTP/1.0 501 Not Implemented\r\nContent-Type: text/html\r\nContent-Length: %d\r\n\r\n%s",
				len(wantBody), wantBody)
			if got != want {
				t.Errorf("client received %q, want the 501 page %q", got, want)
			}
		})
	}
}

func TestPipeline_SilentTeardown(t *testing.T) {
	// Any failure other than an unsupported method closes the connection
	// with zero bytes sent.
	refusedAddr := func() string {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		addr := ln.Addr().String()
		ln.Close()
		return addr
	}()

	tests := []struct {
		name       string
		rawRequest string
	}{
		{"empty request", "\r\n"},
		{"garbage request line", "GARBAGE\r\n\r\n"},
		{"missing scheme", "GET example.com/index.html HTTP/1.1\r\n\r\n"},
		{"relative target", "GET /index.html HTTP/1.1\r\n\r\n"},
		{"connect refused", "GET http://" + refusedAddr + "/ HTTP/1.1\r\n\r\n"},
	}

	p := newTestPipeline(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := roundTrip(t, p, tt.rawRequest); got != "" {
				t.Errorf("client received %q, want nothing", got)
			}
		})
	}
}

func TestPipeline_ConcurrentClientsAreIsolated(t *testing.T) {
	// The origin echoes the request line back in the body, so each client
	// can verify it got its own response and nobody else's.
	o := startOrigin(t, func(req string) string {
		line, _, _ := strings.Cut(req, "\r\n")
		body := "echo: " + line
		return fmt.Sprintf("HTTP/1.0 200 OK\r\nContent-Length: %d\r\n\r\n%s", len(body), body)
	})

	p := newTestPipeline(t)
	const clients = 20

	var wg sync.WaitGroup
	errs := make(chan error, clients)
	for i := range clients {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			path := fmt.Sprintf("/doc/%d", id)
			got := roundTrip(t, p, "GET http://"+o.addr+path+" HTTP/1.1\r\n\r\n")
			wantSuffix := "echo: GET " + path + " HTTP/1.0"
			if !strings.HasSuffix(got, wantSuffix) {
				errs <- fmt.Errorf("client %d received %q, want suffix %q", id, got, wantSuffix)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestServer_ServeEndToEnd(t *testing.T) {
	o := startOrigin(t, func(string) string {
		return "HTTP/1.0 200 OK\r\nContent-Length: 2\r\n\r\nok"
	})

	p := newTestPipeline(t)
	srv := NewServer(p, testLogger())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial proxy: %v", err)
	}
	defer conn.Close()

	if _, err := io.WriteString(conn, "GET http://"+o.addr+"/ HTTP/1.1\r\n\r\n"); err != nil {
		t.Fatalf("write request: %v", err)
	}
	resp, _ := io.ReadAll(conn)
	if string(resp) != "HTTP/1.0 200 OK\r\nContent-Length: 2\r\n\r\nok" {
		t.Errorf("response = %q", resp)
	}

	// Closing the listener ends the accept loop cleanly.
	ln.Close()
	select {
	case err := <-served:
		if err != nil {
			t.Errorf("Serve() error = %v, want nil after listener close", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("Serve() did not return after listener close")
	}
}

func TestPipeline_ClientDisconnectMidRequest(t *testing.T) {
	// A client that vanishes after the request line must not wedge the
	// worker; the pipeline tears down on the failed header read or relay.
	o := startOrigin(t, func(string) string { return "HTTP/1.0 200 OK\r\n\r\n" })

	p := newTestPipeline(t)
	client, server := net.Pipe()

	done := make(chan struct{})
	go func() {
		NewServer(p, testLogger()).handle(server)
		close(done)
	}()

	if _, err := io.WriteString(client, "GET http://"+o.addr+"/ HTTP/1.1\r\nAcc"); err != nil {
		t.Fatalf("write partial request: %v", err)
	}
	client.Close()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not terminate after client disconnect")
	}
}
