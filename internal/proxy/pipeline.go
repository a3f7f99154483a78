// Package proxy implements the per-connection forwarding pipeline and the
// accept loop that feeds it.
package proxy

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/lisa9300/HTTP-Proxy/internal/config"
	"github.com/lisa9300/HTTP-Proxy/internal/metrics"
	"github.com/lisa9300/HTTP-Proxy/internal/relay"
	"github.com/lisa9300/HTTP-Proxy/internal/request"
	"github.com/lisa9300/HTTP-Proxy/internal/target"
)

// userAgent is sent upstream in place of whatever the client supplied.
const userAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:3.10.0) Gecko/20240719 Firefox/63.0.1"

// Pipeline drives one client connection from request-line read to teardown.
// A Pipeline is immutable after construction and shared by all workers.
type Pipeline struct {
	logger  *slog.Logger
	metrics *metrics.Metrics

	// dial opens the upstream connection; swappable for tests.
	dial func(network, addr string) (net.Conn, error)

	maxLineBytes     int
	relayBufferBytes int
}

// NewPipeline creates a Pipeline.
func NewPipeline(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		logger:           logger.With("component", "pipeline"),
		metrics:          m,
		dial:             net.Dial,
		maxLineBytes:     cfg.Server.MaxLineBytes,
		relayBufferBytes: cfg.Server.RelayBufferBytes,
	}
}

// Run serves one client connection to completion. The client socket is
// closed by the caller, never here; the upstream socket, once opened, is
// always closed before Run returns.
func (p *Pipeline) Run(conn net.Conn) {
	start := time.Now()
	p.metrics.ConnectionsInFlight.Inc()
	defer p.metrics.ConnectionsInFlight.Dec()

	outcome, bytesOut := p.run(conn)

	label := metrics.NormalizeOutcome(outcome)
	p.metrics.ConnectionsTotal.WithLabelValues(label).Inc()
	p.metrics.ConnectionDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())

	p.logger.Info("connection",
		"peer", conn.RemoteAddr().String(),
		"outcome", outcome,
		"bytes_out", bytesOut,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// run walks the connection through the pipeline states and returns the
// terminal outcome plus the bytes relayed back to the client. Every failure
// tears the connection down silently; only an unsupported method produces
// client-visible output.
func (p *Pipeline) run(conn net.Conn) (string, int64) {
	br := bufio.NewReaderSize(conn, p.maxLineBytes)

	line, err := relay.ReadLine(br)
	if err != nil || line == "" {
		return metrics.OutcomeEmptyRequest, 0
	}

	req, err := request.ParseLine(line)
	if err != nil {
		return metrics.OutcomeBadRequestLine, 0
	}

	if req.Method != "GET" {
		_ = relay.WriteError(conn, "501", "Not Implemented", "Tiny does not implement this method")
		return metrics.OutcomeNotImplemented, 0
	}

	tgt, err := target.Parse(req.Target)
	if err != nil {
		p.logger.Debug("bad request target", "target", req.Target, "err", err)
		return metrics.OutcomeBadTarget, 0
	}

	upstream, err := p.dial("tcp", tgt.Addr())
	if err != nil {
		p.metrics.UpstreamDials.WithLabelValues("error").Inc()
		p.logger.Debug("upstream dial failed", "addr", tgt.Addr(), "err", err)
		return metrics.OutcomeConnectFailed, 0
	}
	defer upstream.Close()
	p.metrics.UpstreamDials.WithLabelValues("ok").Inc()

	sent, err := p.sendRequest(upstream, br, req, tgt)
	p.metrics.RelayedBytes.WithLabelValues("upstream").Add(float64(sent))
	if err != nil {
		p.logger.Debug("upstream write failed", "addr", tgt.Addr(), "err", err)
		return metrics.OutcomeWriteFailed, 0
	}

	received, err := relay.CopyResponse(conn, upstream, make([]byte, p.relayBufferBytes))
	p.metrics.RelayedBytes.WithLabelValues("downstream").Add(float64(received))
	if err != nil {
		return metrics.OutcomeRelayFailed, received
	}
	return metrics.OutcomeRelayed, received
}

// sendRequest writes the rewritten request to upstream: the downgraded
// request line, the four synthesized headers, the surviving client headers,
// then the blank-line terminator. Returns bytes written upstream.
func (p *Pipeline) sendRequest(upstream net.Conn, br *bufio.Reader, req request.Request, tgt target.Target) (int64, error) {
	var written int64

	// The protocol version is always downgraded to 1.0 so the origin closes
	// the connection after one response. A target with no path segment keeps
	// its empty path, exactly as received.
	n, err := fmt.Fprintf(upstream, "%s %s HTTP/1.0\r\n", req.Method, tgt.Path)
	written += int64(n)
	if err != nil {
		return written, fmt.Errorf("write request line: %w", err)
	}

	n, err = fmt.Fprintf(upstream, "Host: %s:%s\r\nUser-Agent: %s\r\nConnection: close\r\nProxy-Connection: close\r\n",
		tgt.Host, tgt.Port, userAgent)
	written += int64(n)
	if err != nil {
		return written, fmt.Errorf("write synthesized headers: %w", err)
	}

	fn, err := relay.ForwardHeaders(br, upstream)
	written += fn
	if err != nil {
		return written, err
	}

	wn, err := io.WriteString(upstream, "\r\n")
	written += int64(wn)
	if err != nil {
		return written, fmt.Errorf("write header terminator: %w", err)
	}
	return written, nil
}
