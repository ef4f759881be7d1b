package whois

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/text/encoding/unicode"
)

const (
	DefaultServer           = "whois.cctld.uz"
	DefaultPort             = 43
	DefaultTimeout          = 10 * time.Second
	DefaultMaxResponseBytes = 1 << 20
)

// ErrorKind classifies a transport failure of a lookup.
type ErrorKind string

const (
	ErrNone              ErrorKind = ""
	ErrTimeout           ErrorKind = "timeout"
	ErrResolutionFailure ErrorKind = "resolution_failure"
	ErrConnectionRefused ErrorKind = "connection_refused"
	ErrOther             ErrorKind = "other"
	// ErrSkipped marks a lookup that was never attempted, e.g. after cancellation.
	ErrSkipped ErrorKind = "skipped"
)

// Response is the outcome of a single lookup. Exactly one of Text or Err is meaningful.
type Response struct {
	Text string
	// Err is set when the connection, write or read failed.
	Err ErrorKind
	// Detail carries the underlying error message for diagnostics.
	Detail   string
	Duration time.Duration
	// Truncated is set when the reply exceeded MaxResponseBytes and was cut.
	Truncated bool
}

// Failed reports whether the lookup hit a transport error.
func (r Response) Failed() bool {
	return r.Err != ErrNone
}

// Config defines the registry endpoint and per-lookup bounds.
type Config struct {
	Server  string
	Port    int
	Timeout time.Duration
	// MaxResponseBytes caps how much of a reply is read.
	MaxResponseBytes int64
	Logger           *slog.Logger
}

// Client queries a WHOIS server, one connection per query.
type Client struct {
	cfg    Config
	dialer *net.Dialer
	logger *slog.Logger
}

// NewClient creates a Client, filling zero config values with the .uz defaults.
func NewClient(cfg Config) *Client {
	if cfg.Server == "" {
		cfg.Server = DefaultServer
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = DefaultMaxResponseBytes
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		dialer: &net.Dialer{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Addr returns the host:port the client dials.
func (c *Client) Addr() string {
	return net.JoinHostPort(c.cfg.Server, strconv.Itoa(c.cfg.Port))
}

// Lookup sends domain to the server and reads the reply until the server closes
// the connection. Failures are reported through Response.Err, never as an error.
func (c *Client) Lookup(ctx context.Context, domain string) Response {
	start := time.Now()
	raw, err := c.query(ctx, domain)
	resp := Response{Duration: time.Since(start)}
	if err != nil {
		resp.Err = Kind(err)
		resp.Detail = err.Error()
		return resp
	}
	if int64(len(raw)) > c.cfg.MaxResponseBytes {
		raw = raw[:c.cfg.MaxResponseBytes]
		resp.Truncated = true
		c.logger.Debug("whois reply truncated", "domain", domain, "limit", c.cfg.MaxResponseBytes)
	}
	resp.Text = decode(raw)
	return resp
}

func (c *Client) query(ctx context.Context, domain string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	conn, err := c.dialer.DialContext(ctx, "tcp", c.Addr())
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.Addr(), err)
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	// Unblock the read if the caller cancels before the deadline.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if _, err := io.WriteString(conn, domain+"\r\n"); err != nil {
		return nil, fmt.Errorf("write query: %w", err)
	}

	// One byte past the limit tells a cut reply from one that fits exactly.
	raw, err := io.ReadAll(io.LimitReader(conn, c.cfg.MaxResponseBytes+1))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, fmt.Errorf("read reply: %w", ctxErr)
		}
		return nil, fmt.Errorf("read reply: %w", err)
	}

	return raw, nil
}

// decode turns registry bytes into text, replacing invalid UTF-8 sequences.
func decode(raw []byte) string {
	out, err := unicode.UTF8.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

// Kind maps a dial/read error to its ErrorKind.
func Kind(err error) ErrorKind {
	if err == nil {
		return ErrNone
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return ErrTimeout
		}
		return ErrResolutionFailure
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return ErrConnectionRefused
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}

	return ErrOther
}
