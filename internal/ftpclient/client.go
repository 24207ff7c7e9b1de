package ftpclient

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"time"
)

// Client is a minimal FTP client: one control connection, one data
// connection open at a time, strictly sequential command/response.
type Client struct {
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration
	logger  *slog.Logger
	dialer  *net.Dialer

	host string
	port string

	activeMode  bool
	currentType string
}

// Option configures a Client at Dial time.
type Option func(*Client)

// WithTimeout sets the read/write/accept timeout used for every operation.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger enables debug logging of the command/response conversation.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithActiveMode makes data connections use PORT instead of PASV.
func WithActiveMode() Option {
	return func(c *Client) { c.activeMode = true }
}

// Dial connects to addr ("host:port") and reads the greeting.
func Dial(addr string, opts ...Option) (*Client, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}

	c := &Client{
		host:    host,
		port:    port,
		timeout: 30 * time.Second,
		dialer:  &net.Dialer{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.dialer.Timeout = c.timeout

	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	addr := net.JoinHostPort(c.host, c.port)
	conn, err := c.dialer.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)

	if c.timeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			conn.Close()
			return fmt.Errorf("set read deadline: %w", err)
		}
	}

	resp, err := readResponse(c.reader)
	if err != nil {
		conn.Close()
		return fmt.Errorf("read greeting: %w", err)
	}
	if resp.Code != 220 {
		conn.Close()
		return &ProtocolError{Command: "CONNECT", Response: resp.Message, Code: resp.Code}
	}
	return nil
}

// Login sends USER and, if required, PASS.
func (c *Client) Login(user, pass string) error {
	resp, err := c.sendCommand("USER", user)
	if err != nil {
		return err
	}
	if resp.Code == 230 {
		return nil
	}
	if resp.Code != 331 {
		return &ProtocolError{Command: "USER", Response: resp.Message, Code: resp.Code}
	}
	_, err = c.expectCode(230, "PASS", pass)
	return err
}

// Type sets the transfer type, skipping a redundant TYPE command.
func (c *Client) Type(t string) error {
	if c.currentType == t {
		return nil
	}
	if _, err := c.expectCode(200, "TYPE", t); err != nil {
		return err
	}
	c.currentType = t
	return nil
}

// Mode sets the transfer mode (S/B/C).
func (c *Client) Mode(mode string) error {
	_, err := c.expectCode(200, "MODE", mode)
	return err
}

// Noop sends NOOP.
func (c *Client) Noop() error {
	_, err := c.expect2xx("NOOP")
	return err
}

// Quit sends QUIT and closes the connection.
func (c *Client) Quit() error {
	if c.conn == nil {
		return nil
	}
	_, _ = c.sendCommand("QUIT")
	return c.conn.Close()
}
