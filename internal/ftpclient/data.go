package ftpclient

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"time"
)

var pasvRegex = regexp.MustCompile(`\((\d+),(\d+),(\d+),(\d+),(\d+),(\d+)\)`)

// parsePASV extracts the "h1,h2,h3,h4,p1,p2" tuple from a 227 reply.
func parsePASV(response string) (string, error) {
	m := pasvRegex.FindStringSubmatch(response)
	if len(m) != 7 {
		return "", fmt.Errorf("invalid PASV response: %s", response)
	}
	var h [4]int
	for i := range 4 {
		v, err := strconv.Atoi(m[i+1])
		if err != nil || v < 0 || v > 255 {
			return "", fmt.Errorf("invalid PASV IP part: %s", m[i+1])
		}
		h[i] = v
	}
	host := fmt.Sprintf("%d.%d.%d.%d", h[0], h[1], h[2], h[3])

	p1, err1 := strconv.Atoi(m[5])
	p2, err2 := strconv.Atoi(m[6])
	if err1 != nil || err2 != nil || p1 < 0 || p1 > 255 || p2 < 0 || p2 > 255 {
		return "", fmt.Errorf("invalid PASV port parts: %s, %s", m[5], m[6])
	}
	return net.JoinHostPort(host, strconv.Itoa(p1*256+p2)), nil
}

// formatPORT converts "ip:port" into the PORT command's "h1,h2,h3,h4,p1,p2" form.
func formatPORT(addr string) (string, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", err
	}
	ip := net.ParseIP(host).To4()
	if ip == nil {
		return "", fmt.Errorf("PORT requires an IPv4 address, got %s", host)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", fmt.Errorf("invalid port: %s", portStr)
	}
	return fmt.Sprintf("%d,%d,%d,%d,%d,%d", ip[0], ip[1], ip[2], ip[3], port/256, port%256), nil
}

func (c *Client) openDataConn() (net.Conn, error) {
	if c.activeMode {
		return c.openActiveDataConn()
	}
	return c.openPassiveDataConn()
}

// activeDataConn wraps a listener so the accept happens lazily, after the
// transfer command has been sent.
type activeDataConn struct {
	listener net.Listener
	conn     net.Conn
	timeout  time.Duration
}

func (a *activeDataConn) accept() error {
	if a.timeout > 0 {
		if l, ok := a.listener.(*net.TCPListener); ok {
			_ = l.SetDeadline(time.Now().Add(a.timeout))
		}
	}
	conn, err := a.listener.Accept()
	if err != nil {
		return err
	}
	a.conn = conn
	return nil
}

func (a *activeDataConn) Read(p []byte) (int, error) {
	if a.conn == nil {
		if err := a.accept(); err != nil {
			return 0, err
		}
	}
	if a.timeout > 0 {
		_ = a.conn.SetReadDeadline(time.Now().Add(a.timeout))
	}
	return a.conn.Read(p)
}

func (a *activeDataConn) Write(p []byte) (int, error) {
	if a.conn == nil {
		if err := a.accept(); err != nil {
			return 0, err
		}
	}
	if a.timeout > 0 {
		_ = a.conn.SetWriteDeadline(time.Now().Add(a.timeout))
	}
	return a.conn.Write(p)
}

func (a *activeDataConn) Close() error {
	var err1, err2 error
	if a.conn != nil {
		err1 = a.conn.Close()
	}
	if a.listener != nil {
		err2 = a.listener.Close()
	}
	if err1 != nil {
		return err1
	}
	return err2
}

func (a *activeDataConn) LocalAddr() net.Addr {
	if a.conn != nil {
		return a.conn.LocalAddr()
	}
	return a.listener.Addr()
}
func (a *activeDataConn) RemoteAddr() net.Addr {
	if a.conn != nil {
		return a.conn.RemoteAddr()
	}
	return nil
}
func (a *activeDataConn) SetDeadline(t time.Time) error {
	if a.conn != nil {
		return a.conn.SetDeadline(t)
	}
	return nil
}
func (a *activeDataConn) SetReadDeadline(t time.Time) error {
	if a.conn != nil {
		return a.conn.SetReadDeadline(t)
	}
	return nil
}
func (a *activeDataConn) SetWriteDeadline(t time.Time) error {
	if a.conn != nil {
		return a.conn.SetWriteDeadline(t)
	}
	return nil
}

func (c *Client) openActiveDataConn() (net.Conn, error) {
	localHost, _, err := net.SplitHostPort(c.conn.LocalAddr().String())
	if err != nil {
		localHost = "127.0.0.1"
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(localHost, "0"))
	if err != nil {
		return nil, fmt.Errorf("listen for active data conn: %w", err)
	}

	portCmd, err := formatPORT(listener.Addr().String())
	if err != nil {
		listener.Close()
		return nil, fmt.Errorf("format PORT: %w", err)
	}

	resp, err := c.sendCommand("PORT", portCmd)
	if err != nil {
		listener.Close()
		return nil, fmt.Errorf("PORT failed: %w", err)
	}
	if !resp.Is2xx() {
		listener.Close()
		return nil, &ProtocolError{Command: "PORT", Response: resp.Message, Code: resp.Code}
	}

	return &activeDataConn{listener: listener, timeout: c.timeout}, nil
}

func (c *Client) openPassiveDataConn() (net.Conn, error) {
	resp, err := c.sendCommand("PASV")
	if err != nil {
		return nil, fmt.Errorf("PASV failed: %w", err)
	}
	if !resp.Is2xx() {
		return nil, &ProtocolError{Command: "PASV", Response: resp.Message, Code: resp.Code}
	}

	addr, err := parsePASV(resp.Message)
	if err != nil {
		return nil, err
	}

	dataConn, err := c.dialer.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial data port: %w", err)
	}
	if c.timeout > 0 {
		return &deadlineConn{Conn: dataConn, timeout: c.timeout}, nil
	}
	return dataConn, nil
}

type deadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *deadlineConn) Read(b []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(b)
}

func (c *deadlineConn) Write(b []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Write(b)
}

// cmdDataConnFrom opens the data connection (honoring active/passive mode),
// then sends cmd and returns the connection for the caller to stream through.
func (c *Client) cmdDataConnFrom(cmd string, args ...string) (net.Conn, error) {
	dataConn, err := c.openDataConn()
	if err != nil {
		return nil, err
	}

	resp, err := c.sendCommand(cmd, args...)
	if err != nil {
		dataConn.Close()
		return nil, err
	}
	if resp.Code < 100 || resp.Code >= 400 {
		dataConn.Close()
		return nil, &ProtocolError{Command: cmd, Response: resp.Message, Code: resp.Code}
	}
	return dataConn, nil
}

// finishDataConn closes the data connection and reads the closing reply.
func (c *Client) finishDataConn(dataConn net.Conn) error {
	if err := dataConn.Close(); err != nil {
		return fmt.Errorf("close data conn: %w", err)
	}
	if c.timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}
	}
	resp, err := readResponse(c.reader)
	if err != nil {
		return fmt.Errorf("read completion response: %w", err)
	}
	if !resp.Is2xx() {
		return &ProtocolError{Command: "DATA_TRANSFER", Response: resp.Message, Code: resp.Code}
	}
	return nil
}
