package ftpclient

import (
	"bufio"
	"fmt"
	"net"
	"strings"
)

// NameList lists names under path (or the cwd if path is empty) via NLST.
func (c *Client) NameList(path string) ([]string, error) {
	var dataConn, err = c.nameListConn(path)
	if err != nil {
		return nil, err
	}

	var names []string
	scanner := bufio.NewScanner(dataConn)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name != "" {
			names = append(names, name)
		}
	}
	if err := scanner.Err(); err != nil {
		dataConn.Close()
		return nil, fmt.Errorf("read name list: %w", err)
	}
	if err := c.finishDataConn(dataConn); err != nil {
		return nil, err
	}
	return names, nil
}

func (c *Client) nameListConn(path string) (net.Conn, error) {
	if path == "" {
		return c.cmdDataConnFrom("NLST")
	}
	return c.cmdDataConnFrom("NLST", path)
}

// ChangeDir changes the working directory via CWD.
func (c *Client) ChangeDir(path string) error {
	_, err := c.expect2xx("CWD", path)
	return err
}

// ChangeDirUp moves to the parent directory via CDUP.
func (c *Client) ChangeDirUp() error {
	_, err := c.expect2xx("CDUP")
	return err
}

// MakeDir creates a directory via MKD.
func (c *Client) MakeDir(path string) error {
	_, err := c.expect2xx("MKD", path)
	return err
}

// RemoveDir removes a directory via RMD.
func (c *Client) RemoveDir(path string) error {
	_, err := c.expect2xx("RMD", path)
	return err
}

// Delete removes a file via DELE.
func (c *Client) Delete(path string) error {
	_, err := c.expect2xx("DELE", path)
	return err
}
