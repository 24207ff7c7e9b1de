package ftpclient

import (
	"bytes"
	"fmt"
	"io"
)

// Store uploads r to remotePath via STOR.
func (c *Client) Store(remotePath string, r io.Reader) error {
	dataConn, err := c.cmdDataConnFrom("STOR", remotePath)
	if err != nil {
		return err
	}
	_, copyErr := io.Copy(dataConn, r)
	finishErr := c.finishDataConn(dataConn)
	if copyErr != nil {
		return fmt.Errorf("store: %w", copyErr)
	}
	return finishErr
}

// Append appends r to remotePath via APPE.
func (c *Client) Append(remotePath string, r io.Reader) error {
	dataConn, err := c.cmdDataConnFrom("APPE", remotePath)
	if err != nil {
		return err
	}
	_, copyErr := io.Copy(dataConn, r)
	finishErr := c.finishDataConn(dataConn)
	if copyErr != nil {
		return fmt.Errorf("append: %w", copyErr)
	}
	return finishErr
}

// Retrieve downloads remotePath into w via RETR.
func (c *Client) Retrieve(remotePath string, w io.Writer) error {
	dataConn, err := c.cmdDataConnFrom("RETR", remotePath)
	if err != nil {
		return err
	}
	_, copyErr := io.Copy(w, dataConn)
	finishErr := c.finishDataConn(dataConn)
	if copyErr != nil {
		return fmt.Errorf("retrieve: %w", copyErr)
	}
	return finishErr
}

// RetrieveRaw downloads remotePath without applying any transfer-mode
// decoding, so the caller can inspect the raw Block/Compressed framing.
func (c *Client) RetrieveRaw(remotePath string) ([]byte, error) {
	dataConn, err := c.cmdDataConnFrom("RETR", remotePath)
	if err != nil {
		return nil, err
	}
	raw, copyErr := io.ReadAll(dataConn)
	finishErr := c.finishDataConn(dataConn)
	if copyErr != nil {
		return nil, fmt.Errorf("retrieve raw: %w", copyErr)
	}
	return raw, finishErr
}

// StoreRaw uploads already mode-encoded bytes verbatim.
func (c *Client) StoreRaw(remotePath string, raw []byte) error {
	return c.Store(remotePath, bytes.NewReader(raw))
}
