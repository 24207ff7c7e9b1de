package ftpclient

import "fmt"

// ProtocolError represents an FTP protocol error: a command whose response
// code didn't match what the caller expected.
type ProtocolError struct {
	Command  string
	Response string
	Code     int
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("ftpclient: %s failed: %s (code %d)", e.Command, e.Response, e.Code)
}

func (e *ProtocolError) Is2xx() bool { return e.Code >= 200 && e.Code < 300 }
func (e *ProtocolError) Is5xx() bool { return e.Code >= 500 && e.Code < 600 }
