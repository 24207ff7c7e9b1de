package server

import (
	"fmt"
	"io"
	"net"
	"time"
)

// dataConnTimeout bounds how long a session will wait for a data connection
// to be accepted or dialed, and the I/O on it once established.
const dataConnTimeout = 60 * time.Second

// openDataConn returns the data connection armed by the most recent PORT or
// PASV command. Passive listeners accept exactly one connection and are
// closed immediately after, whether or not the accept succeeds.
func (s *session) openDataConn() (net.Conn, error) {
	if s.pasvListener != nil {
		ln := s.pasvListener
		s.pasvListener = nil
		defer ln.Close()

		if t, ok := ln.(*net.TCPListener); ok {
			_ = t.SetDeadline(time.Now().Add(dataConnTimeout))
		}
		conn, err := ln.Accept()
		if err != nil {
			return nil, err
		}
		return conn, nil
	}

	if s.activeAddr != "" {
		addr := s.activeAddr
		s.activeAddr = ""
		conn, err := net.DialTimeout("tcp", addr, dataConnTimeout)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}

	return nil, fmt.Errorf("no data connection configured")
}

// sendData writes payload, framed per the session's transfer mode, to a
// freshly opened data connection.
func (s *session) sendData(payload []byte) error {
	conn, err := s.openDataConn()
	if err != nil {
		return err
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(dataConnTimeout))

	encoded := encodeMode(s.mode, payload)
	if _, err := conn.Write(encoded); err != nil {
		return err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.CloseWrite()
	}
	return nil
}

// receiveData reads an entire data connection to completion and decodes it
// per the session's transfer mode.
func (s *session) receiveData() ([]byte, error) {
	conn, err := s.openDataConn()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(dataConnTimeout))

	raw, err := io.ReadAll(conn)
	if err != nil {
		return nil, err
	}
	return decodeMode(s.mode, raw)
}
