package server

import (
	"bytes"
	"log/slog"
	"os"
	"testing"
	"time"
)

func newTestDriver(t *testing.T) Driver {
	t.Helper()
	driver, err := NewFSDriver(t.TempDir(), nil, true)
	if err != nil {
		t.Fatalf("NewFSDriver: %v", err)
	}
	return driver
}

func TestWithDriver(t *testing.T) {
	driver := newTestDriver(t)

	s, err := NewServer(":0", WithDriver(driver))
	if err != nil {
		t.Errorf("expected success, got error: %v", err)
	}
	if s.driver == nil {
		t.Error("driver not set")
	}

	_, err = NewServer(":0", WithDriver(driver), WithDriver(driver))
	if err == nil {
		t.Error("expected error when setting driver twice")
	}
}

func TestWithLogger(t *testing.T) {
	driver := newTestDriver(t)
	customLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s, err := NewServer(":0", WithDriver(driver), WithLogger(customLogger))
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if s.logger != customLogger {
		t.Error("custom logger not set")
	}
}

func TestWithMaxIdleTime(t *testing.T) {
	driver := newTestDriver(t)
	custom := 10 * time.Minute

	s, err := NewServer(":0", WithDriver(driver), WithMaxIdleTime(custom))
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if s.maxIdleTime != custom {
		t.Errorf("expected idle time %v, got %v", custom, s.maxIdleTime)
	}
}

func TestWithMaxConnections(t *testing.T) {
	driver := newTestDriver(t)

	s, err := NewServer(":0", WithDriver(driver), WithMaxConnections(50))
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if s.maxConnections != 50 {
		t.Errorf("expected max connections 50, got %d", s.maxConnections)
	}

	s2, err := NewServer(":0", WithDriver(driver), WithMaxConnections(0))
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if s2.maxConnections != 0 {
		t.Errorf("expected max connections 0, got %d", s2.maxConnections)
	}
}

func TestNewServer_RequiresDriver(t *testing.T) {
	_, err := NewServer(":0")
	if err == nil {
		t.Error("expected error when driver is not provided")
	}
}

func TestNewServer_Defaults(t *testing.T) {
	driver := newTestDriver(t)

	s, err := NewServer(":0", WithDriver(driver))
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	if s.logger == nil {
		t.Error("default logger not set")
	}
	if s.maxIdleTime != 60*time.Second {
		t.Errorf("expected default idle time 60s, got %v", s.maxIdleTime)
	}
	if s.maxConnections != 0 {
		t.Errorf("expected default max connections 0, got %d", s.maxConnections)
	}
	if s.welcomeMessage != "220 FTP server ready" {
		t.Errorf("expected default welcome message, got %q", s.welcomeMessage)
	}
	if s.readTimeout != 0 {
		t.Errorf("expected default read timeout 0, got %v", s.readTimeout)
	}
	if s.writeTimeout != 0 {
		t.Errorf("expected default write timeout 0, got %v", s.writeTimeout)
	}
}

func TestWithWelcomeMessage(t *testing.T) {
	driver := newTestDriver(t)
	custom := "220 Welcome to My FTP Server"

	s, err := NewServer(":0", WithDriver(driver), WithWelcomeMessage(custom))
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if s.welcomeMessage != custom {
		t.Errorf("expected welcome message %q, got %q", custom, s.welcomeMessage)
	}
}

func TestWithReadTimeout(t *testing.T) {
	driver := newTestDriver(t)
	custom := 30 * time.Second

	s, err := NewServer(":0", WithDriver(driver), WithReadTimeout(custom))
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if s.readTimeout != custom {
		t.Errorf("expected read timeout %v, got %v", custom, s.readTimeout)
	}
}

func TestWithWriteTimeout(t *testing.T) {
	driver := newTestDriver(t)
	custom := 30 * time.Second

	s, err := NewServer(":0", WithDriver(driver), WithWriteTimeout(custom))
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if s.writeTimeout != custom {
		t.Errorf("expected write timeout %v, got %v", custom, s.writeTimeout)
	}
}

func TestWithTransferLog(t *testing.T) {
	driver := newTestDriver(t)
	var buf bytes.Buffer

	s, err := NewServer(":0", WithDriver(driver), WithTransferLog(&buf))
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if s.transferLog != &buf {
		t.Error("transfer log writer not set")
	}
}
