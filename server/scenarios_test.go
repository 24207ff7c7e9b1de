package server

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/arnegrim/goftpd/internal/ftpclient"
)

// startTestServer boots a server rooted at a fresh temp dir with
// authentication disabled and returns the client-facing address.
func startTestServer(t *testing.T) (addr string, root string) {
	t.Helper()

	root = t.TempDir()
	driver, err := NewFSDriver(root, nil, true)
	if err != nil {
		t.Fatalf("NewFSDriver: %v", err)
	}

	srv, err := NewServer("127.0.0.1:0", WithDriver(driver))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	go srv.Serve(ln)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	return ln.Addr().String(), root
}

func dialAndLogin(t *testing.T, addr string) *ftpclient.Client {
	t.Helper()
	c, err := ftpclient.Dial(addr, ftpclient.WithTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if err := c.Login("anonymous", ""); err != nil {
		t.Fatalf("Login: %v", err)
	}
	return c
}

func TestScenario_Minimal(t *testing.T) {
	addr, _ := startTestServer(t)
	c := dialAndLogin(t, addr)
	defer c.Quit()

	payload := []byte("hello from the minimal scenario\n")
	if err := c.StoreRaw("greeting.txt", payload); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, err := c.RetrieveRaw("greeting.txt")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("got %q, want %q", got, payload)
	}
}

func TestScenario_DirCreation(t *testing.T) {
	addr, _ := startTestServer(t)
	c := dialAndLogin(t, addr)
	defer c.Quit()

	if err := c.MakeDir("a"); err != nil {
		t.Fatalf("MakeDir a: %v", err)
	}
	if err := c.ChangeDir("a"); err != nil {
		t.Fatalf("ChangeDir a: %v", err)
	}
	if err := c.MakeDir("b"); err != nil {
		t.Fatalf("MakeDir b: %v", err)
	}

	names, err := c.NameList("")
	if err != nil {
		t.Fatalf("NameList: %v", err)
	}
	if len(names) != 1 || names[0] != "b" {
		t.Errorf("NameList = %v, want [b]", names)
	}

	if err := c.RemoveDir("b"); err != nil {
		t.Fatalf("RemoveDir b: %v", err)
	}
}

func TestScenario_ChangeDirAndCdup(t *testing.T) {
	addr, _ := startTestServer(t)
	c := dialAndLogin(t, addr)
	defer c.Quit()

	if err := c.MakeDir("nested"); err != nil {
		t.Fatalf("MakeDir: %v", err)
	}
	if err := c.ChangeDir("nested"); err != nil {
		t.Fatalf("ChangeDir: %v", err)
	}
	if err := c.ChangeDirUp(); err != nil {
		t.Fatalf("ChangeDirUp: %v", err)
	}
	if err := c.RemoveDir("nested"); err != nil {
		t.Fatalf("RemoveDir: %v", err)
	}
}

func TestScenario_AppendThenDelete(t *testing.T) {
	addr, _ := startTestServer(t)
	c := dialAndLogin(t, addr)
	defer c.Quit()

	if err := c.StoreRaw("log.txt", []byte("line1\nline2\n")); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := c.Append("log.txt", strings.NewReader("line3\nline4\n")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := c.RetrieveRaw("log.txt")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	want := "line1\nline2\nline3\nline4\n"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}

	if err := c.Delete("log.txt"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestScenario_ModeBlockRoundTrip(t *testing.T) {
	addr, _ := startTestServer(t)
	c := dialAndLogin(t, addr)
	defer c.Quit()

	if err := c.Mode("B"); err != nil {
		t.Fatalf("Mode B: %v", err)
	}

	payload := []byte("block mode payload, exercised end to end")
	if err := c.StoreRaw("block.bin", encodeBlock(payload)); err != nil {
		t.Fatalf("Store: %v", err)
	}
	raw, err := c.RetrieveRaw("block.bin")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	got, err := decodeBlock(raw)
	if err != nil {
		t.Fatalf("decodeBlock: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("got %q, want %q", got, payload)
	}
}

func TestScenario_ModeCompressedRoundTrip(t *testing.T) {
	addr, _ := startTestServer(t)
	c := dialAndLogin(t, addr)
	defer c.Quit()

	if err := c.Mode("C"); err != nil {
		t.Fatalf("Mode C: %v", err)
	}

	payload := []byte("compressed mode payload, exercised end to end")
	if err := c.StoreRaw("compressed.bin", encodeCompressed(payload)); err != nil {
		t.Fatalf("Store: %v", err)
	}
	raw, err := c.RetrieveRaw("compressed.bin")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	got, err := decodeCompressed(raw)
	if err != nil {
		t.Fatalf("decodeCompressed: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("got %q, want %q", got, payload)
	}
}

func TestScenario_JailRejectsEscape(t *testing.T) {
	addr, root := startTestServer(t)
	c := dialAndLogin(t, addr)
	defer c.Quit()

	if err := os.WriteFile(filepath.Join(filepath.Dir(root), "secret.txt"), []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := c.ChangeDir("../"); err == nil {
		t.Error("expected CWD above root to fail")
	}
	if _, err := c.RetrieveRaw("../secret.txt"); err == nil {
		t.Error("expected RETR above root to fail")
	}
}
