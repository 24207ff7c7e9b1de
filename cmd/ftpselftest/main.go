// Command ftpselftest drives a running ftpd instance through each of the
// end-to-end scenarios used to validate the server, the way tests.py
// drove the original implementation: pick one scenario with --test, print
// "ok" or "fail".
package main

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/arnegrim/goftpd/internal/ftpclient"
)

func main() {
	var (
		addr     string
		test     string
		login    string
		password string
		active   bool
	)

	cmd := &cobra.Command{
		Use:   "ftpselftest",
		Short: "Exercise a running ftpd instance end to end",
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario, ok := scenarios[test]
			if !ok {
				return fmt.Errorf("unknown --test %q (choices: %s)", test, scenarioNames())
			}

			opts := []ftpclient.Option{ftpclient.WithTimeout(10 * time.Second)}
			if active {
				opts = append(opts, ftpclient.WithActiveMode())
			}

			c, err := ftpclient.Dial(addr, opts...)
			if err != nil {
				fmt.Println("fail")
				return err
			}
			defer c.Quit()

			if err := c.Login(login, password); err != nil {
				fmt.Println("fail")
				return err
			}

			if err := scenario(c); err != nil {
				fmt.Println("fail")
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:2121", "ftpd address to connect to")
	cmd.Flags().StringVar(&test, "test", "minimal", "scenario to run: "+scenarioNames())
	cmd.Flags().StringVar(&login, "login", "anonymous", "login name")
	cmd.Flags().StringVar(&password, "password", "", "login password")
	cmd.Flags().BoolVar(&active, "active", false, "use active (PORT) instead of passive (PASV) data connections")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var scenarios = map[string]func(*ftpclient.Client) error{
	"minimal":         scenarioMinimal,
	"dir":             scenarioDirCreation,
	"cd":              scenarioChangeDir,
	"append-delete":   scenarioAppendDelete,
	"mode-block":      scenarioModeBlock,
	"mode-compressed": scenarioModeCompressed,
	"port-validation": scenarioPortValidation,
}

func scenarioNames() string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	return fmt.Sprint(names)
}

func scenarioMinimal(c *ftpclient.Client) error {
	payload := []byte("ftpselftest minimal scenario\n")
	if err := c.StoreRaw("selftest-minimal.txt", payload); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	got, err := c.RetrieveRaw("selftest-minimal.txt")
	if err != nil {
		return fmt.Errorf("retrieve: %w", err)
	}
	if !bytes.Equal(got, payload) {
		return fmt.Errorf("round trip mismatch: got %q, want %q", got, payload)
	}
	return c.Delete("selftest-minimal.txt")
}

func scenarioDirCreation(c *ftpclient.Client) error {
	if err := c.MakeDir("selftest-dir"); err != nil {
		return fmt.Errorf("mkd: %w", err)
	}
	if err := c.ChangeDir("selftest-dir"); err != nil {
		return fmt.Errorf("cwd: %w", err)
	}
	if err := c.MakeDir("nested"); err != nil {
		return fmt.Errorf("mkd nested: %w", err)
	}
	names, err := c.NameList("")
	if err != nil {
		return fmt.Errorf("nlst: %w", err)
	}
	if len(names) != 1 || names[0] != "nested" {
		return fmt.Errorf("nlst = %v, want [nested]", names)
	}
	if err := c.RemoveDir("nested"); err != nil {
		return fmt.Errorf("rmd nested: %w", err)
	}
	if err := c.ChangeDirUp(); err != nil {
		return fmt.Errorf("cdup: %w", err)
	}
	return c.RemoveDir("selftest-dir")
}

func scenarioChangeDir(c *ftpclient.Client) error {
	if err := c.MakeDir("selftest-cd"); err != nil {
		return fmt.Errorf("mkd: %w", err)
	}
	if err := c.ChangeDir("selftest-cd"); err != nil {
		return fmt.Errorf("cwd: %w", err)
	}
	if err := c.ChangeDirUp(); err != nil {
		return fmt.Errorf("cdup: %w", err)
	}
	return c.RemoveDir("selftest-cd")
}

func scenarioAppendDelete(c *ftpclient.Client) error {
	if err := c.StoreRaw("selftest-append.txt", []byte("line1\nline2\n")); err != nil {
		return fmt.Errorf("stor: %w", err)
	}
	if err := c.Append("selftest-append.txt", bytes.NewReader([]byte("line3\nline4\n"))); err != nil {
		return fmt.Errorf("appe: %w", err)
	}
	got, err := c.RetrieveRaw("selftest-append.txt")
	if err != nil {
		return fmt.Errorf("retr: %w", err)
	}
	want := "line1\nline2\nline3\nline4\n"
	if string(got) != want {
		return fmt.Errorf("got %q, want %q", got, want)
	}
	return c.Delete("selftest-append.txt")
}

func scenarioModeBlock(c *ftpclient.Client) error {
	return scenarioMode(c, "B")
}

func scenarioModeCompressed(c *ftpclient.Client) error {
	return scenarioMode(c, "C")
}

// scenarioMode frames the payload for the active mode before STOR (a real
// Block/Compressed-mode client must do this; the server decodes whatever
// it receives, per datachannel.go's receiveData) and decodes what comes
// back from RETR the same way, matching tests.py's run_test_mode_send.
func scenarioMode(c *ftpclient.Client, mode string) error {
	if err := c.Mode(mode); err != nil {
		return fmt.Errorf("mode %s: %w", mode, err)
	}
	payload := []byte("ftpselftest mode scenario payload")
	name := "selftest-mode-" + mode + ".bin"

	var framed []byte
	switch mode {
	case "B":
		framed = encodeBlockFrame(payload)
	case "C":
		framed = encodeCompressedFrame(payload)
	default:
		return fmt.Errorf("unsupported mode %q", mode)
	}

	if err := c.StoreRaw(name, framed); err != nil {
		return fmt.Errorf("stor: %w", err)
	}

	raw, err := c.RetrieveRaw(name)
	if err != nil {
		return fmt.Errorf("retr: %w", err)
	}

	var got []byte
	switch mode {
	case "B":
		got, err = decodeBlockFrame(raw)
	case "C":
		got, err = decodeCompressedFrame(raw)
	}
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if !bytes.Equal(got, payload) {
		return fmt.Errorf("round trip mismatch: got %q, want %q", got, payload)
	}

	if err := c.Mode("S"); err != nil {
		return fmt.Errorf("mode S: %w", err)
	}
	return c.Delete(name)
}

// The helpers below frame bytes for the wire exactly as server/modecodec.go
// does. A client dialing a real Block/Compressed-mode FTP server has to
// implement this framing itself; it can't reach into the server's codec.

const maxBlockFrameLength = 1<<16 - 1

func encodeBlockFrame(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+3)
	i := 0
	for {
		remaining := len(payload) - i
		n := remaining
		if n > maxBlockFrameLength {
			n = maxBlockFrameLength
		}
		chunk := payload[i : i+n]
		i += n
		last := i == len(payload)

		flag := byte(0x00)
		if last {
			flag = 0x40
		}
		out = append(out, flag, byte(n/256), byte(n%256))
		out = append(out, chunk...)

		if last {
			return out
		}
	}
}

func decodeBlockFrame(raw []byte) ([]byte, error) {
	out := make([]byte, 0, len(raw))
	i := 0
	for i < len(raw) {
		if i+3 > len(raw) {
			return nil, fmt.Errorf("truncated block header at offset %d", i)
		}
		length := int(raw[i+1])*256 + int(raw[i+2])
		i += 3
		if i+length > len(raw) {
			return nil, fmt.Errorf("truncated block payload at offset %d", i)
		}
		out = append(out, raw[i:i+length]...)
		i += length
	}
	return out, nil
}

const maxCompressedFrameLiteral = 1<<7 - 1

func encodeCompressedFrame(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+len(payload)/maxCompressedFrameLiteral+1)
	i := 0
	for i < len(payload) {
		n := len(payload) - i
		if n > maxCompressedFrameLiteral {
			n = maxCompressedFrameLiteral
		}
		out = append(out, byte(n))
		out = append(out, payload[i:i+n]...)
		i += n
	}
	return out
}

func decodeCompressedFrame(raw []byte) ([]byte, error) {
	out := make([]byte, 0, len(raw))
	i := 0
	for i < len(raw) {
		d := raw[i]
		i++
		switch {
		case d&0x80 == 0:
			n := int(d)
			if i+n > len(raw) {
				return nil, fmt.Errorf("truncated literal run at offset %d", i)
			}
			out = append(out, raw[i:i+n]...)
			i += n
		case d&0xC0 == 0x80:
			if i >= len(raw) {
				return nil, fmt.Errorf("truncated replicated-byte descriptor at offset %d", i)
			}
			b := raw[i]
			i++
			count := int(d & 0x3F)
			for k := 0; k < count; k++ {
				out = append(out, b)
			}
		default:
			n := int(d & 0x3F)
			if i+n > len(raw) {
				return nil, fmt.Errorf("truncated filler descriptor at offset %d", i)
			}
			i += n
		}
	}
	return out, nil
}

// scenarioPortValidation stores and deletes a file in Stream mode over the
// configured data connection, so with --active it checks that a PORT naming
// the client's own address is accepted. It does not send a PORT naming a
// foreign address, so the server's rejection path is not exercised.
func scenarioPortValidation(c *ftpclient.Client) error {
	if err := c.Mode("S"); err != nil {
		return fmt.Errorf("mode S: %w", err)
	}
	payload := []byte("port validation payload")
	if err := c.StoreRaw("selftest-port.txt", payload); err != nil {
		return fmt.Errorf("stor: %w", err)
	}
	return c.Delete("selftest-port.txt")
}
