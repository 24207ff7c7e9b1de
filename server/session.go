package server

import (
	"bufio"
	"crypto/rand"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"
)

// session represents one FTP client session: one goroutine, one control
// connection, blocking in turn on lineReader.ReadLine and on whatever
// handler it dispatches to. There is no reader goroutine and no background
// transfer goroutine — ABOR and concurrent command processing during a
// transfer are out of scope, so nothing needs the extra concurrency the
// teacher's session used to support them.
type session struct {
	server *Server
	conn   net.Conn
	lr     *lineReader
	writer *bufio.Writer
	mu     sync.Mutex // protects writer

	sessionID string
	remoteIP  string

	loggedIn bool
	user     string
	fs       ClientContext

	mode         transferMode
	transferType string // "A" or "I"; both behave identically (no translation)

	pasvListener net.Listener
	activeAddr   string // host:port armed by PORT, consumed by the next transfer
}

// commandHandlers maps a verb to its handler. USER, PASS, QUIT, and NOOP are
// dispatched specially in handleCommand since they don't fit the uniform
// func(*session, string) shape or need to run before login.
var commandHandlers = map[string]func(*session, string){
	"CWD":  (*session).handleCWD,
	"CDUP": (*session).handleCDUP,
	"MKD":  (*session).handleMKD,
	"RMD":  (*session).handleRMD,
	"DELE": (*session).handleDELE,
	"NLST": (*session).handleNLST,
	"RETR": (*session).handleRETR,
	"STOR": (*session).handleSTOR,
	"APPE": (*session).handleAPPE,
	"TYPE": (*session).handleTYPE,
	"PORT": (*session).handlePORT,
	"PASV": (*session).handlePASV,
	"MODE": (*session).handleMODE,
	"STRU": (*session).handleSTRU,
	"SYST": (*session).handleSYST,
}

func generateSessionID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%08x", b)
}

func newSession(server *Server, conn net.Conn) *session {
	remoteAddr := conn.RemoteAddr().String()
	remoteIP, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		remoteIP = remoteAddr
	}

	return &session{
		server:       server,
		conn:         conn,
		lr:           newLineReader(conn),
		writer:       bufio.NewWriter(conn),
		sessionID:    generateSessionID(),
		remoteIP:     remoteIP,
		transferType: "A",
		mode:         modeStream,
	}
}

// serve drives the session until the client disconnects, QUITs, or the
// connection goes idle past maxIdleTime.
func (s *session) serve() {
	defer s.close()

	s.sendWelcome()
	s.server.logger.Info("session started", "session_id", s.sessionID, "remote_ip", s.remoteIP)

	for {
		readDeadline := s.server.maxIdleTime
		if s.server.readTimeout > 0 {
			readDeadline = s.server.readTimeout
		}
		if readDeadline > 0 {
			_ = s.conn.SetReadDeadline(time.Now().Add(readDeadline))
		}

		line, err := s.lr.ReadLine()
		if err != nil {
			if err != io.EOF && err.Error() != "command too long" {
				s.server.logger.Warn("read error", "session_id", s.sessionID, "error", err)
			}
			if err.Error() == "command too long" {
				s.reply(500, "Command line too long")
			}
			return
		}

		_ = s.conn.SetReadDeadline(time.Time{})
		if s.server.writeTimeout > 0 {
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.server.writeTimeout))
		}

		if !s.handleCommand(line) {
			return
		}

		if s.server.writeTimeout > 0 {
			_ = s.conn.SetWriteDeadline(time.Time{})
		}
	}
}

func (s *session) sendWelcome() {
	s.reply(220, strings.TrimPrefix(s.server.welcomeMessage, "220 "))
}

// handleCommand dispatches one command line. It returns false when the
// session should end, which is after QUIT has been answered.
func (s *session) handleCommand(line string) bool {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return true
	}

	parts := strings.SplitN(line, " ", 2)
	cmd := strings.ToUpper(parts[0])
	arg := ""
	if len(parts) > 1 {
		arg = parts[1]
	}

	logArg := arg
	if cmd == "PASS" {
		logArg = "***"
	}
	s.server.logger.Debug("command received", "session_id", s.sessionID, "user", s.user, "cmd", cmd, "arg", logArg)

	switch cmd {
	case "USER":
		s.handleUSER(arg)
		return true
	case "PASS":
		s.handlePASS(arg)
		return true
	case "QUIT":
		s.reply(221, "Goodbye.")
		return false
	}

	if !s.loggedIn {
		s.reply(530, "Not logged in")
		return true
	}

	if cmd == "NOOP" {
		s.reply(200, "NOOP ok")
		return true
	}

	handler, ok := commandHandlers[cmd]
	if !ok {
		s.reply(500, "Unknown command")
		return true
	}
	handler(s, arg)
	return true
}

func (s *session) close() {
	if s.fs != nil {
		s.fs.Close()
	}
	if s.pasvListener != nil {
		s.pasvListener.Close()
	}
	s.conn.Close()

	s.server.logger.Debug("session closed", "session_id", s.sessionID, "user", s.user)
}

// reply sends a single-line response to the client.
func (s *session) reply(code int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.writer, "%d %s\r\n", code, message)
	s.writer.Flush()
}

// replyError classifies a ClientContext/filesystem error for paths that
// don't already know their exact wire text (used only where the spec's
// reply table doesn't distinguish failure reasons; most handlers instead
// send their own fixed message per the table in session_*.go).
func (s *session) replyError(err error) {
	if os.IsNotExist(err) {
		s.reply(550, "Invalid filepath")
		return
	}
	if os.IsPermission(err) {
		s.reply(550, "Permission denied")
		return
	}
	s.reply(550, "Action failed: "+err.Error())
}

// logTransfer records a completed transfer in xferlog format:
// current-time transfer-time remote-host file-size filename transfer-type
// special-action-flag direction access-mode username service-name
// authentication-method authenticated-user-id completion-status
func (s *session) logTransfer(cmd, filename string, size int64, duration time.Duration) {
	if s.server.transferLog == nil {
		return
	}

	transferTime := int64(duration.Seconds())
	if transferTime == 0 {
		transferTime = 1
	}

	direction := "o"
	if cmd == "STOR" || cmd == "APPE" {
		direction = "i"
	}
	accessMode := "r"
	if s.user == "anonymous" {
		accessMode = "a"
	}

	line := fmt.Sprintf("%s %d %s %d %s b _ %s %s %s ftp 0 * c\n",
		time.Now().Format("Mon Jan 02 15:04:05 2006"),
		transferTime,
		s.remoteIP,
		size,
		filename,
		direction,
		accessMode,
		s.user,
	)
	_, _ = s.server.transferLog.Write([]byte(line))
}
