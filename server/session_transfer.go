package server

import (
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

func (s *session) handleRETR(path string) {
	start := time.Now()

	file, err := s.fs.OpenFile(path, os.O_RDONLY)
	if err != nil {
		s.reply(550, "Invalid filepath")
		return
	}
	data, err := io.ReadAll(file)
	file.Close()
	if err != nil {
		s.reply(550, "Invalid filepath")
		return
	}

	s.reply(150, "Opening data connection")
	if err := s.sendData(data); err != nil {
		s.replyError(err)
		return
	}
	s.reply(226, "RETR done")
	s.logTransfer("RETR", path, int64(len(data)), time.Since(start))
}

func (s *session) handleSTOR(path string) {
	s.store(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, "STOR")
}

func (s *session) handleAPPE(path string) {
	s.store(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, "APPE")
}

func (s *session) store(path string, flag int, cmd string) {
	start := time.Now()

	file, err := s.fs.OpenFile(path, flag)
	if err != nil {
		s.reply(550, "Invalid filepath")
		return
	}

	s.reply(150, "Opening data connection")
	data, err := s.receiveData()
	if err != nil {
		file.Close()
		s.replyError(err)
		return
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		s.replyError(err)
		return
	}
	file.Close()

	s.reply(226, "STOR DONE")
	s.logTransfer(cmd, path, int64(len(data)), time.Since(start))
}

func (s *session) handleTYPE(arg string) {
	if arg == "" {
		s.reply(500, "Unrecognised TYPE command")
		return
	}
	switch arg[0] {
	case 'A', 'I':
		s.transferType = string(arg[0])
		s.reply(200, "Switching to ASCII mode")
	default:
		s.reply(500, "Unrecognised TYPE command")
	}
}

// handlePORT parses "h1,h2,h3,h4,p1,p2" and arms active mode, rejecting
// targets that don't match the control connection's peer (anti bounce-attack).
func (s *session) handlePORT(arg string) {
	s.closePassive()
	s.activeAddr = ""

	parts := strings.Split(arg, ",")
	if len(parts) != 6 {
		s.reply(500, "Illegal PORT command")
		return
	}

	ip := strings.Join(parts[:4], ".")
	p1, err1 := strconv.Atoi(parts[4])
	p2, err2 := strconv.Atoi(parts[5])
	if err1 != nil || err2 != nil || net.ParseIP(ip) == nil {
		s.reply(500, "Illegal PORT command")
		return
	}

	remoteIP, _, err := net.SplitHostPort(s.conn.RemoteAddr().String())
	if err != nil || ip != remoteIP {
		s.reply(500, "Illegal PORT command")
		return
	}

	port := p1*256 + p2
	s.activeAddr = net.JoinHostPort(ip, strconv.Itoa(port))
	s.reply(200, "PORT command successful")
}

// handlePASV opens a listener on the control connection's own local address
// (the constrained-environment option: no separate advertised public host or
// port-range configuration) and reports it for the client to dial.
func (s *session) handlePASV(_ string) {
	s.closePassive()
	s.activeAddr = ""

	localIP, _, err := net.SplitHostPort(s.conn.LocalAddr().String())
	if err != nil {
		s.reply(500, "Cannot enter passive mode")
		return
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(localIP, "0"))
	if err != nil {
		s.reply(500, "Cannot enter passive mode")
		return
	}
	s.pasvListener = ln

	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)

	text := strings.ReplaceAll(localIP, ".", ",")
	s.reply(227, "Entering Passive Mode ("+text+","+strconv.Itoa(port/256)+","+strconv.Itoa(port%256)+")")
}

func (s *session) closePassive() {
	if s.pasvListener != nil {
		s.pasvListener.Close()
		s.pasvListener = nil
	}
}
