package server

// handleUSER records the attempted login name. Anonymous logins, and any
// login when the driver has authentication disabled, succeed immediately
// without a password; everything else waits for PASS.
func (s *session) handleUSER(user string) {
	s.user = user

	if ctx, err := s.server.driver.Authenticate(user, ""); err == nil {
		s.fs = ctx
		s.loggedIn = true
		s.reply(230, "User logged in, proceed")
		return
	}
	s.reply(331, "Need password")
}

func (s *session) handlePASS(pass string) {
	if s.loggedIn {
		s.reply(230, "User logged in, proceed")
		return
	}

	ctx, err := s.server.driver.Authenticate(s.user, pass)
	if err != nil {
		s.server.logger.Warn("authentication failed", "session_id", s.sessionID, "remote_ip", s.remoteIP, "user", s.user)
		s.reply(530, "Wrong username or password")
		return
	}

	s.fs = ctx
	s.loggedIn = true
	s.server.logger.Info("authentication succeeded", "session_id", s.sessionID, "remote_ip", s.remoteIP, "user", s.user)
	s.reply(230, "User logged in, proceed")
}
