package server

import "errors"

func (s *session) handleCWD(arg string) {
	if err := s.fs.ChangeDir(arg); err != nil {
		s.reply(550, "Invalid directory")
		return
	}
	s.reply(250, "Directory changed")
}

func (s *session) handleCDUP(_ string) {
	if err := s.fs.ChangeDir(".."); err != nil {
		s.reply(550, "Invalid directory")
		return
	}
	s.reply(250, "Directory changed")
}

func (s *session) handleMKD(arg string) {
	if err := s.fs.MakeDir(arg); err != nil {
		s.reply(550, "Invalid filepath")
		return
	}
	s.reply(226, "MKD done")
}

func (s *session) handleRMD(arg string) {
	err := s.fs.RemoveDir(arg)
	if err == nil {
		s.reply(226, "RMD done")
		return
	}
	if errors.Is(err, errRemoveFailed) {
		s.reply(550, "Unable to delete directory")
		return
	}
	s.reply(550, "Invalid filepath")
}

func (s *session) handleDELE(arg string) {
	if err := s.fs.DeleteFile(arg); err != nil {
		s.reply(550, "Invalid filepath")
		return
	}
	s.reply(250, "DELE done")
}

func (s *session) handleNLST(arg string) {
	entries, err := s.fs.ListDir(arg)
	if err != nil {
		s.reply(550, "Invalid filepath")
		return
	}

	var payload []byte
	for _, e := range entries {
		payload = append(payload, e.Name()...)
		payload = append(payload, '\r', '\n')
	}

	s.reply(150, "Opening data connection")
	if err := s.sendData(payload); err != nil {
		s.replyError(err)
		return
	}
	s.reply(226, "NLST done")
}
