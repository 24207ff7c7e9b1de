package server

import (
	"io"
	"os"
)

// Driver authenticates a user and returns a session-scoped ClientContext.
//
// Implementations should return os.ErrPermission for invalid credentials.
type Driver interface {
	// Authenticate validates user/pass. An implementation with
	// authentication disabled may auto-succeed for any credentials; it
	// still receives user/pass so it can log the attempt.
	Authenticate(user, pass string) (ClientContext, error)
}

// ClientContext isolates filesystem operations to one session's view of
// the jailed root. Paths are always relative to root and use forward
// slashes; the implementation is responsible for PathJail enforcement
// (fsDriver delegates to pathJail, see fsdriver.go).
//
// Error handling: the session answers any error from these methods with
// the command's fixed 550 reply; the only error it tells apart is
// errRemoveFailed from RemoveDir, which gets "550 Unable to delete
// directory" instead of "550 Invalid filepath".
type ClientContext interface {
	ChangeDir(path string) error
	GetWd() (string, error)
	MakeDir(path string) error
	RemoveDir(path string) error
	DeleteFile(path string) error
	ListDir(path string) ([]os.FileInfo, error)
	OpenFile(path string, flag int) (io.ReadWriteCloser, error)
	GetFileInfo(path string) (os.FileInfo, error)
	Close() error
}
