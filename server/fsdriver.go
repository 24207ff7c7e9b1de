package server

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// errInvalidPath marks a path that PathJail rejected or that failed the
// command's existence/type precondition (maps to "550 Invalid filepath" /
// "550 Invalid directory" depending on the caller).
var errInvalidPath = errors.New("invalid path")

// errRemoveFailed marks a directory that resolved fine but could not
// actually be removed (e.g. not empty) — maps to "550 Unable to delete
// directory", distinct from errInvalidPath.
var errRemoveFailed = errors.New("unable to delete directory")

// fsDriver implements Driver against a single jailed directory tree,
// authenticating against a fixed login/password map (or accepting
// anything when auth is disabled).
type fsDriver struct {
	root         string
	jail         *pathJail
	afs          afero.Fs
	users        map[string]string
	authDisabled bool
}

// NewFSDriver validates root and builds a Driver backed by an afero
// filesystem scoped to it. users maps login names to passwords; pass nil
// when authDisabled is true and no credential checking is needed.
func NewFSDriver(root string, users map[string]string, authDisabled bool) (Driver, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("root path validation failed: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path is not a directory: %s", root)
	}

	jail, err := newPathJail(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root path: %w", err)
	}

	return &fsDriver{
		root:         jail.root,
		jail:         jail,
		afs:          afero.NewBasePathFs(afero.NewOsFs(), jail.root),
		users:        users,
		authDisabled: authDisabled,
	}, nil
}

// Authenticate implements Driver. Anonymous and auth-disabled logins never
// check the password; otherwise the login must be in the user database
// with a matching password.
func (d *fsDriver) Authenticate(user, pass string) (ClientContext, error) {
	if !d.authDisabled && user != "anonymous" {
		want, ok := d.users[user]
		if !ok || want != pass {
			return nil, os.ErrPermission
		}
	}
	return &fsContext{driver: d, cwd: d.root}, nil
}

// fsContext is the per-session view of the jailed tree; cwd is always a
// canonical absolute path equal to or inside driver.root (invariant 6).
type fsContext struct {
	driver *fsDriver
	cwd    string
}

func (c *fsContext) GetWd() (string, error) { return c.cwd, nil }

func (c *fsContext) relPath(abs string) string {
	rel, err := filepath.Rel(c.driver.root, abs)
	if err != nil || rel == "." {
		return "/"
	}
	return "/" + filepath.ToSlash(rel)
}

func (c *fsContext) ChangeDir(path string) error {
	canon, ok := c.driver.jail.resolve(c.cwd, path)
	if !ok {
		return errInvalidPath
	}
	info, err := c.driver.afs.Stat(c.relPath(canon))
	if err != nil || !info.IsDir() {
		return errInvalidPath
	}
	c.cwd = canon
	return nil
}

func (c *fsContext) MakeDir(path string) error {
	canon, ok := c.driver.jail.resolveForCreate(c.cwd, path)
	if !ok {
		return errInvalidPath
	}
	rel := c.relPath(canon)
	if _, err := c.driver.afs.Stat(rel); err == nil {
		return errInvalidPath
	}
	if err := c.driver.afs.Mkdir(rel, 0o755); err != nil {
		return errInvalidPath
	}
	return nil
}

func (c *fsContext) RemoveDir(path string) error {
	canon, ok := c.driver.jail.resolve(c.cwd, path)
	if !ok {
		return errInvalidPath
	}
	rel := c.relPath(canon)
	info, err := c.driver.afs.Stat(rel)
	if err != nil || !info.IsDir() {
		return errInvalidPath
	}
	if err := c.driver.afs.Remove(rel); err != nil {
		return errRemoveFailed
	}
	return nil
}

func (c *fsContext) DeleteFile(path string) error {
	canon, ok := c.driver.jail.resolve(c.cwd, path)
	if !ok {
		return errInvalidPath
	}
	rel := c.relPath(canon)
	info, err := c.driver.afs.Stat(rel)
	if err != nil || info.IsDir() {
		return errInvalidPath
	}
	return c.driver.afs.Remove(rel)
}

func (c *fsContext) ListDir(path string) ([]os.FileInfo, error) {
	canon, ok := c.driver.jail.resolve(c.cwd, path)
	if !ok {
		return nil, errInvalidPath
	}
	rel := c.relPath(canon)
	info, err := c.driver.afs.Stat(rel)
	if err != nil || !info.IsDir() {
		return nil, errInvalidPath
	}
	return afero.ReadDir(c.driver.afs, rel)
}

// OpenFile opens path for reading (flag == os.O_RDONLY, must already
// exist as a regular file) or for writing/appending (parent directory
// must already exist within the jail; the leaf may or may not exist).
func (c *fsContext) OpenFile(path string, flag int) (io.ReadWriteCloser, error) {
	if flag == os.O_RDONLY {
		canon, ok := c.driver.jail.resolve(c.cwd, path)
		if !ok {
			return nil, errInvalidPath
		}
		rel := c.relPath(canon)
		info, err := c.driver.afs.Stat(rel)
		if err != nil || info.IsDir() {
			return nil, errInvalidPath
		}
		return c.driver.afs.OpenFile(rel, flag, 0o644)
	}

	canon, ok := c.driver.jail.resolveForCreate(c.cwd, path)
	if !ok {
		return nil, errInvalidPath
	}
	return c.driver.afs.OpenFile(c.relPath(canon), flag, 0o644)
}

func (c *fsContext) GetFileInfo(path string) (os.FileInfo, error) {
	canon, ok := c.driver.jail.resolve(c.cwd, path)
	if !ok {
		return nil, errInvalidPath
	}
	return c.driver.afs.Stat(c.relPath(canon))
}

func (c *fsContext) Close() error { return nil }
