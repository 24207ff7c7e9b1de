package server

import (
	"os"
	"path/filepath"
	"strings"
)

// pathJail resolves client-supplied paths against a session's cwd and
// enforces that the result never escapes root, including via symlinks.
type pathJail struct {
	root string // canonical, absolute
}

func newPathJail(root string) (*pathJail, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	canon, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	return &pathJail{root: canon}, nil
}

// resolve canonicalizes input (absolute paths re-anchor to root, relative
// paths join to cwd) and reports whether the result lies within root.
// The returned path is the canonical absolute path on success; callers
// that need it to not yet exist (MKD, STOR) should canonicalize the
// parent directory instead and join the leaf back on.
func (j *pathJail) resolve(cwd, input string) (resolved string, ok bool) {
	var joined string
	if strings.HasPrefix(input, "/") {
		joined = filepath.Join(j.root, strings.TrimPrefix(input, "/"))
	} else {
		joined = filepath.Join(cwd, input)
	}
	joined = filepath.Clean(joined)

	canon, err := evalSymlinksLenient(joined)
	if err != nil {
		return "", false
	}
	if !j.within(canon) {
		return "", false
	}
	return canon, true
}

// resolveForCreate is like resolve but tolerates a leaf component that does
// not exist yet (MKD, STOR, APPE all create their final path element); only
// the parent directory must already exist and lie within root.
func (j *pathJail) resolveForCreate(cwd, input string) (resolved string, ok bool) {
	var joined string
	if strings.HasPrefix(input, "/") {
		joined = filepath.Join(j.root, strings.TrimPrefix(input, "/"))
	} else {
		joined = filepath.Join(cwd, input)
	}
	joined = filepath.Clean(joined)

	parent := filepath.Dir(joined)
	leaf := filepath.Base(joined)

	canonParent, err := evalSymlinksLenient(parent)
	if err != nil {
		return "", false
	}
	if !j.within(canonParent) {
		return "", false
	}
	full := filepath.Join(canonParent, leaf)
	if fi, err := os.Lstat(full); err == nil && fi.Mode()&os.ModeSymlink != 0 {
		target, err := filepath.EvalSymlinks(full)
		if err != nil || !j.within(target) {
			return "", false
		}
		return target, true
	}
	return full, true
}

// within reports whether p equals root or has root as an ancestor.
func (j *pathJail) within(p string) bool {
	if p == j.root {
		return true
	}
	rel, err := filepath.Rel(j.root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// evalSymlinksLenient resolves symlinks on the longest existing prefix of
// p, falling back progressively toward the root so that paths which don't
// exist yet (but whose existing ancestors might be symlinked) still
// canonicalize correctly.
func evalSymlinksLenient(p string) (string, error) {
	cur := filepath.Clean(p)
	var suffix []string
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			for i := len(suffix) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, suffix[i])
			}
			return filepath.Clean(resolved), nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", err
		}
		suffix = append(suffix, filepath.Base(cur))
		cur = parent
	}
}
