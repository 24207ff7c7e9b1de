package server

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPathJail_ResolveWithinRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	jail, err := newPathJail(root)
	if err != nil {
		t.Fatal(err)
	}

	resolved, ok := jail.resolve(root, "sub")
	if !ok {
		t.Fatal("expected sub to resolve")
	}
	want, _ := filepath.EvalSymlinks(filepath.Join(root, "sub"))
	if resolved != want {
		t.Errorf("resolved = %q, want %q", resolved, want)
	}
}

func TestPathJail_RejectsEscape(t *testing.T) {
	root := t.TempDir()
	jail, err := newPathJail(root)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := jail.resolve(root, "../outside"); ok {
		t.Error("expected escape via .. to be rejected")
	}
	if _, ok := jail.resolve(root, "a/../../b"); ok {
		t.Error("expected escape via nested .. to be rejected")
	}
}

func TestPathJail_RejectsSymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()

	if err := os.Symlink(outside, filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	jail, err := newPathJail(root)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := jail.resolve(root, "link"); ok {
		t.Error("expected symlink escape to be rejected")
	}
}

func TestPathJail_ResolveForCreate(t *testing.T) {
	root := t.TempDir()
	jail, err := newPathJail(root)
	if err != nil {
		t.Fatal(err)
	}

	resolved, ok := jail.resolveForCreate(root, "newfile.txt")
	if !ok {
		t.Fatal("expected resolveForCreate to succeed for a nonexistent leaf")
	}
	want := filepath.Join(root, "newfile.txt")
	if resolved != want {
		t.Errorf("resolved = %q, want %q", resolved, want)
	}

	if _, ok := jail.resolveForCreate(root, "../escape.txt"); ok {
		t.Error("expected resolveForCreate to reject an escaping parent")
	}
}

func TestPathJail_AbsolutePathReanchorsToRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	jail, err := newPathJail(root)
	if err != nil {
		t.Fatal(err)
	}

	resolved, ok := jail.resolve(root, "/sub")
	if !ok {
		t.Fatal("expected absolute path to resolve within root")
	}
	want, _ := filepath.EvalSymlinks(filepath.Join(root, "sub"))
	if resolved != want {
		t.Errorf("resolved = %q, want %q", resolved, want)
	}
}
