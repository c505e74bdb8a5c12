package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.tmp")
	dst := filepath.Join(dir, "nested", "b.wav")
	if err := os.WriteFile(src, []byte("pcm"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := MakeDir(filepath.Dir(dst)); err != nil {
		t.Fatal(err)
	}
	if err := MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source still exists after move")
	}
	if err := MoveFile(src, dst); err == nil {
		t.Error("expected error moving a missing file")
	}
}

func TestDirSize(t *testing.T) {
	dir := t.TempDir()
	if err := MakeDir(filepath.Join(dir, "sub")); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(dir, "one"), make([]byte, 10), 0o644)
	os.WriteFile(filepath.Join(dir, "sub", "two"), make([]byte, 32), 0o644)

	if got := DirSize(dir); got != 42 {
		t.Errorf("DirSize = %d, want 42", got)
	}
	if got := DirSize(filepath.Join(dir, "missing")); got != 0 {
		t.Errorf("DirSize of missing dir = %d, want 0", got)
	}
}
