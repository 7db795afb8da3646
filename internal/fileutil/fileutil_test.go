package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "EN_001.wav")
	dst := filepath.Join(dir, "copy.wav")

	content := []byte("verified copy content")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFileVerified(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
}

func TestCopyFileVerified_MissingSource(t *testing.T) {
	dir := t.TempDir()
	err := CopyFileVerified(filepath.Join(dir, "nonexistent"), filepath.Join(dir, "dst.bin"))
	if err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestDirIsEmpty(t *testing.T) {
	dir := t.TempDir()

	empty, err := DirIsEmpty(filepath.Join(dir, "missing"))
	if err != nil || !empty {
		t.Fatalf("missing dir: empty=%v err=%v", empty, err)
	}
	empty, err = DirIsEmpty(dir)
	if err != nil || !empty {
		t.Fatalf("new dir: empty=%v err=%v", empty, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "conversation.csv"), []byte("id\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	empty, err = DirIsEmpty(dir)
	if err != nil || empty {
		t.Fatalf("populated dir: empty=%v err=%v", empty, err)
	}
}

func TestEnsureDirsAndExists(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := EnsureDirs(nested, filepath.Join(root, "c")); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	if Exists(nested) {
		t.Fatal("directories should not count as existing files")
	}
	file := filepath.Join(nested, "x.wav")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !Exists(file) {
		t.Fatal("expected file to exist")
	}
}

func TestRelativeTo(t *testing.T) {
	root := filepath.Join("/", "release")
	tests := []struct {
		path string
		want string
	}{
		{filepath.Join(root, "fragments-short", "EN_001_1.wav"), "fragments-short/EN_001_1.wav"},
		{filepath.Join("/", "elsewhere", "x.wav"), filepath.Join("/", "elsewhere", "x.wav")},
		{"fragments-long/EN_001_#1.wav", "fragments-long/EN_001_#1.wav"},
	}
	for _, tt := range tests {
		if got := RelativeTo(root, tt.path); got != tt.want {
			t.Errorf("RelativeTo(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
