package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_WriteReplaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "design.json")
	var fsys OSFileSystem

	if err := fsys.WriteFile(path, []byte("first"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := fsys.WriteFile(path, []byte("second"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := fsys.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("expected %q, got %q", "second", data)
	}
	info, err := fsys.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected no temporary files left behind, got %d entries", len(entries))
	}
}

func TestOSFileSystem_WriteMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "design.json")
	if err := (OSFileSystem{}).WriteFile(path, []byte("x"), 0o644); err == nil {
		t.Error("expected error writing into a missing directory")
	}
}

func TestOSFileSystem_List(t *testing.T) {
	dir := t.TempDir()
	var fsys OSFileSystem
	for _, name := range []string{"b.json", "a.ENS", "notes.txt"} {
		if err := fsys.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := fsys.MkdirAll(filepath.Join(dir, "sub.json"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := fsys.List(dir, ".json", ".ens")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{filepath.Join(dir, "a.ENS"), filepath.Join(dir, "b.json")}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	all, err := fsys.List(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 files without a filter, got %v", all)
	}
}

func TestExists(t *testing.T) {
	if !Exists(OSFileSystem{}, "filesystem.go") {
		t.Error("expected filesystem.go to exist")
	}
	if Exists(OSFileSystem{}, "nonexistent_file_xyz.go") {
		t.Error("expected nonexistent file to not exist")
	}

	mfs := NewMemoryFileSystem()
	if err := mfs.WriteFile("/designs/a.json", nil, 0o644); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"/designs/a.json", "/designs", "/designs/"} {
		if !Exists(mfs, name) {
			t.Errorf("expected %s to exist", name)
		}
	}
	if Exists(mfs, "/designs/b.json") {
		t.Error("expected /designs/b.json to not exist")
	}
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()

	testData := []byte("hello, world")
	if err := mfs.WriteFile("/test.txt", testData, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data, err := mfs.ReadFile("/./test.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != string(testData) {
		t.Errorf("expected %q, got %q", testData, data)
	}

	// Neither the written nor the returned slice aliases the stored data.
	testData[0] = 'H'
	data[1] = 'E'
	again, _ := mfs.ReadFile("/test.txt")
	if string(again) != "hello, world" {
		t.Errorf("stored data was modified: %q", again)
	}
}

func TestMemoryFileSystem_ReadNonExistent(t *testing.T) {
	_, err := NewMemoryFileSystem().ReadFile("/missing.json")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestMemoryFileSystem_Stat(t *testing.T) {
	mfs := NewMemoryFileSystem()
	if err := mfs.WriteFile("/a/b/c.json", []byte("12345"), 0o640); err != nil {
		t.Fatal(err)
	}

	info, err := mfs.Stat("/a/b/c.json")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Name() != "c.json" || info.Size() != 5 || info.IsDir() {
		t.Errorf("unexpected file info: name=%s size=%d dir=%v", info.Name(), info.Size(), info.IsDir())
	}
	if info.Mode() != 0o640 {
		t.Errorf("expected mode 0640, got %v", info.Mode())
	}
	if info.ModTime().IsZero() {
		t.Error("expected a modification time")
	}

	dir, err := mfs.Stat("/a/b")
	if err != nil {
		t.Fatalf("Stat dir failed: %v", err)
	}
	if !dir.IsDir() {
		t.Error("expected parent to be a directory")
	}

	if _, err := mfs.Stat("/a/x"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestMemoryFileSystem_FileDirConflicts(t *testing.T) {
	mfs := NewMemoryFileSystem()
	if err := mfs.MkdirAll("/out/plots", 0o755); err != nil {
		t.Fatal(err)
	}
	if err := mfs.WriteFile("/out/plots", []byte("x"), 0o644); !errors.Is(err, fs.ErrExist) {
		t.Errorf("expected ErrExist writing over a directory, got %v", err)
	}
	if err := mfs.WriteFile("/out/a.png", []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := mfs.MkdirAll("/out/a.png", 0o755); !errors.Is(err, fs.ErrExist) {
		t.Errorf("expected ErrExist creating a directory over a file, got %v", err)
	}
}

func TestMemoryFileSystem_List(t *testing.T) {
	mfs := NewMemoryFileSystem()
	for _, name := range []string{"/d/b.json", "/d/a.ens", "/d/c.png", "/d/sub/e.json"} {
		if err := mfs.WriteFile(name, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := mfs.List("/d", ".json", ".ens")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 2 || got[0] != "/d/a.ens" || got[1] != "/d/b.json" {
		t.Errorf("unexpected listing %v", got)
	}

	if _, err := mfs.List("/missing"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestMatchExt(t *testing.T) {
	tests := []struct {
		name string
		exts []string
		want bool
	}{
		{"a.json", nil, true},
		{"a.json", []string{".json"}, true},
		{"a.JSON", []string{".json"}, true},
		{"a.json", []string{".JSON"}, true},
		{"a.jsonl", []string{".json"}, false},
		{"json", []string{".json"}, false},
	}
	for _, tt := range tests {
		if got := matchExt(tt.name, tt.exts); got != tt.want {
			t.Errorf("matchExt(%q, %v) = %v, want %v", tt.name, tt.exts, got, tt.want)
		}
	}
}
