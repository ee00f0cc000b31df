package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWithin(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	outside := t.TempDir()
	link := filepath.Join(dir, "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	testCases := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"direct_child", filepath.Join(dir, "a.json"), false},
		{"nested_new_file", filepath.Join(sub, "deep", "b.json"), false},
		{"dot_dot_escape", filepath.Join(dir, "..", "x.json"), true},
		{"sibling_dir", filepath.Join(outside, "c.json"), true},
		{"symlinked_parent", filepath.Join(link, "d.json"), true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Within(tc.path, dir)
			if (err != nil) != tc.wantErr {
				t.Errorf("Within(%q) error = %v, wantErr %v", tc.path, err, tc.wantErr)
			}
		})
	}
}

func TestOutputPath(t *testing.T) {
	tmp := filepath.Join(t.TempDir(), "out.json")
	if got, err := OutputPath(tmp, DesignExts); err != nil || got != tmp {
		t.Errorf("OutputPath(%q) = %q, %v", tmp, got, err)
	}
	if _, err := OutputPath(filepath.Join(t.TempDir(), "out.exe"), DesignExts); err == nil {
		t.Error("OutputPath accepted a foreign extension")
	}
	if _, err := OutputPath("/definitely/not/allowed/out.png", PlotExts); err == nil {
		t.Error("OutputPath accepted a path outside cwd and temp")
	}
}

func TestInputPath(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "d.json")
	if err := os.WriteFile(good, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := InputPath(good, DesignExts, 1024); err != nil {
		t.Errorf("InputPath(good) error = %v", err)
	}
	if _, err := InputPath(good, DesignExts, 1); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("InputPath(size limit) error = %v", err)
	}
	if _, err := InputPath(filepath.Join(dir, "missing.json"), DesignExts, 1024); err == nil {
		t.Error("InputPath accepted a missing file")
	}
	if _, err := InputPath(dir+".json", DesignExts, 1024); err == nil {
		t.Error("InputPath accepted a missing file with the right extension")
	}
}

func TestFileName(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"six helix bundle", "six_helix_bundle"},
		{"../../etc/passwd", "etc_passwd"},
		{"rect-origami_v2.1", "rect-origami_v2.1"},
		{"***", "design"},
		{"", "design"},
		{"a  /  b", "a_b"},
	}
	for _, tc := range testCases {
		if got := FileName(tc.in); got != tc.want {
			t.Errorf("FileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
