// Package security checks the file paths the CLI and server read from and
// write to.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Extensions accepted for each kind of file.
var (
	DesignExts = []string{".json", ".ens"}
	PlotExts   = []string{".png", ".html"}
)

// resolve returns the absolute path with symlinks resolved. A path that does
// not exist yet is resolved through its nearest existing parent, so a link
// in a parent directory cannot redirect a new file.
func resolve(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real, nil
	}
	for dir := filepath.Dir(abs); ; dir = filepath.Dir(dir) {
		if real, err := filepath.EvalSymlinks(dir); err == nil {
			rel, _ := filepath.Rel(dir, abs)
			return filepath.Join(real, rel), nil
		}
		if dir == filepath.Dir(dir) {
			return abs, nil
		}
	}
}

// Within reports an error unless path lies inside dir once both are
// resolved.
func Within(path, dir string) error {
	p, err := resolve(path)
	if err != nil {
		return err
	}
	d, err := resolve(dir)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(d, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path traversal detected: %s escapes %s", path, dir)
	}
	return nil
}

// OutputPath validates a path the CLI is about to write. It must carry one
// of exts and lie in the working directory or the temp directory. It
// returns the cleaned path.
func OutputPath(path string, exts []string) (string, error) {
	clean := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(clean))
	if !slices.Contains(exts, ext) {
		return "", fmt.Errorf("%s: extension must be one of %v", path, exts)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	for _, dir := range []string{cwd, os.TempDir()} {
		if Within(clean, dir) == nil {
			return clean, nil
		}
	}
	return "", fmt.Errorf("%s must be within the working directory or %s", path, os.TempDir())
}

// InputPath validates a design or config file the CLI is about to read: it
// must exist, be a regular file of at most maxBytes and carry one of exts.
func InputPath(path string, exts []string, maxBytes int64) (string, error) {
	clean := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(clean))
	if !slices.Contains(exts, ext) {
		return "", fmt.Errorf("%s: extension must be one of %v", path, exts)
	}
	info, err := os.Stat(clean)
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s is not a regular file", path)
	}
	if info.Size() > maxBytes {
		return "", fmt.Errorf("%s too large: %d bytes (max %d)", path, info.Size(), maxBytes)
	}
	return clean, nil
}

// FileName turns a snapshot or design name into a safe file name stem:
// runs of characters other than ASCII letters, digits, dot, underscore and
// dash become one underscore.
func FileName(s string) string {
	const maxLen = 96
	var b strings.Builder
	under := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
			under = r == '_'
		case !under:
			b.WriteByte('_')
			under = true
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "design"
	}
	return out
}
