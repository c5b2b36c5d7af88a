package utils

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// EnsureDir creates a directory (and parents) if it doesn't exist
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}

// ListFiles returns the names of the regular, non-hidden files directly inside
// dir, sorted by name. Subdirectories are not descended into.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		if strings.HasPrefix(e.Name(), ".") {
			return "", false
		}
		if e.Type().IsRegular() {
			return e.Name(), true
		}
		// Follow symlinks to regular files
		if e.Type()&os.ModeSymlink != 0 {
			return e.Name(), FileExists(filepath.Join(dir, e.Name()))
		}
		return "", false
	})
	sort.Strings(files)
	return files, nil
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// DirExists checks if a directory exists
func DirExists(dirname string) bool {
	info, err := os.Stat(dirname)
	if err != nil {
		return false
	}
	return info.IsDir()
}
