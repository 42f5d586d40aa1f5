package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var iconExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true, ".webp": true, ".ico": true,
}

// ListIcons returns the image file names in dir, sorted.
func ListIcons(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if iconExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// IconPath joins a bare icon file name onto dir, refusing anything that could
// escape it.
func IconPath(dir, name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIconName, name)
	}
	return filepath.Join(dir, name), nil
}
