package watch

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

var tempSuffixes = []string{"~", ".tmp", ".part", ".crdownload"}

// listCandidates returns the inbox filenames worth processing, in a
// stable lexical order. Hidden files, editor/download temporaries and
// non-image extensions are ignored outright, not failed.
func listCandidates(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		if !accepted(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func accepted(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	lower := strings.ToLower(name)
	for _, suf := range tempSuffixes {
		if strings.HasSuffix(lower, suf) {
			return false
		}
	}
	return imageExts[filepath.Ext(lower)]
}
