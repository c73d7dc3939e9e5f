package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// moveWithSuffix renames src into destDir, appending an incrementing
// __N suffix instead of overwriting on a name collision. Rename is
// atomic within one volume, so a receipt is always fully in exactly
// one directory.
func moveWithSuffix(src, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", destDir, err)
	}

	base := filepath.Base(src)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	dest := filepath.Join(destDir, base)
	for n := 1; ; n++ {
		if _, err := os.Stat(dest); os.IsNotExist(err) {
			break
		}
		dest = filepath.Join(destDir, fmt.Sprintf("%s__%d%s", stem, n, ext))
	}

	if err := os.Rename(src, dest); err != nil {
		return "", fmt.Errorf("move %s to %s: %w", src, destDir, err)
	}
	return dest, nil
}
