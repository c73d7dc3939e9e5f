package retry

import (
	"fmt"
	"os"
)

// Lock is a filesystem mutex around the retry sweep: only one sweep
// may run at a time across process instances.
type Lock struct {
	path string
}

// Acquire creates the lock file exclusively and writes the owner pid
// into it. It reports false when another process holds the lock.
func Acquire(path string) (*Lock, bool, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	fmt.Fprintf(f, "%d", os.Getpid())
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, false, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	return &Lock{path: path}, true, nil
}

// Release removes the lock file.
func (l *Lock) Release() {
	_ = os.Remove(l.path)
}
