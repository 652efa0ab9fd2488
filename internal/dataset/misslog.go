package dataset

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// MissLog records county keys that had no dataset row.
type MissLog interface {
	Record(ctx context.Context, key string) error
}

// FileMissLog appends one key per line to a plain-text file. The file is
// opened and closed for every entry and each line goes out in a single
// O_APPEND write.
type FileMissLog struct {
	path string
	mu   sync.Mutex
}

func NewFileMissLog(path string) *FileMissLog {
	return &FileMissLog{path: path}
}

func (f *FileMissLog) Record(_ context.Context, key string) error {
	line := missLine(key) + "\n"

	f.mu.Lock()
	defer f.mu.Unlock()
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	fh, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := fh.WriteString(line); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

func (f *FileMissLog) Path() string { return f.path }

// missLine keeps an entry on a single line.
func missLine(key string) string {
	return strings.TrimSpace(strings.NewReplacer("\r", " ", "\n", " ").Replace(key))
}

type discardMissLog struct{}

func (discardMissLog) Record(context.Context, string) error { return nil }
