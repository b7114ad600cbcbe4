package storage

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
)

// FileSeenStore keeps one headline per line in a UTF-8 text file.
type FileSeenStore struct {
	filePath string
	mu       sync.Mutex
}

// NewFileSeenStore creates a store backed by filePath. The file is created on first Append.
func NewFileSeenStore(filePath string) *FileSeenStore {
	return &FileSeenStore{filePath: filePath}
}

// Load reads every non-blank line. A missing file is the first-run case and yields no entries.
func (fs *FileSeenStore) Load(ctx context.Context) ([]string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := os.Open(fs.filePath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open seen file: %w", err)
	}
	defer f.Close()

	var entries []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		entries = append(entries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read seen file: %w", err)
	}
	return entries, nil
}

// Append writes each entry on its own line in one write.
func (fs *FileSeenStore) Append(ctx context.Context, entries []string) error {
	if len(entries) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e)
		b.WriteByte('\n')
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := os.OpenFile(fs.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open seen file: %w", err)
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to seen file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close seen file: %w", err)
	}
	return nil
}

func (fs *FileSeenStore) Count(ctx context.Context) (int, error) {
	entries, err := fs.Load(ctx)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (fs *FileSeenStore) Close() error {
	return nil
}
