package notes

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore appends notes to a plain text file, one line per note.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Location returns the notes file path.
func (s *FileStore) Location() string {
	return s.path
}

// AppendNote writes line followed by a newline.
func (s *FileStore) AppendNote(_ context.Context, line string) error {
	if strings.ContainsAny(line, "\r\n") {
		return fmt.Errorf("note line must not contain newlines")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("creating notes dir: %w", err)
		}
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("opening notes file: %w", err)
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("writing note: %w", err)
	}
	return f.Close()
}

// List reads note lines from the file.
func (s *FileStore) List(_ context.Context, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening notes file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimRight(scanner.Text(), "\r"); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading notes file: %w", err)
	}
	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return lines, nil
}

// Follow streams lines appended to the file.
func (s *FileStore) Follow(ctx context.Context, fn func(line string)) error {
	w, err := NewWatcher(s.path)
	if err != nil {
		return err
	}
	defer w.Stop()

	offset := fileSize(s.path)
	if err := w.Start(ctx); err != nil {
		return err
	}

	var partial string
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		case _, ok := <-w.Events():
			if !ok {
				return nil
			}
			var chunk string
			chunk, offset, err = readFrom(s.path, offset)
			if err != nil {
				return err
			}
			partial += chunk
			for {
				i := strings.IndexByte(partial, '\n')
				if i < 0 {
					break
				}
				if line := strings.TrimRight(partial[:i], "\r"); line != "" {
					fn(line)
				}
				partial = partial[i+1:]
			}
		}
	}
}

// Close is a no-op; the file is opened per write.
func (s *FileStore) Close() error { return nil }

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// readFrom returns the bytes after offset and the new offset. A file that
// shrank is read from the start.
func readFrom(path string, offset int64) (string, int64, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", 0, nil
	}
	if err != nil {
		return "", offset, fmt.Errorf("opening notes file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", offset, fmt.Errorf("stat notes file: %w", err)
	}
	if info.Size() < offset {
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return "", offset, fmt.Errorf("seeking notes file: %w", err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return "", offset, fmt.Errorf("reading notes file: %w", err)
	}
	return string(data), offset + int64(len(data)), nil
}
