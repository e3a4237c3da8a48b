package engine

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// maxLogSize is the rotation threshold for the persisted server log.
// One rotated generation (server.log.old) is kept; a second rotation
// overwrites it.
const maxLogSize = 10 << 20 // 10 MiB

// LogSink appends subprocess output to the persisted server log file,
// rotating when the file grows past the threshold.
type LogSink struct {
	mu   sync.Mutex
	path string
	file *os.File
	size int64
}

// OpenLogSink opens (creating if needed) the server log at path.
func OpenLogSink(path string) (*LogSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open server log: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat server log: %w", err)
	}

	return &LogSink{path: path, file: file, size: info.Size()}, nil
}

// Append writes one line to the log, rotating first if the file is full.
// A failed rotation is reported but does not drop the line: the sink keeps
// appending to the oversized log and retries on the next threshold crossing.
func (s *LogSink) Append(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return fmt.Errorf("server log sink is closed")
	}

	var rotateErr error
	if s.size >= maxLogSize {
		rotateErr = s.rotateLocked()
	}

	if s.file == nil {
		return rotateErr
	}

	n, err := fmt.Fprintln(s.file, line)
	s.size += int64(n)

	if err == nil {
		err = rotateErr
	}

	return err
}

// Close flushes and closes the underlying file.
func (s *LogSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}

	err := s.file.Close()
	s.file = nil

	return err
}

func (s *LogSink) rotateLocked() error {
	if err := s.file.Close(); err != nil {
		s.file = nil
		return fmt.Errorf("close server log for rotation: %w", err)
	}
	s.file = nil

	// The rename can fail (.old still open elsewhere, notably on Windows).
	// Reopen the current log either way so the sink stays usable.
	renameErr := os.Rename(s.path, s.path+".old")

	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("reopen server log: %w", err)
	}

	s.file = file

	if renameErr != nil {
		if info, statErr := file.Stat(); statErr == nil {
			s.size = info.Size()
		}

		return fmt.Errorf("rotate server log: %w", renameErr)
	}

	s.size = 0

	return nil
}

// TailLines reads the last n lines of the file at path, oldest first.
// A missing file yields an empty slice.
func TailLines(path string, n int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
	}
	defer file.Close()

	var lines []string

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > n {
			lines = lines[1:]
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}
