package exceptions

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// maxLogLine bounds line scanning; exception lines embed whole source rows.
const maxLogLine = 1024 * 1024

// writeToLogFile appends message to the dated exception log, prefixed with a
// 1-based line index. The index is recomputed by counting the existing lines
// on every call, so the cost grows with the file; fine at batch scale, not
// meant for concurrent writers.
func writeToLogFile(dir, message string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create log directory: %w", err)
	}
	name := fmt.Sprintf("%s-exceptions.log", time.Now().Format("2006-01-02"))
	path := filepath.Join(dir, name)

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxLogLine)
	index := 1
	for scanner.Scan() {
		index++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to count log lines: %w", err)
	}

	if _, err := fmt.Fprintf(file, "%d. %s", index, message); err != nil {
		return 0, fmt.Errorf("failed to append to log file: %w", err)
	}
	return index, nil
}
