package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxLineBytes bounds a single transcript line. Tool results carrying file
// contents can run large.
const maxLineBytes = 10 * 1024 * 1024

// ReadSession reads a transcript file and parses every line at or after the
// 0-based index from. It returns the parsed records (with absolute line
// positions) and the total number of lines in the file.
func ReadSession(path string, from int) ([]Record, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	var records []Record
	line := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), maxLineBytes)
	for scanner.Scan() {
		if line >= from {
			records = append(records, ParseLine(scanner.Bytes(), line))
		}
		line++
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan transcript: %w", err)
	}
	return records, line, nil
}

// SessionID returns the session identifier from the first line of the file
// that carries one, falling back to the file stem.
func SessionID(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	f, err := os.Open(path)
	if err != nil {
		return stem
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), maxLineBytes)
	for scanner.Scan() {
		var probe struct {
			SessionID string `json:"sessionId"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &probe); err == nil && probe.SessionID != "" {
			return probe.SessionID
		}
	}
	return stem
}

// ProjectName extracts a readable project name from a transcript project
// directory. Claude Code encodes the working directory into the directory
// name, e.g. "-Users-jane-my-project" for /Users/jane/my-project; the first
// three dash-separated segments are the path prefix.
func ProjectName(dir string) string {
	name := filepath.Base(dir)
	parts := strings.Split(name, "-")
	if len(parts) > 3 {
		return strings.Join(parts[3:], "-")
	}
	return name
}
