package autopost

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

type EntryKind int

const (
	// Static entries are posted as written (after placeholder rendering).
	Static EntryKind = iota
	// Rag entries hold a prompt for the QA service; the answer is the post.
	Rag
)

// Entry is one line of the autopost entries file. Source keeps the original
// line for logging.
type Entry struct {
	Kind   EntryKind
	Text   string
	Source string
}

// LoadEntries parses the newline-delimited entries file. Blank lines and
// '#' comments are skipped; a case-insensitive "rag:" prefix marks a prompt
// entry, anything else is a literal tweet body.
func LoadEntries(path string, logger *zap.Logger) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening entries file: %v", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if len(line) >= 4 && strings.EqualFold(line[:4], "rag:") {
			prompt := strings.TrimSpace(line[4:])
			if prompt == "" {
				logger.Warn("Skipping rag entry with empty prompt",
					zap.Int("line", lineNo),
					zap.String("path", path))
				continue
			}
			entries = append(entries, Entry{Kind: Rag, Text: prompt, Source: line})
			continue
		}

		entries = append(entries, Entry{Kind: Static, Text: line, Source: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading entries file: %v", err)
	}

	return entries, nil
}
