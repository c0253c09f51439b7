// Package transcript holds the conversation log: an append-only ordered
// sequence of turns, persisted at session end as a human-readable text file.
package transcript

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Speaker identifies who produced a turn
type Speaker string

const (
	SpeakerUser  Speaker = "You"
	SpeakerAgent Speaker = "Agent"
)

// Turn is one (speaker, text) exchange in the conversation
type Turn struct {
	Speaker Speaker
	Text    string
}

const (
	fileHeader    = "Interview Conversation Log"
	fileSeparator = "=============================="
)

// Log is the append-only transcript of a session. It is not safe for
// concurrent mutation; by construction only the session loop appends.
type Log struct {
	turns []Turn
}

// NewLog creates an empty transcript
func NewLog() *Log {
	return &Log{}
}

// Append adds a turn to the end of the transcript
func (l *Log) Append(speaker Speaker, text string) {
	l.turns = append(l.turns, Turn{Speaker: speaker, Text: text})
}

// Len returns the number of turns recorded so far
func (l *Log) Len() int {
	return len(l.turns)
}

// Last returns a copy of at most the final n turns. Collaborators get this
// bounded snapshot, never a live reference into the log.
func (l *Log) Last(n int) []Turn {
	if n <= 0 || len(l.turns) == 0 {
		return nil
	}
	start := len(l.turns) - n
	if start < 0 {
		start = 0
	}
	out := make([]Turn, len(l.turns)-start)
	copy(out, l.turns[start:])
	return out
}

// Save writes the transcript to a timestamp-named file in dir and returns the
// path. Write-once per session; a failure is the caller's to log, not fatal.
func (l *Log) Save(dir string) (string, error) {
	filename := fmt.Sprintf("interview_log_%s.txt", time.Now().Format("20060102-150405"))
	path := filepath.Join(dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create transcript file: %w", err)
	}
	defer f.Close()

	if err := l.Write(f); err != nil {
		return "", err
	}

	return path, nil
}

// Write serializes the transcript as header lines followed by one
// "speaker: text" line per turn.
func (l *Log) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, fileHeader)
	fmt.Fprintln(bw, fileSeparator)
	for _, turn := range l.turns {
		// Keep one turn per line; embedded newlines would break Parse.
		text := strings.ReplaceAll(turn.Text, "\n", " ")
		fmt.Fprintf(bw, "%s: %s\n", turn.Speaker, text)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}

// Parse reads a transcript previously produced by Write and returns its turns
// in order. Header lines and blank lines are skipped; a content line without
// a "speaker: " prefix is an error.
func Parse(r io.Reader) ([]Turn, error) {
	var turns []Turn

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || line == fileHeader || line == fileSeparator {
			continue
		}

		speaker, text, found := strings.Cut(line, ": ")
		if !found {
			return nil, fmt.Errorf("malformed transcript line: %q", line)
		}
		turns = append(turns, Turn{Speaker: Speaker(speaker), Text: text})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}

	return turns, nil
}
