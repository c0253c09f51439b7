package transcript

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLog_AppendAndLast(t *testing.T) {
	log := NewLog()

	log.Append(SpeakerAgent, "Hello")
	log.Append(SpeakerUser, "Hi there")
	log.Append(SpeakerAgent, "How are you?")

	if log.Len() != 3 {
		t.Fatalf("Expected 3 turns, got %d", log.Len())
	}

	last := log.Last(2)
	if len(last) != 2 {
		t.Fatalf("Expected 2 turns from Last(2), got %d", len(last))
	}
	if last[0].Speaker != SpeakerUser || last[0].Text != "Hi there" {
		t.Errorf("Unexpected first turn: %+v", last[0])
	}
	if last[1].Speaker != SpeakerAgent || last[1].Text != "How are you?" {
		t.Errorf("Unexpected second turn: %+v", last[1])
	}

	// Asking for more than exists returns everything
	if got := log.Last(10); len(got) != 3 {
		t.Errorf("Expected all 3 turns from Last(10), got %d", len(got))
	}
	if got := log.Last(0); len(got) != 0 {
		t.Errorf("Expected no turns from Last(0), got %d", len(got))
	}
}

func TestLog_WriteFormat(t *testing.T) {
	log := NewLog()
	log.Append(SpeakerAgent, "Hello! Could you introduce yourself?")
	log.Append(SpeakerUser, "Sure, I'm a backend developer.")

	var buf bytes.Buffer
	if err := log.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("Expected 4 lines, got %d: %q", len(lines), lines)
	}
	if lines[0] != "Interview Conversation Log" {
		t.Errorf("Unexpected header: %q", lines[0])
	}
	if lines[1] != "==============================" {
		t.Errorf("Unexpected separator: %q", lines[1])
	}
	if lines[2] != "Agent: Hello! Could you introduce yourself?" {
		t.Errorf("Unexpected agent line: %q", lines[2])
	}
	if lines[3] != "You: Sure, I'm a backend developer." {
		t.Errorf("Unexpected user line: %q", lines[3])
	}
}

func TestLog_WriteFlattensNewlines(t *testing.T) {
	log := NewLog()
	log.Append(SpeakerAgent, "First line\nsecond line")

	var buf bytes.Buffer
	if err := log.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	turns, err := Parse(&buf)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("Expected 1 turn, got %d", len(turns))
	}
	if turns[0].Text != "First line second line" {
		t.Errorf("Expected flattened text, got %q", turns[0].Text)
	}
}

func TestLog_RoundTrip(t *testing.T) {
	log := NewLog()
	log.Append(SpeakerAgent, "Hi")
	log.Append(SpeakerUser, "I am fine")
	log.Append(SpeakerAgent, "Great")

	var buf bytes.Buffer
	if err := log.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	turns, err := Parse(&buf)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("Expected 3 turns, got %d", len(turns))
	}

	want := []Turn{
		{SpeakerAgent, "Hi"},
		{SpeakerUser, "I am fine"},
		{SpeakerAgent, "Great"},
	}
	for i, turn := range turns {
		if turn != want[i] {
			t.Errorf("Turn %d: expected %+v, got %+v", i, want[i], turn)
		}
	}
}

func TestParse_MalformedLine(t *testing.T) {
	if _, err := Parse(strings.NewReader("no separator here\n")); err == nil {
		t.Error("Expected error for malformed line")
	}
}

func TestLog_Save(t *testing.T) {
	dir := t.TempDir()

	log := NewLog()
	log.Append(SpeakerAgent, "Hello")

	path, err := log.Save(dir)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	name := filepath.Base(path)
	if !strings.HasPrefix(name, "interview_log_") || !strings.HasSuffix(name, ".txt") {
		t.Errorf("Unexpected transcript filename: %q", name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read saved transcript: %v", err)
	}
	if !strings.Contains(string(data), "Agent: Hello") {
		t.Errorf("Saved transcript missing turn: %q", string(data))
	}
}
