package chat_test

import (
	"strings"
	"testing"

	"github.com/markizano/asthralios/internal/chat"
)

func TestSplitMessageShortPassesThrough(t *testing.T) {
	got := chat.SplitMessage("hello", 2000)
	if len(got) != 1 || got[0] != "hello" {
		t.Errorf("SplitMessage = %v", got)
	}
}

func TestSplitMessagePrefersNewlines(t *testing.T) {
	text := strings.Repeat("a", 90) + "\n" + strings.Repeat("b", 90)
	got := chat.SplitMessage(text, 100)
	if len(got) != 2 {
		t.Fatalf("got %d parts, want 2: %v", len(got), got)
	}
	if !strings.HasSuffix(got[0], "a") || !strings.HasPrefix(got[1], "b") {
		t.Errorf("split did not land on the newline: %q | %q", got[0], got[1])
	}
}

func TestSplitMessageFallsBackToSpaces(t *testing.T) {
	text := strings.Repeat("word ", 50) // 250 runes
	got := chat.SplitMessage(strings.TrimSpace(text), 100)
	for i, part := range got {
		if len([]rune(part)) > 100 {
			t.Errorf("part %d length = %d, want <= 100", i, len([]rune(part)))
		}
		if strings.HasPrefix(part, " ") || strings.HasSuffix(part, " ") {
			t.Errorf("part %d has dangling space: %q", i, part)
		}
	}
	if joined := strings.Join(got, " "); joined != strings.TrimSpace(text) {
		t.Errorf("parts do not reassemble the input: %q", joined)
	}
}

func TestSplitMessageHardCut(t *testing.T) {
	text := strings.Repeat("x", 250)
	got := chat.SplitMessage(text, 100)
	if len(got) != 3 {
		t.Fatalf("got %d parts, want 3", len(got))
	}
	var total int
	for i, part := range got {
		if len(part) > 100 {
			t.Errorf("part %d length = %d, want <= 100", i, len(part))
		}
		total += len(part)
	}
	if total != 250 {
		t.Errorf("parts cover %d runes, want 250", total)
	}
}
