package conversation

import (
	"testing"
	"time"
)

func TestParsePause(t *testing.T) {
	cases := []struct {
		reply string
		want  time.Duration
		ok    bool
	}{
		{"pause 30 seconds", 30 * time.Second, true},
		{"pause for 60 seconds", 60 * time.Second, true},
		{"Sure, pausing for 2 minutes.", 2 * time.Minute, true},
		{"Pause for 1 minute", time.Minute, true},
		{"I'll pause for a while", 0, false},
		{"the pause button", 0, false},
		{"", 0, false},
		{"pause 0 seconds", 0, false},
	}
	for _, tc := range cases {
		got, ok := parsePause(tc.reply)
		if ok != tc.ok || got != tc.want {
			t.Errorf("parsePause(%q) = %v, %v; want %v, %v", tc.reply, got, ok, tc.want, tc.ok)
		}
	}
}

func TestIsFarewell(t *testing.T) {
	cases := []struct {
		reply string
		want  bool
	}{
		{"Goodbye, sir.", true},
		{"goodby", true},
		{"Good-bye!", true},
		{"Farewell.", true},
		{"Okay, I will end the program now.", true},
		{"end program", true},
		{"Bye!", true},
		{"The weather is nice today.", false},
		{"goodness me", false},
		{"Check the firewall settings.", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := isFarewell(tc.reply); got != tc.want {
			t.Errorf("isFarewell(%q) = %v, want %v", tc.reply, got, tc.want)
		}
	}
}
