package conversation

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/antzucaro/matchr"
)

// pauseRE matches replies like "pause 30 seconds", "pause for 2 minutes" or
// "pausing for 60 seconds".
var pauseRE = regexp.MustCompile(`(?i)\bpaus(?:e|ing)(?:\s+for)?\s+(\d+)\s+(second|minute)s?\b`)

// parsePause extracts a pause request from a reply. The returned duration is
// zero and ok false when the reply is not a pause instruction.
func parsePause(reply string) (time.Duration, bool) {
	m := pauseRE.FindStringSubmatch(reply)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	unit := time.Second
	if strings.EqualFold(m[2], "minute") {
		unit = time.Minute
	}
	return time.Duration(n) * unit, true
}

// farewellWords are matched per word with a one-edit budget so the session
// still ends when the model (or a transcription echo) mangles the word
// slightly, e.g. "goodby" or "good-bye". A larger budget starts catching
// unrelated words ("firewall" is two edits from "farewell").
var farewellWords = []string{"goodbye", "farewell"}

const farewellDistance = 1

// isFarewell reports whether a reply signals the end of the session: an
// "end (the) program" instruction or a goodbye phrase.
func isFarewell(reply string) bool {
	text := normalize(reply)
	if strings.Contains(text, "end program") || strings.Contains(text, "end the program") {
		return true
	}
	for _, word := range strings.Fields(text) {
		if word == "bye" {
			return true
		}
		for _, target := range farewellWords {
			if matchr.Levenshtein(word, target) <= farewellDistance {
				return true
			}
		}
	}
	return false
}

// normalize lowercases text and strips everything but letters, digits and
// spaces so punctuation does not defeat phrase matching.
func normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		case r == '-', r == '\n', r == '\t':
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
