package core

import (
	"errors"
	"strings"
)

// DefaultWakeWord is the phrase voice transcripts must contain.
const DefaultWakeWord = "hey jane"

// Wake word extraction errors. Callers must be able to tell them apart:
// a missing wake word means the utterance was not addressed to the assistant,
// an empty command means it was but nothing followed.
var (
	ErrWakeWordMissing = errors.New("wake word missing")
	ErrNoCommand       = errors.New("wake word heard, no command given")
)

// ExtractWakeWordCommand returns the text following the first case-insensitive
// occurrence of wakeWord in transcript.
func ExtractWakeWordCommand(transcript, wakeWord string) (string, error) {
	wake := strings.ToLower(strings.TrimSpace(wakeWord))
	if wake == "" {
		wake = DefaultWakeWord
	}

	// Lower-casing can change byte lengths for some scripts; search on the
	// lowered copy only when lengths agree, otherwise fold rune by rune.
	lowered := strings.ToLower(transcript)
	idx := -1
	if len(lowered) == len(transcript) {
		idx = strings.Index(lowered, wake)
	} else {
		idx = foldIndex(transcript, wake)
	}
	if idx < 0 {
		return "", ErrWakeWordMissing
	}

	rest := transcript[idx+len(wake):]
	rest = strings.TrimLeft(rest, " \t\r\n,.:;!?")
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return "", ErrNoCommand
	}
	return rest, nil
}

// foldIndex finds the byte offset of needle (already lower-case) in s using
// case folding, or -1.
func foldIndex(s, needle string) int {
	for i := range s {
		if len(s)-i < len(needle) {
			break
		}
		if strings.EqualFold(s[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}
