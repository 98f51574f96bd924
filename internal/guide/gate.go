package guide

import (
	"math"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

const (
	// LockedFraction of the words is shown before the gate opens.
	LockedFraction = 0.5
	// sentenceLookahead is how many words past the cut we search for the end of a sentence.
	sentenceLookahead = 40
)

// GateState is what the presentation needs to decide the disclosure.
type GateState struct {
	IsLocked         bool
	RevealedFraction float64
}

// Gate tracks whether the full guide may be shown. It only ever opens.
type Gate struct {
	mu       sync.Mutex
	unlocked bool
}

// NewGate restores a gate, e.g. from a session that already unlocked it.
func NewGate(unlocked bool) *Gate {
	return &Gate{mu: sync.Mutex{}, unlocked: unlocked}
}

// Unlock opens the gate for good. Call it only after the contact sink confirmed the submission.
func (g *Gate) Unlock() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unlocked = true
}

func (g *Gate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.unlocked {
		return GateState{IsLocked: false, RevealedFraction: 1}
	}
	return GateState{IsLocked: true, RevealedFraction: LockedFraction}
}

// Disclose returns the part of content that state allows to show. A locked cut lands after about
// RevealedFraction of the words and moves forward to the next sentence end if one is near.
func Disclose(content string, state GateState) string {
	if !state.IsLocked || state.RevealedFraction >= 1 {
		return content
	}
	words := wordEnds(content)
	target := int(math.Floor(float64(len(words)) * state.RevealedFraction))
	if target <= 0 {
		return ""
	}
	if target >= len(words) {
		return content
	}

	cut := words[target-1]
	// The last word is never reached so that a locked guide always hides something.
	for i := target - 1; i < len(words)-1 && i < target-1+sentenceLookahead; i++ {
		if endsSentence(content[:words[i]]) {
			cut = words[i]
			break
		}
	}
	return content[:cut]
}

// wordEnds returns the byte offset after each whitespace separated word.
func wordEnds(s string) []int {
	var ends []int
	inWord := false
	for i, r := range s {
		space := unicode.IsSpace(r)
		if inWord && space {
			ends = append(ends, i)
		}
		inWord = !space
	}
	if inWord {
		ends = append(ends, len(s))
	}
	return ends
}

// endsSentence reports whether s ends with sentence punctuation, allowing closing quotes, brackets or emphasis.
func endsSentence(s string) bool {
	s = strings.TrimRightFunc(s, func(r rune) bool {
		return strings.ContainsRune(`"')]*_»”’`, r)
	})
	r, _ := utf8.DecodeLastRuneInString(s)
	return r == '.' || r == '!' || r == '?'
}
