package codec

import "strings"

// Delimiters shared with every other installation. They are deliberately loud
// so they never collide with ordinary chat punctuation.
const (
	openDelim  = "[OSS-SKIN-SYNC]"
	closeDelim = "[/OSS-SKIN-SYNC]"
)

// Frame wraps an encoded token so it can be found inside freeform chat text.
func Frame(token string) string {
	return openDelim + token + closeDelim
}

// ScanForFramed extracts the first framed token from arbitrary text. The match
// is non-greedy: the closing delimiter nearest to the opening one wins, and
// only the first framed token in the message is considered.
func ScanForFramed(text string) (string, bool) {
	start := strings.Index(text, openDelim)
	if start < 0 {
		return "", false
	}
	rest := text[start+len(openDelim):]
	end := strings.Index(rest, closeDelim)
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}
