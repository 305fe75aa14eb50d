package security

import (
	"regexp"
	"strings"
)

const (
	MaxMessageLength  = 200
	MaxUsernameLength = 20
	MinUsernameLength = 2
)

var (
	// Script blocks are removed with their content, before generic tag
	// stripping, so "<script>alert(1)</script>hi" sanitizes to "hi" rather
	// than leaking the script body into the message.
	scriptBlockRe = regexp.MustCompile(`(?is)<\s*script\b[^>]*>.*?<\s*/\s*script\s*>`)
	htmlTagRe     = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	usernameRe    = regexp.MustCompile(`[^a-z0-9_-]`)
	nonAlnumRe    = regexp.MustCompile(`[^A-Za-z0-9]`)
)

// sanitizeText applies the shared first pass: trim, drop script blocks and
// HTML tags, collapse whitespace, strip control characters.
func sanitizeText(input string) string {
	s := strings.TrimSpace(input)
	s = scriptBlockRe.ReplaceAllString(s, "")
	s = htmlTagRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = stripControlChars(s)
	return strings.TrimSpace(s)
}

func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SanitizeUsername reduces raw input to the canonical username form:
// lower-case [a-z0-9_-], at most MaxUsernameLength characters. The result
// may be shorter than MinUsernameLength; length is enforced by
// ValidateUsername, not here.
func SanitizeUsername(raw string) string {
	s := sanitizeText(raw)
	s = strings.ToLower(s)
	s = usernameRe.ReplaceAllString(s, "")
	return truncate(s, MaxUsernameLength)
}

// SanitizeMessage reduces raw input to displayable message text. Length is
// not clamped here; ValidateMessage rejects overlong results so the sender
// learns the message was cut rather than having it silently truncated.
func SanitizeMessage(raw string) string {
	s := sanitizeText(raw)
	// Anything angle-bracketed that survived tag stripping is unwanted.
	s = strings.NewReplacer("<", "", ">", "").Replace(s)
	return strings.TrimSpace(s)
}

// SanitizeCAAddress strips a contract address down to alphanumerics.
func SanitizeCAAddress(raw string) string {
	return nonAlnumRe.ReplaceAllString(strings.TrimSpace(raw), "")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
