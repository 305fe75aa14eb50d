package security

import (
	"regexp"
	"strings"
	"unicode"
)

// suspiciousPatterns is the content-policy regex union. A single match marks
// the input unsafe. Patterns target injected markup, injection tokens, and
// the scam vocabulary seen in token chat rooms (wallet/seed solicitation,
// off-platform contact bait, airdrop spam).
var suspiciousPatterns = []*regexp.Regexp{
	// XSS markers
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)\bon\w+\s*=`),
	regexp.MustCompile(`(?i)<\s*(script|iframe|object|embed)`),

	// SQL injection tokens
	regexp.MustCompile(`(?i)\b(union|select|insert|update|delete|drop|create|alter)\b`),
	regexp.MustCompile(`(?i)\b(or|and)\b\s+\d+\s*=\s*\d+`),

	// Command injection tokens
	regexp.MustCompile(`(?i)\b(cmd|command|exec|system|shell)\b`),
	regexp.MustCompile("[;&|`$()]"),

	// Path traversal
	regexp.MustCompile(`\.\./`),
	regexp.MustCompile(`\.\.\\`),

	// Wallet / seed phrase solicitation
	regexp.MustCompile(`(?i)\b(wallet|seed|private key|mnemonic|passphrase)\b`),
	regexp.MustCompile(`(?i)\b(metamask|phantom|solflare|backpack)\b`),

	// Off-platform contact solicitation
	regexp.MustCompile(`(?i)\b(telegram|discord|twitter|t\.me|discord\.gg|t\.co)\b`),
	regexp.MustCompile(`(?i)\b(dm|private message|contact me|message me)\b`),

	// Airdrop / scam bait
	regexp.MustCompile(`(?i)\b(airdrop|free|claim|reward|bonus|giveaway)\b`),
	regexp.MustCompile(`(?i)\b(click here|verify|confirm|claim now)\b`),

	// Personal information phishing
	regexp.MustCompile(`(?i)\b(email|phone|address|ssn|credit card)\b`),
	regexp.MustCompile(`(?i)\b(send me|dm me|contact)\b`),
}

const (
	maxRepeatedRun = 5   // "aaaaa" and longer is spam
	maxCapsRatio   = 0.7 // shouting threshold, only applied to messages > 10 chars
	capsMinLength  = 10
)

// containsSuspiciousContent classifies input against the pattern union plus
// the two structural spam checks (repeated-character runs, caps ratio).
func containsSuspiciousContent(input string) bool {
	if input == "" {
		return false
	}

	for _, pattern := range suspiciousPatterns {
		if pattern.MatchString(input) {
			return true
		}
	}

	if hasRepeatedRun(input, maxRepeatedRun) {
		return true
	}

	return capsRatioExceeded(input)
}

// hasRepeatedRun reports whether input contains n or more identical
// consecutive runes. Backreference regexes are not available in RE2, so the
// run length is counted directly.
func hasRepeatedRun(input string, n int) bool {
	var prev rune
	run := 0
	for _, r := range input {
		if r == prev {
			run++
			if run >= n {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}

func capsRatioExceeded(input string) bool {
	if len(input) <= capsMinLength {
		return false
	}
	upper := 0
	for _, r := range input {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return float64(upper)/float64(len([]rune(input))) > maxCapsRatio
}

// reservedUsernames may not be claimed by anyone.
var reservedUsernames = map[string]struct{}{
	"admin":       {},
	"moderator":   {},
	"system":      {},
	"phantomview": {},
	"phantom":     {},
	"view":        {},
}

func isReservedUsername(name string) bool {
	_, ok := reservedUsernames[strings.ToLower(name)]
	return ok
}
