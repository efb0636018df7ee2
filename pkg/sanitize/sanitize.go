// Package sanitize normalizes and length-bounds untrusted input before
// it reaches downstream logic (spec §4.2, component C2).
package sanitize

import "strings"

// Outcome tags the result of Sanitize.
type Outcome string

const (
	OutcomeClean    Outcome = "clean"
	OutcomeCleaned  Outcome = "cleaned"
	OutcomeRejected Outcome = "rejected"
)

// Result is the output of Sanitize: exactly one of Clean, Cleaned, or
// Rejected is meaningful, selected by Outcome.
type Result struct {
	Outcome Outcome
	Value   string
	Reason  string
}

func clean(s string) Result   { return Result{Outcome: OutcomeClean, Value: s} }
func cleaned(s string) Result { return Result{Outcome: OutcomeCleaned, Value: s} }
func rejected(reason string) Result {
	return Result{Outcome: OutcomeRejected, Reason: reason}
}

// Sanitize applies the four ordered rules from spec §4.2.
func Sanitize(input string, maxMessageLength int) Result {
	if len(input) > maxMessageLength {
		return rejected("input exceeds max_message_length")
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if r == '\n' || r == '\t' || r == '\r' || !isControl(r) {
			b.WriteRune(r)
		}
	}
	filtered := b.String()

	if filtered == "" && input != "" {
		return rejected("input contains no retainable characters")
	}
	if filtered != input {
		return cleaned(filtered)
	}
	return clean(input)
}

func isControl(r rune) bool {
	return r < 0x20 || r == 0x7f
}

// Header sanitizes a value destined for a log line or HTTP-header-like
// context: only ASCII-graphic characters and space survive, truncated
// at 1000 characters.
func Header(input string) string {
	var b strings.Builder
	for _, r := range input {
		if r == ' ' || (r >= '!' && r <= '~') {
			b.WriteRune(r)
		}
		if b.Len() >= 1000 {
			break
		}
	}
	out := b.String()
	if len(out) > 1000 {
		out = out[:1000]
	}
	return out
}
