// Package sanitize turns arbitrary strings into names that are safe to use
// as a file name on common filesystems.
//
// Removed (or replaced): the characters / ? < > \ : * | " , C0 and C1
// control codes, names made only of dots, and Windows device names such
// as CON, PRN, AUX, NUL, COM0-COM9 and LPT0-LPT9 with or without an
// extension. Results are capped at 255 characters.
package sanitize

import (
	"regexp"
	"strings"
)

// MaxLength caps the sanitized result, in characters.
const MaxLength = 255

var (
	illegalRe         = regexp.MustCompile(`[/?<>\\:*|"]`)
	controlRe         = regexp.MustCompile(`[\x00-\x1f\x{80}-\x{9f}]`)
	reservedRe        = regexp.MustCompile(`^\.+$`)
	windowsReservedRe = regexp.MustCompile(`(?i)^(con|prn|aux|nul|com[0-9]|lpt[0-9])(\..*)?$`)
)

// Sanitize replaces unsafe sequences in input with replacement. A non
// empty replacement is itself sanitized by a second pass, so the result
// never contains an illegal character.
func Sanitize(input, replacement string) string {
	out := sanitize(input, replacement)
	if replacement == "" {
		return out
	}
	return sanitize(out, "")
}

func sanitize(input, replacement string) string {
	s := illegalRe.ReplaceAllLiteralString(input, replacement)
	s = controlRe.ReplaceAllLiteralString(s, replacement)
	s = reservedRe.ReplaceAllLiteralString(s, replacement)
	s = windowsReservedRe.ReplaceAllLiteralString(s, replacement)
	return truncate(s, MaxLength)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	var sb strings.Builder
	count := 0
	for _, r := range s {
		if count == n {
			break
		}
		sb.WriteRune(r)
		count++
	}
	return sb.String()
}
