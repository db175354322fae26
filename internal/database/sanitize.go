package database

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxUserIDLength bounds user identifiers so file names stay portable.
const MaxUserIDLength = 128

// removeDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func removeDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// SanitizeUserID maps a user identifier to a safe file stem.
// Diacritics are stripped and every rune outside [A-Za-z0-9._-] becomes '_'.
// Distinct identifiers may collide; stores detect that and refuse the write.
func SanitizeUserID(userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("%w: user id must not be empty", ErrValidation)
	}
	if len(userID) > MaxUserIDLength {
		return "", fmt.Errorf("%w: user id longer than %d bytes", ErrValidation, MaxUserIDLength)
	}

	var b strings.Builder
	for _, r := range removeDiacritics(userID) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	name := b.String()
	if name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: user id %q maps to a hidden file name", ErrValidation, userID)
	}
	return name, nil
}
