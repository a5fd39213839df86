package shared

import (
	"strings"
	"unicode"
)

// maxFilenameLength caps sanitized names so deep library trees stay within
// filesystem limits.
const maxFilenameLength = 100

// SanitizeFilename replaces characters that are unsafe in file names and
// truncates the result. Trailing dots and spaces are stripped since Windows
// rejects them.
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, c := range name {
		switch c {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			b.WriteRune('_')
		default:
			if unicode.IsControl(c) {
				b.WriteRune('_')
			} else {
				b.WriteRune(c)
			}
		}
	}

	runes := []rune(b.String())
	if len(runes) > maxFilenameLength {
		runes = []rune(string(runes[:maxFilenameLength]))
	}

	s := strings.TrimSpace(string(runes))
	return strings.TrimRight(s, ". ")
}

// SanitizePathComponent sanitizes a single directory name in the library tree.
func SanitizePathComponent(name string) string {
	return SanitizeFilename(name)
}
