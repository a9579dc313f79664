package materializer

import "strings"

// SafeFilename maps an episode base name onto the filesystem-safe alphabet.
// Anything outside ASCII letters, digits, '-' and space becomes '_'. The
// mapping must stay stable: the .strm name derived from it is the dedup
// signal for the whole sync pipeline.
func SafeFilename(base string) string {
	var b strings.Builder
	b.Grow(len(base))
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == ' ':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
