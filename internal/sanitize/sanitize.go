// Package sanitize normalizes user-supplied chat text. It is pure: no I/O,
// no state, safe to call from any layer.
package sanitize

import (
	"html"
	"regexp"
	"strings"
	"unicode"
)

// MaxLength is the post-sanitization text limit
const MaxLength = 5000

var (
	scriptRe  = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe   = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	tagRe     = regexp.MustCompile(`<[^>]*>`)
	spaceRe   = regexp.MustCompile(`[ \t]+`)
	newlineRe = regexp.MustCompile(`\n{3,}`)
)

// Sanitize strips markup and control sequences from message text and
// enforces the length limit. The result may be empty; callers decide
// whether that is an error.
func Sanitize(input string) string {
	if input == "" {
		return ""
	}

	out := scriptRe.ReplaceAllString(input, "")
	out = styleRe.ReplaceAllString(out, "")
	out = tagRe.ReplaceAllString(out, "")
	out = html.UnescapeString(out)
	out = stripControl(out)
	out = spaceRe.ReplaceAllString(out, " ")
	out = newlineRe.ReplaceAllString(out, "\n\n")
	out = strings.TrimSpace(out)

	return truncate(out, MaxLength)
}

// BuildPreview produces a single-line preview of at most maxLen runes
func BuildPreview(text string, maxLen int) string {
	out := Sanitize(text)
	out = strings.Join(strings.Fields(out), " ")
	return truncate(out, maxLen)
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

func truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}
