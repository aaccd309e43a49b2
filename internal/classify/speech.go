package classify

import (
	"regexp"
	"strings"
)

// Transform order matters: fenced blocks before inline code, images
// before links, bold before italic.
var (
	fencedCodeRe = regexp.MustCompile("(?s)```.*?```")
	imageRe      = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	linkRe       = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	inlineCodeRe = regexp.MustCompile("`([^`\n]+)`")
	boldStarRe   = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	boldUnderRe  = regexp.MustCompile(`__([^_]+)__`)
	italicStarRe = regexp.MustCompile(`\*([^*\n]+)\*`)
	italicUndRe  = regexp.MustCompile(`_([^_\n]+)_`)
	headerRe     = regexp.MustCompile(`(?m)^(?:#{1,6}[ \t]+)+`)
	listMarkerRe = regexp.MustCompile(`(?m)^[ \t]*(?:(?:[-*•]|\d+\.)[ \t]+)+`)
	newlineRunRe = regexp.MustCompile(`\n{3,}`)
)

// StripMarkdownForSpeech flattens markdown into text suitable for a
// speech synthesizer. It is pure and total: malformed or unmatched
// markdown passes through unchanged, and stripping is idempotent.
// Unbalanced emphasis markers can leave residue that a later pass would
// still match, so the transform runs until the text stabilizes.
func StripMarkdownForSpeech(text string) string {
	if text == "" {
		return ""
	}

	for i := 0; i < maxStripPasses; i++ {
		next := stripOnce(text)
		if next == text {
			break
		}
		text = next
	}
	return text
}

// Each pass peels one emphasis layer, so a handful covers any realistic
// nesting depth.
const maxStripPasses = 8

func stripOnce(text string) string {
	text = fencedCodeRe.ReplaceAllString(text, "code block")
	text = imageRe.ReplaceAllString(text, "$1 image")
	text = linkRe.ReplaceAllString(text, "$1")
	text = inlineCodeRe.ReplaceAllString(text, "$1")
	text = boldStarRe.ReplaceAllString(text, "$1")
	text = boldUnderRe.ReplaceAllString(text, "$1")
	text = headerRe.ReplaceAllString(text, "")
	text = listMarkerRe.ReplaceAllString(text, "")
	text = italicStarRe.ReplaceAllString(text, "$1")
	text = italicUndRe.ReplaceAllString(text, "$1")
	text = newlineRunRe.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
