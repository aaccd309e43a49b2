package classify

import (
	"regexp"
	"strings"
)

// A patternFamily names one option-extraction rule. Families are tried
// in priority order; the first that yields at least two options wins and
// results are never merged across families.
type patternFamily struct {
	name    string
	extract func(text string) (opts []Option, first int)
}

var patternFamilies = []patternFamily{
	{"quoted_number", extractQuotedNumberOptions},
	{"letter_equals", extractLetterEqualsOptions},
	{"numbered_line", extractNumberedLineOptions},
	{"lettered", extractLetteredOptions},
	{"bare_bullet", extractBareBulletOptions},
}

var (
	quotedNumberRe = regexp.MustCompile(`(?m)^[ \t]*•[ \t]*(\d+)[ \t]*=[ \t]*(['"].+?['"])[ \t]*$`)
	letterEqualsRe = regexp.MustCompile(`(?m)^[ \t]*•[ \t]*([A-Z])[ \t]*=[ \t]*(.+?)[ \t]*$`)
	numberedLineRe = regexp.MustCompile(`(?m)^[ \t]*(\d+)[.):][ \t]+(.+?)[ \t]*$`)
	letteredRe     = regexp.MustCompile(`(^|\s)([A-D])[.):][ \t]+`)
	bareBulletRe   = regexp.MustCompile(`(?m)^[ \t]*•[ \t]+(.+?)[ \t]*$`)
)

// extractQuotedNumberOptions matches rating-scale bullets of the form
// "• 5 = 'medium'". The label is the number, the text is the quoted span
// with quotes stripped.
func extractQuotedNumberOptions(text string) ([]Option, int) {
	return extractByLine(text, quotedNumberRe)
}

// extractLetterEqualsOptions matches "• A = Formal" bullets.
func extractLetterEqualsOptions(text string) ([]Option, int) {
	return extractByLine(text, letterEqualsRe)
}

// extractNumberedLineOptions matches "1. text", "1) text" and "1: text"
// at line start.
func extractNumberedLineOptions(text string) ([]Option, int) {
	return extractByLine(text, numberedLineRe)
}

func extractByLine(text string, re *regexp.Regexp) ([]Option, int) {
	idx := re.FindAllStringSubmatchIndex(text, -1)
	if len(idx) == 0 {
		return nil, 0
	}
	opts := make([]Option, 0, len(idx))
	for _, m := range idx {
		label := text[m[2]:m[3]]
		body := stripQuotes(text[m[4]:m[5]])
		if body == "" {
			continue
		}
		opts = append(opts, Option{
			Label:    label,
			Text:     body,
			FullText: text[m[0]:m[1]],
		})
	}
	return opts, idx[0][0]
}

// extractLetteredOptions matches "A. text" style labels restricted to
// A–D to avoid false positives from capitalized sentence starts. Unlike
// the line-anchored families it also accepts several labels on one line
// ("Which tone? A. Formal B. Casual"); each option's text runs to the
// next label or end of line.
func extractLetteredOptions(text string) ([]Option, int) {
	idx := letteredRe.FindAllStringSubmatchIndex(text, -1)
	if len(idx) == 0 {
		return nil, 0
	}
	opts := make([]Option, 0, len(idx))
	for i, m := range idx {
		label := text[m[4]:m[5]]
		start := m[1] // text begins after the label marker
		end := len(text)
		if i+1 < len(idx) {
			end = idx[i+1][0]
		}
		if nl := strings.IndexByte(text[start:end], '\n'); nl >= 0 {
			end = start + nl
		}
		body := stripQuotes(text[start:end])
		if body == "" {
			continue
		}
		opts = append(opts, Option{
			Label:    label,
			Text:     body,
			FullText: strings.TrimSpace(text[m[2]:end]),
		})
	}
	// stem boundary starts at the whitespace capture; the caller trims it
	first := idx[0][2]
	return opts, first
}

// extractBareBulletOptions matches bullet lines carrying no explicit
// label; labels are synthesized in appearance order as A, B, C, ...
func extractBareBulletOptions(text string) ([]Option, int) {
	idx := bareBulletRe.FindAllStringSubmatchIndex(text, -1)
	if len(idx) == 0 {
		return nil, 0
	}
	opts := make([]Option, 0, len(idx))
	for i, m := range idx {
		body := stripQuotes(text[m[2]:m[3]])
		if body == "" {
			continue
		}
		opts = append(opts, Option{
			Label:    letterLabel(i),
			Text:     body,
			FullText: text[m[0]:m[1]],
		})
	}
	return opts, idx[0][0]
}

func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '\'' && last == '\'') || (first == '"' && last == '"') {
			return strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}

// letterLabel returns A..Z for the first 26 indices, then AA, AB, ...
func letterLabel(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return letterLabel(i/26-1) + string(rune('A'+i%26))
}
