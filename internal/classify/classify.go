package classify

import (
	"regexp"
	"strings"
)

// Kind tells whether an assistant message is plain prose or a
// multiple-choice prompt.
type Kind string

const (
	KindPlainText      Kind = "plain_text"
	KindMultipleChoice Kind = "multiple_choice"
)

// Option is one selectable choice extracted from (or synthesized for)
// an assistant message.
type Option struct {
	// Label is the short identifier shown to the user: a letter for
	// lettered or synthesized lists, a digit string for numbered lists
	// and rating scales.
	Label string `json:"label"`
	// Text is the display text, trimmed, surrounding quotes removed.
	Text string `json:"text"`
	// FullText is the original matched source span. Kept for fallback
	// range checks, never shown to the user.
	FullText string `json:"full_text,omitempty"`
}

// Result is the presentation model derived from one assistant message.
// It is re-derived on every render and never persisted.
type Result struct {
	Kind         Kind     `json:"kind"`
	Stem         string   `json:"stem,omitempty"`
	Options      []Option `json:"options,omitempty"`
	OriginalText string   `json:"original_text"`
}

// mcqKeywords gate option extraction: without a question mark, one of
// these phrases, or a numeric-scale pattern, a message is plain text and
// no extraction is attempted.
var mcqKeywords = []string{
	"choose the",
	"select the",
	"which of the following",
	"what is the best",
	"which option",
	"pick the",
	"the correct answer",
	"which statement",
	"rate your",
	"scale of",
	"on a scale",
	"how would you rate",
	"please rate",
	"could you rate",
}

var (
	scaleOfRe   = regexp.MustCompile(`(?i)scale of \d+(\s*[-–]\s*\d+)?`)
	rateRangeRe = regexp.MustCompile(`(?i)\brate\b.*\d+\s*[-–]\s*\d+`)

	quoteReplacer = strings.NewReplacer(
		"‘", "'", "’", "'", "‚", "'", "‛", "'",
		"“", `"`, "”", `"`, "„", `"`,
	)

	// Line-leading bullet glyph variants collapse to a single canonical
	// bullet so one pattern per family suffices.
	bulletLineRe = regexp.MustCompile(`(?m)^([ \t]*)[•‣◦⁃∙–—▪*-][ \t]+`)
)

// Classify decides whether text encodes a multiple-choice prompt and, if
// so, extracts its options. It is pure and never fails: anything it
// cannot parse comes back as KindPlainText with the original text intact.
// Callers must only pass fully received messages, never a partial stream.
func Classify(text string) Result {
	plain := Result{Kind: KindPlainText, OriginalText: text}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return plain
	}
	if !looksLikeMCQ(trimmed) {
		return plain
	}

	norm := Normalize(trimmed)

	for _, family := range patternFamilies {
		raw, first := family.extract(norm)
		if len(raw) < 2 {
			continue
		}
		// The first family with two or more matches decides the message.
		// If dedupe leaves it short, the message is plain text; lower
		// families never get a second look.
		opts := dedupeLabels(raw)
		if len(opts) < 2 {
			return plain
		}
		stem := strings.TrimSpace(norm)
		if first > 0 {
			stem = strings.TrimSpace(norm[:first])
		}
		if stem == "" {
			stem = strings.TrimSpace(norm)
		}
		return Result{
			Kind:         KindMultipleChoice,
			Stem:         stem,
			Options:      opts,
			OriginalText: text,
		}
	}

	return plain
}

// looksLikeMCQ is the gating check that keeps option extraction away
// from ordinary prose with stray punctuation.
func looksLikeMCQ(text string) bool {
	if strings.Contains(text, "?") {
		return true
	}
	lower := strings.ToLower(text)
	for _, kw := range mcqKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return scaleOfRe.MatchString(text) || rateRangeRe.MatchString(text)
}

// Normalize maps curly quote variants to ASCII quotes and collapses
// line-leading bullet glyphs to the canonical bullet.
func Normalize(text string) string {
	text = quoteReplacer.Replace(text)
	return bulletLineRe.ReplaceAllString(text, "${1}• ")
}

func dedupeLabels(opts []Option) []Option {
	if len(opts) < 2 {
		return opts
	}
	seen := make(map[string]bool, len(opts))
	out := opts[:0]
	for _, o := range opts {
		if o.Label == "" || o.Text == "" || seen[o.Label] {
			continue
		}
		seen[o.Label] = true
		out = append(out, o)
	}
	return out
}
