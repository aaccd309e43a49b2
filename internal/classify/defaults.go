package classify

import (
	"regexp"
	"strings"
)

// The product shows an interactive affordance under every assistant
// turn, so plain-text messages still need quick-reply choices. Fixed
// sets below are tuned to the question types the interview asks most.
var (
	genericOptions = []string{
		"Tell me more",
		"Let's move on",
		"Can you clarify that?",
		"I have a different question",
	}

	topicSets = []struct {
		keywords []string
		options  []string
	}{
		{
			keywords: []string{"purpose", "goal", "objective", "achieve", "looking to accomplish"},
			options:  []string{"Brand awareness", "Product promotion", "Educational content", "Entertainment"},
		},
		{
			keywords: []string{"prefer", "rather", "favorite", "like best"},
			options:  []string{"The first option", "The second option", "A mix of both", "Something different"},
		},
		{
			keywords: []string{"style", "tone", "mood", "aesthetic", "look and feel"},
			options:  []string{"Professional and polished", "Casual and friendly", "Bold and energetic", "Minimal and clean"},
		},
		{
			keywords: []string{"audience", "viewer", "demographic", "target", "who is this for"},
			options:  []string{"General public", "Industry professionals", "Existing customers", "Younger audiences"},
		},
		// Broad yes/no phrasing goes last so the more specific sets win.
		{
			keywords: []string{"do you ", "would you ", "are you ", "should we", "have you ", "is there ", "will you "},
			options:  []string{"Yes", "No", "Not sure yet"},
		},
	}

	enumeratedIntros = []string{
		"are you looking to",
		"do you want to",
		"choose from",
		"options include",
		"such as",
	}

	clauseEndRe = regexp.MustCompile(`[.?!\n]`)
	orSplitRe   = regexp.MustCompile(`(?i)\s+or\s+`)
)

// DefaultOptions generates quick-reply choices for a message that
// carries no explicit option structure. It always returns at least two
// options; callers rely on that.
func DefaultOptions(text string) []Option {
	// Explicit numbered or lettered options win, same extraction as
	// Classify but without the question gate.
	norm := Normalize(strings.TrimSpace(text))
	for _, family := range patternFamilies {
		opts, _ := family.extract(norm)
		if opts = dedupeLabels(opts); len(opts) >= 2 {
			return opts
		}
	}

	if opts := enumeratedOptions(norm); len(opts) >= 2 {
		return opts
	}

	lower := strings.ToLower(text)
	for _, set := range topicSets {
		for _, kw := range set.keywords {
			if strings.Contains(lower, kw) {
				return labelOptions(set.options)
			}
		}
	}

	return labelOptions(genericOptions)
}

// enumeratedOptions splits an inline choice list ("do you want to A, B
// or C?") into lettered options.
func enumeratedOptions(text string) []Option {
	lower := strings.ToLower(text)
	for _, intro := range enumeratedIntros {
		pos := strings.Index(lower, intro)
		if pos < 0 {
			continue
		}
		clause := text[pos+len(intro):]
		if end := clauseEndRe.FindStringIndex(clause); end != nil {
			clause = clause[:end[0]]
		}

		var candidates []string
		for _, part := range strings.Split(clause, ",") {
			candidates = append(candidates, orSplitRe.Split(part, -1)...)
		}

		seen := make(map[string]bool)
		var opts []Option
		for _, c := range candidates {
			c = strings.Trim(strings.TrimSpace(c), `"'`)
			key := strings.ToLower(c)
			if c == "" || seen[key] {
				continue
			}
			seen[key] = true
			opts = append(opts, Option{
				Label:    letterLabel(len(opts)),
				Text:     c,
				FullText: c,
			})
		}
		if len(opts) >= 2 {
			return opts
		}
	}
	return nil
}

func labelOptions(texts []string) []Option {
	opts := make([]Option, len(texts))
	for i, t := range texts {
		opts[i] = Option{Label: letterLabel(i), Text: t, FullText: t}
	}
	return opts
}
