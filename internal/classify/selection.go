package classify

import (
	"regexp"
	"strings"
)

// SelectionMode tells the UI how an option set may be answered.
type SelectionMode string

const (
	SingleSelect          SelectionMode = "single_select"
	MultiSelect           SelectionMode = "multi_select"
	RatingScaleAutoSubmit SelectionMode = "rating_scale_auto_submit"
)

var pureNumberRe = regexp.MustCompile(`^\d+(\.\d+)?$`)

// ModeFor computes the selection mode for an option set. A pure numeric
// rating scale always auto-submits, even against an explicit override:
// scale answers are single-valued and benefit from zero-friction
// auto-advance. Any other enumeration defaults to multi-select, since
// prompts frequently ask the user to pick all that apply; a caller
// override maps directly to single- or multi-select.
func ModeFor(options []Option, override *bool) SelectionMode {
	if IsRatingScale(options) {
		return RatingScaleAutoSubmit
	}
	if override != nil {
		if *override {
			return MultiSelect
		}
		return SingleSelect
	}
	return MultiSelect
}

// IsRatingScale reports whether every option is a point on a numeric
// scale. Both shapes count: options whose display text is a bare number
// ("1", "5", "10") and options extracted from "N = 'meaning'" bullets,
// where the number lives in the label and the text carries its meaning.
// Ordinary numbered lists ("1. Formal") have numeric labels too but are
// not scales; their source spans carry no "=", which is what FullText is
// kept around for.
func IsRatingScale(options []Option) bool {
	if len(options) == 0 {
		return false
	}
	allTexts, allScalePoints := true, true
	for _, o := range options {
		if !pureNumberRe.MatchString(strings.TrimSpace(o.Text)) {
			allTexts = false
		}
		if !pureNumberRe.MatchString(o.Label) || !strings.Contains(o.FullText, "=") {
			allScalePoints = false
		}
		if !allTexts && !allScalePoints {
			return false
		}
	}
	return allTexts || allScalePoints
}
