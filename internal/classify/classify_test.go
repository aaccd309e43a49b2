package classify

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_RatingScaleBullets(t *testing.T) {
	text := "Rate your clarity on a scale of 1-10?\n• 1 = 'low'\n• 5 = 'medium'\n• 10 = 'high'"

	res := Classify(text)

	require.Equal(t, KindMultipleChoice, res.Kind)
	assert.Equal(t, "Rate your clarity on a scale of 1-10?", res.Stem)
	require.Len(t, res.Options, 3)

	labels := []string{res.Options[0].Label, res.Options[1].Label, res.Options[2].Label}
	texts := []string{res.Options[0].Text, res.Options[1].Text, res.Options[2].Text}
	assert.Equal(t, []string{"1", "5", "10"}, labels)
	assert.Equal(t, []string{"low", "medium", "high"}, texts)

	// Scales always auto-submit, even against an explicit override.
	override := true
	assert.Equal(t, RatingScaleAutoSubmit, ModeFor(res.Options, &override))
}

func TestClassify_LetteredInline(t *testing.T) {
	res := Classify("Which tone? A. Formal B. Casual C. Playful")

	require.Equal(t, KindMultipleChoice, res.Kind)
	assert.Equal(t, "Which tone?", res.Stem)
	require.Len(t, res.Options, 3)
	assert.Equal(t, Option{Label: "A", Text: "Formal", FullText: "A. Formal"}, res.Options[0])
	assert.Equal(t, "B", res.Options[1].Label)
	assert.Equal(t, "Casual", res.Options[1].Text)
	assert.Equal(t, "C", res.Options[2].Label)
	assert.Equal(t, "Playful", res.Options[2].Text)
}

func TestClassify_LetteredMultiline(t *testing.T) {
	res := Classify("Which length works best?\nA) 30 seconds\nB) 60 seconds\nC) 90 seconds")

	require.Equal(t, KindMultipleChoice, res.Kind)
	assert.Equal(t, "Which length works best?", res.Stem)
	require.Len(t, res.Options, 3)
	assert.Equal(t, "30 seconds", res.Options[0].Text)
	assert.Equal(t, "90 seconds", res.Options[2].Text)
}

func TestClassify_PlainTextGate(t *testing.T) {
	res := Classify("The video will be 90 seconds long.")

	assert.Equal(t, KindPlainText, res.Kind)
	assert.Empty(t, res.Options)
	assert.Empty(t, res.Stem)
	assert.Equal(t, "The video will be 90 seconds long.", res.OriginalText)
}

func TestClassify_GateBlocksListWithoutQuestion(t *testing.T) {
	// A numbered list with no question mark and no MCQ keyword must not
	// be mistaken for options.
	res := Classify("Next steps:\n1. Record the voiceover\n2. Cut the rough edit\n3. Add titles")

	assert.Equal(t, KindPlainText, res.Kind)
}

func TestClassify_KeywordGateWithoutQuestionMark(t *testing.T) {
	res := Classify("Please rate the pacing on a scale of 1-5.\n• 1 = 'too slow'\n• 3 = 'just right'\n• 5 = 'too fast'")

	require.Equal(t, KindMultipleChoice, res.Kind)
	assert.Equal(t, []string{"1", "3", "5"}, optionLabels(res.Options))
}

func TestClassify_NumberedLines(t *testing.T) {
	res := Classify("Which option fits your budget?\n1. Under $5k\n2. $5k to $20k\n3. Above $20k")

	require.Equal(t, KindMultipleChoice, res.Kind)
	assert.Equal(t, "Which option fits your budget?", res.Stem)
	assert.Equal(t, []string{"1", "2", "3"}, optionLabels(res.Options))
	assert.Equal(t, "Under $5k", res.Options[0].Text)

	// Numbered lists are enumerations, not rating scales.
	assert.Equal(t, MultiSelect, ModeFor(res.Options, nil))
}

func TestClassify_BareBulletsSynthesizeLabels(t *testing.T) {
	res := Classify("What matters most to you?\n• Speed\n• Quality\n• Cost")

	require.Equal(t, KindMultipleChoice, res.Kind)
	require.Len(t, res.Options, 3)
	assert.Equal(t, []string{"A", "B", "C"}, optionLabels(res.Options))
	assert.Equal(t, "Speed", res.Options[0].Text)
}

func TestClassify_BulletAndQuoteNormalization(t *testing.T) {
	straight := "Rate the concept on a scale of 1-5?\n• 1 = 'weak'\n• 5 = 'strong'"
	curly := "Rate the concept on a scale of 1-5?\n‣ 1 = ‘weak’\n‣ 5 = ‘strong’"

	a := Classify(straight)
	b := Classify(curly)

	require.Equal(t, KindMultipleChoice, a.Kind)
	require.Equal(t, a.Kind, b.Kind)
	assert.Equal(t, optionLabels(a.Options), optionLabels(b.Options))
	assert.Equal(t, optionTexts(a.Options), optionTexts(b.Options))
}

func TestClassify_FamilyPrecedence(t *testing.T) {
	// Numbered lines outrank bare bullets; results never merge across
	// families.
	res := Classify("Which one?\n1. First\n2. Second\n• stray note\n• another note")

	require.Equal(t, KindMultipleChoice, res.Kind)
	assert.Equal(t, []string{"1", "2"}, optionLabels(res.Options))
}

func TestClassify_LetterEquals(t *testing.T) {
	res := Classify("Which direction should we take?\n- A = Documentary style\n- B = Animated explainer")

	require.Equal(t, KindMultipleChoice, res.Kind)
	assert.Equal(t, []string{"A", "B"}, optionLabels(res.Options))
	assert.Equal(t, "Documentary style", res.Options[0].Text)
}

func TestClassify_SingleOptionFallsBackToPlainText(t *testing.T) {
	res := Classify("Ready to continue?\n1. Yes")

	assert.Equal(t, KindPlainText, res.Kind)
}

func TestClassify_DuplicateLabelsDeduped(t *testing.T) {
	res := Classify("Pick the format?\n1. Vertical\n1. Square\n2. Widescreen")

	require.Equal(t, KindMultipleChoice, res.Kind)
	labels := optionLabels(res.Options)
	seen := map[string]bool{}
	for _, l := range labels {
		assert.False(t, seen[l], "label %q appears twice", l)
		seen[l] = true
	}
}

func TestClassify_DedupeShortfallDoesNotFallThrough(t *testing.T) {
	// The numbered family matches two lines, so it owns the message even
	// though dedupe collapses them; the bullets below must not be
	// consulted.
	res := Classify("Which one?\n1. Yes\n1. Yes\n• Speed\n• Quality")

	assert.Equal(t, KindPlainText, res.Kind)
	assert.Empty(t, res.Options)
}

func TestClassify_TotalOnHostileInput(t *testing.T) {
	inputs := []string{
		"",
		"   \n\t  ",
		"?",
		strings.Repeat("? • 1 = ' ", 5000),
		"• = ''\n• = ''",
	}

	rng := rand.New(rand.NewSource(42))
	var b strings.Builder
	for i := 0; i < 100_000; i++ {
		b.WriteRune(rune(rng.Intn(0x2500) + 1))
	}
	inputs = append(inputs, b.String())

	for _, in := range inputs {
		assert.NotPanics(t, func() {
			res := Classify(in)
			assert.NotEmpty(t, res.Kind)
			_ = StripMarkdownForSpeech(in)
		})
	}
}

func TestModeFor(t *testing.T) {
	words := []Option{
		{Label: "A", Text: "Formal"},
		{Label: "B", Text: "Casual"},
	}
	numbers := []Option{
		{Label: "A", Text: "1"},
		{Label: "B", Text: "2"},
		{Label: "C", Text: "3"},
	}

	assert.Equal(t, MultiSelect, ModeFor(words, nil))

	multi, single := true, false
	assert.Equal(t, MultiSelect, ModeFor(words, &multi))
	assert.Equal(t, SingleSelect, ModeFor(words, &single))

	// Pure numeric texts are a scale regardless of override.
	assert.Equal(t, RatingScaleAutoSubmit, ModeFor(numbers, nil))
	assert.Equal(t, RatingScaleAutoSubmit, ModeFor(numbers, &multi))
	assert.Equal(t, RatingScaleAutoSubmit, ModeFor(numbers, &single))

	assert.Equal(t, MultiSelect, ModeFor(nil, nil))
}

func optionLabels(opts []Option) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Label
	}
	return out
}

func optionTexts(opts []Option) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Text
	}
	return out
}
