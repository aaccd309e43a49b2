package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions_ExplicitListWins(t *testing.T) {
	opts := DefaultOptions("Formats on offer:\n1. Vertical\n2. Widescreen")

	require.Len(t, opts, 2)
	assert.Equal(t, "1", opts[0].Label)
	assert.Equal(t, "Vertical", opts[0].Text)
	assert.Equal(t, "Widescreen", opts[1].Text)
}

func TestDefaultOptions_EnumeratedClause(t *testing.T) {
	opts := DefaultOptions("Are you looking to entertain, educate or inspire? Happy to go deeper on any of these.")

	require.Len(t, opts, 3)
	assert.Equal(t, []string{"A", "B", "C"}, optionLabels(opts))
	assert.Equal(t, []string{"entertain", "educate", "inspire"}, optionTexts(opts))
}

func TestDefaultOptions_EnumeratedDedupes(t *testing.T) {
	opts := DefaultOptions("You can choose from drone shots, drone shots or studio footage.")

	require.Len(t, opts, 2)
	assert.Equal(t, []string{"drone shots", "studio footage"}, optionTexts(opts))
}

func TestDefaultOptions_TopicKeywords(t *testing.T) {
	cases := []struct {
		text  string
		first string
	}{
		{"What is the main goal of this video?", "Brand awareness"},
		{"Do you already have footage we can use?", "Yes"},
		{"Which would you prefer for the opening shot?", "The first option"},
		{"How should the overall tone come across?", "Professional and polished"},
		{"Tell me about the target audience.", "General public"},
	}
	for _, tc := range cases {
		opts := DefaultOptions(tc.text)
		require.GreaterOrEqual(t, len(opts), 2, "text: %s", tc.text)
		assert.Equal(t, tc.first, opts[0].Text, "text: %s", tc.text)
	}
}

func TestDefaultOptions_GenericFallback(t *testing.T) {
	opts := DefaultOptions("Great, thanks for the context!")

	require.Len(t, opts, 4)
	assert.Equal(t, []string{
		"Tell me more",
		"Let's move on",
		"Can you clarify that?",
		"I have a different question",
	}, optionTexts(opts))
}

func TestDefaultOptions_NeverFewerThanTwo(t *testing.T) {
	inputs := []string{"", "ok", "one, two", "such as x", "do you want to"}
	for _, in := range inputs {
		opts := DefaultOptions(in)
		assert.GreaterOrEqual(t, len(opts), 2, "input %q", in)
	}
}
