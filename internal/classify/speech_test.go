package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripMarkdownForSpeech(t *testing.T) {
	got := StripMarkdownForSpeech("Here's **bold** and *italic* with a [link](http://x) and `code`.")
	assert.Equal(t, "Here's bold and italic with a link and code.", got)
}

func TestStripMarkdownForSpeech_FencedCode(t *testing.T) {
	got := StripMarkdownForSpeech("Look at this:\n```go\nfmt.Println(\"hi\")\n```\nNeat, right?")
	assert.Equal(t, "Look at this:\ncode block\nNeat, right?", got)
}

func TestStripMarkdownForSpeech_Images(t *testing.T) {
	got := StripMarkdownForSpeech("See ![storyboard frame](https://cdn/frame.png) for reference.")
	assert.Equal(t, "See storyboard frame image for reference.", got)
}

func TestStripMarkdownForSpeech_Headers(t *testing.T) {
	got := StripMarkdownForSpeech("## Budget\nAround $10k.\n### Timeline\nSix weeks.")
	assert.Equal(t, "Budget\nAround $10k.\nTimeline\nSix weeks.", got)
}

func TestStripMarkdownForSpeech_ListMarkers(t *testing.T) {
	got := StripMarkdownForSpeech("You'll need:\n- a script\n* a location\n• a crew\n1. and a budget")
	assert.Equal(t, "You'll need:\na script\na location\na crew\nand a budget", got)
}

func TestStripMarkdownForSpeech_CollapsesNewlineRuns(t *testing.T) {
	got := StripMarkdownForSpeech("First thought.\n\n\n\n\nSecond thought.")
	assert.Equal(t, "First thought.\n\nSecond thought.", got)
}

func TestStripMarkdownForSpeech_UnderscoreEmphasis(t *testing.T) {
	got := StripMarkdownForSpeech("This is _important_ and __very important__.")
	assert.Equal(t, "This is important and very important.", got)
}

func TestStripMarkdownForSpeech_MalformedPassesThrough(t *testing.T) {
	inputs := []string{
		"unbalanced **bold here",
		"stray ` backtick",
		"[label with no url]",
		"***",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() { StripMarkdownForSpeech(in) })
	}
	assert.Equal(t, "unbalanced **bold here", StripMarkdownForSpeech("unbalanced **bold here"))
	assert.Equal(t, "[label with no url]", StripMarkdownForSpeech("[label with no url]"))
}

func TestStripMarkdownForSpeech_Idempotent(t *testing.T) {
	inputs := []string{
		"Here's **bold** and *italic* with a [link](http://x) and `code`.",
		"## Title\n\n- item one\n- item two\n\n```\ncode\n```",
		"Plain sentence with no markdown at all.",
		"Nested **bold with _italic_ inside** text.",
		"![alt](url) then [more](url2)\n\n\n\ndone",
		"",
		// unbalanced emphasis leaves residue a single pass would miss
		"**tight * loose**",
		"a *b **c* d",
		"__one _two__ three_",
	}
	for _, in := range inputs {
		once := StripMarkdownForSpeech(in)
		twice := StripMarkdownForSpeech(once)
		assert.Equal(t, once, twice, "second pass changed output for %q", in)
	}
}

func TestStripMarkdownForSpeech_UnbalancedEmphasisStabilizes(t *testing.T) {
	got := StripMarkdownForSpeech("**tight * loose**")
	assert.Equal(t, got, StripMarkdownForSpeech(got))
	assert.NotContains(t, got, "**")
}

func TestStripMarkdownForSpeech_Empty(t *testing.T) {
	assert.Equal(t, "", StripMarkdownForSpeech(""))
	assert.Equal(t, "", StripMarkdownForSpeech("   \n\t  "))
}
