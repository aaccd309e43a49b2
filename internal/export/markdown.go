package export

import (
	"fmt"
	"strings"

	"kijko/internal/vrd"
)

// RenderMarkdown renders the document as Markdown bytes.
func RenderMarkdown(doc *vrd.Document) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", orPlaceholder(doc.Title, "Video Requirements Document"))
	fmt.Fprintf(&b, "_Generated %s_\n\n", doc.GeneratedAt.Format("2006-01-02 15:04"))

	b.WriteString("## Overview\n\n")
	b.WriteString(orPlaceholder(doc.Overview, "Not discussed yet."))
	b.WriteString("\n\n")

	b.WriteString("## Requirements\n\n")
	if len(doc.Requirements) == 0 {
		b.WriteString("Not discussed yet.\n")
	}
	for _, r := range doc.Requirements {
		fmt.Fprintf(&b, "- %s\n", r)
	}
	b.WriteString("\n")

	b.WriteString("## Technical Specifications\n\n")
	if len(doc.TechSpecs) == 0 {
		b.WriteString("Not discussed yet.\n")
	}
	for _, s := range doc.TechSpecs {
		fmt.Fprintf(&b, "- %s\n", s)
	}
	b.WriteString("\n")

	b.WriteString("## Timeline\n\n")
	b.WriteString(orPlaceholder(doc.Timeline, "Not discussed yet."))
	b.WriteString("\n\n")

	b.WriteString("## Budget\n\n")
	b.WriteString(orPlaceholder(doc.Budget, "Not discussed yet."))
	b.WriteString("\n")

	return []byte(b.String())
}

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}
