// Package vrd assembles a Video Requirements Document from a finished
// (or in-progress) interview. Extraction is keyword-heuristic over
// question/answer pairs; the assistant's question decides which section
// the user's answer lands in.
package vrd

import (
	"fmt"
	"strings"
	"time"

	"kijko/pkg/model"
)

// Document is the fixed-shape record the exporters render.
type Document struct {
	Title        string    `json:"title"`
	Overview     string    `json:"overview"`
	Requirements []string  `json:"requirements"`
	TechSpecs    []string  `json:"tech_specs"`
	Timeline     string    `json:"timeline"`
	Budget       string    `json:"budget"`
	GeneratedAt  time.Time `json:"generated_at"`
}

type section int

const (
	sectionOverview section = iota
	sectionRequirements
	sectionTechSpecs
	sectionTimeline
	sectionBudget
)

var sectionKeywords = []struct {
	section  section
	keywords []string
}{
	{sectionBudget, []string{"budget", "cost", "spend", "price", "invest"}},
	{sectionTimeline, []string{"timeline", "deadline", "when do", "launch date", "how soon", "delivery date"}},
	{sectionTechSpecs, []string{"format", "resolution", "aspect ratio", "length", "duration", "platform", "vertical", "widescreen", "frame rate"}},
	{sectionOverview, []string{"purpose", "goal", "audience", "about", "message", "objective", "what is the video"}},
}

// Extract walks the conversation in order and files each user answer
// under the section suggested by the assistant question preceding it.
// Answers that match no section become requirements line items, so
// nothing the client said is dropped.
func Extract(title string, messages []*model.Message) *Document {
	doc := &Document{
		Title:       title,
		GeneratedAt: time.Now(),
	}

	var lastQuestion string
	var overview []string

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleAssistant:
			lastQuestion = msg.Text
		case model.RoleUser:
			answer := strings.TrimSpace(msg.Text)
			if answer == "" {
				continue
			}
			switch classifySection(lastQuestion) {
			case sectionBudget:
				doc.Budget = appendClause(doc.Budget, answer)
			case sectionTimeline:
				doc.Timeline = appendClause(doc.Timeline, answer)
			case sectionTechSpecs:
				doc.TechSpecs = append(doc.TechSpecs, specLine(lastQuestion, answer))
			case sectionOverview:
				overview = append(overview, answer)
			default:
				doc.Requirements = append(doc.Requirements, specLine(lastQuestion, answer))
			}
		}
	}

	doc.Overview = strings.Join(overview, " ")
	return doc
}

func classifySection(question string) section {
	lower := strings.ToLower(question)
	for _, sk := range sectionKeywords {
		for _, kw := range sk.keywords {
			if strings.Contains(lower, kw) {
				return sk.section
			}
		}
	}
	return sectionRequirements
}

func appendClause(existing, clause string) string {
	if existing == "" {
		return clause
	}
	return existing + "; " + clause
}

// specLine condenses a question/answer pair into one line item. The
// question's first sentence becomes the topic label.
func specLine(question, answer string) string {
	topic := firstSentence(question)
	if topic == "" {
		return answer
	}
	return fmt.Sprintf("%s — %s", topic, answer)
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	for i, r := range text {
		if r == '?' || r == '.' || r == '\n' {
			return strings.TrimSpace(text[:i+1])
		}
	}
	if len(text) > 80 {
		return strings.TrimSpace(text[:80]) + "…"
	}
	return text
}
