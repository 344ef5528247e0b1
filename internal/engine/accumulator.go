package engine

import (
	"strings"

	"socratic-tutor/internal/domain"
)

// Accumulate appends a substantive submission to the running answer text.
// Text is only ever appended, space separated.
func Accumulate(state *domain.SubmissionState, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if state.Accumulated == "" {
		state.Accumulated = text
		return
	}
	state.Accumulated += " " + text
}
