package app

import (
	"fmt"
	"strings"
)

// rephrasePrompt asks the model to restate a follow-up without revealing answers.
func rephrasePrompt(questionText, followUp string, contextSnips []string) string {
	var b strings.Builder
	b.WriteString("You are a Socratic biochemistry tutor. Rephrase the tutor's follow-up as ONE short, ")
	b.WriteString("natural question. Do not reveal the answer or introduce new concepts.\n\n")
	fmt.Fprintf(&b, "Current question: %s\n", questionText)
	if len(contextSnips) > 0 {
		b.WriteString("Nearby questions:\n")
		for _, s := range contextSnips {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	fmt.Fprintf(&b, "Follow-up to rephrase: %s\n", followUp)
	b.WriteString("Question:")
	return b.String()
}

// mechanismPrompt asks for a short mechanism question when no concept spec exists.
func mechanismPrompt(questionText, studentAnswer string, contextSnips []string) string {
	var b strings.Builder
	b.WriteString("You are a Socratic tutor. Ask ONE short question that pushes the student to add one ")
	b.WriteString("more mechanistic detail. Never give the answer.\n\n")
	fmt.Fprintf(&b, "Question: %s\n", questionText)
	for _, s := range contextSnips {
		fmt.Fprintf(&b, "Context: %s\n", s)
	}
	fmt.Fprintf(&b, "Student answer: %s\n", strings.TrimSpace(studentAnswer))
	b.WriteString("Tutor question:")
	return b.String()
}
