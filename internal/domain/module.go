package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

const maxSnippetLen = 160

var leadingNumber = regexp.MustCompile(`^\s*(\d+)\s*[.)]`)

// PartCount returns the number of steps for question qi (at least 1).
func (m Module) PartCount(qi int) int {
	if qi < 0 || qi >= len(m.Questions) {
		return 1
	}
	return max(1, len(m.Questions[qi].Parts))
}

// Valid reports whether ptr addresses an existing unit.
func (m Module) Valid(ptr Pointer) bool {
	return ptr.Question >= 0 && ptr.Question < len(m.Questions) &&
		ptr.Part >= 0 && ptr.Part < m.PartCount(ptr.Question)
}

// UnitID is the identifier question specs are keyed by, e.g. "cancer01/1a".
func (m Module) UnitID(ptr Pointer) string {
	id := fmt.Sprintf("%s/%d", m.ID, ptr.Question+1)
	if ptr.Question < len(m.Questions) && len(m.Questions[ptr.Question].Parts) > 0 {
		id += string(rune('a' + ptr.Part))
	}
	return id
}

// UnitText renders the display text for the unit at ptr.
func (m Module) UnitText(ptr Pointer) string {
	if ptr.Question < 0 || ptr.Question >= len(m.Questions) {
		return ""
	}
	q := m.Questions[ptr.Question]
	if len(q.Parts) > 0 {
		si := min(max(ptr.Part, 0), len(q.Parts)-1)
		body := strings.TrimSpace(q.Parts[si])
		if len(body) > 2 && body[1] == ')' && unicode.IsLetter(rune(body[0])) {
			body = strings.TrimSpace(body[2:])
		}
		return fmt.Sprintf("%d%c) %s", ptr.Question+1, rune('a'+si), body)
	}
	stem := strings.TrimLeft(strings.TrimSpace(q.Stem), "0123456789.) ")
	if stem == "" {
		stem = "(empty)"
	}
	return fmt.Sprintf("%d) %s", ptr.Question+1, stem)
}

// NextPointer advances to the next sub-part, then the next question.
// ok is false when ptr was the last unit.
func (m Module) NextPointer(ptr Pointer) (next Pointer, ok bool) {
	if ptr.Part+1 < m.PartCount(ptr.Question) {
		return Pointer{Question: ptr.Question, Part: ptr.Part + 1}, true
	}
	if ptr.Question+1 < len(m.Questions) {
		return Pointer{Question: ptr.Question + 1}, true
	}
	return Pointer{}, false
}

// Progress reports the fraction of the module covered at ptr.
func (m Module) Progress(ptr Pointer) Progress {
	parts := m.PartCount(ptr.Question)
	idx := float64(ptr.Question) + float64(ptr.Part)/float64(parts)
	total := float64(max(1, len(m.Questions)))
	return Progress{
		Fraction: min(1.0, idx/total),
		Label:    fmt.Sprintf("Q%d · part %c of %d", ptr.Question+1, rune('a'+ptr.Part), parts),
	}
}

// BonusQuestion returns the optional bonus question, if the module has one.
func (m Module) BonusQuestion() (string, bool) {
	if b := strings.TrimSpace(m.Bonus); b != "" {
		return b, true
	}
	for i := len(m.Notes) - 1; i >= 0; i-- {
		line := strings.TrimSpace(m.Notes[i])
		if strings.HasPrefix(strings.ToLower(line), "bonus:") {
			return strings.TrimSpace(line[len("bonus:"):]), true
		}
	}
	return "", false
}

// ContextSnippets returns short stems around ptr. Answers are never included.
func (m Module) ContextSnippets(ptr Pointer) []string {
	var snips []string
	for off := -1; off <= 1; off++ {
		idx := ptr.Question + off
		if idx < 0 || idx >= len(m.Questions) {
			continue
		}
		q := m.Questions[idx]
		snippet := q.Stem
		if len(q.Parts) > 0 {
			snippet += " " + q.Parts[0]
		}
		snippet = strings.TrimSpace(snippet)
		if r := []rune(snippet); len(r) > maxSnippetLen {
			snippet = string(r[:maxSnippetLen])
		}
		if snippet != "" {
			snips = append(snips, snippet)
		}
	}
	return snips
}

// DiagramFor finds the diagram for the question at ptr. Diagrams are keyed by
// the explicit number in the stem ("18. ...") or by the 1-based index.
func (m Module) DiagramFor(ptr Pointer) (*Diagram, bool) {
	if len(m.Diagrams) == 0 || ptr.Question < 0 || ptr.Question >= len(m.Questions) {
		return nil, false
	}
	qnum := strconv.Itoa(ptr.Question + 1)
	if match := leadingNumber.FindStringSubmatch(m.Questions[ptr.Question].Stem); match != nil {
		if n, err := strconv.Atoi(match[1]); err == nil {
			qnum = strconv.Itoa(n)
		}
	}
	d, ok := m.Diagrams[qnum]
	if !ok {
		return nil, false
	}
	if d.Folder == "" {
		d.Folder = "images"
	}
	return &d, true
}
