package files

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"socratic-tutor/internal/domain"
)

const bonusKey = "bonus_question"

// isQuestionLine matches "1." / "12)" style stems.
func isQuestionLine(line string) bool {
	if line == "" || !unicode.IsDigit(rune(line[0])) {
		return false
	}
	head := line[:min(3, len(line))]
	return strings.ContainsAny(head, ".)")
}

// isPartLine matches "a)" through "f)".
func isPartLine(line string) bool {
	if len(line) < 2 {
		return false
	}
	head := strings.ToLower(line[:2])
	return head[1] == ')' && head[0] >= 'a' && head[0] <= 'f'
}

// ParseQuestions segments question-file lines into stems and sub-parts.
// Continuation lines extend the last segment; lines before the first stem
// start a synthetic question.
func ParseQuestions(lines []string) []domain.Question {
	var (
		out     []domain.Question
		current *domain.Question
	)
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			continue
		case isQuestionLine(line):
			if current != nil {
				out = append(out, *current)
			}
			current = &domain.Question{Stem: line}
		case current != nil && isPartLine(line):
			current.Parts = append(current.Parts, line)
		case current != nil:
			if n := len(current.Parts); n > 0 {
				current.Parts[n-1] = strings.TrimSpace(current.Parts[n-1] + " " + line)
			} else {
				current.Stem = strings.TrimSpace(current.Stem + " " + line)
			}
		default:
			current = &domain.Question{Stem: line}
		}
	}
	if current != nil {
		out = append(out, *current)
	}
	return out
}

// GroupAnswers groups answer lines under numbered headings and pads or trims
// the groups to n.
func GroupAnswers(lines []string, n int) [][]string {
	var (
		groups  [][]string
		current []string
	)
	for _, line := range lines {
		if isQuestionLine(line) && len(current) > 0 {
			groups = append(groups, current)
			current = nil
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	for len(groups) < n {
		groups = append(groups, nil)
	}
	return groups[:n]
}

type rawDiagram struct {
	Prompt  string          `json:"prompt"`
	Folder  string          `json:"folder"`
	Images  json.RawMessage `json:"images"`
	Choices []string        `json:"choices"`
}

// parseDiagrams decodes a diagrams file keyed by 1-based question number. The
// optional "bonus_question" entry is returned separately.
func parseDiagrams(raw []byte) (map[string]domain.Diagram, string, error) {
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, "", fmt.Errorf("decode diagrams: %w", err)
	}

	var bonus string
	diagrams := make(map[string]domain.Diagram, len(entries))
	for key, value := range entries {
		if key == bonusKey {
			_ = json.Unmarshal(value, &bonus)
			bonus = strings.TrimSpace(bonus)
			continue
		}
		var d rawDiagram
		if err := json.Unmarshal(value, &d); err != nil {
			continue
		}
		diagrams[key] = domain.Diagram{
			Prompt:  d.Prompt,
			Folder:  d.Folder,
			Images:  normalizeImages(d.Images),
			Choices: d.Choices,
		}
	}
	return diagrams, bonus, nil
}

// normalizeImages accepts {"A": "x.png"}, [{"label": "A", "file": "x.png"}]
// or ["x.png", ...] and returns upper-case labels mapped to file names.
func normalizeImages(raw json.RawMessage) map[string]string {
	out := make(map[string]string)

	var byLabel map[string]string
	if err := json.Unmarshal(raw, &byLabel); err == nil {
		for label, file := range byLabel {
			if file != "" {
				out[strings.ToUpper(label)] = file
			}
		}
		return out
	}

	var labeled []struct {
		Label string `json:"label"`
		File  string `json:"file"`
	}
	if err := json.Unmarshal(raw, &labeled); err == nil {
		for _, item := range labeled {
			label := strings.ToUpper(strings.TrimSpace(item.Label))
			file := strings.TrimSpace(item.File)
			if label != "" && file != "" {
				out[label] = file
			}
		}
		return out
	}

	var plain []string
	if err := json.Unmarshal(raw, &plain); err == nil {
		for i, file := range plain {
			if file != "" && i < 26 {
				out[string(rune('A'+i))] = file
			}
		}
	}
	return out
}
