package domain

import (
	"fmt"
	"strings"
	"time"
)

// ConceptDomain maps concept keys to their synonym phrases.
type ConceptDomain struct {
	Name     string              `json:"name" yaml:"name"`
	Concepts map[string][]string `json:"concepts" yaml:"concepts"`
}

// Variants returns the registered phrases for a concept key (nil when unknown).
func (d *ConceptDomain) Variants(key string) []string {
	if d == nil || d.Concepts == nil {
		return nil
	}
	return d.Concepts[key]
}

// QuestionSpec lists the concepts a student must cover for one question unit.
type QuestionSpec struct {
	QuestionID       string              `json:"questionId" yaml:"question_id"`
	Domain           string              `json:"domain" yaml:"domain"`
	RequiredConcepts []string            `json:"requiredConcepts" yaml:"required_concepts"`
	OptionalConcepts []string            `json:"optionalConcepts,omitempty" yaml:"optional_concepts"`
	FollowUps        map[string][]string `json:"followUps,omitempty" yaml:"follow_ups"`
	Encouragements   []string            `json:"encouragements,omitempty" yaml:"encouragements"`
	UncertaintyNudge string              `json:"uncertaintyNudge,omitempty" yaml:"uncertainty_nudge"`
}

// Validate checks the structural invariants of a spec loaded from the content store.
func (s QuestionSpec) Validate() error {
	if strings.TrimSpace(s.QuestionID) == "" {
		return fmt.Errorf("%w: missing question id", ErrInvalidSpec)
	}
	seen := make(map[string]struct{}, len(s.RequiredConcepts))
	for _, key := range s.RequiredConcepts {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("%w: %s has a blank required concept", ErrInvalidSpec, s.QuestionID)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: %s repeats required concept %q", ErrInvalidSpec, s.QuestionID, key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// SubmissionState is the running dialogue state for one (session, question) pair.
type SubmissionState struct {
	Accumulated     string `json:"accumulated"`
	UncertainStreak int    `json:"uncertainStreak"`
	GibberishStreak int    `json:"gibberishStreak"`
}

// StateKey identifies a SubmissionState.
type StateKey struct {
	SessionID  string
	QuestionID string
}

// TurnKind tags a TurnResult.
type TurnKind string

const (
	TurnAdvance          TurnKind = "advance"
	TurnFollowUp         TurnKind = "follow_up"
	TurnUncertaintyNudge TurnKind = "uncertainty_nudge"
	TurnGibberishNudge   TurnKind = "gibberish_nudge"
	TurnGenericNudge     TurnKind = "generic_nudge"
)

// TurnResult is the controller's decision for one submission.
type TurnResult struct {
	Kind           TurnKind `json:"kind"`
	Text           string   `json:"text,omitempty"`
	Classification string   `json:"classification,omitempty"`
	// Concept is the required concept targeted by a follow-up.
	Concept         string   `json:"concept,omitempty"`
	Missing         []string `json:"missing,omitempty"`
	OptionalCovered []string `json:"optionalCovered,omitempty"`
}

// Question is a numbered question stem with optional lettered sub-parts.
type Question struct {
	Stem   string   `json:"stem"`
	Parts  []string `json:"parts,omitempty"`
	Answer []string `json:"answer,omitempty"`
}

// Diagram describes the images shown next to a question.
type Diagram struct {
	Prompt  string            `json:"prompt,omitempty"`
	Folder  string            `json:"folder,omitempty"`
	Images  map[string]string `json:"images,omitempty"`
	Choices []string          `json:"choices,omitempty"`
}

// Module is a bundle of questions studied in one session.
type Module struct {
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	Questions []Question         `json:"questions"`
	Notes     []string           `json:"notes,omitempty"`
	Bonus     string             `json:"bonus,omitempty"`
	Diagrams  map[string]Diagram `json:"diagrams,omitempty"`
}

// Pointer addresses a sub-part (Part) of a question (Question), both 0-based.
type Pointer struct {
	Question int `json:"question"`
	Part     int `json:"part"`
}

// Role of a transcript message author.
type Role string

const (
	RoleTutor   Role = "tutor"
	RoleStudent Role = "student"
)

// Message is one transcript entry.
type Message struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Progress summarizes how far a session has moved through its module.
type Progress struct {
	Fraction float64 `json:"fraction"`
	Label    string  `json:"label"`
}

// SessionView is a snapshot of a tutoring session for transports.
type SessionView struct {
	SessionID string   `json:"sessionId"`
	ModuleID  string   `json:"moduleId"`
	Title     string   `json:"title"`
	Student   string   `json:"student"`
	Pointer   Pointer  `json:"pointer"`
	UnitID    string   `json:"unitId"`
	Question  string   `json:"question"`
	Diagram   *Diagram `json:"diagram,omitempty"`
	Progress  Progress `json:"progress"`
	Completed bool     `json:"completed"`
}

// TurnOutcome pairs the controller decision with the session state after it.
type TurnOutcome struct {
	Result  TurnResult  `json:"result"`
	Session SessionView `json:"session"`
}

// QuestionRef is a search hit inside a module.
type QuestionRef struct {
	UnitID  string  `json:"unitId"`
	Pointer Pointer `json:"pointer"`
	Text    string  `json:"text"`
}
