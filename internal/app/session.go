package app

import (
	"strings"
	"sync"
	"time"

	"socratic-tutor/internal/domain"
)

// Session is the in-memory state of one student working through a module.
// It exclusively owns the SubmissionStates of its questions.
type Session struct {
	id        string
	createdAt time.Time
	now       func() time.Time

	mu         sync.Mutex
	student    string
	module     domain.Module
	ptr        domain.Pointer
	completed  bool
	states     map[domain.StateKey]*domain.SubmissionState
	transcript []domain.Message
}

func newSession(id string) *Session {
	return newSessionWithClock(id, time.Now)
}

// newSessionWithClock allows deterministic timestamps in tests.
func newSessionWithClock(id string, now func() time.Time) *Session {
	return &Session{
		id:        id,
		createdAt: now(),
		now:       now,
		states:    make(map[domain.StateKey]*domain.SubmissionState),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// resetLocked restarts the session on module, dropping all dialogue state.
func (s *Session) resetLocked(module domain.Module, student string) {
	s.module = module
	s.student = student
	s.ptr = domain.Pointer{}
	s.completed = len(module.Questions) == 0
	s.transcript = nil
	clear(s.states)
}

// stateLocked returns the SubmissionState for the current question, creating
// it on first use.
func (s *Session) stateLocked(questionID string) *domain.SubmissionState {
	key := domain.StateKey{SessionID: s.id, QuestionID: questionID}
	state, ok := s.states[key]
	if !ok {
		state = &domain.SubmissionState{}
		s.states[key] = state
	}
	return state
}

// advanceLocked moves the pointer forward and clears per-question state.
// It reports false once the module is finished.
func (s *Session) advanceLocked() bool {
	clear(s.states)
	next, ok := s.module.NextPointer(s.ptr)
	if !ok {
		s.completed = true
		return false
	}
	s.ptr = next
	return true
}

func (s *Session) recordLocked(role domain.Role, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.transcript = append(s.transcript, domain.Message{Role: role, Text: text, At: s.now()})
}

func (s *Session) viewLocked() domain.SessionView {
	view := domain.SessionView{
		SessionID: s.id,
		ModuleID:  s.module.ID,
		Title:     s.module.Title,
		Student:   s.student,
		Pointer:   s.ptr,
		Completed: s.completed,
	}
	if s.completed {
		view.Progress = domain.Progress{Fraction: 1, Label: "complete"}
		return view
	}
	view.UnitID = s.module.UnitID(s.ptr)
	view.Question = s.module.UnitText(s.ptr)
	view.Progress = s.module.Progress(s.ptr)
	if d, ok := s.module.DiagramFor(s.ptr); ok {
		view.Diagram = d
	}
	return view
}

// Transcript returns a copy of the session's messages.
func (s *Session) Transcript() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// State returns a copy of the SubmissionState for questionID.
func (s *Session) State(questionID string) (domain.SubmissionState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[domain.StateKey{SessionID: s.id, QuestionID: questionID}]
	if !ok {
		return domain.SubmissionState{}, false
	}
	return *state, true
}
