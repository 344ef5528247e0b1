package app

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"socratic-tutor/internal/domain"
	"socratic-tutor/internal/engine"
	"socratic-tutor/internal/logger"
)

// SessionRepository abstracts how tutoring sessions are stored (in-memory, Redis, etc).
type SessionRepository interface {
	GetOrCreate(sessionID string) *Session
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
	// Active reports how many sessions are live.
	Active(ctx context.Context) (int, error)
}

// ContentRepository loads module content, question specs and concept catalogs
// (from cache/backing store).
type ContentRepository interface {
	GetModule(ctx context.Context, moduleID string) (domain.Module, error)
	GetQuestionSpec(ctx context.Context, questionID string) (domain.QuestionSpec, error)
	GetConceptDomain(ctx context.Context, name string) (domain.ConceptDomain, error)
	// Invalidate drops cached content so edited modules are picked up.
	Invalidate(ctx context.Context) error
}

// TextGenerator optionally rephrases tutor text. Implementations must not fail;
// they return fallback instead.
type TextGenerator interface {
	Generate(ctx context.Context, prompt, fallback string) string
}

const completedText = "You've completed this module! Want to try a different one?"

// TutorService contains the tutoring use cases.
type TutorService struct {
	sessions   SessionRepository
	content    ContentRepository
	controller *engine.Controller
	generator  TextGenerator
	log        *logger.Logger
}

// Option customizes a TutorService.
type Option func(*TutorService)

// WithGenerator enables text polishing through gen.
func WithGenerator(gen TextGenerator) Option {
	return func(s *TutorService) { s.generator = gen }
}

// WithLogger sets the service logger.
func WithLogger(log *logger.Logger) Option {
	return func(s *TutorService) { s.log = log }
}

func NewTutorService(store SessionRepository, content ContentRepository, controller *engine.Controller, opts ...Option) *TutorService {
	s := &TutorService{
		sessions:   store,
		content:    content,
		controller: controller,
		log:        logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.controller == nil {
		s.controller = engine.NewController(nil)
	}
	return s
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(id string) *Session {
	return newSession(id)
}

// Start (re)starts a session on a module and asks the first question.
func (s *TutorService) Start(ctx context.Context, sessionID, moduleID, student string) (domain.SessionView, error) {
	module, err := s.content.GetModule(ctx, moduleID)
	if err != nil {
		return domain.SessionView{}, err
	}
	if student == "" {
		student = "Student"
	}

	session := s.sessions.GetOrCreate(sessionID)
	session.mu.Lock()
	defer session.mu.Unlock()

	session.resetLocked(module, student)
	view := session.viewLocked()
	if view.Completed {
		session.recordLocked(domain.RoleTutor, completedText)
		return view, nil
	}
	session.recordLocked(domain.RoleTutor, fmt.Sprintf("Welcome, %s! You selected %s.\n\nFirst question:\n%s",
		student, module.Title, view.Question))
	s.log.Info("session started", "session", sessionID, "module", moduleID)
	return view, nil
}

// Submit runs one dialogue turn for the session's current question.
func (s *TutorService) Submit(ctx context.Context, sessionID, text string) (domain.TurnOutcome, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.TurnOutcome{}, domain.ErrSessionNotFound
	}

	// Turns on one session are serialized; each runs to completion.
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.completed {
		return domain.TurnOutcome{Session: session.viewLocked()}, domain.ErrModuleCompleted
	}

	unitID := session.module.UnitID(session.ptr)
	spec := s.lookupSpec(ctx, unitID)
	var catalog *domain.ConceptDomain
	if spec != nil {
		catalog = s.lookupDomain(ctx, spec.Domain)
	}

	state := session.stateLocked(unitID)
	result := s.controller.Turn(spec, catalog, state, text)
	session.recordLocked(domain.RoleStudent, text)

	if s.generator != nil && shouldPolish(spec, result) {
		result.Text = s.polish(ctx, session, spec, text, result.Text)
	}

	s.log.Info("turn",
		"session", sessionID,
		"question", unitID,
		"classification", result.Classification,
		"result", result.Kind,
		"concept", result.Concept,
		"optional_covered", result.OptionalCovered,
	)

	if result.Kind == domain.TurnAdvance {
		if session.advanceLocked() {
			session.recordLocked(domain.RoleTutor, "Next:\n"+session.module.UnitText(session.ptr))
		} else {
			session.recordLocked(domain.RoleTutor, completedText)
		}
	} else {
		session.recordLocked(domain.RoleTutor, result.Text)
	}
	return domain.TurnOutcome{Result: result, Session: session.viewLocked()}, nil
}

// Next skips to the next unit without a mastery decision.
func (s *TutorService) Next(_ context.Context, sessionID string) (domain.SessionView, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionView{}, domain.ErrSessionNotFound
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.completed {
		return session.viewLocked(), domain.ErrModuleCompleted
	}
	if session.advanceLocked() {
		session.recordLocked(domain.RoleTutor, "Next:\n"+session.module.UnitText(session.ptr))
	} else {
		session.recordLocked(domain.RoleTutor, completedText)
	}
	return session.viewLocked(), nil
}

// Bonus returns the module's optional bonus question.
func (s *TutorService) Bonus(_ context.Context, sessionID string) (string, bool, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return "", false, domain.ErrSessionNotFound
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	bonus, found := session.module.BonusQuestion()
	if found {
		session.recordLocked(domain.RoleTutor, "Bonus question (optional):\n"+bonus)
	}
	return bonus, found, nil
}

// View returns a snapshot of the session.
func (s *TutorService) View(_ context.Context, sessionID string) (domain.SessionView, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionView{}, domain.ErrSessionNotFound
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.viewLocked(), nil
}

// Transcript returns the session's messages.
func (s *TutorService) Transcript(_ context.Context, sessionID string) ([]domain.Message, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.Transcript(), nil
}

// End drops the session and all of its dialogue state.
func (s *TutorService) End(_ context.Context, sessionID string) {
	s.sessions.Delete(sessionID)
}

// ActiveSessions reports how many sessions the store considers live.
func (s *TutorService) ActiveSessions(ctx context.Context) (int, error) {
	return s.sessions.Active(ctx)
}

// ReloadContent drops cached content. Sessions keep their pointers; the next
// turn reads the reloaded module, spec and catalog.
func (s *TutorService) ReloadContent(ctx context.Context) error {
	if err := s.content.Invalidate(ctx); err != nil {
		return fmt.Errorf("reload content: %w", err)
	}
	s.log.Info("content cache invalidated")
	return nil
}

// SearchQuestions finds units of a module whose text fuzzily contains every
// token of term, closest matches first. A term without tokens finds nothing.
func (s *TutorService) SearchQuestions(ctx context.Context, moduleID, term string) ([]domain.QuestionRef, error) {
	module, err := s.content.GetModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}

	var units []domain.QuestionRef
	for qi := range module.Questions {
		for si := 0; si < module.PartCount(qi); si++ {
			ptr := domain.Pointer{Question: qi, Part: si}
			units = append(units, domain.QuestionRef{UnitID: module.UnitID(ptr), Pointer: ptr, Text: module.UnitText(ptr)})
		}
	}
	terms := engine.Tokens(term)
	if len(terms) == 0 {
		return []domain.QuestionRef{}, nil
	}

	type scored struct {
		ref      domain.QuestionRef
		distance int
	}
	var matches []scored
	for _, u := range units {
		total, ok := 0, true
		for _, t := range terms {
			d := fuzzy.RankMatchNormalizedFold(t, u.Text)
			if d < 0 {
				ok = false
				break
			}
			total += d
		}
		if ok {
			matches = append(matches, scored{ref: u, distance: total})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].distance < matches[j].distance })

	hits := make([]domain.QuestionRef, 0, len(matches))
	for _, m := range matches {
		hits = append(hits, m.ref)
	}
	return hits, nil
}

func (s *TutorService) lookupSpec(ctx context.Context, unitID string) *domain.QuestionSpec {
	spec, err := s.content.GetQuestionSpec(ctx, unitID)
	if err != nil {
		if !errors.Is(err, domain.ErrSpecNotFound) {
			s.log.Warn("question spec lookup failed", "question", unitID, "error", err)
		}
		return nil
	}
	return &spec
}

func (s *TutorService) lookupDomain(ctx context.Context, name string) *domain.ConceptDomain {
	if name == "" {
		return nil
	}
	catalog, err := s.content.GetConceptDomain(ctx, name)
	if err != nil {
		if !errors.Is(err, domain.ErrDomainNotFound) {
			s.log.Warn("concept domain lookup failed", "domain", name, "error", err)
		}
		return nil
	}
	return &catalog
}

// shouldPolish limits rephrasing to targeted follow-ups and the mechanism question asked
// when a question has no spec.
func shouldPolish(spec *domain.QuestionSpec, result domain.TurnResult) bool {
	if result.Kind == domain.TurnFollowUp {
		return true
	}
	return spec == nil && result.Kind == domain.TurnGenericNudge && result.Classification == engine.ClassSubstantive.String()
}

func (s *TutorService) polish(ctx context.Context, session *Session, spec *domain.QuestionSpec, answer, text string) string {
	question := session.module.UnitText(session.ptr)
	snips := session.module.ContextSnippets(session.ptr)
	if spec == nil {
		return s.generator.Generate(ctx, mechanismPrompt(question, answer, snips), text)
	}
	return s.generator.Generate(ctx, rephrasePrompt(question, text, snips), text)
}
