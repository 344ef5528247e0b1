package engine

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"socratic-tutor/internal/domain"
)

const (
	DefaultEncouragement  = "Good start."
	DefaultFollowUpPrompt = "What part of the mechanism is still unclear?"
)

// Selector picks the wording of nudges. Which concept is targeted is decided
// by the Controller; the Selector only varies phrasing.
type Selector struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSelector builds a Selector over src. A nil src is seeded from the clock.
func NewSelector(src rand.Source) *Selector {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Selector{rnd: rand.New(src)}
}

// FollowUp builds the nudge for a missing concept: an encouragement followed by
// one of the concept's templates.
func (s *Selector) FollowUp(spec *domain.QuestionSpec, key string) string {
	var templates, encouragements []string
	if spec != nil {
		templates = usable(spec.FollowUps[key])
		encouragements = usable(spec.Encouragements)
	}

	prompt := DefaultFollowUpPrompt
	if len(templates) > 0 {
		prompt = s.pick(templates)
	}
	lead := DefaultEncouragement
	if len(encouragements) > 0 {
		lead = s.pick(encouragements)
	}
	return lead + " " + prompt
}

// Encouragement returns one of the question's encouragements, or the default.
func (s *Selector) Encouragement(spec *domain.QuestionSpec) string {
	if spec == nil {
		return DefaultEncouragement
	}
	if e := usable(spec.Encouragements); len(e) > 0 {
		return s.pick(e)
	}
	return DefaultEncouragement
}

func (s *Selector) pick(options []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return options[s.rnd.Intn(len(options))]
}

func usable(items []string) []string {
	return lo.FilterMap(items, func(item string, _ int) (string, bool) {
		item = strings.TrimSpace(item)
		return item, item != ""
	})
}
