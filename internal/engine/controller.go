package engine

import (
	"socratic-tutor/internal/domain"
)

const (
	GibberishNudgeText   = "I couldn't quite read that. Could you rephrase it in a sentence or two of real words?"
	GibberishSkipText    = "This one doesn't seem to be landing right now. You can press Next to skip it and come back later."
	UncertainSkipText    = "No worries, this one is tough. Feel free to press Next to skip it and return to it later."
	DefaultUncertainText = "That's okay. Start with whatever you do remember, even a rough guess helps."
	EmptyNudgeText       = "Give it a try! Any rough attempt is fine, even a single idea."
	NoSpecNudgeText      = "Good thinking. Can you add one more detail?"
)

// Controller turns one raw submission into a TurnResult, updating the
// caller-owned SubmissionState.
type Controller struct {
	selector *Selector
}

func NewController(selector *Selector) *Controller {
	if selector == nil {
		selector = NewSelector(nil)
	}
	return &Controller{selector: selector}
}

// Turn runs one dialogue step. spec and catalog may be nil when the content
// store has nothing for the question; the turn still produces a result.
func (c *Controller) Turn(spec *domain.QuestionSpec, catalog *domain.ConceptDomain, state *domain.SubmissionState, raw string) domain.TurnResult {
	if state == nil {
		state = &domain.SubmissionState{}
	}
	class := Classify(raw)
	result := c.step(spec, catalog, state, raw, class)
	result.Classification = class.String()
	return result
}

func (c *Controller) step(spec *domain.QuestionSpec, catalog *domain.ConceptDomain, state *domain.SubmissionState, raw string, class Class) domain.TurnResult {
	switch class {
	case ClassGibberish:
		state.GibberishStreak++
		if spec == nil {
			return nudge(domain.TurnGenericNudge, NoSpecNudgeText)
		}
		if state.GibberishStreak == 1 {
			return nudge(domain.TurnGibberishNudge, GibberishNudgeText)
		}
		return nudge(domain.TurnGenericNudge, GibberishSkipText)

	case ClassUncertain:
		state.UncertainStreak++
		if spec == nil {
			return nudge(domain.TurnGenericNudge, NoSpecNudgeText)
		}
		if state.UncertainStreak == 1 {
			text := spec.UncertaintyNudge
			if text == "" {
				text = c.selector.Encouragement(spec) + " " + DefaultUncertainText
			}
			return nudge(domain.TurnUncertaintyNudge, text)
		}
		return nudge(domain.TurnGenericNudge, UncertainSkipText)
	}

	state.GibberishStreak = 0
	state.UncertainStreak = 0
	if class == ClassEmpty {
		if spec == nil {
			return nudge(domain.TurnGenericNudge, NoSpecNudgeText)
		}
		return nudge(domain.TurnGenericNudge, EmptyNudgeText)
	}

	Accumulate(state, raw)
	if spec == nil {
		return nudge(domain.TurnGenericNudge, NoSpecNudgeText)
	}

	missing := Missing(spec.RequiredConcepts, catalog, state.Accumulated)
	optional := CoveredKeys(spec.OptionalConcepts, catalog, state.Accumulated)
	if len(missing) == 0 {
		return domain.TurnResult{Kind: domain.TurnAdvance, OptionalCovered: optional}
	}
	target := missing[0]
	return domain.TurnResult{
		Kind:            domain.TurnFollowUp,
		Text:            c.selector.FollowUp(spec, target),
		Concept:         target,
		Missing:         missing,
		OptionalCovered: optional,
	}
}

func nudge(kind domain.TurnKind, text string) domain.TurnResult {
	return domain.TurnResult{Kind: kind, Text: text}
}
