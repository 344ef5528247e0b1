package engine

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socratic-tutor/internal/domain"
)

func cancerSpec() *domain.QuestionSpec {
	return &domain.QuestionSpec{
		QuestionID:       "cancer01/1a",
		Domain:           "cancer",
		RequiredConcepts: []string{"uncontrolled proliferation", "genetic mutations"},
		OptionalConcepts: []string{"tumor formation"},
		FollowUps: map[string][]string{
			"uncontrolled proliferation": {"What happens to the rate of cell division?"},
			"genetic mutations":          {"What changes in the DNA could start this?"},
		},
		Encouragements:   []string{"Nice."},
		UncertaintyNudge: "Think about what normally keeps cell division in check.",
	}
}

func newTestController() *Controller {
	return NewController(NewSelector(rand.NewSource(7)))
}

func TestTurnFollowUpTargetsFirstMissingConcept(t *testing.T) {
	c := newTestController()
	state := &domain.SubmissionState{}

	res := c.Turn(cancerSpec(), cancerCatalog(), state, "DNA mutations in key genes")

	require.Equal(t, domain.TurnFollowUp, res.Kind)
	assert.Equal(t, "uncontrolled proliferation", res.Concept)
	assert.Equal(t, []string{"uncontrolled proliferation"}, res.Missing)
	assert.Equal(t, "Nice. What happens to the rate of cell division?", res.Text)
	assert.Equal(t, "substantive", res.Classification)
}

func TestTurnAccumulatesAcrossSubmissions(t *testing.T) {
	c := newTestController()
	state := &domain.SubmissionState{}

	first := c.Turn(cancerSpec(), cancerCatalog(), state, "cells divide uncontrollably")
	require.Equal(t, domain.TurnFollowUp, first.Kind)
	assert.Equal(t, "genetic mutations", first.Concept)

	second := c.Turn(cancerSpec(), cancerCatalog(), state, "dna mutations cause it")
	assert.Equal(t, domain.TurnAdvance, second.Kind)
	assert.Equal(t, "cells divide uncontrollably dna mutations cause it", state.Accumulated)
}

func TestTurnUncertainEscalates(t *testing.T) {
	c := newTestController()
	state := &domain.SubmissionState{Accumulated: "cells divide uncontrollably"}

	first := c.Turn(cancerSpec(), cancerCatalog(), state, "idk")
	assert.Equal(t, domain.TurnUncertaintyNudge, first.Kind)
	assert.Equal(t, "Think about what normally keeps cell division in check.", first.Text)

	second := c.Turn(cancerSpec(), cancerCatalog(), state, "not sure")
	assert.Equal(t, domain.TurnGenericNudge, second.Kind)
	assert.Equal(t, UncertainSkipText, second.Text)

	assert.Equal(t, "cells divide uncontrollably", state.Accumulated)
	assert.Equal(t, 2, state.UncertainStreak)
	assert.Equal(t, 0, state.GibberishStreak)
}

func TestTurnUncertainFallsBackToEncouragement(t *testing.T) {
	spec := cancerSpec()
	spec.UncertaintyNudge = ""

	res := newTestController().Turn(spec, cancerCatalog(), &domain.SubmissionState{}, "I'm stuck")

	assert.Equal(t, domain.TurnUncertaintyNudge, res.Kind)
	assert.Equal(t, "Nice. "+DefaultUncertainText, res.Text)
}

func TestTurnGibberishEscalatesAndResets(t *testing.T) {
	c := newTestController()
	state := &domain.SubmissionState{}

	res := c.Turn(cancerSpec(), cancerCatalog(), state, "asdkjfhasldkfj")
	assert.Equal(t, domain.TurnGibberishNudge, res.Kind)
	assert.Equal(t, GibberishNudgeText, res.Text)

	res = c.Turn(cancerSpec(), cancerCatalog(), state, "qwrtzpsdfghjk")
	assert.Equal(t, domain.TurnGenericNudge, res.Kind)
	assert.Equal(t, GibberishSkipText, res.Text)
	assert.Empty(t, state.Accumulated)

	res = c.Turn(cancerSpec(), cancerCatalog(), state, "cells divide uncontrollably")
	assert.Equal(t, domain.TurnFollowUp, res.Kind)
	assert.Equal(t, 0, state.GibberishStreak)
	assert.Equal(t, 0, state.UncertainStreak)

	res = c.Turn(cancerSpec(), cancerCatalog(), state, "asdkjfhasldkfj")
	assert.Equal(t, domain.TurnGibberishNudge, res.Kind)
}

func TestTurnStreaksAreIndependent(t *testing.T) {
	c := newTestController()
	state := &domain.SubmissionState{}

	c.Turn(cancerSpec(), cancerCatalog(), state, "asdkjfhasldkfj")
	res := c.Turn(cancerSpec(), cancerCatalog(), state, "no idea")

	assert.Equal(t, domain.TurnUncertaintyNudge, res.Kind)
	assert.Equal(t, 1, state.GibberishStreak)
	assert.Equal(t, 1, state.UncertainStreak)
}

func TestTurnEmptyResetsStreaksWithoutAccumulating(t *testing.T) {
	c := newTestController()
	state := &domain.SubmissionState{Accumulated: "dna mutations", UncertainStreak: 1, GibberishStreak: 1}

	res := c.Turn(cancerSpec(), cancerCatalog(), state, "   ")

	assert.Equal(t, domain.TurnGenericNudge, res.Kind)
	assert.Equal(t, EmptyNudgeText, res.Text)
	assert.Equal(t, "empty", res.Classification)
	assert.Equal(t, domain.SubmissionState{Accumulated: "dna mutations"}, *state)
}

func TestTurnWithoutSpecStillKeepsBookkeeping(t *testing.T) {
	c := newTestController()
	state := &domain.SubmissionState{}

	res := c.Turn(nil, nil, state, "cells divide")
	assert.Equal(t, domain.TurnGenericNudge, res.Kind)
	assert.Equal(t, NoSpecNudgeText, res.Text)
	assert.Equal(t, "cells divide", state.Accumulated)

	res = c.Turn(nil, nil, state, "asdkjfhasldkfj")
	assert.Equal(t, domain.TurnGenericNudge, res.Kind)
	assert.Equal(t, 1, state.GibberishStreak)
	assert.Equal(t, "cells divide", state.Accumulated)
}

func TestTurnWithoutCatalogMatchesKeysOnly(t *testing.T) {
	res := newTestController().Turn(cancerSpec(), nil, &domain.SubmissionState{},
		"uncontrolled proliferation from genetic mutations")
	assert.Equal(t, domain.TurnAdvance, res.Kind)
}

func TestTurnEmptyRequiredAdvancesImmediately(t *testing.T) {
	spec := &domain.QuestionSpec{QuestionID: "q", OptionalConcepts: []string{"genetic mutations"}}

	res := newTestController().Turn(spec, cancerCatalog(), &domain.SubmissionState{}, "no")
	assert.Equal(t, domain.TurnAdvance, res.Kind)

	res = newTestController().Turn(spec, cancerCatalog(), &domain.SubmissionState{}, "dna mutations")
	assert.Equal(t, domain.TurnAdvance, res.Kind)
	assert.Equal(t, []string{"genetic mutations"}, res.OptionalCovered)
}

func TestTurnOptionalConceptsNeverGate(t *testing.T) {
	res := newTestController().Turn(cancerSpec(), cancerCatalog(), &domain.SubmissionState{},
		"cells divide without stopping because of dna mutations")
	assert.Equal(t, domain.TurnAdvance, res.Kind)
	assert.Empty(t, res.OptionalCovered)
}

func TestTurnTargetIsDeterministicAcrossSeeds(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		c := NewController(NewSelector(rand.NewSource(seed)))
		res := c.Turn(cancerSpec(), cancerCatalog(), &domain.SubmissionState{}, "something about tissues")
		assert.Equal(t, "uncontrolled proliferation", res.Concept, "seed=%d", seed)
	}
}

func TestTurnNilStateDoesNotPanic(t *testing.T) {
	res := newTestController().Turn(cancerSpec(), cancerCatalog(), nil, "dna mutations")
	assert.Equal(t, domain.TurnFollowUp, res.Kind)
}

func TestSelectorVariesPhrasing(t *testing.T) {
	spec := &domain.QuestionSpec{
		FollowUps:      map[string][]string{"k": {"Ask one?", "Ask two?", "Ask three?"}},
		Encouragements: []string{"Good.", "Great."},
	}
	sel := NewSelector(rand.NewSource(42))
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		seen[sel.FollowUp(spec, "k")] = true
	}
	assert.Greater(t, len(seen), 1)

	a, b := NewSelector(rand.NewSource(3)), NewSelector(rand.NewSource(3))
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.FollowUp(spec, "k"), b.FollowUp(spec, "k"))
	}
}

func TestSelectorFallbacks(t *testing.T) {
	sel := NewSelector(rand.NewSource(1))

	assert.Equal(t, DefaultEncouragement+" "+DefaultFollowUpPrompt, sel.FollowUp(nil, "k"))
	spec := &domain.QuestionSpec{FollowUps: map[string][]string{"k": {" ", ""}}, Encouragements: []string{""}}
	assert.Equal(t, DefaultEncouragement+" "+DefaultFollowUpPrompt, sel.FollowUp(spec, "k"))
	assert.Equal(t, DefaultEncouragement, sel.Encouragement(spec))
	assert.True(t, strings.HasSuffix(sel.FollowUp(&domain.QuestionSpec{}, "missing"), DefaultFollowUpPrompt))
}

func TestAccumulate(t *testing.T) {
	state := &domain.SubmissionState{}
	Accumulate(state, "  first ")
	Accumulate(state, "")
	Accumulate(state, "first")
	assert.Equal(t, "first first", state.Accumulated)
}
