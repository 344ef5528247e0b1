package http

import (
	"math/rand"
	"net/http/httptest"
	"testing"
	"time"

	"socratic-tutor/internal/app"
	"socratic-tutor/internal/domain"
	"socratic-tutor/internal/engine"
	"socratic-tutor/internal/infra/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.NewSessionStore(time.Hour)
	content := memory.NewContentRepository(sampleContent(), time.Minute)
	controller := engine.NewController(engine.NewSelector(rand.NewSource(1)))
	service := app.NewTutorService(store, content, controller)

	server := httptest.NewServer(NewRouter(service, nil))
	t.Cleanup(server.Close)
	return server
}

func sampleContent() *memory.StaticContentLoader {
	return &memory.StaticContentLoader{
		Modules: map[string]domain.Module{
			"cancer01": {
				ID:    "cancer01",
				Title: "Cancer biology",
				Questions: []domain.Question{
					{Stem: "1. What is cancer?", Parts: []string{"a) Describe how cancer starts."}},
					{Stem: "2. What is clonal expansion?"},
				},
				Notes: []string{"BONUS: Why are most tumors clonal?"},
			},
		},
		Specs: map[string]domain.QuestionSpec{
			"cancer01/1a": {
				QuestionID:       "cancer01/1a",
				Domain:           "cancer",
				RequiredConcepts: []string{"uncontrolled proliferation", "genetic mutations"},
				FollowUps: map[string][]string{
					"uncontrolled proliferation": {"What happens to the rate of cell division?"},
				},
				Encouragements: []string{"Nice."},
			},
		},
		Domains: map[string]domain.ConceptDomain{
			"cancer": {
				Name: "cancer",
				Concepts: map[string][]string{
					"uncontrolled proliferation": {"cells divide uncontrollably"},
					"genetic mutations":          {"dna mutations"},
				},
			},
		},
	}
}
