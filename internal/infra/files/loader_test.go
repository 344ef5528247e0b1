package files

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"socratic-tutor/internal/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func sampleTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "cancer01", "cancer01_questions.txt"), `
1. Define cancer.
a) What happens to proliferation?
b) What happens to
regulation?
2) Explain clonal expansion
in one sentence.
`)
	writeFile(t, filepath.Join(root, "cancer01", "cancer01_answers.txt"), `
1. Uncontrolled proliferation.
Loss of regulation.
2. A single mutated cell expands.
3. Extra answer without a question.
`)
	writeFile(t, filepath.Join(root, "cancer01", "cancer01_notes.txt"), "Background reading.\nBONUS: Why are cancers usually clonal?\n")
	writeFile(t, filepath.Join(root, "cancer01", "title.txt"), "Cancer biology basics\n")
	writeFile(t, filepath.Join(root, "cancer01", "cancer01_diagrams.json"), `{
  "2": {"prompt": "Which panel shows a clone?", "images": ["a.png", "b.png"]},
  "bonus_question": "  Name a hallmark of cancer.  "
}`)
	writeFile(t, filepath.Join(root, "cancer01", "cancer01_specs.yaml"), `
- question_id: 1a
  domain: cancer
  required_concepts: [uncontrolled proliferation]
  follow_ups:
    uncontrolled proliferation:
      - What happens to the rate of cell division?
- question_id: cancer01/2
  domain: cancer
  required_concepts: [clonal expansion]
`)
	writeFile(t, filepath.Join(root, "concepts", "cancer.yaml"), `
concepts:
  uncontrolled proliferation:
    - uncontrolled growth
    - "  "
    - rapid cell division
  clonal expansion: []
`)
	return root
}

func TestLoadModule(t *testing.T) {
	loader := NewLoader(sampleTree(t))

	module, err := loader.LoadModule(context.Background(), "cancer01")
	if err != nil {
		t.Fatalf("load module: %v", err)
	}

	want := domain.Module{
		ID:    "cancer01",
		Title: "Cancer biology basics",
		Questions: []domain.Question{
			{
				Stem:   "1. Define cancer.",
				Parts:  []string{"a) What happens to proliferation?", "b) What happens to regulation?"},
				Answer: []string{"1. Uncontrolled proliferation.", "Loss of regulation."},
			},
			{
				Stem:   "2) Explain clonal expansion in one sentence.",
				Answer: []string{"2. A single mutated cell expands."},
			},
		},
		Notes: []string{"Background reading.", "BONUS: Why are cancers usually clonal?"},
		Bonus: "Name a hallmark of cancer.",
		Diagrams: map[string]domain.Diagram{
			"2": {Prompt: "Which panel shows a clone?", Images: map[string]string{"A": "a.png", "B": "b.png"}},
		},
	}
	if diff := cmp.Diff(want, module); diff != "" {
		t.Fatalf("module mismatch (-want +got):\n%s", diff)
	}
	if got := module.UnitID(domain.Pointer{Question: 1}); got != "cancer01/2" {
		t.Fatalf("unexpected unit id %q", got)
	}
}

func TestLoadModuleMissing(t *testing.T) {
	loader := NewLoader(sampleTree(t))
	for _, id := range []string{"absent", "../etc", ""} {
		if _, err := loader.LoadModule(context.Background(), id); !errors.Is(err, domain.ErrModuleNotFound) {
			t.Fatalf("%q: expected ErrModuleNotFound, got %v", id, err)
		}
	}
}

func TestLoadQuestionSpec(t *testing.T) {
	loader := NewLoader(sampleTree(t))

	spec, err := loader.LoadQuestionSpec(context.Background(), "cancer01/1a")
	if err != nil {
		t.Fatalf("load spec: %v", err)
	}
	want := domain.QuestionSpec{
		QuestionID:       "cancer01/1a",
		Domain:           "cancer",
		RequiredConcepts: []string{"uncontrolled proliferation"},
		FollowUps: map[string][]string{
			"uncontrolled proliferation": {"What happens to the rate of cell division?"},
		},
	}
	if diff := cmp.Diff(want, spec); diff != "" {
		t.Fatalf("spec mismatch (-want +got):\n%s", diff)
	}

	if _, err := loader.LoadQuestionSpec(context.Background(), "cancer01/2"); err != nil {
		t.Fatalf("expected fully qualified id to resolve: %v", err)
	}
	if _, err := loader.LoadQuestionSpec(context.Background(), "cancer01/1b"); !errors.Is(err, domain.ErrSpecNotFound) {
		t.Fatalf("expected ErrSpecNotFound, got %v", err)
	}
	if _, err := loader.LoadQuestionSpec(context.Background(), "other/1a"); !errors.Is(err, domain.ErrSpecNotFound) {
		t.Fatalf("expected ErrSpecNotFound for module without specs, got %v", err)
	}
}

func TestQuestionSpecsRejectsDuplicates(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "m1", "m1_specs.yaml"), `
- question_id: "1"
  required_concepts: [apoptosis, apoptosis]
`)
	_, err := NewLoader(root).QuestionSpecs("m1")
	if !errors.Is(err, domain.ErrInvalidSpec) {
		t.Fatalf("expected ErrInvalidSpec, got %v", err)
	}
}

func TestLoadConceptDomainDropsBlankVariants(t *testing.T) {
	loader := NewLoader(sampleTree(t))

	catalog, err := loader.LoadConceptDomain(context.Background(), "cancer")
	if err != nil {
		t.Fatalf("load domain: %v", err)
	}
	want := domain.ConceptDomain{
		Name: "cancer",
		Concepts: map[string][]string{
			"uncontrolled proliferation": {"uncontrolled growth", "rapid cell division"},
			"clonal expansion":           {},
		},
	}
	if diff := cmp.Diff(want, catalog); diff != "" {
		t.Fatalf("catalog mismatch (-want +got):\n%s", diff)
	}

	if _, err := loader.LoadConceptDomain(context.Background(), "zoology"); !errors.Is(err, domain.ErrDomainNotFound) {
		t.Fatalf("expected ErrDomainNotFound, got %v", err)
	}
}

func TestListings(t *testing.T) {
	loader := NewLoader(sampleTree(t))

	ids, err := loader.ModuleIDs()
	if err != nil {
		t.Fatalf("module ids: %v", err)
	}
	if diff := cmp.Diff([]string{"cancer01"}, ids); diff != "" {
		t.Fatalf("module ids (-want +got):\n%s", diff)
	}
	names, err := loader.ConceptDomainNames()
	if err != nil {
		t.Fatalf("domain names: %v", err)
	}
	if diff := cmp.Diff([]string{"cancer"}, names); diff != "" {
		t.Fatalf("domain names (-want +got):\n%s", diff)
	}
}

func TestParseQuestionsOrphanLines(t *testing.T) {
	got := ParseQuestions([]string{"Warm-up: what is a cell?", "a) name one organelle", "1. First real question"})
	want := []domain.Question{
		{Stem: "Warm-up: what is a cell?", Parts: []string{"a) name one organelle"}},
		{Stem: "1. First real question"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("questions (-want +got):\n%s", diff)
	}
}

func TestGroupAnswersPads(t *testing.T) {
	got := GroupAnswers([]string{"1. yes"}, 3)
	want := [][]string{{"1. yes"}, nil, nil}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("groups (-want +got):\n%s", diff)
	}
}

func TestNormalizeImages(t *testing.T) {
	cases := []struct {
		raw  string
		want map[string]string
	}{
		{raw: `{"a": "x.png", "b": ""}`, want: map[string]string{"A": "x.png"}},
		{raw: `[{"label": "c", "file": "y.png"}, {"file": "z.png"}]`, want: map[string]string{"C": "y.png"}},
		{raw: `["p.png", "", "q.png"]`, want: map[string]string{"A": "p.png", "C": "q.png"}},
		{raw: `42`, want: map[string]string{}},
	}
	for _, tc := range cases {
		if diff := cmp.Diff(tc.want, normalizeImages([]byte(tc.raw))); diff != "" {
			t.Fatalf("%s (-want +got):\n%s", tc.raw, diff)
		}
	}
}
