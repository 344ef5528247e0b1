// Package files loads tutoring content from a directory tree:
//
//	<root>/<module>/<module>_questions.txt
//	<root>/<module>/<module>_answers.txt    (optional)
//	<root>/<module>/<module>_notes.txt      (optional)
//	<root>/<module>/<module>_diagrams.json  (optional)
//	<root>/<module>/<module>_specs.yaml     (optional question specs)
//	<root>/<module>/title.txt               (optional)
//	<root>/concepts/<domain>.yaml           (concept catalogs)
package files

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"socratic-tutor/internal/domain"
)

const conceptsDir = "concepts"

var validName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Loader reads modules, question specs and concept catalogs from disk.
type Loader struct {
	root string
}

func NewLoader(root string) *Loader {
	return &Loader{root: root}
}

func (l *Loader) LoadModule(_ context.Context, moduleID string) (domain.Module, error) {
	if !validName.MatchString(moduleID) {
		return domain.Module{}, fmt.Errorf("%w: %q", domain.ErrModuleNotFound, moduleID)
	}
	dir := filepath.Join(l.root, moduleID)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return domain.Module{}, fmt.Errorf("%w: %s", domain.ErrModuleNotFound, moduleID)
	}

	qLines, err := readLines(l.modulePath(moduleID, "questions.txt"))
	if err != nil {
		return domain.Module{}, err
	}
	if len(qLines) == 0 {
		return domain.Module{}, fmt.Errorf("%w: %s has no questions", domain.ErrModuleNotFound, moduleID)
	}
	aLines, err := readLines(l.modulePath(moduleID, "answers.txt"))
	if err != nil {
		return domain.Module{}, err
	}
	notes, err := readLines(l.modulePath(moduleID, "notes.txt"))
	if err != nil {
		return domain.Module{}, err
	}

	questions := ParseQuestions(qLines)
	for i, group := range GroupAnswers(aLines, len(questions)) {
		questions[i].Answer = group
	}

	module := domain.Module{
		ID:        moduleID,
		Title:     moduleID,
		Questions: questions,
		Notes:     notes,
	}
	if raw, err := os.ReadFile(filepath.Join(dir, "title.txt")); err == nil {
		if title := strings.TrimSpace(string(raw)); title != "" {
			module.Title = title
		}
	}
	if raw, err := os.ReadFile(l.modulePath(moduleID, "diagrams.json")); err == nil {
		// An unreadable diagrams file leaves the module without diagrams.
		module.Diagrams, module.Bonus, _ = parseDiagrams(raw)
	}
	return module, nil
}

// LoadQuestionSpec resolves "<module>/<unit>" against the module's specs file.
func (l *Loader) LoadQuestionSpec(_ context.Context, questionID string) (domain.QuestionSpec, error) {
	moduleID, _, ok := strings.Cut(questionID, "/")
	if !ok || !validName.MatchString(moduleID) {
		return domain.QuestionSpec{}, fmt.Errorf("%w: %s", domain.ErrSpecNotFound, questionID)
	}
	specs, err := l.QuestionSpecs(moduleID)
	if err != nil {
		return domain.QuestionSpec{}, err
	}
	for _, spec := range specs {
		if spec.QuestionID == questionID {
			return spec, nil
		}
	}
	return domain.QuestionSpec{}, fmt.Errorf("%w: %s", domain.ErrSpecNotFound, questionID)
}

func (l *Loader) LoadConceptDomain(_ context.Context, name string) (domain.ConceptDomain, error) {
	if !validName.MatchString(name) {
		return domain.ConceptDomain{}, fmt.Errorf("%w: %q", domain.ErrDomainNotFound, name)
	}
	raw, err := os.ReadFile(filepath.Join(l.root, conceptsDir, name+".yaml"))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.ConceptDomain{}, fmt.Errorf("%w: %s", domain.ErrDomainNotFound, name)
	}
	if err != nil {
		return domain.ConceptDomain{}, fmt.Errorf("read concept domain %s: %w", name, err)
	}
	var catalog domain.ConceptDomain
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return domain.ConceptDomain{}, fmt.Errorf("decode concept domain %s: %w", name, err)
	}
	catalog.Name = name
	return normalizeCatalog(catalog), nil
}

// QuestionSpecs returns every spec declared for moduleID, validated and keyed
// by full unit ID. A module without a specs file has none.
func (l *Loader) QuestionSpecs(moduleID string) ([]domain.QuestionSpec, error) {
	raw, err := os.ReadFile(l.modulePath(moduleID, "specs.yaml"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read specs for %s: %w", moduleID, err)
	}
	var specs []domain.QuestionSpec
	if err := yaml.Unmarshal(raw, &specs); err != nil {
		return nil, fmt.Errorf("decode specs for %s: %w", moduleID, err)
	}
	for i := range specs {
		if id := strings.TrimSpace(specs[i].QuestionID); id != "" && !strings.Contains(id, "/") {
			specs[i].QuestionID = moduleID + "/" + id
		}
		if err := specs[i].Validate(); err != nil {
			return nil, err
		}
	}
	return specs, nil
}

// ModuleIDs lists module directories under the root.
func (l *Loader) ModuleIDs() ([]string, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	ids := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		return e.Name(), e.IsDir() && e.Name() != conceptsDir && validName.MatchString(e.Name())
	})
	sort.Strings(ids)
	return ids, nil
}

// ConceptDomainNames lists the catalogs under <root>/concepts.
func (l *Loader) ConceptDomainNames() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(l.root, conceptsDir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list concept domains: %w", err)
	}
	names := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		name := strings.TrimSuffix(e.Name(), ".yaml")
		return name, !e.IsDir() && strings.HasSuffix(e.Name(), ".yaml") && validName.MatchString(name)
	})
	sort.Strings(names)
	return names, nil
}

func (l *Loader) modulePath(moduleID, suffix string) string {
	return filepath.Join(l.root, moduleID, moduleID+"_"+suffix)
}

// normalizeCatalog drops blank variants; a concept left with none is matched
// on its key alone.
func normalizeCatalog(catalog domain.ConceptDomain) domain.ConceptDomain {
	out := make(map[string][]string, len(catalog.Concepts))
	for key, variants := range catalog.Concepts {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		out[key] = lo.FilterMap(variants, func(v string, _ int) (string, bool) {
			v = strings.TrimSpace(v)
			return v, v != ""
		})
	}
	catalog.Concepts = out
	return catalog
}

// readLines returns the trimmed non-blank lines of path, or nil when the file
// does not exist.
func readLines(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}
