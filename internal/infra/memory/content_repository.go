package memory

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"socratic-tutor/internal/domain"
)

// ContentLoader fetches tutoring content from a backing store (files, Postgres).
type ContentLoader interface {
	LoadModule(ctx context.Context, moduleID string) (domain.Module, error)
	LoadQuestionSpec(ctx context.Context, questionID string) (domain.QuestionSpec, error)
	LoadConceptDomain(ctx context.Context, name string) (domain.ConceptDomain, error)
}

// ContentRepository caches modules, question specs and concept catalogs with
// TTL to avoid repeated loader hits. Not-found results are cached too, since a
// question without a spec is looked up on every turn.
type ContentRepository struct {
	loader ContentLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand

	mu      sync.RWMutex
	modules map[string]cached[domain.Module]
	specs   map[string]cached[domain.QuestionSpec]
	domains map[string]cached[domain.ConceptDomain]
}

type cached[T any] struct {
	value     T
	err       error
	expiresAt time.Time
}

func NewContentRepository(loader ContentLoader, ttl time.Duration) *ContentRepository {
	return &ContentRepository{
		loader:  loader,
		ttl:     ttl,
		clock:   time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		modules: make(map[string]cached[domain.Module]),
		specs:   make(map[string]cached[domain.QuestionSpec]),
		domains: make(map[string]cached[domain.ConceptDomain]),
	}
}

func (r *ContentRepository) GetModule(ctx context.Context, moduleID string) (domain.Module, error) {
	return load(ctx, r, r.modules, "module:", moduleID, r.loader.LoadModule)
}

func (r *ContentRepository) GetQuestionSpec(ctx context.Context, questionID string) (domain.QuestionSpec, error) {
	return load(ctx, r, r.specs, "spec:", questionID, r.loader.LoadQuestionSpec)
}

func (r *ContentRepository) GetConceptDomain(ctx context.Context, name string) (domain.ConceptDomain, error) {
	return load(ctx, r, r.domains, "domain:", name, r.loader.LoadConceptDomain)
}

// Invalidate drops every cached entry so the next lookups reach the loader.
func (r *ContentRepository) Invalidate(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.modules)
	clear(r.specs)
	clear(r.domains)
	return nil
}

func load[T any](ctx context.Context, r *ContentRepository, cache map[string]cached[T], kind, key string,
	fetch func(context.Context, string) (T, error)) (T, error) {
	if entry, ok := lookupEntry(r, cache, key); ok {
		return entry.value, entry.err
	}

	result, err, _ := r.sf.Do(kind+key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if entry, ok := lookupEntry(r, cache, key); ok {
			return entry.value, entry.err
		}

		now := r.clock()
		value, err := fetch(ctx, key)
		if err != nil && !isNotFound(err) {
			return value, err
		}

		r.mu.Lock()
		cache[key] = cached[T]{value: value, err: err, expiresAt: now.Add(r.ttlWithJitter())}
		r.mu.Unlock()
		return value, err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

func lookupEntry[T any](r *ContentRepository, cache map[string]cached[T], key string) (cached[T], bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := cache[key]
	if !ok || !entry.expiresAt.After(now) {
		return cached[T]{}, false
	}
	return entry, true
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrModuleNotFound) ||
		errors.Is(err, domain.ErrSpecNotFound) ||
		errors.Is(err, domain.ErrDomainNotFound)
}

func (r *ContentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticContentLoader is a simple loader backed by in-memory maps (useful for tests/demos).
type StaticContentLoader struct {
	Modules map[string]domain.Module
	Specs   map[string]domain.QuestionSpec
	Domains map[string]domain.ConceptDomain
}

func (l *StaticContentLoader) LoadModule(_ context.Context, moduleID string) (domain.Module, error) {
	if module, ok := l.Modules[moduleID]; ok {
		return module, nil
	}
	return domain.Module{}, domain.ErrModuleNotFound
}

func (l *StaticContentLoader) LoadQuestionSpec(_ context.Context, questionID string) (domain.QuestionSpec, error) {
	if spec, ok := l.Specs[questionID]; ok {
		return spec, nil
	}
	return domain.QuestionSpec{}, domain.ErrSpecNotFound
}

func (l *StaticContentLoader) LoadConceptDomain(_ context.Context, name string) (domain.ConceptDomain, error) {
	if catalog, ok := l.Domains[name]; ok {
		return catalog, nil
	}
	return domain.ConceptDomain{}, domain.ErrDomainNotFound
}
