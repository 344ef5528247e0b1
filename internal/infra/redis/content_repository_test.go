package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"socratic-tutor/internal/domain"
	"socratic-tutor/internal/infra/memory"
)

func TestContentRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{ContentLoader: sampleLoader()}
	repo := NewContentRepository(newClient(mr), loader, time.Minute, nil)
	ctx := context.Background()

	spec, err := repo.GetQuestionSpec(ctx, "cancer/1a")
	if err != nil {
		t.Fatalf("get spec: %v", err)
	}
	if len(spec.RequiredConcepts) != 2 || spec.FollowUps["apoptosis"][0] != "What should happen to a damaged cell?" {
		t.Fatalf("unexpected spec %+v", spec)
	}
	if !mr.Exists("tutor:spec:cancer/1a") {
		t.Fatalf("expected spec blob in redis")
	}

	// Second call should hit cache, loader not incremented.
	_, _ = repo.GetQuestionSpec(ctx, "cancer/1a")
	if loader.specs != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.specs)
	}

	module, err := repo.GetModule(ctx, "cancer")
	if err != nil {
		t.Fatalf("get module: %v", err)
	}
	_, _ = repo.GetModule(ctx, "cancer")
	if loader.modules != 1 || module.Title != "Cancer biology" || len(module.Questions) != 1 {
		t.Fatalf("unexpected module %+v after %d loads", module, loader.modules)
	}
	if ttl := mr.TTL("tutor:module:cancer"); ttl < time.Minute || ttl > 66*time.Second {
		t.Fatalf("expected jittered ttl, got %v", ttl)
	}
}

func TestContentRepositoryStoresDomainAsHash(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{ContentLoader: sampleLoader()}
	repo := NewContentRepository(newClient(mr), loader, time.Minute, nil)

	catalog, err := repo.GetConceptDomain(context.Background(), "cancer")
	if err != nil {
		t.Fatalf("get domain: %v", err)
	}
	if got := mr.HGet("tutor:domain:cancer", "apoptosis"); got != `["programmed cell death"]` {
		t.Fatalf("unexpected hash field %q", got)
	}

	cachedCatalog, err := repo.GetConceptDomain(context.Background(), "cancer")
	if err != nil {
		t.Fatalf("get cached domain: %v", err)
	}
	if loader.domains != 1 {
		t.Fatalf("expected one loader call, got %d", loader.domains)
	}
	if len(cachedCatalog.Concepts) != len(catalog.Concepts) || cachedCatalog.Variants("apoptosis")[0] != "programmed cell death" {
		t.Fatalf("cached catalog differs: %+v", cachedCatalog)
	}
	if vs := cachedCatalog.Variants("growth signals"); len(vs) != 0 {
		t.Fatalf("expected key-only concept to round-trip empty, got %v", vs)
	}
}

func TestContentRepositoryPassesThroughNotFound(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewContentRepository(newClient(mr), sampleLoader(), time.Minute, nil)
	if _, err := repo.GetQuestionSpec(context.Background(), "cancer/9z"); !errors.Is(err, domain.ErrSpecNotFound) {
		t.Fatalf("expected ErrSpecNotFound, got %v", err)
	}
	if _, err := repo.GetConceptDomain(context.Background(), "zoology"); !errors.Is(err, domain.ErrDomainNotFound) {
		t.Fatalf("expected ErrDomainNotFound, got %v", err)
	}
}

func TestContentRepositoryInvalidateDropsCachedContent(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{ContentLoader: sampleLoader()}
	repo := NewContentRepository(newClient(mr), loader, time.Minute, nil)
	ctx := context.Background()

	_, _ = repo.GetModule(ctx, "cancer")
	_, _ = repo.GetQuestionSpec(ctx, "cancer/1a")
	_, _ = repo.GetConceptDomain(ctx, "cancer")
	_ = mr.Set("tutor:session:s1", "1")

	if err := repo.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	for _, key := range []string{"tutor:module:cancer", "tutor:spec:cancer/1a", "tutor:domain:cancer"} {
		if mr.Exists(key) {
			t.Fatalf("expected %s removed", key)
		}
	}
	if !mr.Exists("tutor:session:s1") {
		t.Fatalf("expected session markers untouched")
	}

	_, _ = repo.GetModule(ctx, "cancer")
	if loader.modules != 2 {
		t.Fatalf("expected reload after invalidate, got %d loads", loader.modules)
	}
}

type countingLoader struct {
	ContentLoader
	modules, specs, domains int
}

func (l *countingLoader) LoadModule(ctx context.Context, id string) (domain.Module, error) {
	l.modules++
	return l.ContentLoader.LoadModule(ctx, id)
}

func (l *countingLoader) LoadQuestionSpec(ctx context.Context, id string) (domain.QuestionSpec, error) {
	l.specs++
	return l.ContentLoader.LoadQuestionSpec(ctx, id)
}

func (l *countingLoader) LoadConceptDomain(ctx context.Context, name string) (domain.ConceptDomain, error) {
	l.domains++
	return l.ContentLoader.LoadConceptDomain(ctx, name)
}

func sampleLoader() *memory.StaticContentLoader {
	return &memory.StaticContentLoader{
		Modules: map[string]domain.Module{
			"cancer": {
				ID:        "cancer",
				Title:     "Cancer biology",
				Questions: []domain.Question{{Stem: "1. Why do tumors grow?", Parts: []string{"a. Explain apoptosis."}}},
			},
		},
		Specs: map[string]domain.QuestionSpec{
			"cancer/1a": {
				QuestionID:       "cancer/1a",
				Domain:           "cancer",
				RequiredConcepts: []string{"apoptosis", "growth signals"},
				FollowUps:        map[string][]string{"apoptosis": {"What should happen to a damaged cell?"}},
			},
		},
		Domains: map[string]domain.ConceptDomain{
			"cancer": {
				Name: "cancer",
				Concepts: map[string][]string{
					"apoptosis":      {"programmed cell death"},
					"growth signals": nil,
				},
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
