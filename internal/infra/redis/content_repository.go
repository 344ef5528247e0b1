package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"socratic-tutor/internal/domain"
	"socratic-tutor/internal/logger"
)

// ContentLoader fetches tutoring content from a backing store (files, Postgres).
type ContentLoader interface {
	LoadModule(ctx context.Context, moduleID string) (domain.Module, error)
	LoadQuestionSpec(ctx context.Context, questionID string) (domain.QuestionSpec, error)
	LoadConceptDomain(ctx context.Context, name string) (domain.ConceptDomain, error)
}

// ContentRepository caches content in Redis and falls back to a loader on cache miss.
// Modules and specs are stored as JSON blobs:
//
//	SET tutor:module:{moduleID} {json}
//	SET tutor:spec:{questionID} {json}
//
// Concept catalogs are stored as a hash with one field per concept key:
//
//	HSET tutor:domain:{name} {conceptKey} {json variants}
type ContentRepository struct {
	client *redis.Client
	loader ContentLoader
	ttl    time.Duration
	log    *logger.Logger
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

func NewContentRepository(client *redis.Client, loader ContentLoader, ttl time.Duration, log *logger.Logger) *ContentRepository {
	if log == nil {
		log = logger.NewNop()
	}
	return &ContentRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		log:    log,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ContentRepository) GetModule(ctx context.Context, moduleID string) (domain.Module, error) {
	var module domain.Module
	err := r.blob(ctx, r.moduleKey(moduleID), &module, func() (any, error) {
		return r.loader.LoadModule(ctx, moduleID)
	})
	return module, err
}

func (r *ContentRepository) GetQuestionSpec(ctx context.Context, questionID string) (domain.QuestionSpec, error) {
	var spec domain.QuestionSpec
	err := r.blob(ctx, r.specKey(questionID), &spec, func() (any, error) {
		return r.loader.LoadQuestionSpec(ctx, questionID)
	})
	return spec, err
}

func (r *ContentRepository) GetConceptDomain(ctx context.Context, name string) (domain.ConceptDomain, error) {
	key := r.domainKey(name)
	if catalog, ok := r.cachedDomain(ctx, name); ok {
		return catalog, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if catalog, ok := r.cachedDomain(ctx, name); ok {
			return catalog, nil
		}

		catalog, err := r.loader.LoadConceptDomain(ctx, name)
		if err != nil {
			return domain.ConceptDomain{}, err
		}

		ttl := r.ttlWithJitter()
		pipe := r.client.Pipeline()
		for concept, variants := range catalog.Concepts {
			if variants == nil {
				variants = []string{}
			}
			raw, _ := json.Marshal(variants)
			pipe.HSet(ctx, key, concept, raw)
		}
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			r.log.Warn("cache concept domain failed", "domain", name, "error", err)
		}
		return catalog, nil
	})
	if err != nil {
		return domain.ConceptDomain{}, err
	}
	return result.(domain.ConceptDomain), nil
}

// Invalidate deletes every cached module, spec and concept catalog so the next
// lookups, from any instance, reach the loader.
func (r *ContentRepository) Invalidate(ctx context.Context) error {
	for _, pattern := range []string{r.moduleKey("*"), r.specKey("*"), r.domainKey("*")} {
		err := scanKeys(ctx, r.client, pattern, func(keys []string) error {
			return r.client.Del(ctx, keys...).Err()
		})
		if err != nil {
			return fmt.Errorf("invalidate %s: %w", pattern, err)
		}
	}
	return nil
}

// blob reads a JSON value from key into dst, loading and storing it on a miss.
func (r *ContentRepository) blob(ctx context.Context, key string, dst any, fetch func() (any, error)) error {
	if r.readBlob(ctx, key, dst) {
		return nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		value, err := fetch()
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if err := r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err(); err != nil {
			r.log.Warn("cache content failed", "key", key, "error", err)
		}
		return raw, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(result.([]byte), dst)
}

func (r *ContentRepository) readBlob(ctx context.Context, key string, dst any) bool {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("read cached content failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		r.log.Warn("decode cached content failed", "key", key, "error", err)
		return false
	}
	return true
}

func (r *ContentRepository) cachedDomain(ctx context.Context, name string) (domain.ConceptDomain, bool) {
	fields, err := r.client.HGetAll(ctx, r.domainKey(name)).Result()
	if err != nil || len(fields) == 0 {
		return domain.ConceptDomain{}, false
	}
	return buildDomainFromCache(name, fields), true
}

func (r *ContentRepository) moduleKey(moduleID string) string {
	return "tutor:module:" + moduleID
}

func (r *ContentRepository) specKey(questionID string) string {
	return "tutor:spec:" + questionID
}

func (r *ContentRepository) domainKey(name string) string {
	return "tutor:domain:" + name
}

func buildDomainFromCache(name string, fields map[string]string) domain.ConceptDomain {
	catalog := domain.ConceptDomain{Name: name, Concepts: make(map[string][]string, len(fields))}
	for concept, raw := range fields {
		var variants []string
		// A corrupt entry degrades to key-only matching for that concept.
		_ = json.Unmarshal([]byte(raw), &variants)
		catalog.Concepts[concept] = variants
	}
	return catalog
}

func (r *ContentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
