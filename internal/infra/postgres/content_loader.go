package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"socratic-tutor/internal/domain"
)

// ContentLoader loads modules, question specs and concept catalogs stored as
// JSONB in Postgres.
type ContentLoader struct {
	pool *pgxpool.Pool
}

func NewContentLoader(pool *pgxpool.Pool) *ContentLoader {
	return &ContentLoader{pool: pool}
}

func (l *ContentLoader) LoadModule(ctx context.Context, moduleID string) (domain.Module, error) {
	var module domain.Module
	if err := l.loadJSON(ctx, `SELECT data FROM modules WHERE id=$1`, moduleID, domain.ErrModuleNotFound, &module); err != nil {
		return domain.Module{}, fmt.Errorf("load module: %w", err)
	}
	return module, nil
}

func (l *ContentLoader) LoadQuestionSpec(ctx context.Context, questionID string) (domain.QuestionSpec, error) {
	var spec domain.QuestionSpec
	if err := l.loadJSON(ctx, `SELECT data FROM question_specs WHERE id=$1`, questionID, domain.ErrSpecNotFound, &spec); err != nil {
		return domain.QuestionSpec{}, fmt.Errorf("load question spec: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return domain.QuestionSpec{}, err
	}
	return spec, nil
}

func (l *ContentLoader) LoadConceptDomain(ctx context.Context, name string) (domain.ConceptDomain, error) {
	var catalog domain.ConceptDomain
	if err := l.loadJSON(ctx, `SELECT data FROM concept_domains WHERE name=$1`, name, domain.ErrDomainNotFound, &catalog); err != nil {
		return domain.ConceptDomain{}, fmt.Errorf("load concept domain: %w", err)
	}
	catalog.Name = name
	return catalog, nil
}

func (l *ContentLoader) loadJSON(ctx context.Context, query, id string, notFound error, dst any) error {
	var raw []byte
	err := l.pool.QueryRow(ctx, query, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", notFound, id)
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("unmarshal %s: %w", id, err)
	}
	return nil
}
