package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"socratic-tutor/internal/domain"
)

type moduleRow struct {
	bun.BaseModel `bun:"table:modules"`

	ID        string        `bun:"id,pk"`
	Data      domain.Module `bun:"data,type:jsonb"`
	UpdatedAt time.Time     `bun:"updated_at"`
}

type questionSpecRow struct {
	bun.BaseModel `bun:"table:question_specs"`

	ID        string              `bun:"id,pk"`
	ModuleID  string              `bun:"module_id"`
	Data      domain.QuestionSpec `bun:"data,type:jsonb"`
	UpdatedAt time.Time           `bun:"updated_at"`
}

type conceptDomainRow struct {
	bun.BaseModel `bun:"table:concept_domains"`

	Name      string               `bun:"name,pk"`
	Data      domain.ConceptDomain `bun:"data,type:jsonb"`
	UpdatedAt time.Time            `bun:"updated_at"`
}

// ContentWriter upserts content through bun. It backs the import command.
type ContentWriter struct {
	db *bun.DB
}

func NewContentWriter(db *bun.DB) *ContentWriter {
	return &ContentWriter{db: db}
}

// SaveModule stores a module together with its question specs in one transaction.
func (w *ContentWriter) SaveModule(ctx context.Context, module domain.Module, specs []domain.QuestionSpec) error {
	now := time.Now().UTC()
	return w.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := &moduleRow{ID: module.ID, Data: module, UpdatedAt: now}
		if _, err := tx.NewInsert().Model(row).
			On("CONFLICT (id) DO UPDATE").
			Set("data = EXCLUDED.data").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx); err != nil {
			return fmt.Errorf("upsert module %s: %w", module.ID, err)
		}
		for _, spec := range specs {
			if err := spec.Validate(); err != nil {
				return err
			}
			specRow := &questionSpecRow{ID: spec.QuestionID, ModuleID: module.ID, Data: spec, UpdatedAt: now}
			if _, err := tx.NewInsert().Model(specRow).
				On("CONFLICT (id) DO UPDATE").
				Set("module_id = EXCLUDED.module_id").
				Set("data = EXCLUDED.data").
				Set("updated_at = EXCLUDED.updated_at").
				Exec(ctx); err != nil {
				return fmt.Errorf("upsert question spec %s: %w", spec.QuestionID, err)
			}
		}
		return nil
	})
}

func (w *ContentWriter) SaveConceptDomain(ctx context.Context, catalog domain.ConceptDomain) error {
	row := &conceptDomainRow{Name: catalog.Name, Data: catalog, UpdatedAt: time.Now().UTC()}
	if _, err := w.db.NewInsert().Model(row).
		On("CONFLICT (name) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx); err != nil {
		return fmt.Errorf("upsert concept domain %s: %w", catalog.Name, err)
	}
	return nil
}
