package cli

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"socratic-tutor/internal/config"
	"socratic-tutor/internal/infra/files"
	pgstore "socratic-tutor/internal/infra/postgres"
	redisstore "socratic-tutor/internal/infra/redis"
	"socratic-tutor/internal/logger"
)

// NewImportCmd copies a module directory tree into Postgres.
func NewImportCmd(configPath *string) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import modules, question specs and concept catalogs from a directory into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), *configPath, dir)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "content directory (defaults to content.dir)")
	return cmd
}

func runImport(ctx context.Context, configPath, dir string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	if dir == "" {
		dir = contentDir(cfg)
	}

	db, err := openBunDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := migrateDB(ctx, db, log); err != nil {
		return err
	}

	n, err := importContent(ctx, files.NewLoader(dir), pgstore.NewContentWriter(db), log)
	if err != nil {
		return err
	}
	log.Info("import finished", "dir", dir, "items", n)

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		// Running servers share this cache; stale entries would hide the import.
		cache := redisstore.NewContentRepository(client, nil, 0, log)
		if err := cache.Invalidate(ctx); err != nil {
			return err
		}
		log.Info("content cache invalidated", "redis", cfg.Redis.Addr)
	}
	return nil
}

// importContent copies every module (with its specs) and every concept
// catalog from loader into writer. It returns how many items were stored.
func importContent(ctx context.Context, loader *files.Loader, writer *pgstore.ContentWriter, log *logger.Logger) (int, error) {
	ids, err := loader.ModuleIDs()
	if err != nil {
		return 0, err
	}
	count := 0
	for _, id := range ids {
		module, err := loader.LoadModule(ctx, id)
		if err != nil {
			log.Warn("skipping module", "module", id, "error", err)
			continue
		}
		specs, err := loader.QuestionSpecs(id)
		if err != nil {
			return count, fmt.Errorf("module %s: %w", id, err)
		}
		if err := writer.SaveModule(ctx, module, specs); err != nil {
			return count, err
		}
		log.Info("module imported", "module", id, "questions", len(module.Questions), "specs", len(specs))
		count += 1 + len(specs)
	}

	names, err := loader.ConceptDomainNames()
	if err != nil {
		return count, err
	}
	for _, name := range names {
		catalog, err := loader.LoadConceptDomain(ctx, name)
		if err != nil {
			return count, err
		}
		if err := writer.SaveConceptDomain(ctx, catalog); err != nil {
			return count, err
		}
		log.Info("concept domain imported", "domain", name, "concepts", len(catalog.Concepts))
		count++
	}
	return count, nil
}
