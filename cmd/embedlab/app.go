package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/embedlab/internal/ai"
	"github.com/xxxsen/embedlab/internal/config"
	"github.com/xxxsen/embedlab/internal/db"
	"github.com/xxxsen/embedlab/internal/embedcache"
	"github.com/xxxsen/embedlab/internal/filestore"
	"github.com/xxxsen/embedlab/internal/model"
	"github.com/xxxsen/embedlab/internal/repo"
	"github.com/xxxsen/embedlab/internal/retrieval"
	"github.com/xxxsen/embedlab/internal/service"
	"github.com/xxxsen/embedlab/internal/vectorstore"
)

const (
	generatorCacheSize = 1000
	generatorCacheTTL  = time.Hour
)

// app holds everything the commands share. Close releases the database
// and the vector store.
type app struct {
	cfg       *config.Config
	sqlDB     *sql.DB
	store     vectorstore.Store
	files     filestore.Store
	cacheRepo *repo.EmbeddingCacheRepo

	ingest      *service.IngestService
	collections *service.CollectionService
	queries     *service.QueryService
	compare     *service.CompareService
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}
	if cfg.Database.Enabled() {
		sqlDB, err := db.Open(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		a.sqlDB = sqlDB
		if err := db.ApplyMigrations(ctx, sqlDB); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		if cfg.EmbedCache.Persist {
			a.cacheRepo = repo.NewEmbeddingCacheRepo(sqlDB)
		}
	}

	store, err := vectorstore.New(cfg.VectorStore.Type, vectorstore.FactoryArgs{Data: cfg.VectorStore.Data, DB: a.sqlDB})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init vector store: %w", err)
	}
	a.store = store

	files, err := filestore.New(cfg.FileStore)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init file store: %w", err)
	}
	a.files = files

	policy := callPolicy(cfg.Retrieval)
	embedders, err := a.buildEmbedders(ctx, policy)
	if err != nil {
		a.Close()
		return nil, err
	}
	generator, err := buildGenerator(ctx, cfg, policy)
	if err != nil {
		a.Close()
		return nil, err
	}
	manager := ai.NewManager(generator, ai.ManagerConfig{
		Timeout:   time.Duration(cfg.Retrieval.GenerateTimeout) * time.Second,
		CacheSize: generatorCacheSize,
		CacheTTL:  generatorCacheTTL,
	})

	orchestrator := retrieval.NewOrchestrator(embedders, manager, retrieval.Config{
		MaxResults:   cfg.Retrieval.TopK,
		StoreTimeout: time.Duration(cfg.Retrieval.CallTimeout) * time.Second,
	})
	a.ingest = service.NewIngestService(store, embedders, manager, files, service.IngestConfig{
		MinChunkSize: cfg.Ingest.MinChunkSize,
		MaxChunkSize: cfg.Ingest.MaxChunkSize,
	})
	a.collections = service.NewCollectionService(store, files)
	a.queries = service.NewQueryService(store, orchestrator)
	a.compare = service.NewCompareService(store, orchestrator, a.ingest, service.CompareConfig{
		TopK:      cfg.Retrieval.CompareTopK,
		ChunkSize: cfg.Retrieval.CompareChunkSize,
		Timeout:   time.Duration(cfg.Retrieval.CompareTimeout) * time.Second,
	})
	return a, nil
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logutil.GetLogger(context.Background()).Error("close vector store failed", zap.Error(err))
		}
	}
	if a.sqlDB != nil {
		_ = a.sqlDB.Close()
	}
}

func callPolicy(r config.RetrievalConfig) ai.CallPolicy {
	return ai.CallPolicy{
		Timeout:     time.Duration(r.CallTimeout) * time.Second,
		MaxAttempts: r.MaxAttempts,
		BaseDelay:   time.Duration(r.RetryBaseDelayMs) * time.Millisecond,
	}
}

// buildEmbedders creates one embedder per catalogue model. A provider
// without credentials still gets an embedder; its calls fail with
// MissingCredentials so the other models keep working.
func (a *app) buildEmbedders(ctx context.Context, policy ai.CallPolicy) (*ai.EmbedderSet, error) {
	logger := logutil.GetLogger(ctx)
	items := make(map[model.EmbeddingModel]ai.IEmbedder)
	for _, info := range model.SupportedModels() {
		pc, ok := a.cfg.Providers.Lookup(info.Provider)
		if !ok {
			return nil, fmt.Errorf("no provider config for %s", info.Provider)
		}
		provider, err := ai.NewEmbedProvider(info.Provider, pc)
		if err != nil {
			return nil, fmt.Errorf("init embed provider %s: %w", info.Provider, err)
		}
		var e ai.IEmbedder = ai.NewEmbedder(provider, string(info.Name), pc.BatchSize, policy)
		if a.cacheRepo != nil {
			e = embedcache.WrapDBCacheToEmbedder(e, a.cacheRepo)
		}
		if ec := a.cfg.EmbedCache; ec.LRUSize > 0 && ec.LRUTTLMinutes > 0 {
			e = embedcache.WrapLruCacheToEmbedder(e, ec.LRUSize, time.Duration(ec.LRUTTLMinutes)*time.Minute)
		}
		items[info.Name] = e
		logger.Info("embedder ready",
			zap.String("model", string(info.Name)),
			zap.String("provider", info.Provider),
			zap.Bool("has_key", pc.APIKey != ""),
		)
	}
	return ai.NewEmbedderSet(items), nil
}

func buildGenerator(ctx context.Context, cfg *config.Config, policy ai.CallPolicy) (ai.IGenerator, error) {
	entries := make([]ai.GeneratorEntry, 0, len(cfg.Generators))
	for _, g := range cfg.Generators {
		pc, ok := cfg.Providers.Lookup(g.Provider)
		if !ok {
			return nil, fmt.Errorf("unknown generator provider %s", g.Provider)
		}
		modelName := g.Model
		if modelName == "" {
			modelName = pc.Model
		}
		provider, err := ai.NewProvider(g.Provider, pc)
		if err != nil {
			return nil, fmt.Errorf("init generator %s: %w", g.Provider, err)
		}
		entries = append(entries, ai.GeneratorEntry{
			Name:      g.Provider + "/" + modelName,
			Generator: ai.NewGenerator(provider, modelName, policy),
		})
	}
	logutil.GetLogger(ctx).Info("generators ready", zap.Int("count", len(entries)))
	return ai.NewGroupGenerator(entries), nil
}
