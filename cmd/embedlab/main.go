package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/embedlab/internal/config"
	"github.com/xxxsen/embedlab/internal/handler"
	"github.com/xxxsen/embedlab/internal/job"
	"github.com/xxxsen/embedlab/internal/middleware"
	"github.com/xxxsen/embedlab/internal/schedule"
)

func main() {
	_ = godotenv.Load()

	var configPath string

	rootCmd := &cobra.Command{
		Use:   "embedlab",
		Short: "embedding model comparison playground",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json or config.yaml")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run embedlab server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}

	rootCmd.AddCommand(runCmd, newTokenCmd(&configPath), newCompareCmd(&configPath), newSeedCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", path))
	return cfg, nil
}

func runServer(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logutil.GetLogger(ctx).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("vector_store", cfg.VectorStore.Type),
		zap.String("file_store", cfg.FileStore.Type),
	)
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	deps := handler.RouterDeps{
		Models:         handler.NewModelHandler(),
		Collections:    handler.NewCollectionHandler(a.ingest, a.collections, cfg.Ingest.MaxFileSize),
		Query:          handler.NewQueryHandler(a.queries),
		Compare:        handler.NewCompareHandler(a.compare),
		IngestSecret:   []byte(cfg.Ingest.UploadSecret),
		AllowAnonymous: cfg.Ingest.AllowAnonymous,
		RateLimit:      time.Duration(cfg.RateLimitMs) * time.Millisecond,
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	scheduler := schedule.NewCronScheduler(schedule.WithRunTimeout(30 * time.Minute))
	if a.cacheRepo != nil {
		cleanup := job.NewEmbeddingCacheCleanupJob(a.cacheRepo, cfg.EmbedCache.MaxAgeDays)
		if err := scheduler.AddJob(cleanup, cfg.EmbedCache.CleanupCron); err != nil {
			return fmt.Errorf("schedule %s: %w", cleanup.Name(), err)
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", addr))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
