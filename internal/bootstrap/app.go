// Package bootstrap assembles the service from configuration.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	googleauth "resumind/internal/auth"
	"resumind/internal/blob"
	"resumind/internal/inference"
	"resumind/internal/inference/openai"
	"resumind/internal/kv"
	"resumind/internal/pipeline"
	"resumind/internal/rasterize"
	"resumind/internal/resumes"
	"resumind/internal/services/health"
	"resumind/internal/shared/config"
	"resumind/internal/shared/server"
	"resumind/internal/shared/storage/db"
	"resumind/internal/shared/storage/object"
	localstore "resumind/internal/shared/storage/object/local"
	miniostore "resumind/internal/shared/storage/object/minio"
	s3store "resumind/internal/shared/storage/object/s3"
	"resumind/internal/shared/telemetry"
	"resumind/internal/submissions"
)

// App holds shared dependencies.
type App struct {
	Config     config.Config
	Router     *gin.Engine
	DB         *sql.DB
	Redis      *redis.Client
	Objects    object.ObjectStore
	Blobs      blob.Store
	KV         kv.Store
	Inference  inference.Client
	Rasterizer rasterize.Rasterizer
	Pipeline   *pipeline.Pipeline
	Resumes    *resumes.Service
	GoogleAuth *googleauth.GoogleService
	Health     *health.Service
}

// Overrides replaces collaborators, mainly for tests and the CLI.
type Overrides struct {
	Inference inference.Client
	KV        kv.Store
}

// Build prepares every dependency and the HTTP router.
func Build(ctx context.Context, cfg config.Config, overrides ...Overrides) (*App, error) {
	cfg.Normalize()
	var ov Overrides
	if len(overrides) > 0 {
		ov = overrides[0]
	}

	app := &App{Config: cfg}

	objects, err := buildObjectStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Objects = objects
	app.Blobs = blob.New(objects)

	if ov.KV != nil {
		app.KV = ov.KV
	} else if err := app.buildKV(ctx); err != nil {
		app.Close()
		return nil, err
	}

	if ov.Inference != nil {
		app.Inference = ov.Inference
	} else {
		client, err := buildInference(cfg, app.Blobs)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.Inference = client
	}

	conv, err := rasterize.New(cfg.RasterScale)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Rasterizer = conv

	p, err := pipeline.New(pipeline.Deps{
		Blobs:        app.Blobs,
		Rasterizer:   app.Rasterizer,
		KV:           app.KV,
		Inference:    app.Inference,
		StrictSchema: cfg.StrictSchema,
	})
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Pipeline = p
	app.Resumes = &resumes.Service{KV: app.KV, Blobs: app.Blobs}
	app.GoogleAuth = googleauth.NewGoogleService(googleauth.GoogleOptions{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		UIRedirect:   cfg.UIRedirectURL,
	})

	app.Health = health.NewService()
	app.Health.Register("kv", func(ctx context.Context) error {
		_, err := app.KV.Get(ctx, "health:probe")
		if errors.Is(err, kv.ErrNotFound) {
			return nil
		}
		return err
	})
	if app.DB != nil {
		app.Health.Register("postgres", app.DB.PingContext)
	}
	if app.Redis != nil {
		app.Health.Register("redis", func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		})
	}

	app.Router = server.NewRouter(server.Deps{
		Config:      cfg,
		Resumes:     resumes.NewHandler(app.Resumes),
		Submissions: submissions.NewHandler(app.Pipeline, cfg.MaxUploadSize),
		Google:      app.GoogleAuth,
		Health:      app.Health,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"object_store": cfg.ObjectStoreType,
		"kv_store":     cfg.KVStoreType,
		"llm_provider": cfg.LLMProvider,
		"env":          cfg.Env,
	})
	return app, nil
}

// Close releases database and cache connections.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
}

func buildObjectStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, errors.New("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		store, err := s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "minio":
		store, err := miniostore.New(miniostore.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			Region:    cfg.MinioRegion,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func (a *App) buildKV(ctx context.Context) error {
	cfg := a.Config
	switch cfg.KVStoreType {
	case "postgres":
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		a.DB = sqlDB
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		a.KV = kv.NewPGStore(sqlDB)
	case "redis":
		client, err := kv.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		a.Redis = client
		a.KV = kv.NewRedisStore(client)
	default:
		if !cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_kv", map[string]any{"env": cfg.Env})
		}
		a.KV = kv.NewMemoryStore()
	}
	return nil
}

func buildInference(cfg config.Config, docs blob.Store) (inference.Client, error) {
	switch cfg.LLMProvider {
	case "", "none", "placeholder":
		return inference.PlaceholderClient{}, nil
	case "openai":
		if strings.TrimSpace(cfg.LLMAPIKey) == "" {
			if cfg.IsDevLike() {
				telemetry.Warn("bootstrap.llm_not_configured", map[string]any{"provider": cfg.LLMProvider})
				return inference.PlaceholderClient{}, nil
			}
			return nil, errors.New("LLM_PROVIDER=openai requires OPENAI_API_KEY")
		}
		client, err := openai.NewClient(openai.Options{
			APIKey:  cfg.LLMAPIKey,
			Model:   cfg.LLMModel,
			BaseURL: cfg.LLMBaseURL,
			Timeout: cfg.LLMTimeout,
		}, docs)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
	}
}
