package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/0xTanzim/contentchat/internal/domain/chat"
	"github.com/0xTanzim/contentchat/internal/domain/history"
	"github.com/0xTanzim/contentchat/internal/domain/summarize"
	"github.com/0xTanzim/contentchat/internal/infra/config"
	"github.com/0xTanzim/contentchat/internal/infra/engine/chatgpt"
	"github.com/0xTanzim/contentchat/internal/infra/historyrepo"
	"github.com/0xTanzim/contentchat/internal/infra/librarystore"
	"github.com/0xTanzim/contentchat/internal/infra/summarycache"
)

func provideChatGPTClient(cfg *config.Config, logger *slog.Logger) (*chatgpt.Client, error) {
	return chatgpt.NewClient(chatgpt.Config{
		APIKey:        cfg.LLM.APIKey,
		BaseURL:       cfg.LLM.BaseURL,
		Model:         cfg.LLM.Model,
		ContextTokens: cfg.LLM.ContextTokens,
	}, logger)
}

func provideSummarizeConfig(cfg *config.Config) summarize.Config {
	return summarize.Config{
		Prompt:            cfg.Summary.Prompt,
		SharedContext:     cfg.Summary.SharedContext,
		MaxDepth:          cfg.Summary.MaxDepth,
		DefaultChunkChars: cfg.Summary.DefaultChunkChars,
		ChunkCeilingChars: cfg.Summary.ChunkCeilingChars,
		OverlapChars:      cfg.Summary.OverlapChars,
		Temperature:       cfg.LLM.Temperature,
		CacheTTL:          cfg.Summary.CacheTTL,
	}
}

func provideChatConfig(cfg *config.Config) chat.Config {
	return chat.Config{
		SystemPrompt:    cfg.Chat.SystemPrompt,
		MaxInputChars:   cfg.Chat.MaxInputChars,
		MaxHistoryTurns: cfg.Chat.MaxHistoryTurns,
		Temperature:     cfg.Chat.Temperature,
	}
}

func provideHistoryConfig(cfg *config.Config) history.Config {
	return history.Config{MaxListLimit: cfg.History.MaxListLimit}
}

func provideSummaryCache(cfg *config.Config, logger *slog.Logger) summarize.Cache {
	if cfg.History.Valkey.Enabled {
		opt, err := buildValkeyOptions(cfg)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory cache", "error", err)
			return summarycache.NewMemoryCache()
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory cache", "error", err)
			return summarycache.NewMemoryCache()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory cache", "error", err)
		} else {
			logger.Info("summary valkey cache enabled", "addr", cfg.History.Valkey.Addr)
			return summarycache.NewValkeyCache(client, cfg.History.Valkey.Prefix)
		}
	}
	return summarycache.NewMemoryCache()
}

func provideHistoryRepository(cfg *config.Config, logger *slog.Logger) history.Repository {
	fallback := historyrepo.NewMemoryRepository()
	dsn := strings.TrimSpace(cfg.History.Postgres.DSN)
	if dsn == "" {
		logger.Info("history postgres dsn not set, using memory repository")
		return fallback
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory repository", "error", err)
		return fallback
	}
	if cfg.History.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.History.Postgres.MaxConns
	}
	if cfg.History.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.History.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory repository", "error", err)
		return fallback
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory repository", "error", err)
		pool.Close()
		return fallback
	}
	logger.Info("history postgres repository enabled")
	return historyrepo.NewPostgresRepository(pool)
}

func provideLibraryStore(cfg *config.Config, logger *slog.Logger) history.BlobStore {
	if !cfg.Library.Enabled {
		logger.Info("library store not configured, keeping source previews only")
		return librarystore.NewMemoryStore()
	}
	store, err := librarystore.NewMinioStore(
		cfg.Library.Endpoint,
		cfg.Library.AccessKey,
		cfg.Library.SecretKey,
		cfg.Library.Bucket,
		cfg.Library.Region,
		logger,
	)
	if err != nil {
		logger.Error("failed to initialize library store, falling back to memory", "error", err)
		return librarystore.NewMemoryStore()
	}
	logger.Info("library object store enabled", "bucket", cfg.Library.Bucket)
	return store
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(cfg.History.Valkey.Addr, "://") {
		opt, err = valkey.ParseURL(cfg.History.Valkey.Addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{cfg.History.Valkey.Addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}
