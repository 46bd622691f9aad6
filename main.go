package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	goredis "github.com/redis/go-redis/v9"

	"github.com/homefix-assistant/server/internal/agent/graph"
	"github.com/homefix-assistant/server/internal/agent/model"
	"github.com/homefix-assistant/server/internal/agent/repo"
	"github.com/homefix-assistant/server/internal/cli"
	"github.com/homefix-assistant/server/internal/core"
	logx "github.com/homefix-assistant/server/pkg/logger"
	pkgredis "github.com/homefix-assistant/server/pkg/redis"
)

// AppConfig defines all configurable parameters of the assistant,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment core.Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string           `envconfig:"LOG_LEVEL" default:"warn"`

	// Infrastructure
	Redis pkgredis.Config
	Store model.StoreConfig

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Fact         model.FactModelConfig
	Response     model.ResponseModelConfig
	Prompt       model.PromptConfig
	Conversation model.ConversationConfig
}

func main() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env file: %v\n", err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to process environment config: %v\n", err)
		os.Exit(1)
	}

	logx.Init(logx.LoggerOpts{
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
	})

	if err := run(cfg); err != nil {
		os.Exit(1)
	}
}

func run(cfg AppConfig) error {
	deps := &dependencies{cfg: cfg}
	defer deps.close()

	root := cli.NewRootCommand(&cli.App{
		Records: deps.records,
		Runner:  deps.runner,
	})
	return root.ExecuteContext(context.Background())
}

// dependencies opens infrastructure on first use and shares it across the
// command that runs.
type dependencies struct {
	cfg       AppConfig
	rdb       *goredis.Client
	redisDone bool
}

func (d *dependencies) redis(ctx context.Context) (*goredis.Client, error) {
	if d.redisDone {
		return d.rdb, nil
	}
	d.redisDone = true

	rdb, err := d.cfg.Redis.New(ctx)
	if err != nil {
		if errors.Is(err, pkgredis.ErrNotConfigured) {
			logx.Debug().Msg("REDIS_URL not set; sessions are kept in memory")
			return nil, nil
		}
		return nil, fmt.Errorf("initialise redis client: %w", err)
	}
	logx.Debug().Msg("Connected to Redis successfully")
	d.rdb = rdb
	return rdb, nil
}

func (d *dependencies) records(ctx context.Context) (*repo.Records, error) {
	switch d.cfg.Store.Backend {
	case "", "file":
		store, err := repo.NewFileRecordStore(d.cfg.Store.DataDir)
		if err != nil {
			return nil, err
		}
		return repo.NewRecords(store), nil
	case "redis":
		rdb, err := d.redis(ctx)
		if err != nil {
			return nil, err
		}
		if rdb == nil {
			return nil, errors.New("STORE_BACKEND=redis requires REDIS_URL")
		}
		return repo.NewRecords(repo.NewRedisRecordStore(rdb)), nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", d.cfg.Store.Backend)
	}
}

func (d *dependencies) runner(ctx context.Context, records *repo.Records) (graph.Runner, error) {
	if d.cfg.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required for chat")
	}
	ttl, err := d.cfg.Conversation.SessionTTL()
	if err != nil {
		return nil, fmt.Errorf("invalid CONVERSATION_TTL %q: %w", d.cfg.Conversation.TTL, err)
	}

	rdb, err := d.redis(ctx)
	if err != nil {
		return nil, err
	}
	var convRepo model.ConversationRepository = repo.NewMemoryConversationRepository()
	if rdb != nil {
		convRepo = repo.NewRedisConversationRepository(rdb, ttl)
	}

	return graph.BuildTurnGraph(ctx, graph.Config{
		APIKey:           d.cfg.APIKey,
		BaseURL:          d.cfg.BaseURL,
		FactModel:        d.cfg.Fact,
		ResponseModel:    d.cfg.Response,
		Prompts:          d.cfg.Prompt,
		Conversation:     d.cfg.Conversation,
		ConversationRepo: convRepo,
		Records:          records,
	})
}

func (d *dependencies) close() {
	if d.rdb != nil {
		_ = d.rdb.Close()
	}
}
