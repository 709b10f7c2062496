package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sofelijo/ai-agent-sekolah-sub001/internal/agent"
	"github.com/sofelijo/ai-agent-sekolah-sub001/internal/autopost"
	"github.com/sofelijo/ai-agent-sekolah-sub001/internal/reply"
	"github.com/sofelijo/ai-agent-sekolah-sub001/internal/spam"
	"github.com/sofelijo/ai-agent-sekolah-sub001/internal/state"
	"github.com/sofelijo/ai-agent-sekolah-sub001/internal/storage"
	"github.com/sofelijo/ai-agent-sekolah-sub001/internal/templates"
	"github.com/sofelijo/ai-agent-sekolah-sub001/internal/twitter"
	"github.com/sofelijo/ai-agent-sekolah-sub001/pkg/config"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Initialize chat-history storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory chat history")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL chat history")
		store, err = storage.NewPostgresStorage(storage.DatabaseConfig{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			DBName:      cfg.Database.DBName,
			SSLMode:     cfg.Database.SSLMode,
			UseInMemory: cfg.Database.UseInMemory,
		})
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Initialize the reply generator
	generator := reply.NewGenerator(
		openai.NewClient(cfg.OpenAI.APIKey),
		store,
		cfg.OpenAI.Model,
		cfg.OpenAI.MaxTokens,
		cfg.OpenAI.Temperature,
		cfg.Twitter.TerseMode,
		cfg.Twitter.MaxReplyChars,
		cfg.Twitter.HardLimit,
		logger,
	)

	// Initialize the Twitter client and resolve the agent identity
	client := twitter.NewClient(twitter.Credentials{
		BearerToken:  cfg.Twitter.BearerToken,
		APIKey:       cfg.Twitter.APIKey,
		APISecret:    cfg.Twitter.APISecret,
		AccessToken:  cfg.Twitter.AccessToken,
		AccessSecret: cfg.Twitter.AccessSecret,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	identity, err := client.Me(ctx)
	if err != nil {
		logger.Fatal("Failed to resolve agent identity", zap.Error(err))
	}

	stateStore := state.NewStore(cfg.Agent.StatePath, logger)
	renderer := templates.NewRenderer()
	filter := spam.NewFilter(
		cfg.Spam.Disabled,
		cfg.Spam.Strict,
		cfg.Spam.MinChars,
		cfg.Spam.MinWords,
		cfg.SpamKeywordList(),
	)
	backoff := agent.NewBackoffClock(
		time.Duration(cfg.Mentions.CooldownSeconds)*time.Second,
		time.Duration(cfg.Mentions.MaxCooldownSeconds)*time.Second,
	)

	processor := agent.NewMentionProcessor(client, generator, filter, store, stateStore, renderer, backoff, identity, agent.MentionsConfig{
		MaxResults: cfg.Mentions.MaxResults,
		LatestOnly: cfg.Mentions.LatestOnly,
		HardLimit:  cfg.Twitter.HardLimit,
	}, logger)

	var entries []autopost.Entry
	if cfg.Autopost.Enabled && cfg.Autopost.EntriesPath != "" {
		entries, err = autopost.LoadEntries(cfg.Autopost.EntriesPath, logger)
		if err != nil {
			logger.Fatal("Failed to load autopost entries",
				zap.Error(err),
				zap.String("path", cfg.Autopost.EntriesPath))
		}
		logger.Info("Loaded autopost entries",
			zap.Int("count", len(entries)),
			zap.String("path", cfg.Autopost.EntriesPath))
	}

	scheduler := autopost.NewScheduler(
		entries,
		time.Duration(cfg.Autopost.IntervalSeconds)*time.Second,
		cfg.Autopost.RecentLimit,
		cfg.Twitter.HardLimit,
		renderer,
		generator,
		client,
		stateStore,
		logger,
	)

	a := agent.New(identity, stateStore, processor, scheduler, agent.Options{
		PollInterval:    time.Duration(cfg.Agent.PollIntervalSeconds) * time.Second,
		MentionsEnabled: cfg.Mentions.Enabled,
		AutopostEnabled: cfg.Autopost.Enabled,
		AutopostForce:   cfg.Autopost.ForceOnStart,
	}, logger)

	a.Run(ctx)
}
