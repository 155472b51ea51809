package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/hunterwarburton/ferret/internal/agent"
	"github.com/hunterwarburton/ferret/internal/api"
	"github.com/hunterwarburton/ferret/internal/auth"
	"github.com/hunterwarburton/ferret/internal/config"
	"github.com/hunterwarburton/ferret/internal/core"
	"github.com/hunterwarburton/ferret/internal/embed"
	"github.com/hunterwarburton/ferret/internal/fetch"
	"github.com/hunterwarburton/ferret/internal/llm"
	"github.com/hunterwarburton/ferret/internal/logger"
	"github.com/hunterwarburton/ferret/internal/retrieval"
	"github.com/hunterwarburton/ferret/internal/search"
	"github.com/hunterwarburton/ferret/internal/similarity"
	"github.com/hunterwarburton/ferret/internal/store"
	"github.com/hunterwarburton/ferret/internal/synthesis"
	"github.com/hunterwarburton/ferret/internal/telegram"
	"github.com/hunterwarburton/ferret/internal/validate"
)

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	logger.Init(*debug)
	defer logger.Sync()

	logger.Info("Starting research agent...")

	if err := godotenv.Load(); err != nil {
		logger.Info("Warning: No .env file found or error loading it")
	}

	cfg := config.Load()
	if err := run(cfg); err != nil {
		logger.Error("Fatal: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	embedder, err := embed.NewClient(embed.Config{
		BaseURL: cfg.EmbeddingBaseURL,
		APIKey:  cfg.EmbeddingAPIKey,
		Model:   cfg.EmbeddingModel,
	})
	if err != nil {
		return fmt.Errorf("creating embedding client: %w", err)
	}

	var (
		judge      core.SemanticJudge
		summarizer core.Summarizer
		classifier validate.Classifier
	)
	if cfg.OpenRouterAPIKey != "" {
		client := llm.NewOpenRouterClient(cfg.OpenRouterAPIKey, cfg.OpenRouterModel)
		judge = llm.NewJudge(client)
		summarizer = llm.NewSummarizer(client, cfg.OpenRouterModel, cfg.OpenRouterFallbackModel)
		classifier = client
	} else {
		logger.Warn("OPENROUTER_API_KEY not set: running without LLM judge, summarizer and classifier")
	}

	queryStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer queryStore.Close()

	detector := similarity.NewDetector(queryStore, judge, rules, cfg.Similarity)

	searchChain := search.NewChain(
		search.NewDuckDuckGo(cfg.UserAgent),
		search.NewBing(cfg.UserAgent),
	)
	fetcher := fetch.New(cfg.UserAgent).WithBrowser(fetch.NewBrowser(cfg.UserAgent))
	orchestrator := retrieval.NewOrchestrator(searchChain, fetcher, retrieval.NewDisambiguator(rules.Entities), cfg.Retrieval)
	engine := synthesis.NewEngine(summarizer, cfg.Synthesis)

	svc := agent.NewService(
		validate.New(classifier),
		embedder,
		detector.Tagger(),
		detector,
		queryStore,
		orchestrator,
		engine,
	)

	g, gctx := errgroup.WithContext(ctx)

	server := api.NewServer(svc)
	g.Go(func() error {
		return server.ListenAndServe(gctx, cfg.HTTPAddr)
	})

	if cfg.TelegramToken != "" {
		policy := auth.NewPolicyService(cfg.AdminUserIDs, cfg.AllowedUserIDs)
		tgBot, err := telegram.NewBot(cfg.TelegramToken, svc, policy)
		if err != nil {
			return fmt.Errorf("creating Telegram bot: %w", err)
		}
		g.Go(func() error {
			logger.Info("Telegram bot started")
			tgBot.Start(gctx)
			return nil
		})
	} else {
		logger.Info("TG_BOT_TOKEN not set: Telegram surface disabled")
	}

	logger.Info("Research agent ready")
	return g.Wait()
}

// openStore connects to Milvus, falling back to the in-memory store so
// the agent stays usable without infrastructure.
func openStore(ctx context.Context, cfg *config.Config) (core.QueryStore, error) {
	addr := cfg.MilvusHost + ":" + cfg.MilvusPort
	milvus, err := store.NewMilvusStore(ctx, addr, cfg.EmbeddingDim)
	if err != nil {
		logger.Warn("Milvus unavailable at %s, using in-memory store: %v", addr, err)
		return store.NewMemoryStore(), nil
	}
	logger.Info("Connected to Milvus at %s", addr)
	return milvus, nil
}
