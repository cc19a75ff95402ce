// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"drug-shortage-assistant/internal/config"
	"drug-shortage-assistant/internal/domain/model"
	adapterport "drug-shortage-assistant/internal/domain/ports/adapter"
	aiAdapters "drug-shortage-assistant/internal/infra/adapters/ai"
	"drug-shortage-assistant/internal/infra/adapters/trigger"
	pg "drug-shortage-assistant/internal/infra/db/postgres"
	"drug-shortage-assistant/internal/infra/logging"
	"drug-shortage-assistant/internal/infra/metrics"
	red "drug-shortage-assistant/internal/infra/redis"
	"drug-shortage-assistant/internal/infra/sched"
	"drug-shortage-assistant/internal/infra/web"
	"drug-shortage-assistant/internal/infra/worker"
	"drug-shortage-assistant/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop AI backend allowed)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.PoolSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	statusCache := red.NewStatusCache(redisClient, cfg.Redis.TTL)

	// ---- Repositories ----
	jobRepo := pg.NewGenerationJobRepo(pool)
	docRepo := pg.NewDocumentRepo(pool)
	convRepo := pg.NewConversationRepo(pool)
	txMgr := pg.NewTxManager(pool)

	// ---- AI backends ----
	generators := map[model.AssistantType]adapterport.TextGenerator{}
	wrap := func(g adapterport.TextGenerator) adapterport.TextGenerator {
		return aiAdapters.NewRetrying(aiAdapters.NewLimited(g, cfg.AI.ConcurrentLimit), 0, 0)
	}
	if cfg.AI.OpenAIKey != "" {
		oa, err := aiAdapters.NewOpenAIAssistant(cfg.AI.OpenAIKey, cfg.AI.OpenAIModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai adapter")
		}
		generators[model.AssistantOpenAI] = wrap(oa)
		logger.Info().Str("model", cfg.AI.OpenAIModel).Msg("AI backend: openai-assistant")
	}
	if cfg.AI.TxAgentURL != "" {
		tx, err := aiAdapters.NewTxAgent(cfg.AI.TxAgentURL, cfg.AI.TxAgentKey, cfg.AI.TxAgentModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("txagent adapter")
		}
		generators[model.AssistantTxAgent] = wrap(tx)
		logger.Info().Str("base", cfg.AI.TxAgentURL).Str("model", cfg.AI.TxAgentModel).Msg("AI backend: txagent")
	}
	if len(generators) == 0 {
		if !cfg.Runtime.Dev {
			logger.Fatal().Msg("no AI backend configured")
		}
		noop := aiAdapters.NewNoopGenerator()
		generators[model.AssistantOpenAI] = noop
		generators[model.AssistantTxAgent] = noop
		logger.Warn().Msg("AI backend: noop (dev)")
	}

	// Documents prefer the TxAgent backend when both are configured.
	docGen := generators[model.AssistantTxAgent]
	if docGen == nil {
		docGen = generators[model.AssistantOpenAI]
	}

	// ---- Worker trigger ----
	var wake adapterport.WorkerTrigger = trigger.NoopTrigger{}
	if cfg.Trigger.URL != "" {
		wake = trigger.NewWebhookTrigger(cfg.Trigger.URL, cfg.Trigger.Token, logger)
	}

	// ---- Use cases ----
	docUC := usecase.NewDocumentUseCase(jobRepo, docRepo, wake, statusCache, logger)
	chatUC := usecase.NewChatUseCase(convRepo, docRepo, txMgr, generators, cfg.AI.ChatTimeout, cfg.AI.DocumentTimeout, logger)

	// ---- Worker + reclaimer ----
	processor := worker.NewProcessor(jobRepo, docRepo, docGen, statusCache, cfg.Reclaimer.StaleAfter, cfg.AI.DocumentTimeout, logger)
	pool2 := worker.NewPool(cfg.Worker.Workers, logger)
	pool2.Start(ctx)
	defer pool2.Stop()
	go processor.Run(ctx, pool2, cfg.Worker.PollInterval)

	reclaimer := sched.NewReclaimer(cfg.Reclaimer.SweepInterval, cfg.Reclaimer.StaleAfter, jobRepo, logger)
	go func() { _ = reclaimer.Run(ctx) }()

	// ---- HTTP ----
	auth := web.NewAuthManager(cfg.Admin.JWTSecret, cfg.Admin.SessionTTL)
	srv := web.NewServer(docUC, chatUC, processor, reclaimer, auth, logger)
	go func() {
		if err := srv.ListenAndServe(ctx, cfg.HTTP.Port); err != nil {
			logger.Error().Err(err).Msg("http server")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}
	cancel()
}
