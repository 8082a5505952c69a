package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"newsbot/internal/api"
	"newsbot/internal/config"
	"newsbot/internal/logger"
	"newsbot/internal/redis"
	"newsbot/internal/service/ai"
	"newsbot/internal/service/assistant"
	"newsbot/internal/service/news"
	"newsbot/internal/speech"
	"newsbot/internal/storage"
	"newsbot/internal/telegram"
	"newsbot/internal/worker"
)

const shutdownGrace = 5 * time.Second

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	if err := logger.Init(true); err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(os.Getenv(config.ConfigPathEnv))
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if !cfg.BasicConfig.Debug {
		if err := logger.Init(false); err != nil {
			logger.Fatal("init logger", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aiService, err := ai.NewAiService(ctx, cfg.Provider)
	if err != nil {
		logger.Fatal("init ai service", zap.Error(err))
	}

	searcher, err := news.NewWebSearcher(ctx, cfg.Search)
	if err != nil {
		logger.Fatal("init web search", zap.Error(err))
	}
	extractor := news.NewHTMLExtractor(cfg.Search.Timeout(), cfg.Search.UserAgent)
	opts := []news.Option{news.WithFetchDelay(cfg.Search.FetchDelay())}
	if cfg.Redis.Enabled {
		rdb, err := redis.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Fatal("create redis client", zap.Error(err))
		}
		defer rdb.Close()
		opts = append(opts, news.WithCache(news.NewRedisCache(rdb, cfg.Redis.ArticleTTL())))
		logger.Info("article cache enabled", zap.Int("db", cfg.Redis.DB))
	}
	retriever := news.NewRetriever(searcher, extractor, opts...)

	var db *sql.DB
	if cfg.Database.HistoryEnabled() {
		db, err = storage.Open(cfg.Database)
		if err != nil {
			logger.Fatal("open database", zap.Error(err))
		}
		defer db.Close()
		if err := storage.Migrate(db, cfg.Database.Driver); err != nil {
			logger.Fatal("migrate database", zap.Error(err))
		}
		logger.Info("history enabled", zap.String("driver", cfg.Database.Driver))
	}

	assistantService := assistant.NewService(aiService, retriever, db)
	assistantService.StartHistoryCleaner(ctx,
		time.Duration(cfg.BasicConfig.HistoryCleanIntervalMinutes)*time.Minute,
		time.Duration(cfg.BasicConfig.HistoryRetentionHours)*time.Hour,
	)

	var speechOpts []speech.Option
	if cfg.Speech.RecordingsDir != "" {
		speechOpts = append(speechOpts, speech.WithRecordingsDir(cfg.Speech.RecordingsDir))
	}
	speechService := speech.NewService(
		speech.NewMicrophoneSource(cfg.Speech.SampleRate),
		speech.NewGoogleRecognizer(cfg.Speech.Language, cfg.Speech.APIKey),
		speechOpts...,
	)

	askPool := worker.NewPool(cfg.BasicConfig.AskWorkers, cfg.BasicConfig.QueueSize)
	defer askPool.Stop()
	// one microphone, one capture at a time
	voicePool := worker.NewPool(1, 1)
	defer voicePool.Stop()

	if cfg.Telegram.Enabled() {
		bot, err := telegram.NewBot(cfg.Telegram, assistantService, askPool)
		if err != nil {
			logger.Fatal("init telegram bot", zap.Error(err))
		}
		go bot.Run(ctx)
	}

	if !cfg.BasicConfig.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	api.NewHandler(assistantService, speechService, askPool, voicePool).RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.BasicConfig.ServerAddress,
		Handler: router,
	}
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}
