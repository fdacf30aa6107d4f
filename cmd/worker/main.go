package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/avelsher/previewgen/internal/analysis"
	"github.com/avelsher/previewgen/internal/config"
	"github.com/avelsher/previewgen/internal/database"
	"github.com/avelsher/previewgen/internal/gateway"
	"github.com/avelsher/previewgen/internal/logging"
	"github.com/avelsher/previewgen/internal/queue"
	"github.com/avelsher/previewgen/internal/repository"
	"github.com/avelsher/previewgen/internal/transcode"
	"github.com/avelsher/previewgen/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logging.New(cfg.LogLevel)

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("ensure schema")
	}
	repo := repository.NewAssetRepository(pool)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	stageClient := queue.NewClient(redisOpt)
	defer stageClient.Close()

	producer, err := analysis.NewProducer(analysis.ProducerConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.AnalysisTopic,
		Logger:  log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("init analysis producer")
	}
	defer producer.Close()
	dispatcher := analysis.NewDispatcher(producer, log)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	notifier := gateway.NewRedisNotifier(rdb)

	hub := gateway.NewHub(log)
	go func() {
		if err := gateway.RunBridge(ctx, rdb, hub, log); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("gateway bridge stopped")
		}
	}()

	httpSrv := &http.Server{Addr: cfg.GatewayAddr, Handler: gateway.Router(hub)}
	go func() {
		log.Info().Str("addr", cfg.GatewayAddr).Msg("gateway listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("gateway server stopped")
		}
	}()

	processor := worker.NewProcessor(
		repo,
		stageClient,
		dispatcher,
		notifier,
		&transcode.JPEG{UploadDir: cfg.UploadDir, FFmpegPath: cfg.FFmpegPath},
		&transcode.WebP{},
		cfg.TranscodeTimeout,
		cfg.LogLevel,
		log,
	)
	mux := processor.Handler()

	jpegSrv := worker.NewStageServer(redisOpt, queue.QueueJPEG, cfg.JPEGWorkers)
	webpSrv := worker.NewStageServer(redisOpt, queue.QueueWEBP, cfg.WEBPWorkers)

	if err := jpegSrv.Start(mux); err != nil {
		log.Fatal().Err(err).Msg("start jpeg stage server")
	}
	if err := webpSrv.Start(mux); err != nil {
		log.Fatal().Err(err).Msg("start webp stage server")
	}
	log.Info().
		Int("jpeg_workers", cfg.JPEGWorkers).
		Int("webp_workers", cfg.WEBPWorkers).
		Msg("stage workers started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	jpegSrv.Shutdown()
	webpSrv.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
}
