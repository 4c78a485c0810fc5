package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/vaultdesk/internal/access"
	"github.com/dharsanguruparan/vaultdesk/internal/api"
	"github.com/dharsanguruparan/vaultdesk/internal/config"
	"github.com/dharsanguruparan/vaultdesk/internal/credentials"
	"github.com/dharsanguruparan/vaultdesk/internal/export"
	"github.com/dharsanguruparan/vaultdesk/internal/journal"
	"github.com/dharsanguruparan/vaultdesk/internal/logger"
	"github.com/dharsanguruparan/vaultdesk/internal/queue"
	"github.com/dharsanguruparan/vaultdesk/internal/save"
	"github.com/dharsanguruparan/vaultdesk/internal/signing"
	"github.com/dharsanguruparan/vaultdesk/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	zl, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	if cfg.Redis.Addr == "" {
		zl.Fatal("VAULTDESK_REDIS_ADDR is required")
	}
	if !cfg.SharedSecret {
		zl.Fatal("VAULTDESK_SIGNING_SECRET is required to verify queued exports")
	}

	// Downloads run as whoever last ran 'vaultdesk login' on this host.
	store := credentials.NewFileStore(cfg.CredentialsFile)
	client, err := api.New(api.Options{
		BaseURL:          cfg.APIURL,
		Tokens:           store,
		OnSessionExpired: func() { zl.Warn("session expired, run 'vaultdesk login' again") },
		Logger:           zl.Named("api"),
		UserAgent:        "vaultdesk-worker",
		RequestTimeout:   cfg.RequestTimeout,
		DownloadTimeout:  cfg.DownloadTimeout,
	})
	if err != nil {
		zl.Fatal("init api client", zap.Error(err))
	}
	// The worker never holds a PIN, so nothing is cached.
	ctrl := access.NewController(client, access.WithPinPolicy(access.PinCacheNone), access.WithLogger(zl.Named("access")))
	defer ctrl.CancelAll()

	sink, err := pickSink(ctx, cfg)
	if err != nil {
		zl.Fatal("init sink", zap.Error(err))
	}

	j, closeJournal, err := journal.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		zl.Fatal("open journal", zap.Error(err))
	}
	defer closeJournal()

	exporter := export.NewExporter(ctrl, sink, j, zl.Named("export"))
	processor := worker.NewProcessor(exporter, signing.NewSigner(cfg.SigningSecret), zl.Named("worker"))

	server := asynq.NewServer(queue.RedisOpt(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB), asynq.Config{
		Concurrency: cfg.ExportWorkers,
		Queues:      map[string]int{queue.QueueName: 1},
	})

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	zl.Info("worker started", zap.String("queue", queue.QueueName), zap.Int("concurrency", cfg.ExportWorkers))
	if err := server.Run(processor.Handler()); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
		zl.Error("worker stopped", zap.Error(err))
		os.Exit(1)
	}
}

func pickSink(ctx context.Context, cfg *config.Config) (save.Sink, error) {
	if !cfg.S3.Enabled() {
		return save.NewLocalSink(cfg.DownloadDir), nil
	}
	bucket, err := save.NewBucketSink(cfg.S3)
	if err != nil {
		return nil, err
	}
	if err := bucket.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return bucket, nil
}
