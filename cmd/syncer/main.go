package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"reserveScope/internal/config"
	"reserveScope/internal/pricefeed"
	"reserveScope/internal/queue"
	mongostore "reserveScope/internal/storage/mongo"
	"reserveScope/internal/syncer"
)

func main() {
	root := &cobra.Command{
		Use:          "syncer",
		Short:        "DEX pair state syncer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Consume block state changes and maintain the derived view",
		RunE:  runSyncer,
	}
	addCommonFlags(runCmd)
	runCmd.Flags().String("nats-url", "nats://localhost:4222", "NATS server URL")
	runCmd.Flags().String("stream", "BLOCK_STATE", "JetStream stream name")
	runCmd.Flags().String("subject", "blocks.state.1", "block state subject")
	runCmd.Flags().String("durable", "dex-state-syncer", "durable consumer name")
	runCmd.Flags().String("task-subject", "dex.tasks.lptoken", "deferred LP token task subject")
	runCmd.Flags().String("price-subject", "dex.prices.updates", "price update broadcast subject")
	runCmd.Flags().Duration("recompute-interval", 0, "periodic full recompute interval, 0 disables")
	root.AddCommand(runCmd)

	recomputeCmd := &cobra.Command{
		Use:   "recompute",
		Short: "Run one full recomputation pass and exit",
		RunE:  runRecompute,
	}
	addCommonFlags(recomputeCmd)
	root.AddCommand(recomputeCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().String("mongo-uri", "", "MongoDB connection URI")
	cmd.Flags().String("mongo-db", "dex", "MongoDB database name")
	cmd.Flags().Uint32("shard", 1, "shard carrying the pair contracts")
	cmd.Flags().String("price-feed-url", "", "spot rate feed URL")
	cmd.Flags().Int("feed-max-retries", 3, "spot rate fetch retry attempts")
	cmd.Flags().Duration("feed-retry-backoff", 500*time.Millisecond, "initial spot rate retry backoff")
	cmd.Flags().String("anchor-token", "", "USD-stable anchor token identifier")
	cmd.Flags().String("wrapped-token", "", "wrapped native coin identifier")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func runSyncer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := mongostore.NewStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	nc, js, err := queue.ConnectNATS(cfg.NatsURL, logger)
	if err != nil {
		return err
	}
	defer nc.Close()

	rates := pricefeed.NewClient(cfg.PriceFeedURL, cfg.FeedMaxRetries, cfg.FeedRetryBackoff, logger)
	publisher := queue.NewPublisher(nc, js, cfg.TaskSubject, cfg.PriceSubject)

	orchestrator := syncer.New(syncer.Config{
		ShardID:           cfg.ShardID,
		AnchorTokenID:     cfg.AnchorTokenID,
		WrappedTokenID:    cfg.WrappedTokenID,
		RecomputeInterval: cfg.RecomputeInterval,
	}, store, rates, publisher, logger)

	if err := orchestrator.LoadSnapshot(ctx); err != nil {
		return err
	}

	messages := make(chan queue.BlockMessage)
	consumer := queue.NewConsumer(js, cfg.Stream, cfg.Subject, cfg.Durable, logger)
	if err := consumer.Start(ctx, messages); err != nil {
		return err
	}
	defer consumer.Stop()

	logger.Info("syncer start",
		zap.String("nats", cfg.NatsURL),
		zap.String("stream", cfg.Stream),
		zap.String("subject", cfg.Subject),
		zap.Uint32("shard", cfg.ShardID),
		zap.Duration("recompute_interval", cfg.RecomputeInterval),
	)

	err = orchestrator.Run(ctx, messages)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runRecompute(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := mongostore.NewStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	nc, js, err := queue.ConnectNATS(cfg.NatsURL, logger)
	if err != nil {
		return err
	}
	defer nc.Close()

	rates := pricefeed.NewClient(cfg.PriceFeedURL, cfg.FeedMaxRetries, cfg.FeedRetryBackoff, logger)
	publisher := queue.NewPublisher(nc, js, cfg.TaskSubject, cfg.PriceSubject)

	orchestrator := syncer.New(syncer.Config{
		ShardID:        cfg.ShardID,
		AnchorTokenID:  cfg.AnchorTokenID,
		WrappedTokenID: cfg.WrappedTokenID,
	}, store, rates, publisher, logger)

	if err := orchestrator.LoadSnapshot(ctx); err != nil {
		return err
	}
	return orchestrator.RecomputeOnce(ctx)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
