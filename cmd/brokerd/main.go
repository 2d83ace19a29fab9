// Command brokerd runs the subscription index as a standalone process:
// it loads configuration, connects to Redis and NATS, wires the
// ephemeral/persistent/system-topic lanes behind a subscription.Service,
// joins the cluster gossip, and serves the read-only admin API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/time/rate"

	"github.com/relaymq/subindex/adminapi"
	"github.com/relaymq/subindex/cluster"
	"github.com/relaymq/subindex/config"
	"github.com/relaymq/subindex/health"
	"github.com/relaymq/subindex/metrics"
	"github.com/relaymq/subindex/store"
	"github.com/relaymq/subindex/subscription"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		logger.Info().Msgf(format, args...)
	})); err != nil {
		logger.Warn().Err(err).Msg("brokerd: failed to set GOMAXPROCS")
	}

	cfg, err := config.Load(&logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("brokerd: failed to load configuration")
	}
	if cfg.LogFormat == "console" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("brokerd: invalid log level")
	}
	logger = logger.Level(lvl)
	log.Logger = logger
	cfg.LogConfig(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mtx := metrics.New()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	remote := store.NewRedis(redisClient)

	ephemeral := subscription.NewEphemeralIndex()
	persistent := subscription.NewPersistentIndex(subscription.PersistentConfig{
		TopicSetKey:        cfg.TopicSetKey,
		TopicPrefix:        cfg.TopicPrefix,
		ClientTopicsPrefix: cfg.ClientTopicsPrefix,
		EnableInnerCache:   cfg.EnableInnerCache,
	}, remote)

	if err := persistent.WarmCache(ctx); err != nil {
		logger.Fatal().Err(err).Msg("brokerd: failed to warm persistent-lane cache")
	}

	sys := subscription.NewSysTopicIndex(cfg.SysTopicPrefix)
	svc := subscription.NewService(ephemeral, persistent, sys, logger)
	svc.AttachMetrics(mtx)

	if cfg.EnableCluster {
		bus, err := cluster.NewNATSBus(cfg.NATSURL, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("brokerd: failed to connect to cluster bus")
		}
		defer bus.Close()

		agent, err := cluster.NewAgent(ctx, cfg.BrokerID, cfg.ClusterChannel, bus, svc, logger,
			cluster.WithRateLimit(rate.Limit(cfg.GossipRateHz), cfg.GossipBurst),
			cluster.WithDropCounter(mtx))
		if err != nil {
			logger.Fatal().Err(err).Msg("brokerd: failed to start cluster agent")
		}
		svc.AttachAgent(agent)
	}

	reporter := health.NewReporter(cfg.MetricsInterval, mtx, logger)
	go reporter.Run(ctx)

	admin := adminapi.NewServer(svc, logger)
	go func() {
		if err := admin.Listen(cfg.AdminAddr); err != nil {
			logger.Error().Err(err).Msg("brokerd: admin API stopped")
		}
	}()

	logger.Info().Int("broker_id", cfg.BrokerID).Msg("brokerd: ready")
	<-ctx.Done()

	logger.Info().Msg("brokerd: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := admin.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("brokerd: admin API shutdown error")
	}
}
