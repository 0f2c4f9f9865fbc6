package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"tg_monitor_bot/internal/access"
	"tg_monitor_bot/internal/config"
	"tg_monitor_bot/internal/dispatch"
	"tg_monitor_bot/internal/errpolicy"
	"tg_monitor_bot/internal/feature/owner"
	"tg_monitor_bot/internal/feature/user"
	"tg_monitor_bot/internal/health"
	"tg_monitor_bot/internal/logging"
	"tg_monitor_bot/internal/probe"
	"tg_monitor_bot/internal/store"
	"tg_monitor_bot/internal/telegram"
)

const (
	mongoConnectTimeout     = 10 * time.Second
	mongoIndexTimeout       = 5 * time.Second
	mongoDisconnectTimeout  = 5 * time.Second
	ownerBootstrapTimeout   = 5 * time.Second
	telegramShutdownTimeout = 10 * time.Second
	healthShutdownTimeout   = 5 * time.Second
)

func main() {
	configOnly := flag.Bool("config-only", false, "load and print configuration then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Error("configuration error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Setup(cfg)
	if err != nil {
		logging.Error("logger setup error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "logger setup error: %v\n", err)
		os.Exit(1)
	}

	if *configOnly {
		logging.Info("configuration check", logging.Fields{"event": "config_only"})
		fmt.Println("configuration check: ok")
		fmt.Println(config.FormatRedacted(cfg))
		return
	}

	roster, err := access.Build(cfg.BotOwnerID, cfg.AuthorizedChatIDs, cfg.RosterFile)
	if err != nil {
		fatal(logger, "roster setup error", err)
	}

	logger.WithFields(logging.Fields{
		"event":       "startup",
		"roster_size": roster.Len(),
		"mongo":       cfg.MongoEnabled(),
		"probe_url":   cfg.ProbeURL,
	}).Info("configuration loaded")

	var (
		mongoManager *store.Manager
		dispatchOpts []dispatch.Option
		healthOpts   = []health.Option{health.WithRosterSize(roster.Len())}
	)

	if cfg.MongoEnabled() {
		mongoManager = connectMongo(cfg, logger)

		userRegistrar := user.NewRegistrar(mongoManager.Users(), logger)
		dispatchOpts = append(dispatchOpts, dispatch.WithSightingRecorder(userRegistrar))
		healthOpts = append(healthOpts,
			health.WithMongoChecker(mongoManager),
			health.WithSenderCounter(store.NewStatsProvider(mongoManager.Users())),
		)
	} else {
		logger.WithField("event", "mongo_disabled").Info("mongo uri not set, sender tracking disabled")
	}

	policy := errpolicy.New(cfg.ErrorCooldown, logger)

	tgClient, err := telegram.NewClient(cfg, logger, telegram.WithErrorPolicy(policy))
	if err != nil {
		fatal(logger, "telegram client setup error", err)
	}

	prober := probe.New(cfg.ProbeURL, cfg.ProbeArtifact, logger)
	registry, err := dispatch.NewCommands(tgClient.API(), prober, cfg.PhotoPath, logger).Registry()
	if err != nil {
		fatal(logger, "command registry error", err)
	}

	dispatcher, err := dispatch.New(tgClient.API(), roster, registry, logger, dispatchOpts...)
	if err != nil {
		fatal(logger, "dispatcher setup error", err)
	}
	tgClient.Handle(dispatcher)

	logger.WithFields(logging.Fields{
		"event":    "telegram_ready",
		"commands": registry.Tokens(),
	}).Info("telegram client initialized")

	healthServer := health.NewServer(cfg.HTTPPort, logger, healthOpts...)
	go func() {
		if err := healthServer.ListenAndServe(); err != nil {
			logger.WithError(err).Error("health server error")
		}
	}()

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telegramCtx, cancelTelegram := context.WithCancel(context.Background())
	tgDone := make(chan struct{})

	go func() {
		tgClient.Start(telegramCtx)
		close(tgDone)
	}()

	select {
	case <-signalCtx.Done():
		logger.WithField("event", "shutdown_signal").Info("received termination signal, stopping telegram polling")
	case <-tgDone:
		logger.WithField("event", "telegram_stopped_early").Warn("telegram client stopped before shutdown signal")
	}

	cancelTelegram()

	waitCtx, cancelWait := context.WithTimeout(context.Background(), telegramShutdownTimeout)
	select {
	case <-tgDone:
	case <-waitCtx.Done():
		logger.WithField("event", "telegram_shutdown_timeout").Warn("timed out waiting for telegram client to stop")
	}
	cancelWait()

	healthCtx, cancelHealth := context.WithTimeout(context.Background(), healthShutdownTimeout)
	if err := healthServer.Shutdown(healthCtx); err != nil {
		logger.WithError(err).Error("health server shutdown error")
	}
	cancelHealth()

	if mongoManager != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), mongoDisconnectTimeout)
		if err := mongoManager.Close(shutdownCtx); err != nil {
			logger.WithError(err).Error("mongo disconnect error")
		} else {
			logger.WithField("event", "mongo_disconnect").Info("mongo client disconnected")
		}
		cancelShutdown()
	}

	logger.WithField("event", "shutdown_complete").Info("shutdown complete")
}

// connectMongo connects, ensures indexes and bootstraps the owner record.
// Any failure exits the process.
func connectMongo(cfg config.Config, logger *logrus.Entry) *store.Manager {
	connectCtx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	mongoManager, err := store.NewManager(connectCtx, cfg)
	cancel()
	if err != nil {
		fatal(logger, "mongo connection error", err)
	}

	logger.WithFields(logging.Fields{
		"event":    "mongo_connect",
		"mongo_db": cfg.MongoDB,
	}).Info("connected to mongo")

	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), mongoIndexTimeout)
	err = mongoManager.EnsureBaseIndexes(indexCtx)
	cancelIndexes()
	if err != nil {
		fatal(logger, "mongo index setup error", err)
	}

	logger.WithField("event", "mongo_indexes").Info("ensured base mongo indexes")

	ownerCtx, cancelOwner := context.WithTimeout(context.Background(), ownerBootstrapTimeout)
	_, err = owner.NewRegistrar(mongoManager.Users(), logger).EnsureOwner(ownerCtx, cfg.BotOwnerID)
	cancelOwner()
	if err != nil {
		fatal(logger, "owner bootstrap error", err)
	}

	return mongoManager
}

func fatal(logger *logrus.Entry, msg string, err error) {
	logger.WithError(err).Error(msg)
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}
