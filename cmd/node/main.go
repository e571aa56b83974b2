package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/uhyunpark/bilateral/params"
	"github.com/uhyunpark/bilateral/pkg/api"
	"github.com/uhyunpark/bilateral/pkg/app/core/oracle"
	"github.com/uhyunpark/bilateral/pkg/app/exchange"
	"github.com/uhyunpark/bilateral/pkg/crypto"
	"github.com/uhyunpark/bilateral/pkg/events"
	"github.com/uhyunpark/bilateral/pkg/storage"
	"github.com/uhyunpark/bilateral/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg, err := params.LoadFromEnv("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var logger *zap.Logger
	if cfg.Log.File != "" {
		logger, err = util.NewLoggerWithFile(cfg.Log.File, cfg.Log.Level)
	} else {
		logger, err = util.NewLogger(cfg.Log.Level)
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	if err := cfg.Validate(); err != nil {
		sugar.Fatalw("invalid_config", "err", err)
	}

	// ---- Storage ----
	var store *storage.PebbleStore
	if cfg.Storage.DBPath != "" {
		store, err = storage.NewPebbleStore(cfg.Storage.DBPath)
	} else {
		store, err = storage.NewMemPebbleStore()
	}
	if err != nil {
		sugar.Fatalw("storage_open_failed", "db_path", cfg.Storage.DBPath, "err", err)
	}
	defer store.Close()
	sugar.Infow("storage_opened", "db_path", cfg.Storage.DBPath, "in_memory", cfg.Storage.DBPath == "")

	// ---- Oracles ----
	registry, attributes := oracle.NewMemoryRegistry(), oracle.NewMemoryAttributes()
	if cfg.Oracle.Fixture != "" {
		if registry, attributes, err = oracle.LoadFixture(cfg.Oracle.Fixture); err != nil {
			sugar.Fatalw("oracle_fixture_failed", "path", cfg.Oracle.Fixture, "err", err)
		}
		sugar.Infow("oracle_fixture_loaded", "path", cfg.Oracle.Fixture, "registry_entries", len(registry.Denoms()))
	}

	// ---- Events ----
	hub := api.NewHub(sugar)
	publishers := events.Multi{hub}
	if len(cfg.Events.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic)
		defer kp.Close()
		publishers = append(publishers, kp)
		sugar.Infow("kafka_publisher_enabled", "brokers", cfg.Events.KafkaBrokers, "topic", cfg.Events.KafkaTopic)
	}
	if cfg.Events.JournalPath != "" {
		journal, err := events.NewJournal(cfg.Events.JournalPath)
		if err != nil {
			sugar.Fatalw("journal_open_failed", "path", cfg.Events.JournalPath, "err", err)
		}
		defer journal.Close()
		publishers = append(publishers, journal)
		sugar.Infow("journal_enabled", "path", cfg.Events.JournalPath)
	}

	// ---- Exchange ----
	ex := exchange.New(exchange.Config{
		Admin:    crypto.NormalizeAddress(cfg.Exchange.Admin),
		Contract: cfg.Exchange.ContractAddress,
	}, exchange.Deps{
		Store:      store,
		Attributes: attributes,
		Registry:   registry,
		Publisher:  publishers,
		Clock:      util.RealClock{},
		Logger:     sugar,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(ex, crypto.NewAuthenticator(store, sugar), hub, cfg.API.AllowedOrigins, sugar)
	if err := server.Start(ctx, cfg.API.Addr); err != nil {
		sugar.Errorw("api_server_failed", "err", err)
		return
	}
	sugar.Infow("shutdown_complete")
}
