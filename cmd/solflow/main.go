package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/solflowhq/solflow/internal/api"
	"github.com/solflowhq/solflow/internal/blocklist"
	"github.com/solflowhq/solflow/internal/config"
	"github.com/solflowhq/solflow/internal/extractor"
	"github.com/solflowhq/solflow/internal/filterbuilder"
	"github.com/solflowhq/solflow/internal/geyser"
	"github.com/solflowhq/solflow/internal/ingest"
	"github.com/solflowhq/solflow/internal/model"
	"github.com/solflowhq/solflow/internal/pipeline"
	"github.com/solflowhq/solflow/internal/registry"
	"github.com/solflowhq/solflow/internal/scanner"
	"github.com/solflowhq/solflow/internal/writer"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	entry := logrus.NewEntry(log)

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	if !cfg.EnablePipeline {
		log.Info("ENABLE_PIPELINE is false; exiting without starting the ingestion pipeline")
		return
	}

	reg, filters := buildRegistryAndFilters(cfg.ProgramFilters, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to durable store")
	}
	defer pool.Close()

	durableWriter := writer.New(pool, entry, cfg.FlushBatchSize)
	if err := durableWriter.InitSchema(ctx); err != nil {
		log.WithError(err).Fatal("failed to initialize schema")
	}

	janitor := writer.NewDCAJanitor(pool, 15*time.Minute, entry)
	go janitor.Run(ctx, func() int64 { return time.Now().Unix() })

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	blockStore := blocklist.New(rdb, time.Minute, entry)
	if err := blockStore.Refresh(ctx); err != nil {
		log.WithError(err).Warn("initial blocklist refresh failed, starting with an empty blocklist")
	}
	go blockStore.Run(ctx)

	events := make(chan model.TradeEvent, cfg.ChannelBuffer)

	engine := pipeline.New(pipeline.DefaultSignalConfig(), cfg.ChannelBuffer, func() int { return len(events) }, entry)
	recon := pipeline.NewReconciler(engine, 0.01, entry)

	hub := api.NewSignalHub(entry)
	go hub.Run()

	router := api.NewRouter(engine, blockStore, hub, cfg.OpsAuthToken, entry)
	go func() {
		if err := router.Run(cfg.OpsListenAddr); err != nil {
			log.WithError(err).Error("ops HTTP server stopped")
		}
	}()

	sc := scanner.New(reg)
	client := geyser.NewClient(cfg.GeyserURL, cfg.XToken, 6, entry)
	go runIngestPipeline(ctx, client, filters, sc, blockStore, pool, events, entry)

	loopCfg := ingest.Config{
		FlushInterval:            cfg.FlushInterval,
		FullFlushInterval:        cfg.FullFlushInterval,
		MintPruneThreshold:       cfg.MintPruneThresholdSecs,
		ChannelHighWatermark:     cfg.ChannelHighWatermarkPct,
		ChannelCriticalWatermark: cfg.ChannelCriticalWatermarkPct,
	}
	loop := ingest.New(loopCfg, engine, durableWriter, events, recon, hub, entry, func() int64 { return time.Now().Unix() })
	prometheus.MustRegister(loop.Metrics()...)

	log.Info("solflow ingestion pipeline started")
	loop.Run(ctx)
	log.Info("solflow ingestion pipeline stopped")
}

// buildRegistryAndFilters resolves PROGRAM_FILTERS into the
// Tracked-Program Registry and the upstream subscription filter map, or
// exits — both are fatal configuration problems per the specification.
func buildRegistryAndFilters(programFilters []string, log *logrus.Logger) (*registry.Registry, map[string]filterbuilder.Filter) {
	names := registry.NamesFor(programFilters)

	filters, err := filterbuilder.Build(programFilters, names)
	if err != nil {
		log.WithError(err).Fatal("failed to build subscription filters")
	}

	entries := make([]registry.Entry, 0, len(programFilters))
	for i, id := range programFilters {
		pk, err := solana.PublicKeyFromBase58(id)
		if err != nil {
			log.WithError(err).WithField("identity", id).Fatal("invalid program identity in PROGRAM_FILTERS")
		}
		entries = append(entries, registry.Entry{Identity: pk, Name: names[i]})
	}

	reg, err := registry.New(entries)
	if err != nil {
		log.WithError(err).Fatal("failed to build tracked-program registry")
	}

	return reg, filters
}

// runIngestPipeline bridges the geyser subscriber's raw Transaction
// Records through the Scanner, the admission filter, and the Trade
// Extractor, handing resulting Trade Events to the bounded channel the
// Ingestion Loop consumes. This is the only task that sends on events;
// the loop is the only task that receives — the single-producer/
// single-consumer shape the bounded channel's backpressure semantics
// assume.
func runIngestPipeline(ctx context.Context, client *geyser.Client, filters map[string]filterbuilder.Filter, sc *scanner.Scanner, blocked *blocklist.Store, pool *pgxpool.Pool, out chan<- model.TradeEvent, log *logrus.Entry) {
	geyserFilters := make(map[string]geyser.Filter, len(filters))
	for k, f := range filters {
		geyserFilters[k] = geyser.Filter{
			Vote:            f.Vote,
			Failed:          f.Failed,
			AccountRequired: f.AccountRequired,
			AccountInclude:  f.AccountInclude,
			AccountExclude:  f.AccountExclude,
		}
	}

	records := make(chan *model.TransactionRecord, 1000)
	go func() {
		if err := client.Subscribe(ctx, geyserFilters, records); err != nil {
			log.WithError(err).Warn("geyser subscription ended")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case rec, ok := <-records:
			if !ok {
				return
			}
			handleRecord(ctx, rec, sc, blocked, pool, out, log)
		}
	}
}

func handleRecord(ctx context.Context, rec *model.TransactionRecord, sc *scanner.Scanner, blocked *blocklist.Store, pool *pgxpool.Pool, out chan<- model.TradeEvent, log *logrus.Entry) {
	match, ok := sc.Scan(rec)
	if !ok {
		return
	}

	ev, ok := extractor.Extract(rec.Meta, rec.Signature, time.Now().Unix(), match.ProgramName)
	if !ok {
		return
	}

	if blocked.IsBlocked(ev.Mint) {
		return
	}

	if err := writer.RecordDCABuy(ctx, pool, ev); err != nil {
		log.WithError(err).WithField("mint", ev.Mint).Warn("failed to record dca bucket")
	}

	out <- ev
}
