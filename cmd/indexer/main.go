package main

import (
	"context"
	"database/sql"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"roomledger/internal/adapters/ledger"
	"roomledger/internal/adapters/observability"
	redisad "roomledger/internal/adapters/redis"
	"roomledger/internal/adapters/simledger"
	"roomledger/internal/app"
	"roomledger/internal/domain"
	"roomledger/internal/shared"
	mysqlrepo "roomledger/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger("roomledger-indexer", cfg.AppEnv)

	log.Info().
		Str("node", cfg.NodeURL).
		Int("workers", cfg.Workers).
		Int("addresses", len(cfg.WatchAddresses)).
		Msg("indexer starting")

	if len(cfg.WatchAddresses) == 0 {
		log.Fatal().Msg("WATCH_ADDRESSES is empty; nothing to index")
	}

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)

	var chain domain.LedgerClient
	if cfg.Simulation {
		log.Warn().Msg("SIMULATION_MODE on: indexing synthetic chain state")
		chain = simledger.New(cfg.Module)
	} else {
		chain, err = ledger.New(cfg.NodeURL, cfg.PackageID, cfg.Module, cfg.NodeRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize ledger client")
		}
	}

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	syncer := app.NewSyncService(chain, repo, cache)
	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup

	for _, addr := range cfg.WatchAddresses {
		addr := addr

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, int64(1)); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(address string) {
			defer wg.Done()
			defer sem.Release(int64(1))

			n, err := syncer.SyncAddress(ctx, address)
			if err != nil {
				log.Warn().Str("address", address).Err(err).Msg("sync failed")
				return
			}
			log.Info().Str("address", address).Int("rooms", n).Msg("sync ok")
		}(addr)
	}

	wg.Wait()
	log.Info().Msg("indexing completed")
}
