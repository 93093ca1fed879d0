package main

import (
	"context"
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "roomledger/internal/adapters/http_server"
	"roomledger/internal/adapters/ledger"
	"roomledger/internal/adapters/observability"
	redisad "roomledger/internal/adapters/redis"
	"roomledger/internal/adapters/simledger"
	"roomledger/internal/adapters/suggest"
	"roomledger/internal/app"
	"roomledger/internal/domain"
	"roomledger/internal/shared"
	mysqlrepo "roomledger/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger("roomledger-api", cfg.AppEnv)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// ledger: real fullnode, or the in-memory simulation
	var chain domain.LedgerClient
	if cfg.Simulation {
		log.Warn().Msg("SIMULATION_MODE on: serving synthetic chain state")
		chain = simledger.New(cfg.Module)
	} else {
		chain, err = ledger.New(cfg.NodeURL, cfg.PackageID, cfg.Module, cfg.NodeRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize ledger client")
		}
	}

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	q := app.NewQueryService(repo, cache, cfg.CacheTTL)
	tx := app.NewTransactionService(chain, repo, cache)
	sessions := app.NewSessionService(cache, cfg.SessionTTL)

	var suggester domain.Suggester
	if cfg.GeminiKey != "" {
		suggester, err = suggest.New(ctx, cfg.GeminiKey, cfg.GeminiModel)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize suggestion client")
		}
	}
	sugSvc := app.NewSuggestionService(suggester)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q, Tx: tx, Sessions: sessions, Suggest: sugSvc})

	log.Info().Str("addr", cfg.HTTPAddr).Bool("simulation", cfg.Simulation).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
