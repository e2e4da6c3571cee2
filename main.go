package main

import (
	"time"

	"github.com/joho/godotenv"

	"github.com/Feral-Mailbox/PokeWars/catalog"
	"github.com/Feral-Mailbox/PokeWars/config"
	"github.com/Feral-Mailbox/PokeWars/fanout"
	"github.com/Feral-Mailbox/PokeWars/identity"
	"github.com/Feral-Mailbox/PokeWars/ledger"
	"github.com/Feral-Mailbox/PokeWars/lifecycle"
	"github.com/Feral-Mailbox/PokeWars/logger"
	"github.com/Feral-Mailbox/PokeWars/monitor"
	"github.com/Feral-Mailbox/PokeWars/persistence"
	"github.com/Feral-Mailbox/PokeWars/server"
	"github.com/Feral-Mailbox/PokeWars/services"
)

func main() {
	// Initialize logger
	logger.Init()
	defer logger.Sync()

	// .env is optional; config.yaml and real env vars win
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Database
	store, err := persistence.NewGormStore(
		cfg.Database.Postgres.Host,
		cfg.Database.Postgres.Port,
		cfg.Database.Postgres.User,
		cfg.Database.Postgres.Password,
		cfg.Database.Postgres.DBName,
	)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Log.Info("Database connection successful.")

	cat, err := catalog.NewPostgreSQL(
		cfg.Database.Postgres.Host,
		cfg.Database.Postgres.Port,
		cfg.Database.Postgres.User,
		cfg.Database.Postgres.Password,
		cfg.Database.Postgres.DBName,
	)
	if err != nil {
		logger.Log.Fatalf("Failed to open catalog connection: %v", err)
	}

	// Monitoring and event fan-out
	mon := monitor.NewMonitor("pokewars")
	mon.StartServer(cfg.Server.MetricsAddress)
	hub := fanout.NewHub(cfg.Game.FanoutBuffer, mon)

	// Domain services
	ident := identity.NewProvider(store)
	engine := lifecycle.NewEngine(store, cat, hub, lifecycle.Defaults{
		StartingCash:    cfg.Game.DefaultStartingCash,
		CashPerTurn:     cfg.Game.DefaultCashPerTurn,
		MaxTurns:        cfg.Game.DefaultMaxTurns,
		UnitLimit:       cfg.Game.DefaultUnitLimit,
		MinTurnDuration: cfg.Game.MinTurnDuration,
		MaxTurnDuration: cfg.Game.MaxTurnDuration,
	})
	ldg := ledger.NewLedger(store, cat, hub)
	sessions := services.NewSessionService(store, cat)

	// Initialize Game Server
	gameServer := server.NewGameServer(cfg.Server.HTTPAddress, cfg.Server.RPCAddress, server.Deps{
		Store:    store,
		Catalog:  cat,
		Identity: ident,
		Engine:   engine,
		Ledger:   ldg,
		Sessions: sessions,
		Hub:      hub,
		Monitor:  mon,
	}, time.Duration(cfg.Game.StaleLobbyTTLHours)*time.Hour)

	// Start Server
	logger.Log.Infof("Starting game server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
