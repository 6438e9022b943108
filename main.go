package main

import (
	"net/rpc"

	"github.com/wfunc/partybox/clock"
	"github.com/wfunc/partybox/config"
	"github.com/wfunc/partybox/game"
	"github.com/wfunc/partybox/logger"
	"github.com/wfunc/partybox/monitor"
	"github.com/wfunc/partybox/persistence"
	"github.com/wfunc/partybox/rng"
	partybox_rpc "github.com/wfunc/partybox/rpc"
	"github.com/wfunc/partybox/room"
	"github.com/wfunc/partybox/server"
	"github.com/wfunc/partybox/services"
	"github.com/wfunc/partybox/session"
)

func main() {
	// Initialize logger
	logger.Init()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize the store
	store, err := openStore(cfg)
	if err != nil {
		logger.Log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()
	logger.Log.Infof("Store ready, driver=%s", cfg.Database.Driver)

	env := &game.Env{
		RNG:   rng.NewCrypto(),
		Clock: clock.System{},
		Log:   logger.Log,
	}
	rooms := room.NewManager(store, env, cfg.Game.CodeLength)
	sessions := session.NewManager()

	// Metrics endpoint
	mon := monitor.NewMonitor("partybox")
	mon.StartServer(cfg.Server.MetricsAddress)

	// Admin RPC
	rpcServer, err := partybox_rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	if err := rpc.Register(partybox_rpc.NewAdminService(services.NewRoomService(store))); err != nil {
		logger.Log.Fatalf("Failed to register RPC service: %v", err)
	}
	go rpcServer.Start()
	defer rpcServer.Stop()

	// Start Server
	httpServer := server.NewServer(cfg.Server.HTTPAddress, rooms, sessions, mon)
	if err := httpServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}

func openStore(cfg *config.Config) (persistence.Store, error) {
	switch cfg.Database.Driver {
	case "postgres":
		return persistence.NewPostgreSQL(
			cfg.Database.Postgres.Host,
			cfg.Database.Postgres.Port,
			cfg.Database.Postgres.User,
			cfg.Database.Postgres.Password,
			cfg.Database.Postgres.DBName,
		)
	case "gorm":
		return persistence.NewGormPostgreSQL(
			cfg.Database.Postgres.Host,
			cfg.Database.Postgres.Port,
			cfg.Database.Postgres.User,
			cfg.Database.Postgres.Password,
			cfg.Database.Postgres.DBName,
		)
	default:
		return persistence.NewMemory(), nil
	}
}
