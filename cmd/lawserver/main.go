// Package main provides the law server binary: the law enforcement
// subsystem on its own tick loop, with an admin gRPC service and an
// optional websocket HUD feed.
//
// The server has no game client of its own. Players and world events enter
// through the host commands of the admin service (law join, move, leave and
// report), as an embedding host would drive the same entry points.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/cory-johannsen/enforcer/internal/config"
	"github.com/cory-johannsen/enforcer/internal/frontend/hud"
	"github.com/cory-johannsen/enforcer/internal/game/command"
	"github.com/cory-johannsen/enforcer/internal/game/dice"
	"github.com/cory-johannsen/enforcer/internal/game/npc"
	"github.com/cory-johannsen/enforcer/internal/game/session"
	"github.com/cory-johannsen/enforcer/internal/game/world"
	"github.com/cory-johannsen/enforcer/internal/gameserver"
	"github.com/cory-johannsen/enforcer/internal/law"
	"github.com/cory-johannsen/enforcer/internal/observability"
	"github.com/cory-johannsen/enforcer/internal/scripting"
	"github.com/cory-johannsen/enforcer/internal/server"
	"github.com/cory-johannsen/enforcer/internal/storage/lawfile"
	"github.com/cory-johannsen/enforcer/internal/storage/postgres"
	"github.com/cory-johannsen/enforcer/internal/storage/sqlite"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, cfg.Server.Name)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	cryptoSrc := dice.NewCryptoSource()
	diceRoller := dice.NewLoggedRoller(cryptoSrc, logger)

	logger.Info("starting law server",
		zap.String("admin_addr", cfg.Admin.Addr()),
		zap.String("storage", cfg.Storage.Backend),
		zap.Duration("tick_interval", cfg.Server.TickInterval),
	)

	// Load the host world.
	levels, err := world.LoadLevelsFromDir(cfg.Law.LevelsDir)
	if err != nil {
		logger.Fatal("loading levels", zap.Error(err))
	}
	worldMgr, err := world.NewManager(levels)
	if err != nil {
		logger.Fatal("creating world manager", zap.Error(err))
	}
	templates, err := npc.LoadTemplates(cfg.Law.NPCDir)
	if err != nil {
		logger.Fatal("loading npc templates", zap.Error(err))
	}
	npcMgr := npc.NewManager(templates...)
	sessMgr := session.NewManager()
	logger.Info("host world loaded",
		zap.Int("levels", len(levels)),
		zap.Int("npc_templates", len(templates)),
	)

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("opening law store", zap.Error(err))
	}
	defer closeStore()

	clock := gameserver.NewTickClock(0)
	loop := gameserver.NewTickLoop(cfg.Server.TickInterval, clock, logger)

	var lawSys *gameserver.LawSystemHandler
	senders := gameserver.MultiSender{gameserver.NewSessionSender(sessMgr)}
	var hub *hud.Hub
	if cfg.HUD.Enabled {
		hub = hud.NewHub(logger, func(uid uuid.UUID) {
			if err := loop.Do(ctx, func() { lawSys.SyncPlayer(uid) }); err != nil {
				logger.Debug("hud initial sync skipped", observability.PlayerField(uid), zap.Error(err))
			}
		})
		senders = append(senders, hub)
	}

	lawSys = gameserver.NewLawSystemHandler(sessMgr, npcMgr, worldMgr, clock, cryptoSrc, store, senders, logger)
	if err := applyPolicyFile(lawSys, cfg.Law.PolicyFile); err != nil {
		logger.Fatal("loading law policy", zap.String("path", cfg.Law.PolicyFile), zap.Error(err))
	}

	if cfg.Law.ScriptDir != "" {
		scriptMgr := scripting.NewManager(diceRoller, logger)
		defer scriptMgr.Close()
		scriptMgr.WantedLevel = func(uid string) int {
			if st, ok := lookupState(lawSys, uid); ok {
				return st.WantedLevel
			}
			return 0
		}
		scriptMgr.PeaceValue = func(uid string) int {
			if st, ok := lookupState(lawSys, uid); ok {
				return st.PeaceValue
			}
			return 0
		}
		if err := scriptMgr.LoadGlobal(cfg.Law.ScriptDir, cfg.Law.ScriptInstructionLimit); err != nil {
			logger.Fatal("loading law scripts", zap.String("dir", cfg.Law.ScriptDir), zap.Error(err))
		}
		lawSys.SetCrimeHook(gameserver.NewScriptCrimeHook(scriptMgr))
		logger.Info("law scripts loaded", zap.String("dir", cfg.Law.ScriptDir))
	}

	lawSys.Initialize(ctx)
	loop.RegisterTick("law", func(int64) { lawSys.HandleServerTick() })

	commands := gameserver.NewLawCommandHandler(lawSys, sessMgr, command.DefaultRegistry(), logger)
	commands.SetHost(gameserver.NewHostBridge(lawSys, sessMgr, npcMgr, worldMgr, logger))

	grpcServer := grpc.NewServer()
	gameserver.RegisterLawAdminServer(grpcServer, gameserver.NewAdminService(loop, lawSys, commands, logger))
	lis, err := net.Listen("tcp", cfg.Admin.Addr())
	if err != nil {
		logger.Fatal("listening for admin gRPC", zap.String("addr", cfg.Admin.Addr()), zap.Error(err))
	}

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("tick", &server.FuncService{
		StartFn: func() error { return loop.Start(ctx) },
		StopFn:  loop.Stop,
	})
	lifecycle.Add("admin-grpc", &server.FuncService{
		StartFn: func() error { return grpcServer.Serve(lis) },
		StopFn:  grpcServer.GracefulStop,
	})
	if hub != nil {
		httpServer := &http.Server{
			Addr:              cfg.HUD.Addr(),
			Handler:           hub.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		lifecycle.Add("hud", &server.FuncService{
			StartFn: func() error {
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			},
			StopFn: func() {
				_ = hub.Close()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = httpServer.Shutdown(shutdownCtx)
			},
		})
	}

	logger.Info("law server initialized",
		zap.Strings("services", lifecycle.ServiceNames()),
		zap.Duration("startup", time.Since(start)),
	)

	runErr := lifecycle.Run(ctx)

	// The loop has stopped; the law system is safe to touch from here.
	saveCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := lawSys.Shutdown(saveCtx); err != nil {
		logger.Error("saving law state on shutdown", zap.Error(err))
	}
	if runErr != nil {
		logger.Error("law server exited with error", zap.Error(runErr))
		os.Exit(1)
	}
}

// openStore builds the configured LawStore and its close function.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (gameserver.LawStore, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.RequireSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("%w (run cmd/migrate)", err)
		}
		logger.Info("law store connected", zap.String("host", cfg.Database.Host))
		return pool.Repository(), pool.Close, nil
	case config.BackendSQLite:
		s, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case config.BackendFile:
		s, err := lawfile.New(cfg.Storage.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// applyPolicyFile installs the YAML policy at path as the starting config.
// A saved config loaded by Initialize replaces it.
func applyPolicyFile(lawSys *gameserver.LawSystemHandler, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	policy, err := law.DecodeConfig(data)
	if err != nil {
		return err
	}
	return lawSys.ApplyConfig(policy)
}

func lookupState(lawSys *gameserver.LawSystemHandler, uid string) (*law.PlayerLawState, bool) {
	id, err := uuid.Parse(uid)
	if err != nil {
		return nil, false
	}
	return lawSys.PlayerState(id)
}
