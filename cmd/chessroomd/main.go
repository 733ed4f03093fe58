package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Nateight8/neolink-sub000/internal/archive"
	"github.com/Nateight8/neolink-sub000/internal/bot"
	appcfg "github.com/Nateight8/neolink-sub000/internal/config"
	"github.com/Nateight8/neolink-sub000/internal/engine"
	"github.com/Nateight8/neolink-sub000/internal/httpapi"
	"github.com/Nateight8/neolink-sub000/internal/hub"
	"github.com/Nateight8/neolink-sub000/internal/obslog"
	"github.com/Nateight8/neolink-sub000/internal/room"
	"github.com/Nateight8/neolink-sub000/internal/store/redisstore"
)

func main() {
	_ = godotenv.Load()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()

	opts := room.Options{}

	syncHub := hub.New()
	opts.Broadcaster = syncHub

	var persister *redisstore.Store
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis url invalid", zap.Error(err))
		}
		rdb := redis.NewClient(redisOpts)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			cancel()
			logger.Fatal("redis unreachable", zap.Error(err))
		}
		cancel()
		persister = redisstore.NewStore(rdb)
		opts.Persister = persister
		defer rdb.Close()
	} else {
		logger.Warn("REDIS_URL not set, rooms will not survive a restart")
	}

	if cfg.DatabaseURL != "" {
		repo, err := archive.NewRepository(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("archive init failed", zap.Error(err))
		}
		defer repo.Close()
		opts.Archiver = repo
	} else {
		logger.Warn("DATABASE_URL not set, finished games will not be archived")
	}

	var searcher bot.Searcher
	if cfg.StockfishPath != "" {
		eng, err := engine.New(engine.Config{
			BinaryPath:  cfg.StockfishPath,
			Threads:     cfg.EngineThreads,
			HashMB:      cfg.EngineHashMB,
			MaxSessions: cfg.EngineSessions,
			MoveBudget:  cfg.BotMoveBudget(),
		})
		if err != nil {
			logger.Fatal("engine init failed", zap.Error(err))
		}
		defer eng.Close()
		searcher = eng
	} else {
		logger.Warn("STOCKFISH_PATH not set, bot seats play random legal moves")
	}
	opts.Bot = bot.NewAgent(searcher, cfg.BotMoveBudget()+2*time.Second)

	rooms := room.NewStore(opts)

	if persister != nil {
		restoreCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		live, err := persister.ListLive(restoreCtx)
		cancel()
		if err != nil {
			logger.Error("restore scan failed", zap.Error(err))
		}
		for _, r := range live {
			rooms.Restore(r)
		}
		logger.Info("rooms restored", zap.Int("count", len(live)))
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewServer(rooms, syncHub).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	syncHub.Close()
	logger.Info("stopped")
}
