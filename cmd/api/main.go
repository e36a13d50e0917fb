package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shinyyama/marketplace-backend/internal/config"
	"github.com/shinyyama/marketplace-backend/internal/db"
	"github.com/shinyyama/marketplace-backend/internal/directory"
	"github.com/shinyyama/marketplace-backend/internal/events"
	"github.com/shinyyama/marketplace-backend/internal/logging"
	appmw "github.com/shinyyama/marketplace-backend/internal/middleware"
	"github.com/shinyyama/marketplace-backend/internal/repository"
	"github.com/shinyyama/marketplace-backend/internal/server"
	"golang.org/x/sync/errgroup"
)

const serviceName = "marketplace-api"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		l := logging.L()
		l.Fatal().Err(err).Msg("config load error")
	}
	logging.Init(logging.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Service: serviceName})

	if err := run(cfg); err != nil {
		l := logging.L()
		l.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config) error {
	l := logging.L()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	if err := db.Migrate(conn); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rdb.Close()
	}

	verifier, source, err := buildAuth(ctx, cfg)
	if err != nil {
		return err
	}

	var dir directory.Directory = directory.NewStore(repository.NewUserRepository(conn), repository.NewProductRepository(conn), source)
	if rdb != nil {
		dir = directory.NewCached(dir, directory.NewRedisProfileCache(rdb, "marketplace"), cfg.ProfileCacheTTL)
	}

	bus, err := buildBus(cfg, rdb)
	if err != nil {
		return err
	}
	defer bus.Close()

	srv := server.New(server.Deps{
		DB:             conn,
		Directory:      dir,
		Verifier:       verifier,
		Bus:            bus,
		Logger:         l,
		AllowedOrigins: cfg.CORSAllowedSuffixes,
		GitSHA:         cfg.GitSHA,
		BuildTime:      cfg.BuildTime,
	})

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		l.Info().Str("addr", addr).Str("db", cfg.DBDriver).Str("auth", cfg.AuthMode).Str("events", cfg.EventsDriver).Msg("starting server")
		if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		l.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func buildAuth(ctx context.Context, cfg *config.Config) (appmw.TokenVerifier, directory.UserSource, error) {
	switch strings.ToLower(cfg.AuthMode) {
	case "jwt":
		return appmw.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer), nil, nil
	default:
		fv, err := appmw.NewFirebaseVerifier(ctx, cfg.FirebaseProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init firebase auth: %w", err)
		}
		return fv, directory.NewFirebaseUsers(fv.Client()), nil
	}
}

func buildBus(cfg *config.Config, rdb *redis.Client) (events.Bus, error) {
	switch strings.ToLower(cfg.EventsDriver) {
	case "redis":
		if rdb == nil {
			return nil, errors.New("EVENTS_DRIVER=redis requires REDIS_ADDR")
		}
		return events.NewRedis(rdb), nil
	case "nats":
		host, _ := os.Hostname()
		return events.ConnectNATS(cfg.NATSURL, serviceName+"-"+host)
	case "memory":
		return events.NewMemory(), nil
	default:
		return events.Noop{}, nil
	}
}
