package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Tominouu/covoit/internal/adapters/httpapi"
	memgrouprepo "github.com/Tominouu/covoit/internal/adapters/memory/grouprepo"
	memidempotency "github.com/Tominouu/covoit/internal/adapters/memory/idempotency"
	memmemberrepo "github.com/Tominouu/covoit/internal/adapters/memory/memberrepo"
	memriderepo "github.com/Tominouu/covoit/internal/adapters/memory/riderepo"
	postgres "github.com/Tominouu/covoit/internal/adapters/postgres"
	pggrouprepo "github.com/Tominouu/covoit/internal/adapters/postgres/grouprepo"
	pgidempotency "github.com/Tominouu/covoit/internal/adapters/postgres/idempotency"
	pgmemberrepo "github.com/Tominouu/covoit/internal/adapters/postgres/memberrepo"
	pgriderepo "github.com/Tominouu/covoit/internal/adapters/postgres/riderepo"
	"github.com/Tominouu/covoit/internal/adapters/ws"
	"github.com/Tominouu/covoit/internal/app/groups"
	"github.com/Tominouu/covoit/internal/app/members"
	"github.com/Tominouu/covoit/internal/app/rides"
	"github.com/Tominouu/covoit/internal/platform/auth/jwtverifier"
	platformclock "github.com/Tominouu/covoit/internal/platform/clock"
	"github.com/Tominouu/covoit/internal/platform/config"
	grouprepoport "github.com/Tominouu/covoit/internal/ports/out/grouprepo"
	idempotencyport "github.com/Tominouu/covoit/internal/ports/out/idempotency"
	memberrepoport "github.com/Tominouu/covoit/internal/ports/out/memberrepo"
	riderepoport "github.com/Tominouu/covoit/internal/ports/out/riderepo"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "covoit-api").Logger()

	cfg := config.LoadServerConfigFromEnv()

	// Auth configuration:
	// - Production: require JWT_* env vars and enforce bearer auth
	// - Local dev: set AUTH_MODE=dev to bypass JWT verification and use X-Debug-Subject
	var authMW func(http.Handler) http.Handler
	authIssuer := ""
	switch cfg.AuthMode {
	case "dev":
		authMW = httpapi.NewDevAuthMiddleware(cfg.DevSubject)
		authIssuer = "dev"
	default:
		jwtCfg, err := config.LoadJWTConfigFromEnv()
		if err != nil {
			log.Fatal().Err(err).Msg("invalid auth config")
		}
		verifier := jwtverifier.New(jwtCfg)
		authMW = httpapi.NewAuthMiddleware(verifier)
		authIssuer = jwtCfg.Issuer
	}

	clk := platformclock.NewSystemClock()

	var (
		memberRepo memberrepoport.Repository
		groupRepo  grouprepoport.Repository
		rideRepo   riderepoport.Repository
		idemStore  idempotencyport.Store
		cleanup    func()
	)

	switch cfg.StorageBackend {
	case "postgres":
		pool, err := postgres.NewPool(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid postgres config")
		}
		cleanup = pool.Close

		memberRepo = pgmemberrepo.NewRepo(pool, authIssuer)
		groupRepo = pggrouprepo.NewRepo(pool)
		rideRepo = pgriderepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool, authIssuer)
	default:
		memberRepo = memmemberrepo.NewRepo()
		groupRepo = memgrouprepo.NewRepo()
		rideRepo = memriderepo.NewRepo()
		idemStore = memidempotency.NewStore()
	}

	if cleanup != nil {
		defer cleanup()
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := ws.NewHub()
	go hub.Run(ctx)

	memberSvc := members.NewService(memberRepo, clk)
	groupSvc := groups.NewService(groupRepo, memberRepo, clk, hub)
	rideSvc := rides.NewService(rideRepo, groupRepo, clk, hub)

	api := httpapi.NewServer(memberSvc, groupSvc, rideSvc, idemStore, hub)
	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		AuthMiddleware: authMW,
		Logger:         &log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
