package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nextcrm/backoffice-core-go/internal/audit"
	auditrepo "github.com/nextcrm/backoffice-core-go/internal/audit/repo"
	"github.com/nextcrm/backoffice-core-go/internal/auth"
	"github.com/nextcrm/backoffice-core-go/internal/contract"
	contractrepo "github.com/nextcrm/backoffice-core-go/internal/contract/repo"
	"github.com/nextcrm/backoffice-core-go/internal/gdpr"
	gdprrepo "github.com/nextcrm/backoffice-core-go/internal/gdpr/repo"
	"github.com/nextcrm/backoffice-core-go/internal/refdata"
	refdatarepo "github.com/nextcrm/backoffice-core-go/internal/refdata/repo"
	"github.com/nextcrm/backoffice-core-go/internal/router"
	"github.com/nextcrm/backoffice-core-go/internal/user"
	userrepo "github.com/nextcrm/backoffice-core-go/internal/user/repo"
	"github.com/nextcrm/backoffice-core-go/pkg/cache"
	"github.com/nextcrm/backoffice-core-go/pkg/database"
	"github.com/nextcrm/backoffice-core-go/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	// this is best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()

	logCfg := utilities.LogConfigFromEnv()
	lg, err := utilities.InitLogger(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting backoffice-core")

	db, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	rdb, err := cache.Connect(cache.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("redis connect: %v", err)
	}
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users := userrepo.NewUserRepo(db)
	audits := auditrepo.NewAuditRepo(db)
	gdprs := gdprrepo.NewGDPRRepo(db)
	refdatas := refdatarepo.NewRefdataRepo(db)
	contracts := contractrepo.NewContractRepo(db)

	initCtx, cancelInit := context.WithTimeout(ctx, 30*time.Second)
	defer cancelInit()
	if err := users.EnsureTables(initCtx); err != nil {
		sugar.Fatalf("user tables: %v", err)
	}
	if err := gdprs.EnsureTable(initCtx); err != nil {
		sugar.Fatalf("gdpr table: %v", err)
	}
	if err := audits.EnsureTables(initCtx); err != nil {
		sugar.Fatalf("audit tables: %v", err)
	}
	if err := refdatas.EnsureTables(initCtx); err != nil {
		sugar.Fatalf("refdata tables: %v", err)
	}
	if err := contracts.EnsureTables(initCtx); err != nil {
		sugar.Fatalf("contract tables: %v", err)
	}

	authCfg := auth.ConfigFromEnv()
	tokens := auth.NewTokenService(authCfg, rdb)
	breaker := auth.NewRefreshBreaker(rdb, authCfg.BreakerThreshold, authCfg.BreakerCooldown)
	recorder := audit.NewRecorder(audits, sugar, 0)

	userService := user.NewService(users, user.BcryptHasher{Cost: 12})
	gdprService := gdpr.NewService(gdprs, userService, audits)
	refdataService := refdata.NewService(refdatas)
	contractService := contract.NewService(contracts)

	handlers := router.Handlers{
		Auth:     auth.NewHandler(authCfg, userService, tokens, breaker, recorder, sugar),
		GDPR:     gdpr.NewHandler(gdprService, sugar),
		Refdata:  refdata.NewHandler(refdataService, sugar),
		Contract: contract.NewHandler(contractService, sugar),
	}

	handler := router.RegisterRoutes(sugar, authCfg, tokens, recorder, handlers, logCfg.Dev)
	srv := &http.Server{
		Addr:    "0.0.0.0:" + utilities.EnvOr("PORT", "8431"),
		Handler: handler,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	sugar.Info("service is running; press Ctrl+C to stop")

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	// drain pending audit writes before the db handle closes
	recorder.Close()
	if n := recorder.Dropped(); n > 0 {
		sugar.Warnf("audit recorder dropped %d events", n)
	}

	sugar.Info("goodbye")
}
