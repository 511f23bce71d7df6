package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	_ "go.uber.org/automaxprocs"
	"golang.org/x/sync/errgroup"

	"github.com/georgemunganga/printnow-backend/internal/config"
	"github.com/georgemunganga/printnow-backend/internal/db"
	"github.com/georgemunganga/printnow-backend/internal/modules/auth"
	"github.com/georgemunganga/printnow-backend/internal/modules/catalog"
	"github.com/georgemunganga/printnow-backend/internal/modules/idempotency"
	"github.com/georgemunganga/printnow-backend/internal/modules/notify"
	"github.com/georgemunganga/printnow-backend/internal/modules/order"
	"github.com/georgemunganga/printnow-backend/internal/modules/payment"
	"github.com/georgemunganga/printnow-backend/internal/modules/user"
	"github.com/georgemunganga/printnow-backend/internal/pkg/telemetry"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := telemetry.NewLogger(cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	shutdownTracer, err := telemetry.SetupTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(sctx); err != nil {
			logger.Warn("tracer shutdown", "error", err)
		}
	}()

	conn, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := conn.PingContext(ctx); err != nil {
		return err
	}
	if n, err := db.Migrate(ctx, conn); err != nil {
		return err
	} else if n > 0 {
		logger.Info("legacy order statuses rewritten", "count", n)
	}
	logger.Info("connected to the database")

	// ── Redis (optional) ────────────────────────────────────
	var (
		idem idempotency.Store
		rs   *redsync.Redsync
		mem  *idempotency.MemoryStore
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		idem = idempotency.NewRedisStore(rdb, "printnow", cfg.IdempotencyTTL)
		rs = redsync.New(goredis.NewPool(rdb))
	} else {
		mem = idempotency.NewMemoryStore(cfg.IdempotencyTTL)
		idem = mem
	}

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// ── Identity ────────────────────────────────────────────
	userRepo := user.NewPostgresRepository(conn)
	authService := auth.NewService(userRepo, cfg.JWTSecret, cfg.TokenTTL)
	authn := auth.Authenticate(authService)
	staff := []func(http.Handler) http.Handler{authn, auth.RequireStaff(cfg.StaffEmails)}

	user.NewHandler(user.NewService(userRepo), authn).RegisterRoutes(router)
	auth.NewHandler(authService).RegisterRoutes(router)

	// ── Catalog & Orders ────────────────────────────────────
	catalogService := catalog.NewService(catalog.NewPostgresRepository(conn))
	catalog.NewHandler(catalogService, staff...).RegisterRoutes(router)

	orderService := order.NewService(order.NewPostgresRepository(conn), catalogService, idem, logger)
	order.NewHandler(orderService, authn).RegisterRoutes(router)

	// ── Payments & live updates ─────────────────────────────
	hub := notify.NewHub(cfg.HubBuffer, cfg.HubSendTimeout)
	notify.NewHandler(hub, orderService, cfg.StreamKeepAlive, logger).RegisterRoutes(router)

	paymentService := payment.NewService(
		payment.NewPostgresLedger(conn),
		payment.NewVietQRGateway(cfg.QRBankID, cfg.QRAccountNo, cfg.QRAccountName),
		hub,
		payment.Options{
			Policy:     payment.DepositPolicy{Threshold: cfg.DepositThreshold, Rate: cfg.DepositRate},
			Currency:   cfg.Currency,
			SessionTTL: cfg.SessionTTL,
		},
		logger,
	)
	payment.NewHandler(paymentService, cfg.WebhookToken, authn, staff...).RegisterRoutes(router)

	// ── Background jobs ─────────────────────────────────────
	sweeper := payment.NewSweeper(paymentService, rs, logger)
	if err := sweeper.Schedule(cfg.SweepSchedule); err != nil {
		return err
	}
	if mem != nil {
		if err := sweeper.Add("@every 1m", "idempotency-sweep", func(context.Context) { mem.Sweep() }); err != nil {
			return err
		}
	}

	// ── Start Server ────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// open event streams end with the process context
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("PrintNow API server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sweeper.Start()
		<-gctx.Done()

		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sweeper.Stop(sctx)
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
