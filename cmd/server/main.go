package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"docvault/internal/audit"
	"docvault/internal/blob"
	"docvault/internal/db"
	"docvault/internal/document"
	httptransport "docvault/internal/http"
	"docvault/internal/identity"
	"docvault/internal/notify"
	"docvault/internal/platform/config"
	"docvault/internal/platform/httpserver"
	"docvault/internal/platform/logger"
	"docvault/internal/platform/metrics"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal feature packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.LogFormat, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	var (
		userStore  identity.Store
		docStore   document.Store
		auditStore audit.Store
	)
	switch cfg.StoreDriver {
	case "postgres":
		pool, err := db.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := db.Migrate(pool); err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}
		userStore = identity.NewPostgresStore(pool)
		docStore = document.NewPostgresStore(pool)
		auditStore = audit.NewPostgresStore(pool)
	default:
		log.Warn("using in-memory stores - all data is lost on restart")
		userStore = identity.NewInMemoryStore()
		docStore = document.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
	}

	var blobs blob.Store
	if cfg.BlobDriver == "minio" {
		blobs, err = blob.NewMinioStore(ctx, cfg.Minio)
		if err != nil {
			log.Error("minio connection failed", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("using in-memory blob store - all files are lost on restart")
		blobs = blob.NewMemoryStore()
	}

	var notifier notify.Sender
	if cfg.SMTP.Host != "" {
		notifier, err = notify.NewMailer(cfg.SMTP)
		if err != nil {
			log.Error("mailer setup failed", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("SMTP not configured - OTP delivery is disabled")
		notifier = notify.Noop{}
	}

	var attempts identity.AttemptStore
	if cfg.RedisAddr != "" {
		attempts = identity.NewRedisAttempts(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
	} else {
		attempts = identity.NewMemoryAttempts()
	}
	lockout := identity.NewLockout(attempts, cfg.LockoutThreshold, cfg.LockoutWindow)

	recorder := audit.NewRecorder(auditStore, log, m, cfg.AuditBuffer)

	tokens := identity.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	users := identity.NewService(userStore, recorder, notifier, lockout, m, log, identity.Config{
		OTPTTL:     cfg.OTPTTL,
		BcryptCost: cfg.BcryptCost,
	})
	docs := document.NewService(docStore, blobs, userStore, recorder, m, log)

	router := httptransport.NewRouter(httptransport.Deps{
		Identity:  identity.NewHandler(users, tokens, log),
		Documents: document.NewHandler(docs, log),
		Audit:     audit.NewHandler(auditStore, log),
		Tokens:    tokens,
		Subjects:  users,
		Logger:    log,
	})

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		// The recorder returns when groupCtx is canceled, after draining
		// whatever is still buffered.
		if err := recorder.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr, "store", cfg.StoreDriver, "blob", cfg.BlobDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
