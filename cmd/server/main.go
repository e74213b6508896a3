package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codegrade/internal/api"
	"codegrade/internal/app/executor"
	"codegrade/internal/app/service"
	"codegrade/internal/app/worker"
	"codegrade/internal/common/security"
	"codegrade/internal/domain/repository"
	"codegrade/internal/platform/cache"
	"codegrade/internal/platform/config"
	"codegrade/internal/platform/database"
	"codegrade/internal/platform/logger"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DBConnStr)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("database connected", zap.String("host", cfg.DBHost), zap.String("name", cfg.DBName))

	rdb, err := cache.Connect(ctx, cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()
	log.Info("redis connected", zap.String("addr", cfg.RedisAddr))

	tokens := security.NewTokenManager(cfg.JWTKey, cfg.JWTExp)
	judge := executor.NewJudge0Client(executor.Judge0Config{
		URL:             cfg.Judge0APIURL,
		APIKey:          cfg.Judge0APIKey,
		APIHost:         cfg.Judge0APIHost,
		PollInterval:    cfg.Judge0PollInterval,
		MaxPollAttempts: cfg.Judge0MaxPollAttempts,
		HTTPTimeout:     cfg.Judge0HTTPTimeout,
	}, log.Named("judge0"))

	userRepo := repository.NewPgUserRepository(db)
	problemRepo := repository.NewPgProblemRepository(db)
	submissionRepo := repository.NewPgSubmissionRepository(db)
	blocklist := repository.NewRedisTokenBlocklist(rdb)

	authService := service.NewAuthService(userRepo, tokens, blocklist, log)
	userService := service.NewUserService(userRepo, log)
	problemService := service.NewProblemService(problemRepo, judge, log)
	submissionService := service.NewSubmissionService(submissionRepo, problemRepo, userRepo, judge, log)

	sweeper := worker.NewPendingSweeper(rdb, submissionRepo, worker.SweeperConfig{
		Interval:   cfg.SweeperInterval,
		StaleAfter: cfg.SweeperStaleAfter,
		LockKey:    cfg.SweeperLockKey,
		LockTTL:    cfg.SweeperLockTTL,
	}, log)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		sweeper.Start(workerCtx)
	}()

	router := api.NewRouter(api.Deps{
		AuthService:       authService,
		UserService:       userService,
		ProblemService:    problemService,
		SubmissionService: submissionService,
		Tokens:            tokens,
		Blocklist:         blocklist,
		Limiter:           service.NewCooldownLimiter(rdb, cfg.SubmitCooldown),
		CORSOrigin:        cfg.CORSOrigin,
		RequestTimeout:    cfg.RequestTimeout,
		Log:               log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("port", cfg.APIPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	workerCancel()

	// in-flight gradings may still be polling; let them finalize before the DB closes
	grace := cfg.RequestTimeout + 15*time.Second
	log.Info("draining requests", zap.Duration("grace", grace))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-sweeperDone

	log.Info("server and sweeper stopped")
	return nil
}
