package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"tubemindai/internal/app"
	"tubemindai/internal/config"
	"tubemindai/internal/mail"
	"tubemindai/internal/otp"
	"tubemindai/internal/ratelimit"
	"tubemindai/internal/server"
	"tubemindai/internal/util"
	"tubemindai/pkg/ai"
	"tubemindai/pkg/ingest"
	"tubemindai/pkg/notes"
	"tubemindai/pkg/storage"
	"tubemindai/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session ttl: %v", err)
	}

	db, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init database: %v", err)
	}
	revoker := store.NewRedisSessionRevoker(cfg.RedisAddr, cfg.RedisPassword)
	sessions, err := store.NewJWTSessionStore(cfg.JWTSecret, sessionTTL, revoker, store.JWTOptions{})
	if err != nil {
		log.Fatalf("failed to init sessions: %v", err)
	}
	otpStore, err := otp.NewStore(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("failed to init otp store: %v", err)
	}
	lease, err := notes.NewRedisLease(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("failed to init lease: %v", err)
	}
	objects, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		log.Fatalf("failed to init object storage: %v", err)
	}

	var mailer mail.Sender
	if cfg.SMTPHost != "" {
		mailer, err = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		if err != nil {
			log.Fatalf("failed to init smtp sender: %v", err)
		}
	} else {
		logger.Warn("smtp host not configured, otp codes go to the log")
		mailer = mail.NewLogSender(logger)
	}

	generator, err := ai.NewGenerator(cfg.AIProvider, cfg.AIBaseURL, cfg.AIAPIKey, cfg.AIModel)
	if err != nil {
		log.Fatalf("failed to init text generator: %v", err)
	}
	throttled := ai.NewThrottledGenerator(generator, ai.ThrottleOptions{})

	appCore, err := app.New(app.Options{
		Store:          db,
		Sessions:       sessions,
		OTP:            otpStore,
		Mailer:         mailer,
		Objects:        objects,
		Generator:      throttled,
		Videos:         ingest.NewYouTubeClient(),
		Lease:          lease,
		Logger:         logger,
		SessionTTL:     sessionTTL,
		MaxUploadBytes: cfg.MaxUploadMB * 1024 * 1024,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	if cfg.AdminEmail != "" {
		bootstrapAdmin(db, cfg.AdminEmail, logger)
	}

	// Rows stuck in processing after a crash get failed so clients can retry.
	go staleGenerationJanitor(appCore)

	var limiter *ratelimit.FixedWindowLimiter
	if cfg.AuthRateLimitPerMinute > 0 {
		limiter, err = ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "",
			cfg.AuthRateLimitPerMinute, time.Minute)
		if err != nil {
			log.Fatalf("failed to init rate limiter: %v", err)
		}
	}

	httpServer, err := server.New(server.Config{
		App:            appCore,
		AuthLimiter:    limiter,
		Logger:         logger,
		MaxUploadBytes: cfg.MaxUploadMB * 1024 * 1024,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:        addr,
		Handler:     httpServer.Router(),
		ReadTimeout: 30 * time.Second,
		// Note generation runs inside the request, so writes need room.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("tubemind server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

// bootstrapAdmin promotes the configured account if it already exists.
func bootstrapAdmin(db store.Store, email string, logger *slog.Logger) {
	user, found, err := db.GetUserByEmail(email)
	if err != nil {
		logger.Error("admin bootstrap lookup failed", "err", err)
		return
	}
	if !found {
		logger.Info("admin bootstrap: account not registered yet", "email", email)
		return
	}
	if user.IsAdmin {
		return
	}
	if err := db.SetUserAdmin(user.ID, true); err != nil {
		logger.Error("admin bootstrap failed", "err", err)
		return
	}
	logger.Info("security_event", "event", "admin_bootstrap", "user_id", user.ID)
}

func staleGenerationJanitor(appCore *app.App) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		appCore.ResetStaleGenerations()
	}
}
