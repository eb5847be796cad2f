package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/medhist/annotation-iam/generates"
	"github.com/medhist/annotation-iam/identity"
	"github.com/medhist/annotation-iam/migrate"
	"github.com/medhist/annotation-iam/seed"
	"github.com/medhist/annotation-iam/server"
	"github.com/medhist/annotation-iam/store"
	"github.com/medhist/annotation-iam/utils/password"
)

func main() {
	cfg, err := server.LoadAppConfig()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := server.NewLogger(cfg.Log)

	// MIGRATE_ON_START=1 SEED_ON_START=1 apply schema and role catalogue first.
	if err := migrate.RunFromEnv(log); err != nil {
		log.WithError(err).Fatal("migrations failed")
	}
	if err := seed.RunFromEnv(log); err != nil {
		log.WithError(err).Fatal("seeding failed")
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.WithError(err).Fatal("failed to access database pool")
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	defer func() {
		if err := sqlDB.Close(); err != nil {
			log.WithError(err).Warn("error closing database connection")
		}
	}()

	revocations, err := openRevoker(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to open revocation store")
	}
	if revocations != nil {
		defer revocations.Close()
	}

	tokens, err := generates.NewJWTGenerate(generates.JWTOptions{
		AccessSecret:     []byte(cfg.Auth.AccessSecret),
		RefreshSecret:    []byte(cfg.Auth.RefreshSecret),
		AccessExpiresIn:  cfg.Auth.AccessExpiresIn,
		RefreshExpiresIn: cfg.Auth.RefreshExpiresIn,
		Issuer:           cfg.Auth.Issuer,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to configure tokens")
	}

	users := store.NewUserStore(db)
	srv := server.NewServer(cfg.ServerConfig(), server.Deps{
		Tokens:      tokens,
		Resolver:    identity.NewResolver(users),
		Passwords:   password.NewBcrypt(cfg.Auth.BcryptCost),
		Users:       users,
		Roles:       store.NewRoleStore(db),
		Samples:     store.NewSampleStore(db),
		TissueTypes: store.NewTissueTypeStore(db),
		FormDetails: store.NewFormDetailStore(db),
		Annotations: store.NewAnnotationStore(db),
		Revocations: revocations,
		DB:          sqlDB,
		Log:         log,
	})

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      server.NewGinEngine(srv),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	serverErr := make(chan error, 1)

	go func() {
		log.WithFields(logrus.Fields{"addr": cfg.HTTP.Addr, "env": cfg.Env}).Info("annotation API listening")
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	case sig := <-shutdown:
		log.WithField("signal", sig.String()).Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("graceful shutdown failed, forcing close")
			_ = httpServer.Close()
		}
		log.Info("server stopped")
	}
}

// openRevoker returns nil when revocation is disabled.
func openRevoker(cfg *server.AppConfig) (store.Revoker, error) {
	rc := store.RevocationConfig{UserRevocationTTL: cfg.Revocation.UserTTL, Prefix: cfg.Revocation.Prefix}
	switch cfg.Revocation.Backend {
	case server.RevocationValkey:
		return store.NewValkeyRevocationStore(cfg.Revocation.Addr, rc)
	case server.RevocationNone:
		return nil, nil
	default:
		return store.NewBuntRevocationStore(cfg.Revocation.Path, rc)
	}
}
