package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"stridelog/internal/account"
	"stridelog/internal/audit"
	"stridelog/internal/config"
	"stridelog/internal/crypto"
	"stridelog/internal/httpapi"
	"stridelog/internal/obs"
	"stridelog/internal/token"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	log := obs.Logger()
	obs.InitBuildInfo(version, commit)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("configuration invalid")
	}

	// Key material. Production requires explicit keys; development falls back
	// to ephemeral ones so the service starts, with a loud warning because
	// tokens and ciphertext will not survive a restart.
	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		jwtSecret = randomHex(32)
		log.Warn().Msg("STRIDELOG_JWT_SECRET not set, using an ephemeral signing secret")
	}
	encKey := cfg.DataEncryptionKey
	if encKey == "" {
		var err error
		encKey, err = crypto.GenerateKey()
		if err != nil {
			log.Fatal().Err(err).Msg("generate fallback encryption key")
		}
		log.Warn().Msg("STRIDELOG_DATA_ENCRYPTION_KEY not set, using an ephemeral key")
	}
	engine, err := crypto.NewEngine(encKey)
	if err != nil {
		log.Fatal().Err(err).Msg("encryption key invalid")
	}

	// Stores. Postgres and Redis are optional: without them everything runs
	// in process, which is fine for development and single-node trials.
	var db *sql.DB
	if cfg.PostgresDSN != "" {
		db, err = sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("open db")
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	var revocations token.RevocationStore
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		revocations = token.NewRedisRevocationStore(rdb)
		log.Info().Str("addr", cfg.RedisAddr).Msg("using redis revocation store")
	} else {
		revocations = token.NewMemoryRevocationStore()
	}

	tokens, err := token.New([]byte(jwtSecret), revocations,
		token.WithAccessTTL(cfg.AccessTokenTTL),
		token.WithRefreshTTL(cfg.RefreshTokenTTL),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("token manager")
	}

	var auditStore audit.Store
	var accountStore account.Store
	if db != nil {
		auditStore = audit.NewPGStore(db)
		accountStore = account.NewPGStore(db)
	} else {
		auditStore = audit.NewMemoryStore(0)
		accountStore = account.NewMemoryStore()
	}

	collector := obs.NewCollector(obs.Registry)
	auditLog := audit.NewLogger(auditStore,
		audit.WithFallback(*log),
		audit.WithCollector(collector),
	)

	api := httpapi.New(httpapi.Options{
		Tokens:   tokens,
		Accounts: account.NewService(accountStore, engine),
		Audit:    auditLog,
		Metrics:  collector,
		Logger:   log,
		Version:  version,
		DB:       db,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info().Str("addr", srv.Addr).Str("version", version).Msg("starting stridelog-api")

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Info().Msg("stopped")
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
