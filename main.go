package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/danielhkuo/votepro/cliparse"
	"github.com/danielhkuo/votepro/db"
	"github.com/danielhkuo/votepro/mailer"
	"github.com/danielhkuo/votepro/middleware"
	"github.com/danielhkuo/votepro/router"
	"github.com/danielhkuo/votepro/session"
	"github.com/danielhkuo/votepro/tokens"
)

// purgeInterval is how often expired codes and sessions are removed
const purgeInterval = 10 * time.Minute

func main() {
	var err error

	if err := cliparse.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect and verify
	dbConn, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	store, sqlSessions, err := openSessionStore(ctx, cfg, dbConn)
	if err != nil {
		slog.Error("session store unavailable", "backend", cfg.SessionBackend, "error", err)
		os.Exit(1)
	}

	if !cfg.Mail.Enabled() {
		slog.Warn("mail credentials not set; codes will be logged and shown to users")
	}

	mux := router.NewRouter(router.Deps{
		DB:       dbConn,
		Sessions: session.NewManager(store, cfg.SecretKey, cfg.SecureCookies),
		Mailer:   mailer.New(cfg.Mail),
	})

	go purgeLoop(ctx, tokens.NewIssuer(dbConn), sqlSessions)

	// Create server
	server := http.Server{
		Handler:           middleware.CORS(cfg.CORSAllowedOrigins)(mux),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		// Wait for Ctrl-C signal
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("graceful shutdown failed", "error", err)
			server.Close()
		}
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed")
	}
}

// openSessionStore picks the configured backend. The SQL store is also
// returned on its own so expired rows can be purged; Redis expires keys itself.
func openSessionStore(ctx context.Context, cfg cliparse.Config, conn *sqlx.DB) (scs.Store, *session.SQLStore, error) {
	if cfg.SessionBackend != cliparse.SessionBackendRedis {
		s := session.NewSQLStore(conn)
		return s, s, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, err
	}
	return session.NewRedisStore(client, "votepro:session"), nil, nil
}

func purgeLoop(ctx context.Context, issuer *tokens.Issuer, sessions *session.SQLStore) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if n, err := issuer.PurgeExpired(ctx); err != nil {
			slog.Error("failed to purge expired codes", "error", err)
		} else if n > 0 {
			slog.Info("purged expired codes", "count", n)
		}

		if sessions == nil {
			continue
		}
		if n, err := sessions.PurgeExpired(ctx); err != nil {
			slog.Error("failed to purge expired sessions", "error", err)
		} else if n > 0 {
			slog.Info("purged expired sessions", "count", n)
		}
	}
}
