package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/mcdev12/jeopardy/go/internal/archive"
	"github.com/mcdev12/jeopardy/go/internal/config"
	"github.com/mcdev12/jeopardy/go/internal/dbconfig"
	"github.com/mcdev12/jeopardy/go/internal/eventbus"
	"github.com/mcdev12/jeopardy/go/internal/game/events"
	"github.com/mcdev12/jeopardy/go/internal/telemetry"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	config.SetupLogging(env.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "jeopardy-archiver", telemetry.Config{
		Enabled:  env.OTelEnabled,
		Endpoint: env.OTelEndpoint,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up tracing")
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Error().Err(err).Msg("tracing shutdown failed")
		}
	}()

	repo, closeRepo, err := openRepository(ctx, env)
	if err != nil {
		log.Fatal().Err(err).Str("driver", env.ArchiveDriver).Msg("failed to open archive")
	}
	defer closeRepo()

	if err := repo.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate archive")
	}

	busCfg := eventbus.DefaultConfig()
	busCfg.URL = env.NATSURL
	nc, js, err := eventbus.Connect(busCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to event bus")
	}
	defer nc.Close()

	if err := eventbus.EnsureStream(ctx, js, busCfg); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure event stream")
	}

	consumer, err := eventbus.NewConsumer(ctx, js, busCfg, eventbus.ConsumerConfig{
		Name:          "jeopardy-archiver",
		EventTypes:    []string{events.EventTypeGameEnded},
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
		Workers:       env.ArchiveWorkers,
	}, archive.Handler(repo))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create archive consumer")
	}

	log.Info().
		Str("driver", env.ArchiveDriver).
		Int("workers", env.ArchiveWorkers).
		Msg("archiver running")

	if err := consumer.Run(ctx); err != nil {
		log.Error().Err(err).Msg("archive consumer stopped")
	}
	log.Info().Msg("archiver shutdown complete")
}

// openRepository picks the archive backend named by ARCHIVE_DRIVER.
func openRepository(ctx context.Context, env config.Env) (archive.Repository, func(), error) {
	switch env.ArchiveDriver {
	case "pgx":
		dbCfg, err := dbconfig.NewConfigFromEnv()
		if err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.New(ctx, dbCfg.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return archive.NewPgxRepository(pool), pool.Close, nil

	case "postgres":
		dbCfg, err := dbconfig.NewConfigFromEnv()
		if err != nil {
			return nil, nil, err
		}
		db, err := openSQL(ctx, "postgres", dbCfg.DSN())
		if err != nil {
			return nil, nil, err
		}
		return archive.NewSQLRepository(db, archive.DialectPostgres), closeSQL(db), nil

	case "sqlite":
		db, err := openSQL(ctx, "sqlite", env.ArchiveSQLitePath)
		if err != nil {
			return nil, nil, err
		}
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
		return archive.NewSQLRepository(db, archive.DialectSQLite), closeSQL(db), nil
	}
	return nil, nil, fmt.Errorf("unknown archive driver %q", env.ArchiveDriver)
}

func openSQL(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", driver, err)
	}
	return db, nil
}

func closeSQL(db *sql.DB) func() {
	return func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close archive database")
		}
	}
}
