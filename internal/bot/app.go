// Package bot initializes and runs the bot application: it wires the
// credential store, session tracker, authentication orchestrator and
// transport together, runs migrations, seeds statically configured
// principals, and drives the long-poll loop until shutdown.
package bot

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mgkeit/pairalert/internal/bot/auth"
	"github.com/mgkeit/pairalert/internal/bot/cleanup"
	"github.com/mgkeit/pairalert/internal/bot/config"
	"github.com/mgkeit/pairalert/internal/bot/credentials"
	"github.com/mgkeit/pairalert/internal/bot/maintenance"
	"github.com/mgkeit/pairalert/internal/bot/migrations"
	"github.com/mgkeit/pairalert/internal/bot/password"
	"github.com/mgkeit/pairalert/internal/bot/principals"
	"github.com/mgkeit/pairalert/internal/bot/session"
	"github.com/mgkeit/pairalert/internal/bot/transport"
	"github.com/mgkeit/pairalert/internal/dbx"
	"github.com/mgkeit/pairalert/internal/logging"
)

const pollTimeout = 30 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	client  *transport.TelegramClient
	router  *Router
	cleaner *cleanup.Scheduler
	sweeper *maintenance.Sweeper
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := runMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	repo := principals.NewPostgresRepository(db)
	hasher := password.NewHasher(0)
	creds := credentials.NewService(repo, hasher, logger)
	sessions := session.NewTracker(repo, cfg.SessionTimeout)

	client := transport.NewTelegramClient(cfg.BotToken)
	cleaner := cleanup.NewScheduler(client, logger)
	sweeper := maintenance.NewSweeper(repo, cfg.SessionTimeout, logger)

	authManager := auth.NewManager(repo, creds, sessions, client, cleaner,
		cfg.TOTPIssuer, cfg.SensitiveMessageTTL, logger)
	router := NewRouter(repo, creds, sessions, authManager, client, logger)

	return &App{
		config:  cfg,
		logger:  logger,
		db:      db,
		client:  client,
		router:  router,
		cleaner: cleaner,
		sweeper: sweeper,
	}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// seedStatic assigns roles and seeds default credentials for the
// principal IDs listed in the config. The whole pass runs in one
// transaction so a partially seeded principal set never survives a
// failed startup.
func (app *App) seedStatic(ctx context.Context) error {
	return dbx.WithTx(ctx, app.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		creds := credentials.NewService(principals.NewPostgresRepository(tx),
			password.NewHasher(0), app.logger)

		seed := func(ids []int64, role principals.Role) error {
			for _, id := range ids {
				if err := creds.AssignRole(ctx, id, role); err != nil {
					return err
				}
				if err := creds.EnsureCredentialSeed(ctx, id); err != nil {
					return err
				}
			}
			return nil
		}

		if err := seed(app.config.Admins, principals.RoleAdmin); err != nil {
			return err
		}
		return seed(app.config.Curators, principals.RoleCurator)
	})
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) pollLoop(ctx context.Context) {
	var offset int64
	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		default:
		}

		updates, err := app.client.GetUpdates(ctx, offset, pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				wg.Wait()
				return
			}
			app.logger.Warn(ctx, "poll failed", "error", err)
			time.Sleep(3 * time.Second)
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			msg, ok := u.Inbound()
			if !ok {
				continue
			}

			wg.Add(1)
			go func(msg transport.Message) {
				defer wg.Done()
				app.router.Dispatch(ctx, msg)
			}(msg)
		}
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting bot")

	app.initSignalHandler(cancelFunc)

	if err := app.seedStatic(ctx); err != nil {
		app.logger.Error(ctx, "failed to seed static principals", "error", err)
		return
	}

	app.sweeper.Sweep(ctx)
	if err := app.sweeper.Start(app.config.SweepSpec); err != nil {
		app.logger.Error(ctx, "failed to start session sweeper", "error", err)
		return
	}

	app.pollLoop(ctx)

	app.sweeper.Stop()
	app.cleaner.Stop()
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close failed", "error", err)
	}
	app.logger.Info(ctx, "bot stopped")
}
