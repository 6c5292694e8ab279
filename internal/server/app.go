// Package server wires configuration, storage backends and services into
// one App that the command line drives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/equipkeeper/internal/logging"
	"github.com/dmitrijs2005/equipkeeper/internal/metrics"
	"github.com/dmitrijs2005/equipkeeper/internal/server/auth"
	"github.com/dmitrijs2005/equipkeeper/internal/server/config"
	"github.com/dmitrijs2005/equipkeeper/internal/server/maintenance"
	"github.com/dmitrijs2005/equipkeeper/internal/server/models"
	"github.com/dmitrijs2005/equipkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/equipkeeper/internal/server/services"
	"github.com/dmitrijs2005/equipkeeper/internal/server/storage"
)

// BlobStore is the object storage the image services need.
type BlobStore interface {
	services.BlobDeleter
	services.Presigner
}

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	metrics     *metrics.Metrics
	resolver    *auth.Resolver
	clock       maintenance.Clock

	Users      *services.UserService
	Access     *services.AccessService
	Assets     *services.AssetService
	Equipments *services.EquipmentService
	Tasks      *services.TaskService
	Entries    *services.EntryService
	Images     *services.ImageService
}

// seams for tests
var (
	openDB    = repomanager.Open
	openBlobs = func(ctx context.Context, cfg *config.Config) (BlobStore, error) { return storage.NewS3Store(ctx, cfg) }
)

// NewApp connects to PostgreSQL and S3 and builds the services.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	db, err := openDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	blobs, err := openBlobs(ctx, cfg)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	return NewAppWith(db, repomanager.NewPostgresRepositoryManager(), blobs, maintenance.SystemClock{}, cfg, logger), nil
}

// NewAppWith builds an App on already opened backends.
func NewAppWith(db *sql.DB, rm repomanager.RepositoryManager, blobs BlobStore, clock maintenance.Clock, cfg *config.Config, logger logging.Logger) *App {
	mt := metrics.New()

	access := services.NewAccessService(db, rm, logger.With("service", "access"), mt)
	cascade := services.NewCascadeService(db, rm, access, blobs, logger.With("service", "cascade"), mt, cfg)
	calc := maintenance.NewCalculator(clock)

	return &App{
		config:      cfg,
		logger:      logger,
		db:          db,
		repomanager: rm,
		metrics:     mt,
		clock:       clock,
		resolver:    auth.NewResolver([]byte(cfg.SecretKey), rm.Users(db), cfg.IdentityCacheSize, cfg.IdentityCacheTTL),

		Users:      services.NewUserService(db, rm, cfg, logger.With("service", "users")),
		Access:     access,
		Assets:     services.NewAssetService(db, rm, access, cascade, logger.With("service", "assets")),
		Equipments: services.NewEquipmentService(db, rm, access, cascade, clock, logger.With("service", "equipments")),
		Tasks:      services.NewTaskService(db, rm, access, cascade, calc, logger.With("service", "tasks"), mt),
		Entries:    services.NewEntryService(db, rm, access, cascade, logger.With("service", "entries")),
		Images:     services.NewImageService(db, rm, access, cascade, blobs, clock, logger.With("service", "images")),
	}
}

// Migrate applies the embedded schema migrations.
func (a *App) Migrate(ctx context.Context) error {
	a.logger.Info(ctx, "running migrations")
	if err := a.repomanager.RunMigrations(ctx, a.db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

// Authenticate resolves the acting user from an access token.
func (a *App) Authenticate(ctx context.Context, token string) (*models.User, error) {
	return a.resolver.Resolve(ctx, token)
}

func (a *App) Metrics() *metrics.Metrics { return a.metrics }

// Now is the time status computations are made against.
func (a *App) Now() time.Time { return a.clock.Now() }

// Close writes the metrics textfile, when one is given, and closes the
// database.
func (a *App) Close(ctx context.Context, metricsTextfile string) error {
	var errs []error
	if metricsTextfile != "" {
		if err := a.metrics.WriteTextfile(metricsTextfile); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close db: %w", err))
	}

	err := errors.Join(errs...)
	if err != nil {
		a.logger.Error(ctx, "shutdown", "error", err)
	}
	return err
}
