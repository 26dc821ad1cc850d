package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/codereg/internal/dbx"
	"github.com/dmitrijs2005/codereg/internal/logging"
	"github.com/dmitrijs2005/codereg/internal/server/auth"
	"github.com/dmitrijs2005/codereg/internal/server/config"
	"github.com/dmitrijs2005/codereg/internal/server/metrics"
	"github.com/dmitrijs2005/codereg/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/codereg/internal/server/services"
	"github.com/dmitrijs2005/codereg/internal/server/syncx"
)

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// Core is the set of wired services shared by the server and the admin tool.
type Core struct {
	DB         *sql.DB
	Repos      repomanager.RepositoryManager
	Allocator  *services.IdentifierAllocator
	Workflow   *services.WorkflowService
	Tombstones *services.TombstoneService
	Metrics    *metrics.Metrics
}

// OpenDB opens the pgx-backed pool and checks it answers.
func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return db, nil
}

// NewCore connects to the database and wires the workflow around it.
// Migrations are not run here.
func NewCore(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Core, error) {
	db, err := OpenDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	collab, err := newCollaborators(ctx, cfg, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return newCore(db, cfg, logger, collab), nil
}

func newCore(db *sql.DB, cfg *config.Config, logger logging.Logger, collab syncx.Collaborators) *Core {
	tx := dbx.NewSQLTransactor(db)
	repos := repomanager.NewPostgresRepositoryManager()
	mx := metrics.New()

	allocator := services.NewIdentifierAllocator(tx, repos, cfg, logger, mx)
	return &Core{
		DB:         db,
		Repos:      repos,
		Allocator:  allocator,
		Workflow:   services.NewWorkflowService(tx, repos, allocator, collab, cfg, logger, mx),
		Tombstones: services.NewTombstoneService(tx, repos, collab, cfg, logger),
		Metrics:    mx,
	}
}

// newCollaborators builds the external systems the workflow reports to.
// Registration, mirroring and mail are logged only; indexing is skipped when
// no index URL is configured.
func newCollaborators(ctx context.Context, cfg *config.Config, logger logging.Logger) (syncx.Collaborators, error) {
	archiver, err := syncx.NewS3Archiver(ctx, cfg)
	if err != nil {
		return syncx.Collaborators{}, fmt.Errorf("archiver init error: %w", err)
	}

	var indexer syncx.Indexer = syncx.NopIndexer{}
	if cfg.IndexURL != "" {
		indexer = syncx.NewHTTPIndexer(cfg.IndexURL, &http.Client{Timeout: cfg.SyncTimeout})
	}

	return syncx.Collaborators{
		Authorizer: auth.NewRoleAuthorizer(),
		Registrar:  syncx.NewLogRegistrar(logger, cfg.SiteURL),
		Archiver:   archiver,
		Indexer:    indexer,
		Mirror:     syncx.NewLogMirror(logger),
		Notifier:   syncx.NewLogNotifier(logger),
	}, nil
}

// Close releases the database pool.
func (c *Core) Close() error {
	return c.DB.Close()
}
