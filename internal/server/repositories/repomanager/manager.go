package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/codereg/internal/dbx"
	"github.com/dmitrijs2005/codereg/internal/server/repositories/records"
	"github.com/dmitrijs2005/codereg/internal/server/repositories/snapshots"
	"github.com/dmitrijs2005/codereg/internal/server/repositories/tickets"
	"github.com/dmitrijs2005/codereg/internal/server/repositories/tombstones"
)

// RepositoryManager vends repositories bound to a DBTX, so one transaction
// can span several of them.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Records(db dbx.DBTX) records.Repository
	Tickets(db dbx.DBTX) tickets.Repository
	Snapshots(db dbx.DBTX) snapshots.Repository
	Tombstones(db dbx.DBTX) tombstones.Repository
}
