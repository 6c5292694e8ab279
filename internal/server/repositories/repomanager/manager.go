package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/equipkeeper/internal/dbx"
	"github.com/dmitrijs2005/equipkeeper/internal/server/repositories/accesses"
	"github.com/dmitrijs2005/equipkeeper/internal/server/repositories/assets"
	"github.com/dmitrijs2005/equipkeeper/internal/server/repositories/entries"
	"github.com/dmitrijs2005/equipkeeper/internal/server/repositories/equipments"
	"github.com/dmitrijs2005/equipkeeper/internal/server/repositories/images"
	"github.com/dmitrijs2005/equipkeeper/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/equipkeeper/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so a service can
// use the same repositories on the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Assets(db dbx.DBTX) assets.Repository
	Accesses(db dbx.DBTX) accesses.Repository
	Equipments(db dbx.DBTX) equipments.Repository
	Tasks(db dbx.DBTX) tasks.Repository
	Entries(db dbx.DBTX) entries.Repository
	Images(db dbx.DBTX) images.Repository
}
