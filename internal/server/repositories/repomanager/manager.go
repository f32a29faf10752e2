package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/nexakey/internal/dbx"
	"github.com/dmitrijs2005/nexakey/internal/server/repositories/users"
	"github.com/dmitrijs2005/nexakey/internal/server/repositories/vaultitems"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	VaultItems(db dbx.DBTX) vaultitems.Repository
}
