package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/casupload/internal/dbx"
	"github.com/dmitrijs2005/casupload/internal/server/repositories/sessions"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Sessions(db dbx.DBTX) sessions.Repository
}
