package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/kinkeeper/internal/dbx"
	"github.com/dmitrijs2005/kinkeeper/internal/server/repositories/documents"
	"github.com/dmitrijs2005/kinkeeper/internal/server/repositories/persons"
	"github.com/dmitrijs2005/kinkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/kinkeeper/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a concrete DBTX (plain
// connection or transaction) and exposes a schema migration hook.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Persons(db dbx.DBTX) persons.Repository
	Documents(db dbx.DBTX) documents.Repository
}
