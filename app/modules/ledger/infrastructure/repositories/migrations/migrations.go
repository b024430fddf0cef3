package ledgermigrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the ledger module migrations.
var Migrations = migrate.NewMigrations()
