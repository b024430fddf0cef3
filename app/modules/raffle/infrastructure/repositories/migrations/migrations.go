package rafflemigrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the raffle module migrations.
var Migrations = migrate.NewMigrations()
