package store

import "embed"

// Migrations holds the embedded schema migration files applied at startup.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory within Migrations containing the .sql files.
const MigrationsDir = "migrations"
