// Package database manages bun connections for MySQL, PostgreSQL and SQLite.
//
// Besides the connection manager it carries the pieces needed to bring a
// schema up: a priority-ordered model registry, versioned migrations tracked
// in the bun_migrations table, optional foreign keys loaded from YAML, and a
// runner for seed SQL files laid out as
//
//	<root>/common/NNN_*.sql
//	<root>/environments/<env>/NNN_*.sql
//
// Configuration is read from YAML with LoadConfig and may be overridden by
// DB_* environment variables when the factory builds the manager.
package database
