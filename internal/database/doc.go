// Package database provides the PostgreSQL connection pool and the
// pgx-backed repository implementations for users, rooms, questions,
// and votes. Schema migrations run at startup.
package database
