// Package postgres owns the database handle: pool configuration, liveness
// pings, pool-stat export, and schema migrations.
package postgres
