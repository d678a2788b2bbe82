// Package database connects Bun to MySQL, PostgreSQL or SQLite from a YAML or
// programmatic configuration. It also provides health checks, pool
// statistics, query hooks for logging and Prometheus metrics, SQL error
// classification and a registry of models whose tables can be created on
// startup.
package database
