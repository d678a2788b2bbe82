// Package hummer is the application layer of hummer-ddd: CRUD services that
// run repository calls inside units of work.
//
// The building blocks live in sub packages. uow carries the unit of work in a
// context.Context, repository defines the generic repositories, and
// repository/bunstore and repository/memstore persist entities with Bun or in
// memory. database connects Bun to MySQL, PostgreSQL or SQLite.
package hummer
