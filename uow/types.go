/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package uow implements the unit of work that repositories flush through.
//
// The current unit of work travels in a context.Context: Manager.Begin returns
// a derived context carrying the new scope and Provider.Current reads it back.
// Writes are enlisted as operations and executed, in order, when the unit of
// work saves its changes.
package uow

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
)

var (
	// ErrCompleted is returned when a completed or rolled back unit of work is used.
	ErrCompleted = errors.New("uow: unit of work already completed")

	// ErrNoDatabase is returned when a transactional unit of work is requested
	// from a manager that has no database.
	ErrNoDatabase = errors.New("uow: transactional unit of work requires a database")
)

// Options controls how a unit of work is started.
type Options struct {
	IsTransactional bool
	IsolationLevel  sql.IsolationLevel
	// Timeout bounds the lifetime of the unit of work; zero means no limit.
	Timeout time.Duration
	// RequiresNew starts an independent unit of work even when one is active.
	RequiresNew bool
}

// DefaultOptions returns transactional options with the driver's default isolation.
func DefaultOptions() Options {
	return Options{IsTransactional: true}
}

// Operation is a buffered write executed against the unit of work's database
// handle when changes are saved. db is nil for units of work without a database.
type Operation func(ctx context.Context, db bun.IDB) error

type UnitOfWork interface {
	ID() string
	Options() Options
	// DB returns the transaction for transactional units of work, otherwise
	// the manager's database. It is nil when the manager has no database.
	DB() bun.IDB
	// Enlist queues op until the next SaveChanges.
	Enlist(op Operation) error
	// SaveChanges executes the queued operations in enlistment order. The
	// first failure stops the flush and leaves it and the later operations queued.
	SaveChanges(ctx context.Context) error
	// Complete saves changes, commits and runs completion handlers.
	Complete(ctx context.Context) error
	// Rollback drops queued operations and rolls back the transaction.
	Rollback(ctx context.Context) error
	// IsCompleted reports whether Complete or Rollback has been called.
	IsCompleted() bool
	// OnCompleted registers a handler run after a successful Complete.
	OnCompleted(fn func(ctx context.Context) error)
	// Outer returns the enclosing unit of work, or nil.
	Outer() UnitOfWork
}

// Provider exposes the active unit of work of a context.
type Provider interface {
	// Current returns the innermost unit of work of ctx that is not yet
	// completed, or nil.
	Current(ctx context.Context) UnitOfWork
}

type Manager interface {
	Provider
	// Begin starts a unit of work and returns ctx carrying it. When one is
	// already active and opts.RequiresNew is false, the returned unit of work
	// joins the active one and its Complete is a no-op.
	Begin(ctx context.Context, opts Options) (context.Context, UnitOfWork, error)
}
