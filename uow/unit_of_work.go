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

package uow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
)

type state int

const (
	stateActive state = iota
	stateCompleted
	stateRolledBack
)

type unitOfWork struct {
	id      string
	options Options
	db      bun.IDB
	tx      *bun.Tx
	outer   UnitOfWork
	cancel  context.CancelFunc
	logger  *logrus.Logger

	// flushMu serializes SaveChanges so an operation never runs twice.
	flushMu  sync.Mutex
	mu       sync.Mutex
	state    state
	pending  []Operation
	handlers []func(ctx context.Context) error
}

func (u *unitOfWork) ID() string { return u.id }

func (u *unitOfWork) Options() Options { return u.options }

func (u *unitOfWork) DB() bun.IDB { return u.db }

func (u *unitOfWork) Outer() UnitOfWork { return u.outer }

func (u *unitOfWork) IsCompleted() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state != stateActive
}

func (u *unitOfWork) Enlist(op Operation) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state != stateActive {
		return ErrCompleted
	}
	u.pending = append(u.pending, op)
	return nil
}

func (u *unitOfWork) OnCompleted(fn func(ctx context.Context) error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.handlers = append(u.handlers, fn)
}

func (u *unitOfWork) SaveChanges(ctx context.Context) error {
	u.flushMu.Lock()
	defer u.flushMu.Unlock()

	flushed := 0
	for {
		u.mu.Lock()
		if u.state != stateActive {
			u.mu.Unlock()
			return ErrCompleted
		}
		if len(u.pending) == 0 {
			u.mu.Unlock()
			break
		}
		op := u.pending[0]
		u.mu.Unlock()

		if err := ctx.Err(); err != nil {
			return err
		}
		if err := op(ctx, u.db); err != nil {
			u.logger.WithField("uow", u.id).WithError(err).Debug("save changes failed")
			return err
		}

		u.mu.Lock()
		u.pending = u.pending[1:]
		u.mu.Unlock()
		flushed++
	}
	if flushed > 0 {
		u.logger.WithFields(logrus.Fields{"uow": u.id, "operations": flushed}).Debug("changes saved")
	}
	return nil
}

func (u *unitOfWork) Complete(ctx context.Context) error {
	if u.IsCompleted() {
		return ErrCompleted
	}
	if err := u.SaveChanges(ctx); err != nil {
		if rbErr := u.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			u.logger.WithField("uow", u.id).WithError(rbErr).Warn("rollback after failed save")
		}
		return err
	}

	if u.tx != nil {
		if err := u.tx.Commit(); err != nil {
			u.finish(stateRolledBack)
			return fmt.Errorf("commit unit of work %s: %w", u.id, err)
		}
	}
	handlers := u.finish(stateCompleted)
	u.logger.WithField("uow", u.id).Debug("unit of work completed")

	var errs []error
	for _, fn := range handlers {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.IsCompleted() {
		return nil
	}
	u.finish(stateRolledBack)
	u.logger.WithField("uow", u.id).Debug("unit of work rolled back")
	if u.tx == nil {
		return nil
	}
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback unit of work %s: %w", u.id, err)
	}
	return nil
}

func (u *unitOfWork) release() {
	if u.cancel != nil {
		u.cancel()
	}
}

// finish moves the unit of work out of the active state, drops queued
// operations and returns the completion handlers.
func (u *unitOfWork) finish(s state) []func(ctx context.Context) error {
	u.mu.Lock()
	u.state = s
	u.pending = nil
	handlers := u.handlers
	u.handlers = nil
	u.mu.Unlock()
	u.release()
	return handlers
}

// childUnitOfWork joins an enclosing unit of work. Only the outermost scope
// commits.
type childUnitOfWork struct {
	parent UnitOfWork

	mu   sync.Mutex
	done bool
}

func (c *childUnitOfWork) ID() string { return c.parent.ID() }

func (c *childUnitOfWork) Options() Options { return c.parent.Options() }

func (c *childUnitOfWork) DB() bun.IDB { return c.parent.DB() }

func (c *childUnitOfWork) Outer() UnitOfWork { return c.parent }

func (c *childUnitOfWork) Enlist(op Operation) error {
	if c.IsCompleted() {
		return ErrCompleted
	}
	return c.parent.Enlist(op)
}

func (c *childUnitOfWork) SaveChanges(ctx context.Context) error {
	if c.IsCompleted() {
		return ErrCompleted
	}
	return c.parent.SaveChanges(ctx)
}

func (c *childUnitOfWork) Complete(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return ErrCompleted
	}
	c.done = true
	return nil
}

func (c *childUnitOfWork) Rollback(ctx context.Context) error {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return nil
	}
	c.done = true
	c.mu.Unlock()
	return c.parent.Rollback(ctx)
}

func (c *childUnitOfWork) IsCompleted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done || c.parent.IsCompleted()
}

func (c *childUnitOfWork) OnCompleted(fn func(ctx context.Context) error) {
	c.parent.OnCompleted(fn)
}
