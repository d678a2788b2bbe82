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
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"github.com/tomoncle/hummer-ddd/utils"
)

var defaultLogger = utils.NewLogger("UOW")

type ManagerOption func(*manager)

// WithLogger replaces the package logger for units of work started by the manager.
func WithLogger(l *logrus.Logger) ManagerOption {
	return func(m *manager) {
		if l != nil {
			m.logger = l
		}
	}
}

type manager struct {
	db     *bun.DB
	logger *logrus.Logger
}

// NewManager returns a Manager whose units of work run against db. A nil db
// only supports non-transactional units of work, which is enough for storage
// that does not need a database handle.
func NewManager(db *bun.DB, opts ...ManagerOption) Manager {
	m := &manager{db: db, logger: defaultLogger}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *manager) Current(ctx context.Context) UnitOfWork {
	return Current(ctx)
}

func (m *manager) Begin(ctx context.Context, opts Options) (context.Context, UnitOfWork, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	outer := m.Current(ctx)
	if outer != nil && !opts.RequiresNew {
		child := &childUnitOfWork{parent: outer}
		return WithCurrent(ctx, child), child, nil
	}

	u := &unitOfWork{
		id:      uuid.NewString(),
		options: opts,
		outer:   outer,
		logger:  m.logger,
	}
	if opts.Timeout > 0 {
		ctx, u.cancel = context.WithTimeout(ctx, opts.Timeout)
	}

	switch {
	case opts.IsTransactional && m.db == nil:
		u.release()
		return nil, nil, ErrNoDatabase
	case opts.IsTransactional:
		tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: opts.IsolationLevel})
		if err != nil {
			u.release()
			return nil, nil, fmt.Errorf("begin unit of work: %w", err)
		}
		u.tx = &tx
		u.db = u.tx
	case m.db != nil:
		u.db = m.db
	}

	m.logger.WithFields(logrus.Fields{
		"uow":           u.id,
		"transactional": opts.IsTransactional,
		"nested":        outer != nil,
	}).Debug("unit of work started")
	return WithCurrent(ctx, u), u, nil
}
