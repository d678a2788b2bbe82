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

package uow_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/tomoncle/hummer-ddd/uow"
)

type note struct {
	bun.BaseModel `bun:"table:notes"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Body string `bun:"body"`
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	sqldb, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.NewCreateTable().Model((*note)(nil)).IfNotExists().Exec(context.Background())
	require.NoError(t, err)
	return db
}

func insertNote(body string) uow.Operation {
	return func(ctx context.Context, db bun.IDB) error {
		_, err := db.NewInsert().Model(&note{Body: body}).Exec(ctx)
		return err
	}
}

func countNotes(t *testing.T, db *bun.DB) int {
	t.Helper()
	n, err := db.NewSelect().Model((*note)(nil)).Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestSaveChanges_RunsOperationsInOrder(t *testing.T) {
	m := uow.NewManager(nil)
	ctx, u, err := m.Begin(context.Background(), uow.Options{})
	require.NoError(t, err)
	assert.Nil(t, u.DB())

	var seen []int
	for i := 1; i <= 3; i++ {
		i := i
		require.NoError(t, u.Enlist(func(context.Context, bun.IDB) error {
			seen = append(seen, i)
			return nil
		}))
	}
	require.NoError(t, u.SaveChanges(ctx))
	assert.Equal(t, []int{1, 2, 3}, seen)

	require.NoError(t, u.SaveChanges(ctx))
	assert.Equal(t, []int{1, 2, 3}, seen, "flushed operations must not run again")
}

func TestSaveChanges_FailureKeepsRemainingOperations(t *testing.T) {
	m := uow.NewManager(nil)
	ctx, u, err := m.Begin(context.Background(), uow.Options{})
	require.NoError(t, err)

	boom := errors.New("boom")
	fail := true
	var seen []string
	require.NoError(t, u.Enlist(func(context.Context, bun.IDB) error { seen = append(seen, "a"); return nil }))
	require.NoError(t, u.Enlist(func(context.Context, bun.IDB) error {
		if fail {
			return boom
		}
		seen = append(seen, "b")
		return nil
	}))
	require.NoError(t, u.Enlist(func(context.Context, bun.IDB) error { seen = append(seen, "c"); return nil }))

	assert.ErrorIs(t, u.SaveChanges(ctx), boom)
	assert.Equal(t, []string{"a"}, seen)

	fail = false
	require.NoError(t, u.SaveChanges(ctx))
	assert.Equal(t, []string{"a", "b", "c"}, seen)
}

func TestSaveChanges_ObservesCancellation(t *testing.T) {
	m := uow.NewManager(nil)
	ctx, u, err := m.Begin(context.Background(), uow.Options{})
	require.NoError(t, err)

	ran := false
	require.NoError(t, u.Enlist(func(context.Context, bun.IDB) error { ran = true; return nil }))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, u.SaveChanges(cancelled), context.Canceled)
	assert.False(t, ran)
}

func TestComplete_CommitsTransaction(t *testing.T) {
	db := newTestDB(t)
	m := uow.NewManager(db)

	err := uow.Do(context.Background(), m, uow.DefaultOptions(), func(ctx context.Context) error {
		u := m.Current(ctx)
		require.NotNil(t, u)
		require.NoError(t, u.Enlist(insertNote("first")))
		return u.Enlist(insertNote("second"))
	})
	require.NoError(t, err)
	assert.Equal(t, 2, countNotes(t, db))
}

func TestRollback_DiscardsSavedAndPendingChanges(t *testing.T) {
	db := newTestDB(t)
	m := uow.NewManager(db)
	failure := errors.New("business rule violated")

	err := uow.Do(context.Background(), m, uow.DefaultOptions(), func(ctx context.Context) error {
		u := m.Current(ctx)
		require.NoError(t, u.Enlist(insertNote("saved in tx")))
		require.NoError(t, u.SaveChanges(ctx))
		require.NoError(t, u.Enlist(insertNote("never saved")))
		return failure
	})
	assert.ErrorIs(t, err, failure)
	assert.Equal(t, 0, countNotes(t, db))
}

func TestDo_RollsBackOnPanic(t *testing.T) {
	db := newTestDB(t)
	m := uow.NewManager(db)

	var captured uow.UnitOfWork
	assert.Panics(t, func() {
		_ = uow.Do(context.Background(), m, uow.DefaultOptions(), func(ctx context.Context) error {
			captured = m.Current(ctx)
			_ = captured.Enlist(insertNote("lost"))
			_ = captured.SaveChanges(ctx)
			panic("kaboom")
		})
	})
	require.NotNil(t, captured)
	assert.True(t, captured.IsCompleted())
	assert.Equal(t, 0, countNotes(t, db))
}

func TestCompletedUnitOfWorkRejectsUse(t *testing.T) {
	m := uow.NewManager(nil)
	ctx, u, err := m.Begin(context.Background(), uow.Options{})
	require.NoError(t, err)
	require.NoError(t, u.Complete(ctx))

	assert.True(t, u.IsCompleted())
	assert.ErrorIs(t, u.Enlist(insertNote("late")), uow.ErrCompleted)
	assert.ErrorIs(t, u.SaveChanges(ctx), uow.ErrCompleted)
	assert.ErrorIs(t, u.Complete(ctx), uow.ErrCompleted)
	assert.NoError(t, u.Rollback(ctx))
	assert.Nil(t, m.Current(ctx))
}

func TestOnCompletedRunsAfterCommit(t *testing.T) {
	db := newTestDB(t)
	m := uow.NewManager(db)

	var rowsAtCompletion int
	err := uow.Do(context.Background(), m, uow.DefaultOptions(), func(ctx context.Context) error {
		u := m.Current(ctx)
		u.OnCompleted(func(ctx context.Context) error {
			n, err := db.NewSelect().Model((*note)(nil)).Count(ctx)
			rowsAtCompletion = n
			return err
		})
		return u.Enlist(insertNote("committed"))
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rowsAtCompletion)
}

func TestNestedBeginJoinsOuterUnitOfWork(t *testing.T) {
	m := uow.NewManager(nil)
	outerCtx, outer, err := m.Begin(context.Background(), uow.Options{})
	require.NoError(t, err)

	innerCtx, inner, err := m.Begin(outerCtx, uow.Options{})
	require.NoError(t, err)
	assert.Equal(t, outer.ID(), inner.ID())
	assert.Equal(t, outer, inner.Outer())

	ran := false
	require.NoError(t, inner.Enlist(func(context.Context, bun.IDB) error { ran = true; return nil }))
	require.NoError(t, inner.Complete(innerCtx))
	assert.False(t, ran, "a joined unit of work does not flush on Complete")
	assert.False(t, outer.IsCompleted())
	assert.Equal(t, outer, m.Current(innerCtx))

	require.NoError(t, outer.Complete(outerCtx))
	assert.True(t, ran)
	assert.Nil(t, m.Current(innerCtx))
}

func TestRequiresNewStartsIndependentUnitOfWork(t *testing.T) {
	m := uow.NewManager(nil)
	outerCtx, outer, err := m.Begin(context.Background(), uow.Options{})
	require.NoError(t, err)

	innerCtx, inner, err := m.Begin(outerCtx, uow.Options{RequiresNew: true})
	require.NoError(t, err)
	assert.NotEqual(t, outer.ID(), inner.ID())
	assert.Equal(t, inner, m.Current(innerCtx))

	require.NoError(t, inner.Rollback(innerCtx))
	assert.False(t, outer.IsCompleted())
	assert.Equal(t, outer, m.Current(innerCtx))
}

func TestTransactionalRequiresDatabase(t *testing.T) {
	m := uow.NewManager(nil)
	_, _, err := m.Begin(context.Background(), uow.DefaultOptions())
	assert.ErrorIs(t, err, uow.ErrNoDatabase)
}

func TestTimeoutBoundsUnitOfWork(t *testing.T) {
	m := uow.NewManager(nil)
	ctx, u, err := m.Begin(context.Background(), uow.Options{Timeout: time.Minute})
	require.NoError(t, err)

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)

	require.NoError(t, u.Complete(ctx))
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestCurrentWithoutUnitOfWork(t *testing.T) {
	assert.Nil(t, uow.Current(context.Background()))
	_, ok := uow.FromContext(context.Background())
	assert.False(t, ok)
}
