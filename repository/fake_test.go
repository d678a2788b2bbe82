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

package repository_test

import (
	"context"
	"errors"
	"sync"

	"github.com/uptrace/bun"

	"github.com/tomoncle/hummer-ddd/repository"
	"github.com/tomoncle/hummer-ddd/uow"
)

type widget struct {
	ID   int
	Name string
}

func (w *widget) GetID() int { return w.ID }

// fakeAdapter keeps committed rows in a map and buffers writes in the current
// unit of work, like the real adapters do.
type fakeAdapter struct {
	mu      sync.Mutex
	rows    map[int]*widget
	calls   []string
	fail    map[string]error
	details []bool
	bound   *repository.Collaborators
	lastCtx context.Context
	// interrupt runs inside every call before its error is returned.
	interrupt func()
}

func newFakeAdapter(rows ...*widget) *fakeAdapter {
	a := &fakeAdapter{rows: map[int]*widget{}, fail: map[string]error{}}
	for _, w := range rows {
		a.rows[w.ID] = w
	}
	return a
}

func (a *fakeAdapter) BindCollaborators(c repository.Collaborators) { a.bound = &c }

func (a *fakeAdapter) record(ctx context.Context, call string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, call)
	a.lastCtx = ctx
	if a.interrupt != nil {
		a.interrupt()
	}
	return a.fail[call]
}

func (a *fakeAdapter) write(ctx context.Context, apply func()) error {
	if u := uow.Current(ctx); u != nil {
		return u.Enlist(func(context.Context, bun.IDB) error {
			a.mu.Lock()
			defer a.mu.Unlock()
			apply()
			return nil
		})
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	apply()
	return nil
}

func (a *fakeAdapter) has(id int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.rows[id]
	return ok
}

func (a *fakeAdapter) callsOf(prefix string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, c := range a.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (a *fakeAdapter) Insert(ctx context.Context, entity *widget) (*widget, error) {
	if err := a.record(ctx, "insert:"+entity.Name); err != nil {
		return nil, err
	}
	return entity, a.write(ctx, func() { a.rows[entity.ID] = entity })
}

func (a *fakeAdapter) Update(ctx context.Context, entity *widget) (*widget, error) {
	if err := a.record(ctx, "update:"+entity.Name); err != nil {
		return nil, err
	}
	return entity, a.write(ctx, func() { a.rows[entity.ID] = entity })
}

func (a *fakeAdapter) Delete(ctx context.Context, entity *widget) error {
	if err := a.record(ctx, "delete:"+entity.Name); err != nil {
		return err
	}
	return a.write(ctx, func() { delete(a.rows, entity.ID) })
}

func (a *fakeAdapter) GetList(ctx context.Context, includeDetails bool) ([]*widget, error) {
	if err := a.record(ctx, "list"); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.details = append(a.details, includeDetails)
	out := make([]*widget, 0, len(a.rows))
	for _, w := range a.rows {
		out = append(out, w)
	}
	return out, nil
}

func (a *fakeAdapter) GetCount(ctx context.Context) (int64, error) {
	if err := a.record(ctx, "count"); err != nil {
		return 0, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return int64(len(a.rows)), nil
}

func (a *fakeAdapter) GetPagedList(ctx context.Context, skipCount, maxResultCount int, sorting string, includeDetails bool) ([]*widget, error) {
	if err := a.record(ctx, "page:"+sorting); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.details = append(a.details, includeDetails)
	return []*widget{}, nil
}

func (a *fakeAdapter) Find(ctx context.Context, id int, includeDetails bool) (*widget, error) {
	if err := a.record(ctx, "find"); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.details = append(a.details, includeDetails)
	return a.rows[id], nil
}

func (a *fakeAdapter) lastDetails() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.details[len(a.details)-1]
}

// countingUnitOfWork counts SaveChanges calls of a real unit of work.
type countingUnitOfWork struct {
	uow.UnitOfWork
	mu      sync.Mutex
	saves   int
	saveErr error
	onSave  func()
}

func (c *countingUnitOfWork) SaveChanges(ctx context.Context) error {
	c.mu.Lock()
	c.saves++
	saveErr, onSave := c.saveErr, c.onSave
	c.mu.Unlock()
	if onSave != nil {
		onSave()
	}
	if saveErr != nil {
		return saveErr
	}
	return c.UnitOfWork.SaveChanges(ctx)
}

func (c *countingUnitOfWork) Saves() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves
}

// beginCounting starts a non-transactional unit of work wrapped in a counter
// and returns a context carrying the wrapper.
func beginCounting() (context.Context, *countingUnitOfWork) {
	ctx, u, err := uow.NewManager(nil).Begin(context.Background(), uow.Options{})
	if err != nil {
		panic(err)
	}
	counting := &countingUnitOfWork{UnitOfWork: u}
	return uow.WithCurrent(ctx, counting), counting
}

var errStorage = errors.New("storage failure")
