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

// Package memstore is a storage adapter keeping entities in process memory.
// Writes join the current unit of work like the SQL adapter's do, so code
// under test behaves the same against either store.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/uptrace/bun"

	"github.com/tomoncle/hummer-ddd/repository"
	"github.com/tomoncle/hummer-ddd/uow"
)

// ErrNoKey is returned for entities that do not implement repository.Entity.
var ErrNoKey = errors.New("memstore: entity does not expose a key")

// Store keeps *T values keyed by their GetID. Listing follows insertion order.
type Store[T any, K comparable] struct {
	mu    sync.RWMutex
	rows  map[K]*T
	order []K

	collaborators repository.Collaborators
}

// New returns an empty store.
func New[T any, K comparable]() *Store[T, K] {
	return &Store[T, K]{
		rows: make(map[K]*T),
		collaborators: repository.Collaborators{
			UnitOfWork:    uow.ContextProvider,
			DataFilter:    repository.NewDataFilter(),
			CurrentTenant: repository.ContextTenant,
		},
	}
}

func (s *Store[T, K]) BindCollaborators(c repository.Collaborators) {
	s.collaborators = c
}

func (s *Store[T, K]) Insert(ctx context.Context, entity *T) (*T, error) {
	id, err := keyOf[T, K](entity)
	if err != nil {
		return nil, err
	}
	if mt, ok := any(entity).(repository.MultiTenant); ok && mt.GetTenantID() == "" {
		if tenantID, ok := s.tenant(ctx); ok {
			mt.SetTenantID(tenantID)
		}
	}
	return entity, s.write(ctx, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, exists := s.rows[id]; exists {
			return fmt.Errorf("memstore: duplicate key %v", id)
		}
		s.rows[id] = entity
		s.order = append(s.order, id)
		return nil
	})
}

func (s *Store[T, K]) Update(ctx context.Context, entity *T) (*T, error) {
	id, err := keyOf[T, K](entity)
	if err != nil {
		return nil, err
	}
	return entity, s.write(ctx, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, exists := s.rows[id]; !exists {
			return repository.NewEntityNotFoundError[T](id)
		}
		s.rows[id] = entity
		return nil
	})
}

// Delete flags soft deletable entities and removes the others. Deleting a
// missing entity does nothing.
func (s *Store[T, K]) Delete(ctx context.Context, entity *T) error {
	id, err := keyOf[T, K](entity)
	if err != nil {
		return err
	}
	return s.write(ctx, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		stored, exists := s.rows[id]
		if !exists {
			return nil
		}
		if sd, ok := any(stored).(repository.SoftDeletable); ok {
			sd.SetDeleted(true)
			return nil
		}
		delete(s.rows, id)
		for i, k := range s.order {
			if k == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		return nil
	})
}

func (s *Store[T, K]) Find(ctx context.Context, id K, _ bool) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entity, ok := s.rows[id]
	if !ok || !s.visible(ctx, entity) {
		return nil, nil
	}
	return entity, nil
}

func (s *Store[T, K]) GetList(ctx context.Context, _ bool) ([]*T, error) {
	return s.visibleRows(ctx), nil
}

func (s *Store[T, K]) GetCount(ctx context.Context) (int64, error) {
	return int64(len(s.visibleRows(ctx))), nil
}

// GetPagedList ignores sorting.
func (s *Store[T, K]) GetPagedList(ctx context.Context, skipCount, maxResultCount int, _ string, _ bool) ([]*T, error) {
	rows := s.visibleRows(ctx)
	if skipCount >= len(rows) {
		return []*T{}, nil
	}
	end := len(rows)
	if maxResultCount < end-skipCount {
		end = skipCount + maxResultCount
	}
	return rows[skipCount:end], nil
}

func (s *Store[T, K]) visibleRows(ctx context.Context) []*T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*T, 0, len(s.order))
	for _, id := range s.order {
		if entity := s.rows[id]; s.visible(ctx, entity) {
			out = append(out, entity)
		}
	}
	return out
}

func (s *Store[T, K]) visible(ctx context.Context, entity *T) bool {
	if sd, ok := any(entity).(repository.SoftDeletable); ok && sd.IsDeleted() &&
		s.filterEnabled(ctx, repository.SoftDeleteFilter) {
		return false
	}
	if mt, ok := any(entity).(repository.MultiTenant); ok && s.filterEnabled(ctx, repository.MultiTenantFilter) {
		tenantID, _ := s.tenant(ctx)
		return mt.GetTenantID() == tenantID
	}
	return true
}

func (s *Store[T, K]) filterEnabled(ctx context.Context, name string) bool {
	return s.collaborators.DataFilter == nil || s.collaborators.DataFilter.IsEnabled(ctx, name)
}

func (s *Store[T, K]) tenant(ctx context.Context) (string, bool) {
	if s.collaborators.CurrentTenant == nil {
		return "", false
	}
	return s.collaborators.CurrentTenant.TenantID(ctx)
}

// write enlists apply in the current unit of work, or runs it right away.
func (s *Store[T, K]) write(ctx context.Context, apply func() error) error {
	if s.collaborators.UnitOfWork != nil {
		if u := s.collaborators.UnitOfWork.Current(ctx); u != nil {
			return u.Enlist(func(context.Context, bun.IDB) error { return apply() })
		}
	}
	return apply()
}

func keyOf[T any, K comparable](entity *T) (K, error) {
	var zero K
	if entity == nil {
		return zero, ErrNoKey
	}
	e, ok := any(entity).(repository.Entity[K])
	if !ok {
		return zero, ErrNoKey
	}
	return e.GetID(), nil
}
