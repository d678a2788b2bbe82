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

package hummer

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"github.com/tomoncle/hummer-ddd/repository"
	"github.com/tomoncle/hummer-ddd/repository/bunstore"
	"github.com/tomoncle/hummer-ddd/types"
	"github.com/tomoncle/hummer-ddd/uow"
	"github.com/tomoncle/hummer-ddd/utils"
)

var serviceLogger = utils.NewLogger("SERVICE")

// CrudService is the application service over one entity type. Every call
// runs in its own unit of work, or joins the one already in ctx.
type CrudService[T any, K comparable] interface {
	// Get returns the entity with id or a repository.EntityNotFoundError.
	Get(ctx context.Context, id K) (*T, error)

	// List returns one page of entities and the total count.
	List(ctx context.Context, req types.PagedRequest) (*types.PagedResult[T], error)

	// Create inserts entity and saves it so generated keys are set on return.
	Create(ctx context.Context, entity *T) (*T, error)

	// Update replaces the stored entity with the same key. A missing entity
	// is a repository.EntityNotFoundError. The key is read through
	// repository.Entity[K] or, for services built by NewService, from the
	// model's primary key. Entities of a NewCrudService whose key cannot be
	// read are updated without the existence check.
	Update(ctx context.Context, entity *T) (*T, error)

	// Delete removes the entity with id. A missing entity is not an error.
	Delete(ctx context.Context, id K) error
}

type ServiceOption func(*serviceSettings)

type serviceSettings struct {
	uowOptions uow.Options
	logger     *logrus.Logger
	storeOpts  []bunstore.Option
	repoOpts   []repository.RepositoryOption
}

// WithUnitOfWorkOptions sets the options of the unit of work each call
// starts. The default is a transaction.
func WithUnitOfWorkOptions(opts uow.Options) ServiceOption {
	return func(s *serviceSettings) { s.uowOptions = opts }
}

func WithServiceLogger(l *logrus.Logger) ServiceOption {
	return func(s *serviceSettings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStoreOptions configures the bunstore adapter built by NewService.
func WithStoreOptions(opts ...bunstore.Option) ServiceOption {
	return func(s *serviceSettings) { s.storeOpts = append(s.storeOpts, opts...) }
}

// WithRepositoryOptions configures the repository built by NewService.
func WithRepositoryOptions(opts ...repository.RepositoryOption) ServiceOption {
	return func(s *serviceSettings) { s.repoOpts = append(s.repoOpts, opts...) }
}

func newServiceSettings(opts []ServiceOption) serviceSettings {
	s := serviceSettings{uowOptions: uow.DefaultOptions(), logger: serviceLogger}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

type crudServiceImpl[T any, K comparable] struct {
	repo     repository.Repository[T, K]
	manager  uow.Manager
	settings serviceSettings
	// keyOf reads keys of entities that do not implement repository.Entity.
	keyOf func(*T) (K, error)
}

// NewCrudService returns a CrudService over repo whose units of work are
// started by manager.
func NewCrudService[T any, K comparable](repo repository.Repository[T, K], manager uow.Manager, opts ...ServiceOption) CrudService[T, K] {
	return &crudServiceImpl[T, K]{repo: repo, manager: manager, settings: newServiceSettings(opts)}
}

// NewService wires a CrudService for a Bun model: a bunstore repository and
// a unit of work manager on db.
func NewService[T any, K comparable](db *bun.DB, opts ...ServiceOption) CrudService[T, K] {
	s := newServiceSettings(opts)
	store := bunstore.New[T, K](db, s.storeOpts...)
	repo := repository.NewRepository[T, K](store, s.repoOpts...)
	return &crudServiceImpl[T, K]{repo: repo, manager: uow.NewManager(db), settings: s, keyOf: store.KeyOf}
}

func (s *crudServiceImpl[T, K]) do(ctx context.Context, action string, fn func(ctx context.Context) error) error {
	err := uow.Do(ctx, s.manager, s.settings.uowOptions, fn)
	if err != nil && !repository.IsEntityNotFound(err) {
		s.settings.logger.WithField("action", action).WithError(err).Debug("service call failed")
	}
	return err
}

func (s *crudServiceImpl[T, K]) Get(ctx context.Context, id K) (*T, error) {
	var entity *T
	err := s.do(ctx, "get", func(ctx context.Context) (err error) {
		entity, err = s.repo.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

func (s *crudServiceImpl[T, K]) List(ctx context.Context, req types.PagedRequest) (*types.PagedResult[T], error) {
	req = req.Normalize()
	var result *types.PagedResult[T]
	err := s.do(ctx, "list", func(ctx context.Context) error {
		total, err := s.repo.GetCount(ctx)
		if err != nil {
			return err
		}
		if total == 0 || int64(req.SkipCount) >= total {
			result = types.NewPagedResult[T](total, nil)
			return nil
		}
		items, err := s.repo.GetPagedList(ctx, req.SkipCount, req.MaxResultCount, req.Sorting)
		if err != nil {
			return err
		}
		result = types.NewPagedResult(total, items)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *crudServiceImpl[T, K]) Create(ctx context.Context, entity *T) (*T, error) {
	var created *T
	err := s.do(ctx, "create", func(ctx context.Context) (err error) {
		created, err = s.repo.Insert(ctx, entity, repository.WithAutoSave(true))
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// key returns the key Update checks, or false when it cannot be read.
func (s *crudServiceImpl[T, K]) key(entity *T) (K, bool, error) {
	if keyed, ok := any(entity).(repository.Entity[K]); ok && entity != nil {
		return keyed.GetID(), true, nil
	}
	if s.keyOf == nil {
		var zero K
		return zero, false, nil
	}
	id, err := s.keyOf(entity)
	if err != nil {
		return id, false, err
	}
	return id, true, nil
}

func (s *crudServiceImpl[T, K]) Update(ctx context.Context, entity *T) (*T, error) {
	id, checked, err := s.key(entity)
	if err != nil {
		return nil, err
	}
	var updated *T
	err = s.do(ctx, "update", func(ctx context.Context) (err error) {
		if checked {
			if _, err := s.repo.Get(ctx, id, repository.WithIncludeDetails(false)); err != nil {
				return err
			}
		}
		updated, err = s.repo.Update(ctx, entity, repository.WithAutoSave(true))
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *crudServiceImpl[T, K]) Delete(ctx context.Context, id K) error {
	return s.do(ctx, "delete", func(ctx context.Context) error {
		return s.repo.DeleteByID(ctx, id, repository.WithAutoSave(true))
	})
}
