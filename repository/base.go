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

package repository

import (
	"context"
	"fmt"
	"reflect"

	"github.com/sirupsen/logrus"

	"github.com/tomoncle/hummer-ddd/cancellation"
	"github.com/tomoncle/hummer-ddd/utils"
)

var defaultLogger = utils.NewLogger("REPOSITORY")

type basicRepositoryImpl[T any] struct {
	adapter       StorageAdapter[T]
	collaborators Collaborators
	logger        *logrus.Entry
}

// NewBasicRepository returns a BasicRepository persisting through adapter.
func NewBasicRepository[T any](adapter StorageAdapter[T], opts ...RepositoryOption) BasicRepository[T] {
	return newBasicRepositoryImpl[T](adapter, newSettings(opts))
}

func newBasicRepositoryImpl[T any](adapter StorageAdapter[T], s settings) *basicRepositoryImpl[T] {
	if aware, ok := adapter.(CollaboratorAware); ok {
		aware.BindCollaborators(s.collaborators)
	}
	return &basicRepositoryImpl[T]{
		adapter:       adapter,
		collaborators: s.collaborators,
		logger:        s.logger.WithField("entity", entityName(reflect.TypeOf((*T)(nil)).Elem())),
	}
}

func (r *basicRepositoryImpl[T]) ResolveCancellation(ctx context.Context) (context.Context, context.CancelFunc) {
	return cancellation.FallbackToProvider(r.collaborators.Cancellation, ctx)
}

func (r *basicRepositoryImpl[T]) SaveChanges(ctx context.Context) error {
	ctx, cancel := r.ResolveCancellation(ctx)
	defer cancel()
	return r.saveChanges(ctx)
}

// saveChanges expects an already resolved ctx.
func (r *basicRepositoryImpl[T]) saveChanges(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.collaborators.UnitOfWork == nil {
		return nil
	}
	current := r.collaborators.UnitOfWork.Current(ctx)
	if current == nil {
		return nil
	}
	return r.failed(ctx, current.SaveChanges(ctx))
}

// failed prefers the cancellation error over whatever the collaborator
// returned once ctx is done.
func (r *basicRepositoryImpl[T]) failed(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

func (r *basicRepositoryImpl[T]) afterWrite(ctx context.Context, o callOptions) error {
	if !o.autoSave {
		return nil
	}
	return r.saveChanges(ctx)
}

func (r *basicRepositoryImpl[T]) Insert(ctx context.Context, entity *T, opts ...Option) (*T, error) {
	o := newCallOptions(false, opts)
	ctx, cancel := r.ResolveCancellation(ctx)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inserted, err := r.adapter.Insert(ctx, entity)
	if err != nil {
		return nil, r.failed(ctx, err)
	}
	if err := r.afterWrite(ctx, o); err != nil {
		return nil, err
	}
	return inserted, nil
}

func (r *basicRepositoryImpl[T]) InsertMany(ctx context.Context, entities []*T, opts ...Option) error {
	o := newCallOptions(false, opts)
	ctx, cancel := r.ResolveCancellation(ctx)
	defer cancel()

	for i, entity := range entities {
		if _, err := r.Insert(ctx, entity); err != nil {
			r.logger.WithFields(logrus.Fields{"index": i, "total": len(entities)}).
				WithError(err).Debug("insert many aborted")
			return err
		}
	}
	return r.afterWrite(ctx, o)
}

func (r *basicRepositoryImpl[T]) Update(ctx context.Context, entity *T, opts ...Option) (*T, error) {
	o := newCallOptions(false, opts)
	ctx, cancel := r.ResolveCancellation(ctx)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	updated, err := r.adapter.Update(ctx, entity)
	if err != nil {
		return nil, r.failed(ctx, err)
	}
	if err := r.afterWrite(ctx, o); err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *basicRepositoryImpl[T]) Delete(ctx context.Context, entity *T, opts ...Option) error {
	o := newCallOptions(false, opts)
	ctx, cancel := r.ResolveCancellation(ctx)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := r.adapter.Delete(ctx, entity); err != nil {
		return r.failed(ctx, err)
	}
	return r.afterWrite(ctx, o)
}

func (r *basicRepositoryImpl[T]) GetList(ctx context.Context, opts ...Option) ([]*T, error) {
	o := newCallOptions(false, opts)
	ctx, cancel := r.ResolveCancellation(ctx)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entities, err := r.adapter.GetList(ctx, o.includeDetails)
	if err != nil {
		return nil, r.failed(ctx, err)
	}
	return entities, nil
}

func (r *basicRepositoryImpl[T]) GetCount(ctx context.Context) (int64, error) {
	ctx, cancel := r.ResolveCancellation(ctx)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count, err := r.adapter.GetCount(ctx)
	if err != nil {
		return 0, r.failed(ctx, err)
	}
	return count, nil
}

func (r *basicRepositoryImpl[T]) GetPagedList(ctx context.Context, skipCount, maxResultCount int, sorting string, opts ...Option) ([]*T, error) {
	if skipCount < 0 || maxResultCount < 0 {
		return nil, fmt.Errorf("%w: skipCount=%d, maxResultCount=%d", ErrInvalidPaging, skipCount, maxResultCount)
	}
	o := newCallOptions(false, opts)
	ctx, cancel := r.ResolveCancellation(ctx)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entities, err := r.adapter.GetPagedList(ctx, skipCount, maxResultCount, sorting, o.includeDetails)
	if err != nil {
		return nil, r.failed(ctx, err)
	}
	return entities, nil
}
