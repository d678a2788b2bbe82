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

import "context"

type repositoryImpl[T any, K comparable] struct {
	*basicRepositoryImpl[T]
	keyed KeyedStorageAdapter[T, K]
}

// NewRepository returns a Repository persisting through adapter.
func NewRepository[T any, K comparable](adapter KeyedStorageAdapter[T, K], opts ...RepositoryOption) Repository[T, K] {
	return &repositoryImpl[T, K]{
		basicRepositoryImpl: newBasicRepositoryImpl[T](adapter, newSettings(opts)),
		keyed:               adapter,
	}
}

func (r *repositoryImpl[T, K]) Get(ctx context.Context, id K, opts ...Option) (*T, error) {
	entity, err := r.Find(ctx, id, opts...)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, NewEntityNotFoundError[T](id)
	}
	return entity, nil
}

func (r *repositoryImpl[T, K]) Find(ctx context.Context, id K, opts ...Option) (*T, error) {
	o := newCallOptions(true, opts)
	ctx, cancel := r.ResolveCancellation(ctx)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entity, err := r.keyed.Find(ctx, id, o.includeDetails)
	if err != nil {
		return nil, r.failed(ctx, err)
	}
	return entity, nil
}

func (r *repositoryImpl[T, K]) DeleteByID(ctx context.Context, id K, opts ...Option) error {
	o := newCallOptions(true, opts)
	ctx, cancel := r.ResolveCancellation(ctx)
	defer cancel()

	entity, err := r.Find(ctx, id)
	if err != nil {
		return err
	}
	if entity == nil {
		return nil
	}
	return r.Delete(ctx, entity, WithAutoSave(o.autoSave))
}
