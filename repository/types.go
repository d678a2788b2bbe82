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

	"github.com/tomoncle/hummer-ddd/cancellation"
	"github.com/tomoncle/hummer-ddd/uow"
)

// Entity is an object identified by a key of type K.
type Entity[K comparable] interface {
	GetID() K
}

// MultiTenant is implemented by entities that belong to a tenant.
type MultiTenant interface {
	GetTenantID() string
	SetTenantID(tenantID string)
}

// SoftDeletable is implemented by entities that are flagged instead of
// removed. Adapters hide flagged entities while SoftDeleteFilter is enabled.
type SoftDeletable interface {
	IsDeleted() bool
	SetDeleted(deleted bool)
}

// StorageAdapter is the persistence capability a BasicRepository delegates to.
// Implementations buffer writes in the current unit of work when there is one.
type StorageAdapter[T any] interface {
	Insert(ctx context.Context, entity *T) (*T, error)
	Update(ctx context.Context, entity *T) (*T, error)
	Delete(ctx context.Context, entity *T) error
	GetList(ctx context.Context, includeDetails bool) ([]*T, error)
	GetCount(ctx context.Context) (int64, error)
	// GetPagedList interprets sorting with adapter specific syntax.
	GetPagedList(ctx context.Context, skipCount, maxResultCount int, sorting string, includeDetails bool) ([]*T, error)
}

// KeyedStorageAdapter adds key lookups. Find returns (nil, nil) when no
// entity has the key.
type KeyedStorageAdapter[T any, K comparable] interface {
	StorageAdapter[T]
	Find(ctx context.Context, id K, includeDetails bool) (*T, error)
}

// Collaborators are the services injected into a repository. The repository
// itself only uses UnitOfWork and Cancellation; adapters may consult the rest.
type Collaborators struct {
	UnitOfWork    uow.Provider
	Cancellation  cancellation.Provider
	DataFilter    DataFilter
	CurrentTenant CurrentTenant
}

// CollaboratorAware adapters receive the repository's collaborators when the
// repository is constructed.
type CollaboratorAware interface {
	BindCollaborators(c Collaborators)
}

// BasicRepository exposes operations that do not address entities by key.
type BasicRepository[T any] interface {
	Insert(ctx context.Context, entity *T, opts ...Option) (*T, error)

	// InsertMany inserts entities one after another without saving and, when
	// auto-save is requested, saves once after the last insert. The first
	// failing insert stops the batch.
	InsertMany(ctx context.Context, entities []*T, opts ...Option) error

	Update(ctx context.Context, entity *T, opts ...Option) (*T, error)

	Delete(ctx context.Context, entity *T, opts ...Option) error

	// GetList loads every entity. Details are not included by default.
	GetList(ctx context.Context, opts ...Option) ([]*T, error)

	GetCount(ctx context.Context) (int64, error)

	// GetPagedList loads a page of entities. Details are not included by default.
	GetPagedList(ctx context.Context, skipCount, maxResultCount int, sorting string, opts ...Option) ([]*T, error)

	// SaveChanges flushes the current unit of work; without one it does nothing.
	SaveChanges(ctx context.Context) error

	// ResolveCancellation returns the context operations observe. See
	// cancellation.FallbackToProvider.
	ResolveCancellation(ctx context.Context) (context.Context, context.CancelFunc)
}

// Repository adds key-addressed operations to BasicRepository.
type Repository[T any, K comparable] interface {
	BasicRepository[T]

	// Get returns the entity with id or an *EntityNotFoundError. Details are
	// included by default.
	Get(ctx context.Context, id K, opts ...Option) (*T, error)

	// Find returns the entity with id, or nil when there is none. Details are
	// included by default.
	Find(ctx context.Context, id K, opts ...Option) (*T, error)

	// DeleteByID deletes the entity with id. A missing entity is not an error.
	DeleteByID(ctx context.Context, id K, opts ...Option) error
}
