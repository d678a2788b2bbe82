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

package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"

	"github.com/tomoncle/hummer-ddd/repository"
	"github.com/tomoncle/hummer-ddd/uow"
)

var (
	ErrInvalidSorting = errors.New("bunstore: invalid sorting")
	ErrCompositeKey   = errors.New("bunstore: model must have exactly one primary key")
)

// Option configures a Store.
type Option func(*options)

type options struct {
	details      []string
	tenantColumn string
}

// WithDetails names the relations loaded when details are requested.
func WithDetails(relations ...string) Option {
	return func(o *options) { o.details = append(o.details, relations...) }
}

// WithTenantColumn overrides the tenant column of MultiTenant models.
// The default is tenant_id.
func WithTenantColumn(column string) Option {
	return func(o *options) { o.tenantColumn = column }
}

// Store persists *T rows with Bun. K is the type of the model's single
// primary key column.
type Store[T any, K comparable] struct {
	db      *bun.DB
	table   *schema.Table
	options options

	collaborators repository.Collaborators
}

// New returns a Store for model T on db.
func New[T any, K comparable](db *bun.DB, opts ...Option) *Store[T, K] {
	o := options{tenantColumn: "tenant_id"}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[T, K]{
		db:      db,
		table:   db.Table(reflect.TypeOf((*T)(nil)).Elem()),
		options: o,
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
	if mt, ok := any(entity).(repository.MultiTenant); ok && mt.GetTenantID() == "" {
		if tenantID, ok := s.tenant(ctx); ok {
			mt.SetTenantID(tenantID)
		}
	}
	return entity, s.write(ctx, func(ctx context.Context, db bun.IDB) error {
		_, err := db.NewInsert().Model(entity).Exec(ctx)
		return err
	})
}

func (s *Store[T, K]) Update(ctx context.Context, entity *T) (*T, error) {
	return entity, s.write(ctx, func(ctx context.Context, db bun.IDB) error {
		_, err := db.NewUpdate().Model(entity).WherePK().Exec(ctx)
		return err
	})
}

// Delete soft deletes models with a soft_delete column and removes the rest.
func (s *Store[T, K]) Delete(ctx context.Context, entity *T) error {
	return s.write(ctx, func(ctx context.Context, db bun.IDB) error {
		_, err := db.NewDelete().Model(entity).WherePK().Exec(ctx)
		return err
	})
}

// Upsert inserts entities or updates fields of the rows they conflict with.
// conflictKeys defaults to id and is ignored by MySQL, which resolves
// conflicts on any unique key.
func (s *Store[T, K]) Upsert(ctx context.Context, fields, conflictKeys []string, entities ...*T) error {
	if len(fields) == 0 {
		return fmt.Errorf("bunstore: upsert fields cannot be empty")
	}
	rows := make([]*T, len(entities))
	copy(rows, entities)
	return s.write(ctx, func(ctx context.Context, db bun.IDB) error {
		switch {
		case s.db.HasFeature(feature.InsertOnConflict):
			return upsertOnConflict(ctx, db, fields, conflictKeys, rows)
		case s.db.HasFeature(feature.InsertOnDuplicateKey):
			return upsertOnDuplicateKey(ctx, db, fields, rows)
		default:
			return upsertFallback(ctx, db, rows)
		}
	})
}

func upsertOnDuplicateKey[T any](ctx context.Context, db bun.IDB, fields []string, rows []*T) error {
	set := make([]string, 0, len(fields))
	for _, field := range fields {
		set = append(set, fmt.Sprintf("%s = VALUES(%s)", field, field))
	}
	_, err := db.NewInsert().
		Model(&rows).
		On("DUPLICATE KEY UPDATE " + strings.Join(set, ", ")).
		Exec(ctx)
	return err
}

func upsertOnConflict[T any](ctx context.Context, db bun.IDB, fields, conflictKeys []string, rows []*T) error {
	if len(conflictKeys) == 0 {
		conflictKeys = []string{"id"}
	}
	set := make([]string, 0, len(fields))
	for _, field := range fields {
		set = append(set, fmt.Sprintf("%s = EXCLUDED.%s", field, field))
	}
	_, err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (" + strings.Join(conflictKeys, ",") + ") DO UPDATE").
		Set(strings.Join(set, ", ")).
		Exec(ctx)
	return err
}

func upsertFallback[T any](ctx context.Context, db bun.IDB, rows []*T) error {
	for _, row := range rows {
		if _, err := db.NewInsert().Model(row).Exec(ctx); err != nil {
			if _, updateErr := db.NewUpdate().Model(row).WherePK().Exec(ctx); updateErr != nil {
				return fmt.Errorf("upsert failed: insert error: %v, update error: %v", err, updateErr)
			}
		}
	}
	return nil
}

// Find returns nil when no visible row has id.
// KeyOf returns the primary key value of entity.
func (s *Store[T, K]) KeyOf(entity *T) (K, error) {
	var zero K
	if len(s.table.PKs) != 1 {
		return zero, ErrCompositeKey
	}
	if entity == nil {
		return zero, fmt.Errorf("bunstore: nil %s", s.table.Type.Name())
	}
	pk := s.table.PKs[0]
	v := pk.Value(reflect.ValueOf(entity).Elem())
	id, ok := v.Interface().(K)
	if !ok {
		return zero, fmt.Errorf("bunstore: primary key %s is %s, not %T", pk.GoName, v.Type(), zero)
	}
	return id, nil
}

func (s *Store[T, K]) Find(ctx context.Context, id K, includeDetails bool) (*T, error) {
	if len(s.table.PKs) != 1 {
		return nil, ErrCompositeKey
	}
	entity := new(T)
	q, err := s.selectQuery(ctx, entity, includeDetails)
	if err != nil {
		return nil, err
	}
	err = q.Where("?TableAlias.? = ?", bun.Ident(s.table.PKs[0].Name), id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entity, nil
}

func (s *Store[T, K]) GetList(ctx context.Context, includeDetails bool) ([]*T, error) {
	entities := make([]*T, 0)
	q, err := s.selectQuery(ctx, &entities, includeDetails)
	if err != nil {
		return nil, err
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return entities, nil
}

func (s *Store[T, K]) GetCount(ctx context.Context) (int64, error) {
	q, err := s.selectQuery(ctx, (*T)(nil), false)
	if err != nil {
		return 0, err
	}
	count, err := q.Count(ctx)
	return int64(count), err
}

// GetPagedList orders by sorting, a comma separated list of "column [asc|desc]"
// items naming model columns or Go fields. Without sorting rows are ordered
// by primary key.
func (s *Store[T, K]) GetPagedList(ctx context.Context, skipCount, maxResultCount int, sorting string, includeDetails bool) ([]*T, error) {
	entities := make([]*T, 0)
	if maxResultCount == 0 {
		return entities, nil
	}
	q, err := s.selectQuery(ctx, &entities, includeDetails)
	if err != nil {
		return nil, err
	}
	if err := s.applySorting(q, sorting); err != nil {
		return nil, err
	}
	if err := q.Offset(skipCount).Limit(maxResultCount).Scan(ctx); err != nil {
		return nil, err
	}
	return entities, nil
}

func (s *Store[T, K]) selectQuery(ctx context.Context, model any, includeDetails bool) (*bun.SelectQuery, error) {
	q := s.idb(ctx).NewSelect().Model(model)
	if includeDetails {
		for _, name := range s.options.details {
			if _, ok := s.table.Relations[name]; !ok {
				return nil, fmt.Errorf("bunstore: %s has no relation %q", s.table.Type.Name(), name)
			}
			q = q.Relation(name)
		}
	}
	if s.table.SoftDeleteField != nil && !s.filterEnabled(ctx, repository.SoftDeleteFilter) {
		q = q.WhereAllWithDeleted()
	}
	if s.isMultiTenant() && s.filterEnabled(ctx, repository.MultiTenantFilter) {
		tenantID, _ := s.tenant(ctx)
		q = q.Where("?TableAlias.? = ?", bun.Ident(s.options.tenantColumn), tenantID)
	}
	return q, nil
}

func (s *Store[T, K]) applySorting(q *bun.SelectQuery, sorting string) error {
	if strings.TrimSpace(sorting) == "" {
		for _, pk := range s.table.PKs {
			q.OrderExpr("?TableAlias.? ASC", bun.Ident(pk.Name))
		}
		return nil
	}
	for _, item := range strings.Split(sorting, ",") {
		parts := strings.Fields(item)
		if len(parts) == 0 || len(parts) > 2 {
			return fmt.Errorf("%w: %q", ErrInvalidSorting, item)
		}
		field := s.lookupField(parts[0])
		if field == nil {
			return fmt.Errorf("%w: unknown column %q", ErrInvalidSorting, parts[0])
		}
		direction := "ASC"
		if len(parts) == 2 {
			switch strings.ToUpper(parts[1]) {
			case "ASC":
			case "DESC":
				direction = "DESC"
			default:
				return fmt.Errorf("%w: direction %q", ErrInvalidSorting, parts[1])
			}
		}
		q.OrderExpr("?TableAlias.? "+direction, bun.Ident(field.Name))
	}
	return nil
}

func (s *Store[T, K]) lookupField(name string) *schema.Field {
	if f, ok := s.table.FieldMap[name]; ok {
		return f
	}
	for _, f := range s.table.Fields {
		if strings.EqualFold(f.GoName, name) {
			return f
		}
	}
	return nil
}

func (s *Store[T, K]) isMultiTenant() bool {
	_, ok := any((*T)(nil)).(repository.MultiTenant)
	return ok
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

func (s *Store[T, K]) current(ctx context.Context) uow.UnitOfWork {
	if s.collaborators.UnitOfWork == nil {
		return nil
	}
	return s.collaborators.UnitOfWork.Current(ctx)
}

// idb is the handle reads run on: the current unit of work's when it has one.
func (s *Store[T, K]) idb(ctx context.Context) bun.IDB {
	if u := s.current(ctx); u != nil && u.DB() != nil {
		return u.DB()
	}
	return s.db
}

func (s *Store[T, K]) write(ctx context.Context, op uow.Operation) error {
	if u := s.current(ctx); u != nil {
		return u.Enlist(func(ctx context.Context, db bun.IDB) error {
			if db == nil {
				db = s.db
			}
			return op(ctx, db)
		})
	}
	return op(ctx, s.db)
}
