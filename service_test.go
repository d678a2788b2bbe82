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

package hummer_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	hummer "github.com/tomoncle/hummer-ddd"
	"github.com/tomoncle/hummer-ddd/database"
	"github.com/tomoncle/hummer-ddd/repository"
	"github.com/tomoncle/hummer-ddd/repository/memstore"
	"github.com/tomoncle/hummer-ddd/types"
	"github.com/tomoncle/hummer-ddd/uow"
)

type Product struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID    int64                 `bun:"id,pk,autoincrement" json:"id"`
	Name  string                `bun:"name,notnull" json:"name"`
	Price int64                 `bun:"price" json:"price"`
	Extra types.ExtraProperties `bun:"extra_properties,type:text" json:"extra_properties"`
}

func (p *Product) GetID() int64 { return p.ID }

// Category is a plain Bun model without a GetID method.
type Category struct {
	bun.BaseModel `bun:"table:categories,alias:c"`

	Code  string `bun:"code,pk" json:"code"`
	Title string `bun:"title" json:"title"`
}

func openDB(t *testing.T) *bun.DB {
	t.Helper()
	registry := database.NewModelRegistry()
	registry.Register(database.NewModel((*Product)(nil), 0))
	registry.Register(database.NewModel((*Category)(nil), 0))

	conn := database.DefaultConnectionConfig()
	conn.Type = "sqlite"
	conn.DBName = fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn.MaxOpenConns = 1
	conn.MaxIdleConns = 1
	conn.HealthCheckInterval = 0

	factory, err := database.Open(context.Background(),
		&database.Config{Connection: *conn, CreateTables: true},
		database.WithModelRegistry(registry),
		database.WithFactoryLogger(database.NopLogger))
	require.NoError(t, err)
	t.Cleanup(func() { _ = factory.Close() })
	return factory.GetDB()
}

func TestCrudService(t *testing.T) {
	service := hummer.NewService[Product, int64](openDB(t))
	ctx := context.Background()

	created, err := service.Create(ctx, &Product{
		Name:  "keyboard",
		Price: 120,
		Extra: types.ExtraProperties{"layout": "ansi"},
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	found, err := service.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "keyboard", found.Name)
	assert.Equal(t, "ansi", found.Extra.String("layout"))

	found.Price = 99
	_, err = service.Update(ctx, found)
	require.NoError(t, err)
	found, err = service.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(99), found.Price)

	_, err = service.Update(ctx, &Product{ID: 404, Name: "ghost"})
	assert.True(t, repository.IsEntityNotFound(err))

	require.NoError(t, service.Delete(ctx, created.ID))
	require.NoError(t, service.Delete(ctx, created.ID))
	_, err = service.Get(ctx, created.ID)
	assert.ErrorIs(t, err, repository.ErrEntityNotFound)
}

func TestCrudServiceUpdateChecksPrimaryKey(t *testing.T) {
	service := hummer.NewService[Category, string](openDB(t))
	ctx := context.Background()

	_, err := service.Update(ctx, &Category{Code: "missing", Title: "ghost"})
	require.Error(t, err)
	assert.True(t, repository.IsEntityNotFound(err))
	_, err = service.Get(ctx, "missing")
	assert.True(t, repository.IsEntityNotFound(err))

	_, err = service.Create(ctx, &Category{Code: "books", Title: "Books"})
	require.NoError(t, err)
	_, err = service.Update(ctx, &Category{Code: "books", Title: "Paper books"})
	require.NoError(t, err)
	found, err := service.Get(ctx, "books")
	require.NoError(t, err)
	assert.Equal(t, "Paper books", found.Title)
}

func TestCrudServiceList(t *testing.T) {
	service := hummer.NewService[Product, int64](openDB(t))
	ctx := context.Background()
	for _, name := range []string{"e", "d", "c", "b", "a"} {
		_, err := service.Create(ctx, &Product{Name: name})
		require.NoError(t, err)
	}

	page, err := service.List(ctx, types.NewPagedRequest(2, 2, "name"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.TotalCount)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "c", page.Items[0].Name)
	assert.Equal(t, "d", page.Items[1].Name)

	page, err = service.List(ctx, types.PagedRequest{SkipCount: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.TotalCount)
	assert.Empty(t, page.Items)

	_, err = service.List(ctx, types.PagedRequest{Sorting: "price; drop"})
	assert.Error(t, err)
}

func TestCrudServiceJoinsOuterUnitOfWork(t *testing.T) {
	db := openDB(t)
	service := hummer.NewService[Product, int64](db)
	m := uow.NewManager(db)

	ctx, outer, err := m.Begin(context.Background(), uow.DefaultOptions())
	require.NoError(t, err)
	created, err := service.Create(ctx, &Product{Name: "draft"})
	require.NoError(t, err)

	_, err = service.Get(ctx, created.ID)
	require.NoError(t, err, "visible inside the outer transaction")

	require.NoError(t, outer.Rollback(ctx))
	_, err = service.Get(context.Background(), created.ID)
	assert.True(t, repository.IsEntityNotFound(err))
}

type Tag struct {
	Name string
}

func (t *Tag) GetID() string { return t.Name }

func TestCrudServiceInMemory(t *testing.T) {
	repo := repository.NewRepository[Tag, string](memstore.New[Tag, string]())
	service := hummer.NewCrudService[Tag, string](repo, uow.NewManager(nil),
		hummer.WithUnitOfWorkOptions(uow.Options{}))
	ctx := context.Background()

	_, err := service.Create(ctx, &Tag{Name: "go"})
	require.NoError(t, err)
	page, err := service.List(ctx, types.PagedRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.TotalCount)

	_, err = hummer.NewCrudService[Tag, string](repo, uow.NewManager(nil)).Get(ctx, "go")
	assert.ErrorIs(t, err, uow.ErrNoDatabase)
}
