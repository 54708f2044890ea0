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

	"github.com/tomoncle/authlib/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// CrudRepository defines the CRUD operations for an entity type T.
type CrudRepository[T any] interface {
	GetByID(ctx context.Context, id any) (*T, error)

	Get(ctx context.Context, opts ...QueryOption) ([]*T, error)

	Create(ctx context.Context, entity *T) (*T, error)

	Update(ctx context.Context, entity *T, in any) (*T, error)

	UpdateByID(ctx context.Context, id any, in any) (*T, error)

	Delete(ctx context.Context, entity *T) error

	DeleteByID(ctx context.Context, id any) error

	Count(ctx context.Context, opts ...QueryOption) (int, error)
}

// QueryRepository defines read helpers beyond plain CRUD.
type QueryRepository[T any] interface {
	Exists(ctx context.Context, opts ...QueryOption) (bool, error)
	Page(ctx context.Context, req *types.PageRequest, opts ...QueryOption) (*types.Pagination[T], error)
	Upsert(ctx context.Context, conflictColumns []string, updateColumns []string, entities ...*T) error
}

// Repository combines CRUD and query operations and exposes bun query
// builders for advanced use cases.
type Repository[T any] interface {
	CrudRepository[T]
	QueryRepository[T]
	Fields() []string
	Dialect() schema.Dialect
	NewSelect() *bun.SelectQuery
	NewInsert() *bun.InsertQuery
	NewUpdate() *bun.UpdateQuery
	NewDelete() *bun.DeleteQuery
}
