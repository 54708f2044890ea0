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

package authlib

import (
	"context"
	"sync"

	"github.com/tomoncle/authlib/database"
	"github.com/tomoncle/authlib/repository"
	"github.com/tomoncle/authlib/types"
	"github.com/uptrace/bun"
)

type Service[T any] interface {
	// Get returns a single entity by its identifier.
	Get(ctx context.Context, id any) (*T, error)

	// Find returns the entities matching opts; no match is a NotFound error.
	Find(ctx context.Context, opts ...repository.QueryOption) ([]*T, error)

	// Page returns a paginated list of entities.
	Page(ctx context.Context, page *types.PageRequest, opts ...repository.QueryOption) (*types.Pagination[T], error)

	// Count returns the number of entities matching opts.
	Count(ctx context.Context, opts ...repository.QueryOption) (int, error)

	// Save inserts a new entity and returns it with generated columns set.
	Save(ctx context.Context, model *T) (*T, error)

	// SaveOrUpdate upserts entities on conflictColumns.
	SaveOrUpdate(ctx context.Context, conflictColumns []string, updateColumns []string, model ...*T) error

	// Update applies a partial update given as a map or struct payload.
	Update(ctx context.Context, model *T, in any) (*T, error)

	// UpdateByID loads the entity and applies a partial update.
	UpdateByID(ctx context.Context, id any, in any) (*T, error)

	// Delete removes an entity by its identifier.
	Delete(ctx context.Context, id any) error

	// Transaction runs fn with a repository bound to one transaction.
	Transaction(ctx context.Context, fn func(ctx context.Context, repo *repository.BaseRepository[T]) error) error

	// SelectBuilder returns a bun select query bound to the entity.
	SelectBuilder() *bun.SelectQuery
}

type baseServiceImpl[T any] struct {
	db   bun.IDB
	repo *repository.BaseRepository[T]
	once sync.Once
}

// NewService returns a Service backed by the global database connection,
// resolved on first use so it may be created before database.InitDB.
func NewService[T any]() Service[T] {
	return &baseServiceImpl[T]{}
}

// NewServiceWithDB returns a Service bound to db.
func NewServiceWithDB[T any](db bun.IDB) Service[T] {
	return &baseServiceImpl[T]{db: db}
}

func (s *baseServiceImpl[T]) baseRepo() *repository.BaseRepository[T] {
	s.once.Do(func() {
		db := s.db
		if db == nil {
			db = database.GetDB()
		}
		s.repo = repository.NewBaseRepository[T](db)
	})
	return s.repo
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id any) (*T, error) {
	return s.baseRepo().GetByID(ctx, id)
}

func (s *baseServiceImpl[T]) Find(ctx context.Context, opts ...repository.QueryOption) ([]*T, error) {
	return s.baseRepo().Get(ctx, opts...)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, page *types.PageRequest, opts ...repository.QueryOption) (*types.Pagination[T], error) {
	return s.baseRepo().Page(ctx, page, opts...)
}

func (s *baseServiceImpl[T]) Count(ctx context.Context, opts ...repository.QueryOption) (int, error) {
	return s.baseRepo().Count(ctx, opts...)
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, model *T) (*T, error) {
	return s.baseRepo().Create(ctx, model)
}

func (s *baseServiceImpl[T]) SaveOrUpdate(ctx context.Context, conflictColumns []string, updateColumns []string, model ...*T) error {
	return s.baseRepo().Upsert(ctx, conflictColumns, updateColumns, model...)
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, model *T, in any) (*T, error) {
	return s.baseRepo().Update(ctx, model, in)
}

func (s *baseServiceImpl[T]) UpdateByID(ctx context.Context, id any, in any) (*T, error) {
	return s.baseRepo().UpdateByID(ctx, id, in)
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id any) error {
	return s.baseRepo().DeleteByID(ctx, id)
}

func (s *baseServiceImpl[T]) Transaction(ctx context.Context, fn func(ctx context.Context, repo *repository.BaseRepository[T]) error) error {
	return s.baseRepo().RunInTx(ctx, fn)
}

func (s *baseServiceImpl[T]) SelectBuilder() *bun.SelectQuery {
	return s.baseRepo().NewSelect()
}
