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
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/code19m/errx"
	"github.com/samber/lo"
	"github.com/tomoncle/authlib/database"
	"github.com/tomoncle/authlib/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"
)

const updatedAtColumn = "updated_at"

// BaseRepository implements Repository for any bun model T. It holds no
// per-call state and is safe for concurrent use.
type BaseRepository[T any] struct {
	db     bun.IDB
	table  *schema.Table
	name   string
	fields []string
	pks    []string
	logger database.Logger
}

// NewBaseRepository binds a repository for T to db, which may be a *bun.DB
// or a bun.Tx. It panics when T is not a struct model with a primary key.
func NewBaseRepository[T any](db bun.IDB) *BaseRepository[T] {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Kind() != reflect.Struct {
		panic(fmt.Errorf("repository: %s is not a struct model", typ))
	}

	table := db.Dialect().Tables().Get(typ)
	if len(table.PKs) == 0 {
		panic(fmt.Errorf("repository: model %s has no primary key", typ))
	}

	fields := lo.Map(table.Fields, func(f *schema.Field, _ int) string { return f.Name })
	sort.Strings(fields)

	return &BaseRepository[T]{
		db:     db,
		table:  table,
		name:   typ.Name(),
		fields: fields,
		pks:    lo.Map(table.PKs, func(f *schema.Field, _ int) string { return f.Name }),
		logger: database.GetLogger(),
	}
}

// DB returns the session the repository is bound to.
func (r *BaseRepository[T]) DB() bun.IDB { return r.db }

func (r *BaseRepository[T]) Dialect() schema.Dialect { return r.db.Dialect() }

func (r *BaseRepository[T]) Table() *schema.Table { return r.table }

// Fields returns the known column names, sorted.
func (r *BaseRepository[T]) Fields() []string {
	return append([]string(nil), r.fields...)
}

// SetLogger replaces the logger used for debug output.
func (r *BaseRepository[T]) SetLogger(logger database.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// NewSelect returns a select query bound to T.
func (r *BaseRepository[T]) NewSelect() *bun.SelectQuery {
	return r.db.NewSelect().Model((*T)(nil))
}

func (r *BaseRepository[T]) NewInsert() *bun.InsertQuery { return r.db.NewInsert() }

func (r *BaseRepository[T]) NewUpdate() *bun.UpdateQuery { return r.db.NewUpdate() }

func (r *BaseRepository[T]) NewDelete() *bun.DeleteQuery { return r.db.NewDelete() }

// WithTx returns a copy of the repository bound to idb.
func (r *BaseRepository[T]) WithTx(idb bun.IDB) *BaseRepository[T] {
	cp := *r
	cp.db = idb
	return &cp
}

// RunInTx runs fn with a repository bound to a new transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (r *BaseRepository[T]) RunInTx(ctx context.Context, fn func(ctx context.Context, repo *BaseRepository[T]) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, r.WithTx(tx))
	})
}

func (r *BaseRepository[T]) GetByID(ctx context.Context, id any) (*T, error) {
	if len(r.pks) != 1 {
		return nil, newInvalidQuery(r.name, "GetByID needs a single primary key, %s has %d", r.name, len(r.pks))
	}

	entity := new(T)
	q := r.db.NewSelect().Model(entity).
		Where("?TableAlias.? = ?", bun.Ident(r.pks[0]), id).
		Limit(1)
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			d := r.queryDetails(q)
			d[r.pks[0]] = id
			return nil, newNotFound(r.name, d)
		}
		return nil, errx.Wrap(err, errx.WithDetails(r.queryDetails(q)))
	}
	return entity, nil
}

// Get returns the rows matching every condition in opts. No match is a
// NotFound error.
func (r *BaseRepository[T]) Get(ctx context.Context, opts ...QueryOption) ([]*T, error) {
	query, err := r.buildQuery(opts)
	if err != nil {
		return nil, err
	}

	var entities []*T
	q := r.db.NewSelect().Model(&entities)
	q = query.applyWhere(q)
	q = query.applyOrder(q, r.pks)
	if query.limit > 0 {
		q = q.Limit(query.limit)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(r.queryDetails(q)))
	}
	if len(entities) == 0 {
		return nil, newNotFound(r.name, r.queryDetails(q))
	}
	return entities, nil
}

// Count returns the number of rows matching the conditions in opts.
func (r *BaseRepository[T]) Count(ctx context.Context, opts ...QueryOption) (int, error) {
	query, err := r.buildQuery(opts)
	if err != nil {
		return 0, err
	}

	q := query.applyWhere(r.NewSelect())
	count, err := q.Count(ctx)
	if err != nil {
		return 0, errx.Wrap(err, errx.WithDetails(r.queryDetails(q)))
	}
	return count, nil
}

func (r *BaseRepository[T]) Exists(ctx context.Context, opts ...QueryOption) (bool, error) {
	query, err := r.buildQuery(opts)
	if err != nil {
		return false, err
	}

	q := query.applyWhere(r.NewSelect())
	exists, err := q.Exists(ctx)
	if err != nil {
		return false, errx.Wrap(err, errx.WithDetails(r.queryDetails(q)))
	}
	return exists, nil
}

// Page returns one page of the matching rows. An empty page is not an error.
func (r *BaseRepository[T]) Page(ctx context.Context, req *types.PageRequest, opts ...QueryOption) (*types.Pagination[T], error) {
	query, err := r.buildQuery(opts)
	if err != nil {
		return nil, err
	}

	countQuery := query.applyWhere(r.NewSelect())
	total, err := countQuery.Count(ctx)
	if err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(r.queryDetails(countQuery)))
	}
	if total == 0 || req.GetOffset() >= total {
		return types.NewPagination[T](req, total, nil), nil
	}

	var entities []*T
	q := r.db.NewSelect().Model(&entities)
	q = query.applyWhere(q)
	q = query.applyOrder(q, r.pks)
	q = q.Offset(req.GetOffset()).Limit(req.GetPageSize())
	if err := q.Scan(ctx); err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(r.queryDetails(q)))
	}
	return types.NewPagination(req, total, entities), nil
}

// Create inserts entity and fills in generated columns such as the id.
func (r *BaseRepository[T]) Create(ctx context.Context, entity *T) (*T, error) {
	q := r.db.NewInsert().Model(entity)
	if r.db.Dialect().Features().Has(feature.InsertReturning) {
		q = q.Returning("*")
	}
	if _, err := q.Exec(ctx); err != nil {
		return nil, r.writeError(err, q)
	}
	r.logger.Debug("Entity created", "entity", r.name, "op", "create")
	return entity, nil
}

// Update writes the fields present in in to entity and persists only those
// columns, plus updated_at when T has it. in is a map keyed by column name,
// a struct payload with json tags, or a T whose non-zero columns other than
// the primary key are applied. An empty payload is a no-op.
func (r *BaseRepository[T]) Update(ctx context.Context, entity *T, in any) (*T, error) {
	values, err := r.payloadValues(in)
	if err != nil {
		return nil, err
	}

	updated := *entity
	changes, err := changesFor(r.table, r.name, reflect.ValueOf(&updated).Elem(), values)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return entity, nil
	}

	columns := make([]string, 0, len(changes)+1)
	for _, c := range changes {
		c.dst.Set(c.value)
		columns = append(columns, c.column)
	}
	if _, ok := r.table.FieldMap[updatedAtColumn]; ok && !lo.Contains(columns, updatedAtColumn) {
		columns = append(columns, updatedAtColumn)
	}

	q := r.db.NewUpdate().Model(&updated).Column(columns...).WherePK()
	if _, err := q.Exec(ctx); err != nil {
		return nil, r.writeError(err, q)
	}

	*entity = updated
	r.logger.Debug("Entity updated", "entity", r.name, "op", "update", "columns", columns)
	return entity, nil
}

// payloadValues reads a T payload through the bun table, so its embedded
// bun.BaseModel and column names need no json tags.
func (r *BaseRepository[T]) payloadValues(in any) (map[string]any, error) {
	var model *T
	switch p := in.(type) {
	case T:
		model = &p
	case *T:
		model = p
	}
	if model == nil {
		return decodePayload(r.name, in)
	}

	strct := reflect.ValueOf(model).Elem()
	values := make(map[string]any, len(r.table.Fields))
	for _, f := range r.table.Fields {
		if f.IsPK {
			continue
		}
		if v := f.Value(strct); !v.IsZero() {
			values[f.Name] = v.Interface()
		}
	}
	return values, nil
}

func (r *BaseRepository[T]) UpdateByID(ctx context.Context, id any, in any) (*T, error) {
	entity, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.Update(ctx, entity, in)
}

// Delete removes entity by primary key. It is a NotFound error when no row
// was deleted.
func (r *BaseRepository[T]) Delete(ctx context.Context, entity *T) error {
	q := r.db.NewDelete().Model(entity).WherePK()
	res, err := q.Exec(ctx)
	if err != nil {
		return errx.Wrap(err, errx.WithDetails(r.queryDetails(q)))
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return errx.Wrap(err, errx.WithDetails(r.queryDetails(q)))
	}
	if rows == 0 {
		return newNotFound(r.name, r.queryDetails(q))
	}
	r.logger.Debug("Entity deleted", "entity", r.name, "op", "delete")
	return nil
}

func (r *BaseRepository[T]) DeleteByID(ctx context.Context, id any) error {
	entity, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return r.Delete(ctx, entity)
}

// Upsert inserts entities, updating updateColumns of rows that conflict on
// conflictColumns. conflictColumns defaults to the primary key and is ignored
// by MySQL, which resolves conflicts on any unique key.
func (r *BaseRepository[T]) Upsert(ctx context.Context, conflictColumns []string, updateColumns []string, entities ...*T) error {
	if len(entities) == 0 {
		return nil
	}
	if len(updateColumns) == 0 {
		return newInvalidQuery(r.name, "upsert needs at least one column to update")
	}
	if len(conflictColumns) == 0 {
		conflictColumns = r.pks
	}
	if err := r.validateFields(append(append([]string(nil), conflictColumns...), updateColumns...)); err != nil {
		return err
	}

	q := r.db.NewInsert().Model(&entities)
	switch {
	case r.db.Dialect().Features().Has(feature.InsertOnConflict):
		q = q.On("CONFLICT (?) DO UPDATE", bun.In(idents(conflictColumns)))
		for _, c := range updateColumns {
			q = q.Set("? = EXCLUDED.?", bun.Ident(c), bun.Ident(c))
		}
	case r.db.Dialect().Features().Has(feature.InsertOnDuplicateKey):
		q = q.On("DUPLICATE KEY UPDATE")
		for _, c := range updateColumns {
			q = q.Set("? = VALUES(?)", bun.Ident(c), bun.Ident(c))
		}
	default:
		return r.upsertFallback(ctx, updateColumns, entities)
	}
	if r.db.Dialect().Features().Has(feature.InsertReturning) {
		q = q.Returning("*")
	}

	if _, err := q.Exec(ctx); err != nil {
		return r.writeError(err, q)
	}
	r.logger.Debug("Entities upserted", "entity", r.name, "op", "upsert", "count", len(entities))
	return nil
}

// upsertFallback inserts each entity and updates it by primary key when the
// insert conflicts.
func (r *BaseRepository[T]) upsertFallback(ctx context.Context, updateColumns []string, entities []*T) error {
	for _, entity := range entities {
		_, err := r.db.NewInsert().Model(entity).Exec(ctx)
		if err == nil {
			continue
		}
		if !database.IsDuplicateKey(err) {
			return errx.Wrap(err)
		}
		q := r.db.NewUpdate().Model(entity).Column(updateColumns...).WherePK()
		if _, err := q.Exec(ctx); err != nil {
			return r.writeError(err, q)
		}
	}
	return nil
}

func (r *BaseRepository[T]) buildQuery(opts []QueryOption) (*Query, error) {
	query := newQuery(opts)
	if err := r.validateFields(query.fields()); err != nil {
		return nil, err
	}
	return query, nil
}

func (r *BaseRepository[T]) validateFields(fields []string) error {
	for _, f := range fields {
		if _, ok := r.table.FieldMap[f]; !ok {
			return newInvalidQuery(r.name, "unknown field %q, known fields are %v", f, r.fields)
		}
	}
	return nil
}

// writeError maps unique key violations to AlreadyExists and wraps anything
// else.
func (r *BaseRepository[T]) writeError(err error, q fmt.Stringer) error {
	if database.IsDuplicateKey(err) {
		d := r.queryDetails(q)
		d["cause"] = err.Error()
		return newAlreadyExists(r.name, d)
	}
	return errx.Wrap(err, errx.WithDetails(r.queryDetails(q)))
}

// queryDetails describes a failed query for error details. bun's String()
// panics with the render error when a query cannot be built; the query text
// is then left out and the render error logged.
func (r *BaseRepository[T]) queryDetails(q fmt.Stringer) (d errx.D) {
	d = errx.D{"entity": r.name}
	if q == nil {
		return d
	}
	defer func() {
		if p := recover(); p != nil {
			r.logger.Debug("Query text unavailable", "entity", r.name, "error", p)
		}
	}()
	d["query"] = q.String()
	return d
}

func idents(columns []string) []bun.Ident {
	return lo.Map(columns, func(c string, _ int) bun.Ident { return bun.Ident(c) })
}
