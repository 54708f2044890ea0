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
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/uptrace/bun"
)

// Direction is the sort direction of an Order.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// Order sorts by one column.
type Order struct {
	Field     string
	Direction Direction
}

func Asc(field string) Order  { return Order{Field: field, Direction: Ascending} }
func Desc(field string) Order { return Order{Field: field, Direction: Descending} }

// ParseOrder reads "name" as ascending and "-name" as descending.
func ParseOrder(s string) Order {
	s = strings.TrimSpace(s)
	if field, ok := strings.CutPrefix(s, "-"); ok {
		return Desc(field)
	}
	return Asc(s)
}

type condition struct {
	field string
	value any
}

// Query collects the constraints passed to Get, Count, Exists and Page.
type Query struct {
	conditions []condition
	orders     []Order
	limit      int
}

// QueryOption adds a constraint to a Query.
type QueryOption func(*Query)

// WithSearch requires every field of search to equal its value. A nil value
// matches NULL.
func WithSearch(search map[string]any) QueryOption {
	return func(q *Query) {
		keys := lo.Keys(search)
		sort.Strings(keys)
		for _, k := range keys {
			q.conditions = append(q.conditions, condition{field: k, value: search[k]})
		}
	}
}

// Where requires field to equal value.
func Where(field string, value any) QueryOption {
	return func(q *Query) {
		q.conditions = append(q.conditions, condition{field: field, value: value})
	}
}

// WithSorting sorts by the given fields, e.g. WithSorting("-created_at", "id").
func WithSorting(fields ...string) QueryOption {
	return func(q *Query) {
		q.orders = append(q.orders, lo.Map(fields, func(f string, _ int) Order { return ParseOrder(f) })...)
	}
}

func OrderBy(orders ...Order) QueryOption {
	return func(q *Query) {
		q.orders = append(q.orders, orders...)
	}
}

// Limit caps the number of rows returned by Get.
func Limit(n int) QueryOption {
	return func(q *Query) {
		q.limit = n
	}
}

func newQuery(opts []QueryOption) *Query {
	q := &Query{}
	for _, opt := range opts {
		if opt != nil {
			opt(q)
		}
	}
	return q
}

// fields returns every field the query references.
func (q *Query) fields() []string {
	out := lo.Map(q.conditions, func(c condition, _ int) string { return c.field })
	return append(out, lo.Map(q.orders, func(o Order, _ int) string { return o.Field })...)
}

func (q *Query) applyWhere(sq *bun.SelectQuery) *bun.SelectQuery {
	for _, c := range q.conditions {
		if c.value == nil {
			sq = sq.Where("?TableAlias.? IS NULL", bun.Ident(c.field))
			continue
		}
		sq = sq.Where("?TableAlias.? = ?", bun.Ident(c.field), c.value)
	}
	return sq
}

// applyOrder sorts by the requested fields, or by pks when none were given
// so that results are stable.
func (q *Query) applyOrder(sq *bun.SelectQuery, pks []string) *bun.SelectQuery {
	orders := q.orders
	if len(orders) == 0 {
		orders = lo.Map(pks, func(pk string, _ int) Order { return Asc(pk) })
	}
	for _, o := range orders {
		if o.Direction == Descending {
			sq = sq.OrderExpr("?TableAlias.? DESC", bun.Ident(o.Field))
		} else {
			sq = sq.OrderExpr("?TableAlias.? ASC", bun.Ident(o.Field))
		}
	}
	return sq
}
