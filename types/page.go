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

package types

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 1000
)

// PageRequest selects one page of a result set. Values below 1 fall back to
// the defaults and PageSize is capped at MaxPageSize.
type PageRequest struct {
	Page     int `json:"page" mapstructure:"page"`
	PageSize int `json:"page_size" mapstructure:"page_size"`
}

// NewPageRequest constructs a PageRequest.
func NewPageRequest(page int, pageSize int) *PageRequest {
	return &PageRequest{Page: page, PageSize: pageSize}
}

func (p *PageRequest) GetPageSize() int {
	switch {
	case p == nil || p.PageSize < 1:
		return DefaultPageSize
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	}
	return p.PageSize
}

func (p *PageRequest) GetPage() int {
	if p == nil || p.Page < 1 {
		return DefaultPage
	}
	return p.Page
}

func (p *PageRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// Pagination holds paged result items along with pagination metadata.
type Pagination[T any] struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	Total    int  `json:"total"`
	Items    []*T `json:"items"`
}

// NewPagination constructs a pagination container for req.
func NewPagination[T any](req *PageRequest, total int, items []*T) *Pagination[T] {
	if items == nil {
		items = make([]*T, 0)
	}
	return &Pagination[T]{
		Page:     req.GetPage(),
		PageSize: req.GetPageSize(),
		Total:    total,
		Items:    items,
	}
}

// TotalPages is at least 1, even for an empty result.
func (p *Pagination[T]) TotalPages() int {
	if p.PageSize < 1 || p.Total == 0 {
		return 1
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

func (p *Pagination[T]) HasNext() bool {
	return p.Page < p.TotalPages()
}
