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
	DefaultMaxResultCount = 10
	MaxMaxResultCount     = 1000
)

// PagedRequest selects a page by offset and size and orders it with an
// adapter specific sorting expression such as "name desc, id".
type PagedRequest struct {
	SkipCount      int    `json:"skipCount" yaml:"skip_count"`
	MaxResultCount int    `json:"maxResultCount" yaml:"max_result_count"`
	Sorting        string `json:"sorting,omitempty" yaml:"sorting"`
}

// NewPagedRequest builds a request from a 1-based page number and size.
func NewPagedRequest(page, pageSize int, sorting string) PagedRequest {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultMaxResultCount
	}
	return PagedRequest{
		SkipCount:      (page - 1) * pageSize,
		MaxResultCount: pageSize,
		Sorting:        sorting,
	}
}

// Normalize clamps negative offsets to zero and the size into
// [1, MaxMaxResultCount], using DefaultMaxResultCount when it is unset.
func (p PagedRequest) Normalize() PagedRequest {
	if p.SkipCount < 0 {
		p.SkipCount = 0
	}
	switch {
	case p.MaxResultCount <= 0:
		p.MaxResultCount = DefaultMaxResultCount
	case p.MaxResultCount > MaxMaxResultCount:
		p.MaxResultCount = MaxMaxResultCount
	}
	return p
}

// Page is the 1-based page number the request starts on.
func (p PagedRequest) Page() int {
	n := p.Normalize()
	return n.SkipCount/n.MaxResultCount + 1
}

// PagedResult is one page of items and the number of items on all pages.
type PagedResult[T any] struct {
	TotalCount int64 `json:"totalCount"`
	Items      []*T  `json:"items"`
}

// NewPagedResult never returns a nil Items slice.
func NewPagedResult[T any](total int64, items []*T) *PagedResult[T] {
	if items == nil {
		items = make([]*T, 0)
	}
	return &PagedResult[T]{TotalCount: total, Items: items}
}
