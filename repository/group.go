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

	"github.com/tomoncle/authlib/models"
	"github.com/uptrace/bun"
)

var _ Repository[models.Group] = (*GroupRepository)(nil)

type GroupRepository struct {
	*BaseRepository[models.Group]
}

func NewGroupRepository(db bun.IDB) *GroupRepository {
	return &GroupRepository{BaseRepository: NewBaseRepository[models.Group](db)}
}

// WithTx returns a copy of the repository bound to idb.
func (r *GroupRepository) WithTx(idb bun.IDB) *GroupRepository {
	return &GroupRepository{BaseRepository: r.BaseRepository.WithTx(idb)}
}

// GetByName returns the group with the given unique name.
func (r *GroupRepository) GetByName(ctx context.Context, name string) (*models.Group, error) {
	groups, err := r.Get(ctx, Where("name", name), Limit(1))
	if err != nil {
		return nil, err
	}
	return groups[0], nil
}
