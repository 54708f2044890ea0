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

	"github.com/code19m/errx"
	"github.com/tomoncle/authlib/models"
	"github.com/uptrace/bun"
)

var _ Repository[models.UserGroup] = (*UserGroupRepository)(nil)

// UserGroupRepository manages group memberships.
type UserGroupRepository struct {
	*BaseRepository[models.UserGroup]
}

func NewUserGroupRepository(db bun.IDB) *UserGroupRepository {
	return &UserGroupRepository{BaseRepository: NewBaseRepository[models.UserGroup](db)}
}

// WithTx returns a copy of the repository bound to idb.
func (r *UserGroupRepository) WithTx(idb bun.IDB) *UserGroupRepository {
	return &UserGroupRepository{BaseRepository: r.BaseRepository.WithTx(idb)}
}

// AddUserToGroup creates a membership. Adding the same pair twice is an
// AlreadyExists error.
func (r *UserGroupRepository) AddUserToGroup(ctx context.Context, userID, groupID int64) (*models.UserGroup, error) {
	return r.Create(ctx, &models.UserGroup{UserID: userID, GroupID: groupID})
}

// RemoveUserFromGroup deletes a membership, or returns NotFound.
func (r *UserGroupRepository) RemoveUserFromGroup(ctx context.Context, userID, groupID int64) error {
	memberships, err := r.Get(ctx, Where("user_id", userID), Where("group_id", groupID), Limit(1))
	if err != nil {
		return err
	}
	return r.Delete(ctx, memberships[0])
}

// GroupsOfUser returns the groups userID belongs to, ascending by id. A user
// without groups yields an empty slice.
func (r *UserGroupRepository) GroupsOfUser(ctx context.Context, userID int64) ([]*models.Group, error) {
	groups := make([]*models.Group, 0)
	q := r.DB().NewSelect().Model(&groups).
		Join("JOIN user_groups AS ug ON ug.group_id = ?TableAlias.id").
		Where("ug.user_id = ?", userID).
		OrderExpr("?TableAlias.id ASC")
	if err := q.Scan(ctx); err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(r.queryDetails(q)))
	}
	return groups, nil
}

// UsersOfGroup returns the members of groupID, ascending by id.
func (r *UserGroupRepository) UsersOfGroup(ctx context.Context, groupID int64) ([]*models.User, error) {
	users := make([]*models.User, 0)
	q := r.DB().NewSelect().Model(&users).
		Join("JOIN user_groups AS ug ON ug.user_id = ?TableAlias.id").
		Where("ug.group_id = ?", groupID).
		OrderExpr("?TableAlias.id ASC")
	if err := q.Scan(ctx); err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(r.queryDetails(q)))
	}
	return users, nil
}
