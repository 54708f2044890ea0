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
	"strings"

	"github.com/tomoncle/authlib/models"
	"github.com/uptrace/bun"
)

var _ Repository[models.User] = (*UserRepository)(nil)

type UserRepository struct {
	*BaseRepository[models.User]
}

func NewUserRepository(db bun.IDB) *UserRepository {
	return &UserRepository{BaseRepository: NewBaseRepository[models.User](db)}
}

// WithTx returns a copy of the repository bound to idb.
func (r *UserRepository) WithTx(idb bun.IDB) *UserRepository {
	return &UserRepository{BaseRepository: r.BaseRepository.WithTx(idb)}
}

// GetByEmail looks a user up by email address, ignoring surrounding spaces.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	users, err := r.Get(ctx, Where("email", strings.TrimSpace(email)), Limit(1))
	if err != nil {
		return nil, err
	}
	return users[0], nil
}
