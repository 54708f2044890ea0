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

package models

import "github.com/uptrace/bun"

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID            int64  `bun:"id,pk,autoincrement" json:"id"`
	Name          string `bun:"name,notnull" json:"name"`
	Nickname      string `bun:"nickname" json:"nickname"`
	Email         string `bun:"email,notnull,unique" json:"email"`
	EmailVerified bool   `bun:"email_verified,notnull" json:"email_verified"`
	Picture       string `bun:"picture" json:"picture"`
	Active        bool   `bun:"active,notnull" json:"active"`
	TimestampModel
}

// UserUpdate is a partial update of a User; nil fields are left unchanged.
type UserUpdate struct {
	Name          *string `json:"name,omitempty"`
	Nickname      *string `json:"nickname,omitempty"`
	Email         *string `json:"email,omitempty"`
	EmailVerified *bool   `json:"email_verified,omitempty"`
	Picture       *string `json:"picture,omitempty"`
	Active        *bool   `json:"active,omitempty"`
}
