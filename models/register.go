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

import "github.com/tomoncle/authlib/database"

// Priorities used for table creation; referenced tables come first.
const (
	PriorityEntity   = 10
	PriorityRelation = 20
)

// Register adds the models of this package to the database model registry.
// It is safe to call more than once.
func Register() {
	database.RegisterModel(database.NewModelAdapter((*User)(nil), PriorityEntity))
	database.RegisterModel(database.NewModelAdapter((*Group)(nil), PriorityEntity))
	database.RegisterModel(database.NewModelAdapter((*UserGroup)(nil), PriorityRelation))
}
