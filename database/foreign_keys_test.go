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

package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForeignKeySQL(t *testing.T) {
	fk := ForeignKeyConstraint{
		Table:           "user_groups",
		Column:          "group_id",
		ReferenceTable:  "groups",
		ReferenceColumn: "id",
		OnDelete:        "cascade",
		OnUpdate:        "NO ACTION",
	}
	assert.Equal(t, "fk_user_groups_group_id", fk.GenerateConstraintName())
	assert.Equal(t,
		"ALTER TABLE user_groups ADD CONSTRAINT fk_user_groups_group_id FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE ON UPDATE NO ACTION",
		fk.GenerateSQL())

	fk.ConstraintName = "fk_custom"
	assert.Equal(t, "fk_custom", fk.GenerateConstraintName())
}

func TestForeignKeyDefaults(t *testing.T) {
	fkm := NewForeignKeyManager(nil)
	assert.Empty(t, fkm.ValidateConstraints())
	assert.Len(t, fkm.GetConstraintsByTable("USER_GROUPS"), 2)
	assert.Empty(t, fkm.GetConstraintsByTable("groups"))
}

func TestForeignKeyValidation(t *testing.T) {
	fkm := &ForeignKeyManager{constraints: []ForeignKeyConstraint{
		{Table: "a", Column: "b_id", ReferenceTable: "b", ReferenceColumn: "id", OnDelete: "explode"},
		{},
	}}
	// one bad policy plus four empty names
	assert.Len(t, fkm.ValidateConstraints(), 5)
}

func TestForeignKeyConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "foreign_keys.yaml")
	require.NoError(t, NewForeignKeyManager(nil).ExportToConfig(path))

	loaded, err := LoadForeignKeyConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultForeignKeyConstraints(), loaded)

	fkm := NewForeignKeyManagerFromFile(nil, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, DefaultForeignKeyConstraints(), fkm.ListAllConstraints())
}
