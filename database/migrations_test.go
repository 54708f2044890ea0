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
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSQLFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRunMigrations(t *testing.T) {
	ctx := context.Background()
	dm := newTestManager(t, nil)
	mm := NewMigrationManager(dm.GetDB(), GetLogger())

	require.NoError(t, mm.RunMigrations(ctx))
	// a second run finds every version applied
	require.NoError(t, mm.RunMigrations(ctx))

	applied, err := mm.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, "001", applied[0].Version)
	assert.Equal(t, "create_base_tables", applied[0].Name)
	assert.False(t, applied[0].AppliedAt.IsZero())

	_, err = dm.GetDB().NewInsert().Model(&widget{Name: "a"}).Exec(ctx)
	require.NoError(t, err)
	_, err = dm.GetDB().NewInsert().Model(&widget{Name: "a"}).Exec(ctx)
	assert.True(t, IsDuplicateKey(err), "unique index is created with the table: %v", err)
}

func TestMigrationsForConfig(t *testing.T) {
	dm := newTestManager(t, nil)

	versions := func(mm *MigrationManager) []string {
		return lo.Map(mm.Migrations(), func(m MigrationItem, _ int) string { return m.Version })
	}

	mm := NewMigrationManager(dm.GetDB(), nil)
	assert.Equal(t, []string{"001"}, versions(mm))

	// foreign keys are never added on sqlite
	mm.SetMigrateConfig(DataMigrateConfig{EnableForeignKey: true})
	assert.Equal(t, []string{"001"}, versions(mm))

	mm.SetInitConfig(DataInitConfig{AutoInitOnMigration: true})
	assert.Equal(t, []string{"001", "003"}, versions(mm))
}

func TestRunMigrationsSeedsData(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeSQLFile(t, root, "common/001_widgets.sql", "INSERT INTO widgets (name) VALUES ('common');\n")
	writeSQLFile(t, root, "environments/test/001_widgets.sql", "INSERT INTO widgets (name) VALUES ('{{.ENVIRONMENT}}');\n")

	dm := newTestManager(t, &Config{
		DataInitConfig: DataInitConfig{
			AutoInitOnMigration: true,
			Filepath:            root,
			Environment:         "test",
		},
	})
	require.NoError(t, dm.RunMigrations(ctx))

	var names []string
	err := dm.GetDB().NewSelect().Model((*widget)(nil)).Column("name").Order("id ASC").Scan(ctx, &names)
	require.NoError(t, err)
	assert.Equal(t, []string{"common", "test"}, names)

	applied, err := NewMigrationManager(dm.GetDB(), nil).GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Len(t, applied, 2)
}

func TestRunMigrationsRollsBackFailedSeed(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeSQLFile(t, root, "common/001_bad.sql", "INSERT INTO no_such_table (name) VALUES ('x');\n")

	dm := newTestManager(t, &Config{
		DataInitConfig: DataInitConfig{AutoInitOnMigration: true, Filepath: root, Environment: "test"},
	})
	require.Error(t, dm.RunMigrations(ctx))

	applied, err := NewMigrationManager(dm.GetDB(), nil).GetAppliedMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, "001", applied[0].Version)
}

func TestMigrationManagerWithoutDB(t *testing.T) {
	mm := NewMigrationManager(nil, nil)
	assert.Error(t, mm.RunMigrations(context.Background()))
	assert.Error(t, mm.InitData(context.Background()))
}
