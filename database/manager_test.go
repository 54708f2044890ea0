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
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type widget struct {
	bun.BaseModel `bun:"table:widgets"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull,unique"`
}

func init() {
	RegisterModel(NewModelAdapter((*widget)(nil), 10))
}

// newTestManager connects to a private in-memory SQLite database.
func newTestManager(t *testing.T, cfg *Config) *defaultDatabaseManager {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ConnectionConfig.Type == "" {
		name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
		cfg.ConnectionConfig = *MemorySQLiteConfig(name)
	}
	dm := newDatabaseManager(cfg)
	require.NoError(t, dm.Connect(context.Background()))
	t.Cleanup(func() { _ = dm.Disconnect() })
	return dm
}

func TestManagerConnect(t *testing.T) {
	ctx := context.Background()
	dm := newTestManager(t, nil)

	require.NoError(t, dm.Ping(ctx))
	require.NotNil(t, dm.GetDB())
	require.NotNil(t, dm.GetSQLDB())

	// connecting twice is a no-op
	require.NoError(t, dm.Connect(ctx))

	status := dm.HealthCheck(ctx)
	assert.True(t, status.Healthy)
	assert.True(t, status.Connected)
	assert.Empty(t, status.LastError)
	assert.Equal(t, 1, status.MaxOpenConns)

	stats := dm.GetStats()
	assert.Equal(t, 1, stats.MaxOpenConns)

	require.NoError(t, dm.Disconnect())
	assert.Nil(t, dm.GetDB())
	assert.Error(t, dm.Ping(ctx))
	assert.False(t, dm.HealthCheck(ctx).Healthy)
	assert.Equal(t, &DBStats{}, dm.GetStats())
}

func TestManagerReconnect(t *testing.T) {
	ctx := context.Background()
	dm := newTestManager(t, nil)

	require.NoError(t, dm.Reconnect(ctx))
	require.NoError(t, dm.Ping(ctx))
}

// lastHealth returns the status recorded by the most recent health check.
func (dm *defaultDatabaseManager) lastHealth() HealthStatus {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return *dm.healthStatus
}

func healthChecksAfter(dm *defaultDatabaseManager, mark time.Time) func() bool {
	return func() bool {
		st := dm.lastHealth()
		return st.Healthy && st.LastCheckTime.After(mark)
	}
}

func TestHealthLoopSurvivesReconnect(t *testing.T) {
	cfg := &Config{ConnectionConfig: *MemorySQLiteConfig("health_after_reconnect")}
	cfg.ConnectionConfig.HealthCheckInterval = 10 * time.Millisecond
	dm := newTestManager(t, cfg)

	require.Eventually(t, healthChecksAfter(dm, time.Time{}), time.Second, 5*time.Millisecond)

	for i := 0; i < 2; i++ {
		require.NoError(t, dm.Reconnect(context.Background()))
		mark := time.Now()
		require.Eventually(t, healthChecksAfter(dm, mark), time.Second, 5*time.Millisecond,
			"no health check after reconnect %d", i+1)
	}
}

func TestHealthLoopReplacesBrokenConnection(t *testing.T) {
	cfg := &Config{ConnectionConfig: *MemorySQLiteConfig("health_broken_conn")}
	cfg.ConnectionConfig.HealthCheckInterval = 10 * time.Millisecond
	cfg.ConnectionConfig.EnableReconnect = true
	cfg.ConnectionConfig.ReconnectInterval = time.Millisecond
	cfg.ConnectionConfig.MaxReconnectTries = 3
	dm := newTestManager(t, cfg)

	for i := 0; i < 2; i++ {
		broken := dm.GetSQLDB()
		require.NoError(t, broken.Close())

		require.Eventually(t, func() bool {
			return dm.GetSQLDB() != broken && dm.lastHealth().Healthy
		}, time.Second, 5*time.Millisecond, "connection not replaced on round %d", i+1)
		require.NoError(t, dm.Ping(context.Background()))
	}

	mark := time.Now()
	require.Eventually(t, healthChecksAfter(dm, mark), time.Second, 5*time.Millisecond)

	dm.mu.RLock()
	tries := dm.reconnectTries
	dm.mu.RUnlock()
	assert.Zero(t, tries)
}

func TestDisconnectStopsHealthLoop(t *testing.T) {
	cfg := &Config{ConnectionConfig: *MemorySQLiteConfig("health_stopped")}
	cfg.ConnectionConfig.HealthCheckInterval = 10 * time.Millisecond
	dm := newTestManager(t, cfg)
	require.Eventually(t, healthChecksAfter(dm, time.Time{}), time.Second, 5*time.Millisecond)

	require.NoError(t, dm.Disconnect())
	dm.mu.RLock()
	assert.Nil(t, dm.stopHealth)
	dm.mu.RUnlock()

	mark := time.Now()
	time.Sleep(50 * time.Millisecond)
	assert.False(t, dm.lastHealth().LastCheckTime.After(mark))

	require.NoError(t, dm.Connect(context.Background()))
	require.Eventually(t, healthChecksAfter(dm, mark), time.Second, 5*time.Millisecond)
}

func TestManagerUnsupportedType(t *testing.T) {
	dm := newDatabaseManager(&Config{ConnectionConfig: ConnectionConfig{Type: "oracle", DBName: "x"}})
	err := dm.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}

func TestServerDSN(t *testing.T) {
	cfg := DefaultConnectionConfig()
	cfg.Host, cfg.Port = "db.local", 3307
	cfg.Username, cfg.Password, cfg.DBName = "auth", "p@ss:word", "authlib"

	dsn := mysqlDSN(cfg)
	mc, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "db.local:3307", mc.Addr)
	assert.Equal(t, "auth", mc.User)
	assert.Equal(t, "p@ss:word", mc.Passwd)
	assert.Equal(t, "authlib", mc.DBName)
	assert.True(t, mc.ParseTime)
	assert.Equal(t, cfg.ConnectTimeout, mc.Timeout)
	assert.Contains(t, dsn, "charset=utf8mb4")

	pc, err := pgconn.ParseConfig(postgresDSN(cfg))
	require.NoError(t, err)
	assert.Equal(t, "db.local", pc.Host)
	assert.Equal(t, uint16(3307), pc.Port)
	assert.Equal(t, "auth", pc.User)
	assert.Equal(t, "p@ss:word", pc.Password)
	assert.Equal(t, "authlib", pc.Database)
	assert.Equal(t, cfg.ConnectTimeout, pc.ConnectTimeout)
	assert.Nil(t, pc.TLSConfig)
}

func TestSqliteDSN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{":memory:", "file::memory:?cache=shared"},
		{"file:x?mode=memory&cache=shared", "file:x?mode=memory&cache=shared"},
		{"data/app.db", "data/app.db"},
		{"app", "app.db"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sqliteDSN(tt.in))
		})
	}
}

func TestInitDBGlobal(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{
		ConnectionConfig:  *MemorySQLiteConfig("init_db_global"),
		DataMigrateConfig: DataMigrateConfig{EnableMigrateOnStartup: true},
	}

	db, err := InitDB(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseDB() })

	assert.Same(t, db, GetDB())
	assert.NotNil(t, GetDatabaseManager())
	assert.True(t, GetHealthStatus(ctx).Healthy)
	assert.Equal(t, 1, GetDatabaseStats().MaxOpenConns)

	_, err = db.NewInsert().Model(&widget{Name: "global"}).Exec(ctx)
	require.NoError(t, err)

	require.NoError(t, RunMigrations(ctx))

	require.NoError(t, CloseDB())
	assert.Nil(t, GetDB())
	assert.False(t, GetHealthStatus(ctx).Healthy)
	assert.Error(t, RunMigrations(ctx))
}

func TestInitDBNilConfig(t *testing.T) {
	_, err := InitDB(nil)
	assert.Error(t, err)
}
