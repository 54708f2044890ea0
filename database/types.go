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
	"database/sql"
	"time"

	"github.com/uptrace/bun"
)

// AbstractDatabaseManager defines the operations for managing a database
// connection, running migrations, initializing data, and reporting health.
type AbstractDatabaseManager interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Reconnect(ctx context.Context) error
	Ping(ctx context.Context) error
	HealthCheck(ctx context.Context) *HealthStatus
	GetDB() *bun.DB
	GetSQLDB() *sql.DB
	RunMigrations(ctx context.Context) error
	InitData(ctx context.Context) error
	GetStats() *DBStats
	SetLogger(logger Logger)
}

// HealthStatus holds the result of a health check against the database.
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	Connected     bool          `json:"connected"`
	ResponseTime  time.Duration `json:"response_time"`
	ActiveConns   int           `json:"active_conns"`
	IdleConns     int           `json:"idle_conns"`
	MaxOpenConns  int           `json:"max_open_conns"`
	LastError     string        `json:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time"`
}

// DBStats mirrors database/sql stats returned by the manager.
type DBStats struct {
	MaxOpenConns      int           `json:"max_open_conns"`
	OpenConns         int           `json:"open_conns"`
	InUse             int           `json:"in_use"`
	Idle              int           `json:"idle"`
	WaitCount         int64         `json:"wait_count"`
	WaitDuration      time.Duration `json:"wait_duration"`
	MaxIdleClosed     int64         `json:"max_idle_closed"`
	MaxIdleTimeClosed int64         `json:"max_idle_time_closed"`
	MaxLifetimeClosed int64         `json:"max_lifetime_closed"`
}

// Supported values for ConnectionConfig.Type.
const (
	TypeMySQL    = "mysql"
	TypePostgres = "postgres"
	TypeSQLite   = "sqlite"
)

// Supported values for ConnectionConfig.Driver when Type is postgres.
const (
	DriverPQ  = "pq"
	DriverPGX = "pgx"
)

// Query log styles.
const (
	QueryLogBundebug = "bundebug"
	QueryLogColor    = "color"
)

// ConnectionConfig describes how to connect to a database and tune its pool.
type ConnectionConfig struct {
	Type                string        `yaml:"type" json:"type" validate:"required,oneof=mysql postgres postgresql sqlite sqlite3"`
	Driver              string        `yaml:"driver" json:"driver" default:"pq" validate:"omitempty,oneof=pq pgx"`
	Host                string        `yaml:"host" json:"host"`
	Port                int           `yaml:"port" json:"port" validate:"gte=0,lte=65535"`
	Username            string        `yaml:"username" json:"username"`
	Password            string        `yaml:"password" json:"password"`
	DBName              string        `yaml:"dbname" json:"dbname" validate:"required"`
	SSLMode             string        `yaml:"sslmode" json:"sslmode" default:"disable"`
	MaxIdleConns        int           `yaml:"max_idle_conns" json:"max_idle_conns" default:"10"`
	MaxOpenConns        int           `yaml:"max_open_conns" json:"max_open_conns" default:"100"`
	ConnMaxLifetime     time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime" default:"1h"`
	ConnMaxIdleTime     time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time" default:"30m"`
	ConnectTimeout      time.Duration `yaml:"connect_timeout" json:"connect_timeout" default:"10s"`
	ReadTimeout         time.Duration `yaml:"read_timeout" json:"read_timeout" default:"30s"`
	WriteTimeout        time.Duration `yaml:"write_timeout" json:"write_timeout" default:"30s"`
	EnableReconnect     bool          `yaml:"enable_reconnect" json:"enable_reconnect"`
	ReconnectInterval   time.Duration `yaml:"reconnect_interval" json:"reconnect_interval" default:"5s"`
	MaxReconnectTries   int           `yaml:"max_reconnect_tries" json:"max_reconnect_tries" default:"3"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval"`
	EnableQueryLog      bool          `yaml:"enable_query_log" json:"enable_query_log"`
	QueryLogStyle       string        `yaml:"query_log_style" json:"query_log_style" default:"bundebug" validate:"omitempty,oneof=bundebug color"`
	SlowQueryTime       time.Duration `yaml:"slow_query_time" json:"slow_query_time" default:"2s"`
	EnableTracing       bool          `yaml:"enable_tracing" json:"enable_tracing"`
	Charset             string        `yaml:"charset" json:"charset"` // MySQL:utf8mb4  、Postgres:UTF8
}

// DataMigrateConfig controls schema migration behavior on startup.
type DataMigrateConfig struct {
	EnableMigrateOnStartup bool   `yaml:"enable_migrate_on_startup" json:"enable_migrate_on_startup"`
	EnableForeignKey       bool   `yaml:"enable_foreign_key" json:"enable_foreign_key"`
	ForeignKeyFile         string `yaml:"foreign_key_file" json:"foreign_key_file"`
}

// DataInitConfig controls data seeding behavior and environment selection.
type DataInitConfig struct {
	AutoInitOnStartup   bool   `yaml:"auto_init_on_startup" json:"auto_init_on_startup"`
	AutoInitOnMigration bool   `yaml:"auto_init_on_migration" json:"auto_init_on_migration"`
	Filepath            string `yaml:"filepath" json:"filepath" default:"configs/sql"`
	Environment         string `yaml:"environment" json:"environment" default:"prod"`
}

// Config aggregates connection, migration, and data initialization settings.
type Config struct {
	ConnectionConfig  ConnectionConfig  `yaml:"connection" json:"connection_config"`
	DataMigrateConfig DataMigrateConfig `yaml:"migrate" json:"data_migrate_config"`
	DataInitConfig    DataInitConfig    `yaml:"init" json:"data_init_config"`
}

// DefaultConnectionConfig returns a connection config with sensible defaults.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		Driver:            DriverPQ,
		SSLMode:           "disable",
		MaxIdleConns:      10,
		MaxOpenConns:      100,
		ConnMaxLifetime:   time.Hour,
		ConnMaxIdleTime:   time.Minute * 30,
		ConnectTimeout:    time.Second * 10,
		ReadTimeout:       time.Second * 30,
		WriteTimeout:      time.Second * 30,
		EnableReconnect:   true,
		ReconnectInterval: time.Second * 5,
		MaxReconnectTries: 3,
		QueryLogStyle:     QueryLogBundebug,
		SlowQueryTime:     time.Second * 2,
	}
}

// MemorySQLiteConfig returns a single-connection configuration for a named,
// shared-cache in-memory SQLite database. Distinct names never share data.
func MemorySQLiteConfig(name string) *ConnectionConfig {
	cfg := DefaultConnectionConfig()
	cfg.Type = TypeSQLite
	cfg.DBName = "file:" + name + "?mode=memory&cache=shared"
	cfg.MaxIdleConns = 1
	cfg.MaxOpenConns = 1
	cfg.ConnMaxLifetime = 0
	cfg.ConnMaxIdleTime = 0
	cfg.EnableReconnect = false
	cfg.SlowQueryTime = 0
	return cfg
}
