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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/authlib/database"
)

func TestParseOrder(t *testing.T) {
	assert.Equal(t, Asc("id"), ParseOrder("id"))
	assert.Equal(t, Desc("name"), ParseOrder("-name"))
	assert.Equal(t, Asc("name"), ParseOrder(" name "))
}

func TestQueryOptions(t *testing.T) {
	q := newQuery([]QueryOption{
		WithSearch(map[string]any{"name": "a", "description": nil}),
		Where("id", 1),
		WithSorting("-id", "name"),
		OrderBy(Asc("created_at")),
		nil,
		Limit(5),
	})

	assert.Equal(t, []string{"description", "name", "id", "id", "name", "created_at"}, q.fields())
	assert.Equal(t, []Order{Desc("id"), Asc("name"), Asc("created_at")}, q.orders)
	assert.Equal(t, 5, q.limit)
}

func TestDecodePayload(t *testing.T) {
	name := "ops"
	type payload struct {
		Name    *string `json:"name,omitempty"`
		Nick    *string `json:"nickname"`
		Enabled bool    `json:"enabled,omitempty"`
		Level   int     `json:"level"`
	}

	tests := []struct {
		name string
		in   any
		want map[string]any
	}{
		{"nil", nil, map[string]any{}},
		{"map", map[string]any{"name": nil}, map[string]any{"name": nil}},
		{"typed map", map[string]string{"name": "ops"}, map[string]any{"name": "ops"}},
		{"struct", payload{Name: &name}, map[string]any{"name": &name, "level": 0}},
		{"struct pointer", &payload{Enabled: true}, map[string]any{"enabled": true, "level": 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodePayload("Group", tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := decodePayload("Group", []string{"name"})
	assert.True(t, IsInvalidQuery(err))
}

type Audit struct {
	Seen time.Time `json:"seen"`
}

type labels struct {
	Description *string `json:"description,omitempty"`
	Name        *string `json:"name,omitempty"`
}

type embeddedPayload struct {
	Audit
	labels
	*Extra
	Name string `json:"name,omitempty"`
}

type Extra struct {
	Level int `json:"level"`
}

func TestDecodePayloadEmbedded(t *testing.T) {
	desc, inner := "ops team", "shadowed"
	seen := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	got, err := decodePayload("Group", embeddedPayload{
		Audit:  Audit{Seen: seen},
		labels: labels{Description: &desc, Name: &inner},
		Name:   "ops",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"seen": seen, "description": &desc, "name": "ops"}, got)

	got, err = decodePayload("Group", &embeddedPayload{Extra: &Extra{Level: 2}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"seen": time.Time{}, "level": 2}, got)
}

type panickingQuery struct{}

func (panickingQuery) String() string { panic("bun: cannot render query") }

type debugRecorder struct {
	debugs []string
}

func (l *debugRecorder) SetLevel(database.LogLevel)         {}
func (l *debugRecorder) Debug(msg string, _ ...interface{}) { l.debugs = append(l.debugs, msg) }
func (l *debugRecorder) Info(string, ...interface{})        {}
func (l *debugRecorder) Warn(string, ...interface{})        {}
func (l *debugRecorder) Error(string, ...interface{})       {}

func TestQueryDetailsWithUnrenderableQuery(t *testing.T) {
	log := &debugRecorder{}
	r := &BaseRepository[struct{}]{name: "Group", logger: log}

	d := r.queryDetails(panickingQuery{})
	assert.Equal(t, "Group", d["entity"])
	assert.NotContains(t, d, "query")
	assert.Equal(t, []string{"Query text unavailable"}, log.debugs)
}
