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
	"cmp"
	"reflect"
	"slices"
	"sync"

	"github.com/samber/lo"
)

var defaultRegistry = newModelRegistry()

// SQLModel is a bun model taking part in migrations. Instance returns a
// typed nil pointer or a zero struct pointer; tables are created in
// ascending Priority.
type SQLModel interface {
	Instance() interface{}
	Priority() int
}

type ModelRegistry interface {
	Register(model SQLModel)
	Models() []SQLModel
}

type registryEntry struct {
	model SQLModel
	seq   int
}

// modelRegistry keys models by Go type; registering a type again replaces
// the earlier model but keeps its registration order.
type modelRegistry struct {
	mu      sync.RWMutex
	entries map[reflect.Type]registryEntry
	seq     int
}

func newModelRegistry() ModelRegistry {
	return &modelRegistry{entries: make(map[reflect.Type]registryEntry)}
}

func (r *modelRegistry) Register(model SQLModel) {
	typ := reflect.TypeOf(model.Instance())
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[typ]; ok {
		r.entries[typ] = registryEntry{model: model, seq: e.seq}
		return
	}
	r.entries[typ] = registryEntry{model: model, seq: r.seq}
	r.seq++
}

// Models returns the registered models by priority, ties in registration order.
func (r *modelRegistry) Models() []SQLModel {
	r.mu.RLock()
	entries := lo.Values(r.entries)
	r.mu.RUnlock()

	slices.SortFunc(entries, func(a, b registryEntry) int {
		return cmp.Or(cmp.Compare(a.model.Priority(), b.model.Priority()), cmp.Compare(a.seq, b.seq))
	})
	return lo.Map(entries, func(e registryEntry, _ int) SQLModel { return e.model })
}

type modelAdapter struct {
	instance interface{}
	priority int
}

// NewModelAdapter pairs a bun model instance with its creation priority.
func NewModelAdapter(instance interface{}, priority int) SQLModel {
	return modelAdapter{instance: instance, priority: priority}
}

func (a modelAdapter) Instance() interface{} { return a.instance }
func (a modelAdapter) Priority() int         { return a.priority }

func GetRegisteredModels() []SQLModel {
	return defaultRegistry.Models()
}

func RegisterModel(model SQLModel) {
	defaultRegistry.Register(model)
}

// RegisteredModelInstances returns the instances of the registered models,
// ready for bun's DB.RegisterModel and table creation.
func RegisteredModelInstances() []interface{} {
	return lo.Map(GetRegisteredModels(), func(m SQLModel, _ int) interface{} {
		return m.Instance()
	})
}
