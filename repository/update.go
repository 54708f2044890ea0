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
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cast"
	"github.com/uptrace/bun/schema"
)

var timeType = reflect.TypeOf(time.Time{})

// change is a single column assignment decoded from an update payload.
type change struct {
	column string
	dst    reflect.Value
	value  reflect.Value
}

// decodePayload turns an update payload into column/value pairs. Struct
// payloads are read through their json tags, fields of embedded structs are
// promoted, and unset pointers and omitempty zero values are dropped. In a
// map, an explicit nil clears the column.
func decodePayload(entity string, in any) (map[string]any, error) {
	if in == nil {
		return map[string]any{}, nil
	}
	if m, ok := in.(map[string]any); ok {
		return m, nil
	}

	v := reflect.ValueOf(in)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return map[string]any{}, nil
		}
		v = v.Elem()
	}

	switch {
	case v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String:
		out := make(map[string]any, v.Len())
		if v.Len() == 0 {
			return out, nil
		}
		if err := mapstructure.Decode(v.Interface(), &out); err != nil {
			return nil, newInvalidQuery(entity, "cannot decode %T: %v", in, err)
		}
		return out, nil

	case v.Kind() == reflect.Struct:
		out := make(map[string]any)
		structValues(v, out)
		return out, nil
	}

	return nil, newInvalidQuery(entity, "unsupported update payload %T", in)
}

// structValues collects the json-named fields of v into out. Fields of an
// embedded struct without a json name are promoted, exported or not, and a
// field declared on the outer struct wins over a promoted one.
func structValues(v reflect.Value, out map[string]any) {
	typ := v.Type()
	var promoted []reflect.Value
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		fv := v.Field(i)
		name, opts, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" && opts == "" {
			continue
		}

		if f.Anonymous && name == "" {
			if fv.Kind() == reflect.Pointer {
				if fv.IsNil() {
					continue
				}
				fv = fv.Elem()
			}
			if fv.Kind() == reflect.Struct {
				promoted = append(promoted, fv)
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		if fv.Kind() == reflect.Pointer && fv.IsNil() {
			continue
		}
		if hasTagOption(opts, "omitempty") && isEmptyValue(fv) {
			continue
		}
		out[name] = fv.Interface()
	}

	for _, ev := range promoted {
		inner := make(map[string]any)
		structValues(ev, inner)
		for k, val := range inner {
			if _, ok := out[k]; !ok {
				out[k] = val
			}
		}
	}
}

func hasTagOption(opts, want string) bool {
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == want {
			return true
		}
	}
	return false
}

// isEmptyValue follows encoding/json's notion of empty for omitempty.
func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	case reflect.Struct:
		return false
	}
	return v.IsZero()
}

// changesFor validates values against table and converts each to the type of
// its field in strct. Nothing is assigned, so a rejected payload leaves the
// entity untouched.
func changesFor(table *schema.Table, entity string, strct reflect.Value, values map[string]any) ([]change, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	changes := make([]change, 0, len(keys))
	for _, k := range keys {
		field, ok := table.FieldMap[k]
		if !ok {
			return nil, newInvalidQuery(entity, "unknown field %q", k)
		}
		if field.IsPK {
			return nil, newInvalidQuery(entity, "primary key %q cannot be updated", k)
		}
		dst := field.Value(strct)
		val, err := convertValue(values[k], dst.Type())
		if err != nil {
			return nil, newInvalidQuery(entity, "invalid value for field %q: %v", k, err)
		}
		changes = append(changes, change{column: k, dst: dst, value: val})
	}
	return changes, nil
}

// convertValue returns v as a value of type typ. nil yields the zero value.
func convertValue(v any, typ reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(typ), nil
	}

	src := reflect.ValueOf(v)
	for src.Kind() == reflect.Pointer {
		if src.IsNil() {
			return reflect.Zero(typ), nil
		}
		src = src.Elem()
	}

	if typ.Kind() == reflect.Pointer {
		elem, err := convertValue(src.Interface(), typ.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(typ.Elem())
		ptr.Elem().Set(elem)
		return ptr, nil
	}

	if src.Type().AssignableTo(typ) {
		return src, nil
	}

	raw := src.Interface()
	out := reflect.New(typ).Elem()
	switch {
	case typ == timeType:
		t, err := cast.ToTimeE(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		out.Set(reflect.ValueOf(t))
	case typ.Kind() == reflect.String:
		s, err := cast.ToStringE(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetString(s)
	case typ.Kind() == reflect.Bool:
		b, err := cast.ToBoolE(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetBool(b)
	case typ.Kind() >= reflect.Int && typ.Kind() <= reflect.Int64:
		n, err := cast.ToInt64E(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetInt(n)
	case typ.Kind() >= reflect.Uint && typ.Kind() <= reflect.Uint64:
		n, err := cast.ToUint64E(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetUint(n)
	case typ.Kind() == reflect.Float32 || typ.Kind() == reflect.Float64:
		f, err := cast.ToFloat64E(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetFloat(f)
	case src.Type().ConvertibleTo(typ):
		out.Set(src.Convert(typ))
	default:
		return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", src.Type(), typ)
	}
	return out, nil
}
