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

package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"trace":   logrus.TraceLevel,
		"DEBUG":   logrus.DebugLevel,
		" warn ":  logrus.WarnLevel,
		"warning": logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"":        logrus.InfoLevel,
		"bogus":   logrus.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLogLevel(in), in)
	}
}

func TestNewLoggerIsRegistered(t *testing.T) {
	l := NewLogger("utils-test")
	assert.Same(t, l, NewLogger("utils-test"))

	assert.True(t, SetLoggerLevel("utils-test", "error"))
	assert.Equal(t, logrus.ErrorLevel, l.GetLevel())
	assert.False(t, SetLoggerLevel("missing-logger", "debug"))
}

func TestLog4jColorFormatter(t *testing.T) {
	f := &Log4jColorFormatter{LoggerName: "DATABASE", DisableColors: true}
	entry := &logrus.Entry{
		Time:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   logrus.InfoLevel,
		Message: "connected",
		Data:    logrus.Fields{"type": "sqlite", "host": "local"},
	}
	b, err := f.Format(entry)
	require.NoError(t, err)

	line := string(b)
	assert.Contains(t, line, "2025-01-02 03:04:05.000")
	assert.Contains(t, line, "INFO")
	assert.Contains(t, line, "DATABASE : connected host=local type=sqlite")
	assert.True(t, bytes.HasSuffix(b, []byte("\n")))
}

func TestJSONLogFormatter(t *testing.T) {
	f := &JSONLogFormatter{LoggerName: "DATABASE"}
	entry := &logrus.Entry{
		Time:    time.Now(),
		Level:   logrus.WarnLevel,
		Message: "slow query",
		Data:    logrus.Fields{"error": errors.New("boom")},
	}
	b, err := f.Format(entry)
	require.NoError(t, err)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &rec))
	assert.Equal(t, "warning", rec["level"])
	assert.Equal(t, "DATABASE", rec["logger"])
	assert.Equal(t, "slow query", rec["message"])
	assert.Equal(t, map[string]interface{}{"error": "boom"}, rec["fields"])
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("AUTHLIB_TEST_STR", "  value ")
	t.Setenv("AUTHLIB_TEST_BOOL", "true")
	t.Setenv("AUTHLIB_TEST_INT", "42")
	t.Setenv("AUTHLIB_TEST_BAD", "nope")

	assert.Equal(t, "value", EnvDefaultString("AUTHLIB_TEST_STR", "def"))
	assert.Equal(t, "def", EnvDefaultString("AUTHLIB_TEST_UNSET", "def"))
	assert.True(t, EnvDefaultBool("AUTHLIB_TEST_BOOL", false))
	assert.True(t, EnvDefaultBool("AUTHLIB_TEST_BAD", true))
	assert.Equal(t, 42, EnvDefaultInt("AUTHLIB_TEST_INT", 0))
	assert.Equal(t, 7, EnvDefaultInt("AUTHLIB_TEST_BAD", 7))
}
