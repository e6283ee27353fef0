// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-authenticator.
//
// go-authenticator is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-authenticator/pkg/correlation"
)

func newJSONLogger(level Level) (*SlogAdapter, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewSlogAdapter(&SlogConfig{Level: level, Format: "json", Output: &buf}), &buf
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"bogus":   LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
	assert.Equal(t, "warn", LevelWarn.String())
}

func TestSlogAdapter_Fields(t *testing.T) {
	log, buf := newJSONLogger(LevelDebug)
	log.Info("key pair generated",
		String("tag", "12345"),
		Int("bits", 2048),
		Bool("replaced", true),
		Error(errors.New("boom")))

	entry := decode(t, buf)
	assert.Equal(t, "key pair generated", entry["msg"])
	assert.Equal(t, "12345", entry["tag"])
	assert.EqualValues(t, 2048, entry["bits"])
	assert.Equal(t, true, entry["replaced"])
	assert.Equal(t, "boom", entry["error"])
}

func TestSlogAdapter_LevelFiltering(t *testing.T) {
	log, buf := newJSONLogger(LevelWarn)
	log.Debug("hidden")
	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestSlogAdapter_With(t *testing.T) {
	log, buf := newJSONLogger(LevelInfo)
	child := log.With(String("connection", "abc")).WithError(errors.New("failed"))
	child.Error("submit")

	entry := decode(t, buf)
	assert.Equal(t, "abc", entry["connection"])
	assert.Equal(t, "failed", entry["error"])
}

func TestWithContext(t *testing.T) {
	log, buf := newJSONLogger(LevelInfo)
	ctx := correlation.WithCorrelationID(context.Background(), "corr-1")
	WithContext(ctx, log).Info("hello")

	entry := decode(t, buf)
	assert.Equal(t, "corr-1", entry[correlation.FieldName])

	buf.Reset()
	WithContext(context.Background(), log).Info("plain")
	entry = decode(t, buf)
	_, ok := entry[correlation.FieldName]
	assert.False(t, ok)
}

func TestNop(t *testing.T) {
	l := NewNop()
	l.Info("ignored")
	assert.Equal(t, l, l.With(String("a", "b")).WithError(errors.New("x")))
}
