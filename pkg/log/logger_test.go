// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"
)

func TestNewLoggerWithWriter_FormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter(&Config{Level: "warn", Format: "text"}, &buf)
	l.Info("hidden")
	l.Warn("shown", "agent", "judge")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "agent=judge")

	buf.Reset()
	l = NewLoggerWithWriter(&Config{Level: "debug"}, &buf)
	l.Debug("json line")
	assert.True(t, strings.HasPrefix(buf.String(), "{"), "default format is json: %s", buf.String())
}

func TestOutput_FileUsesLumberjack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "court.log")
	w := Output(&Config{File: path})
	lj, ok := w.(*lumberjack.Logger)
	require.True(t, ok)
	assert.Equal(t, 100, lj.MaxSize)

	l, err := NewLogger(&Config{File: path, MaxSizeMB: 5})
	require.NoError(t, err)
	l.Info("to file")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")

	assert.Equal(t, os.Stdout, Output(nil))
}

func TestContextRoundTrip(t *testing.T) {
	l := Nop()
	ctx := WithContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
