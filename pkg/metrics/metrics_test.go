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

package metrics

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritePrometheus(t *testing.T) {
	BackendRequestsTotal.WithLabelValues("openai", "ok").Inc()
	MemoryOpsTotal.WithLabelValues("case", "insert").Inc()

	var buf bytes.Buffer
	require.NoError(t, WritePrometheus(&buf))
	out := buf.String()
	assert.Contains(t, out, "agentcourt_backend_requests_total")
	assert.Contains(t, out, `partition="case"`)
}

func TestWriteTextFile(t *testing.T) {
	PhaseDuration.WithLabelValues("plan").Observe(0.2)
	path := filepath.Join(t.TempDir(), "nested", "agentcourt.prom")
	require.NoError(t, WriteTextFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "agentcourt_agent_phase_duration_seconds")
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
