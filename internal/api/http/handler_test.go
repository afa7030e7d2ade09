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

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentcourt/internal/agent"
	"agentcourt/internal/agent/memory"
	"agentcourt/internal/api/http/middleware"
	"agentcourt/internal/model/embedding"
	"agentcourt/internal/model/llm"
	"agentcourt/internal/storage/vector"
	pkgerrors "agentcourt/pkg/errors"
)

type stubBackend struct {
	mu    sync.Mutex
	reply func(prompt string) (string, error)
}

func (b *stubBackend) Generate(_ context.Context, _ string, prompt string, _ llm.GenerateOptions) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reply(prompt)
}

func (b *stubBackend) Model() string    { return "stub" }
func (b *stubBackend) Provider() string { return "test" }

func newTestServer(t *testing.T, backend llm.Backend) (*server.Hertz, *memory.Store) {
	t.Helper()
	mem, err := memory.NewStore(context.Background(), "plaintiff_lawyer", vector.NewMemoryStore(), embedding.NewHashEmbedder(32))
	require.NoError(t, err)
	a := agent.New(agent.Identity{Name: "plaintiff_lawyer", Role: "原告律师"}, backend, mem)
	h := NewHandler(map[string]Participant{"plaintiff_lawyer": {Agent: a, Memory: mem}}, nil)
	return NewRouter(h, middleware.NewMiddleware(nil)).Build(":0"), mem
}

func perform(s *server.Hertz, method, path, body string) *ut.ResponseRecorder {
	return ut.PerformRequest(s.Engine, method, path,
		&ut.Body{Body: bytes.NewReader([]byte(body)), Len: len(body)},
		ut.Header{Key: "Content-Type", Value: "application/json"})
}

const historyBody = `{"history": [{"role": "judge", "name": "法官", "content": "现在开庭。"}]}`

func TestHealthCheck(t *testing.T) {
	s, _ := newTestServer(t, &stubBackend{reply: func(string) (string, error) { return "", nil }})
	w := perform(s, "GET", "/health", "")
	resp := w.Result()
	assert.Equal(t, 200, resp.StatusCode())
	assert.Contains(t, string(resp.Body()), `"status":"ok"`)
	assert.NotEmpty(t, string(resp.Header.Peek(middleware.HeaderRequestID)))
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, &stubBackend{reply: func(string) (string, error) { return "", nil }})
	w := perform(s, "GET", "/metrics", "")
	assert.Equal(t, 200, w.Result().StatusCode())
	assert.Contains(t, string(w.Result().Body()), "agentcourt_")
}

func TestPlan(t *testing.T) {
	s, _ := newTestServer(t, &stubBackend{reply: func(prompt string) (string, error) {
		if strings.Contains(prompt, "what kind of case information") {
			return `{"query": "货款 纠纷"}`, nil
		}
		return `{"experience": false, "case": true, "legal": false}`, nil
	}})

	w := perform(s, "POST", "/api/agents/plaintiff_lawyer/plan", historyBody)
	require.Equal(t, 200, w.Result().StatusCode(), string(w.Result().Body()))

	var plan agent.Plan
	require.NoError(t, json.Unmarshal(w.Result().Body(), &plan))
	assert.True(t, plan.Plans.Case)
	assert.Equal(t, "货款 纠纷", plan.Queries[memory.Case])
}

func TestPlan_UnknownAgent(t *testing.T) {
	s, _ := newTestServer(t, &stubBackend{reply: func(string) (string, error) { return "", nil }})
	w := perform(s, "POST", "/api/agents/nobody/plan", historyBody)
	assert.Equal(t, 404, w.Result().StatusCode())
	assert.Contains(t, string(w.Result().Body()), "agent not found")
}

func TestPlan_BackendFailure(t *testing.T) {
	s, _ := newTestServer(t, &stubBackend{reply: func(string) (string, error) {
		return "", pkgerrors.NewBackendError(pkgerrors.RateLimited, "test", "quota", nil)
	}})
	w := perform(s, "POST", "/api/agents/plaintiff_lawyer/plan", historyBody)
	assert.Equal(t, 502, w.Result().StatusCode())
}

func TestPlan_BackendTimeout(t *testing.T) {
	s, _ := newTestServer(t, &stubBackend{reply: func(string) (string, error) {
		return "", pkgerrors.NewBackendError(pkgerrors.Timeout, "test", "request timed out", context.DeadlineExceeded)
	}})
	w := perform(s, "POST", "/api/agents/plaintiff_lawyer/plan", historyBody)
	assert.Equal(t, 504, w.Result().StatusCode())
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{pkgerrors.Wrap(pkgerrors.ErrInvalidArg, "bad"), 400},
		{pkgerrors.Wrap(pkgerrors.ErrNotFound, "missing"), 404},
		{pkgerrors.NewBackendError(pkgerrors.Timeout, "openai", "request timed out", nil), 504},
		{pkgerrors.Wrap(context.DeadlineExceeded, "memory query"), 504},
		{pkgerrors.NewBackendError(pkgerrors.AuthFailure, "wenxin", "token", nil), 502},
		{pkgerrors.NewValidationError(pkgerrors.MissingField, "context", ""), 502},
		{errors.New("disk full"), 500},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusOf(tc.err), "%v", tc.err)
	}
}

func TestExecute(t *testing.T) {
	s, _ := newTestServer(t, &stubBackend{reply: func(prompt string) (string, error) {
		return "原告辩论意见", nil
	}})

	w := perform(s, "POST", "/api/agents/plaintiff_lawyer/execute", `{"history": [], "instruction": "开始你的辩论"}`)
	require.Equal(t, 200, w.Result().StatusCode(), string(w.Result().Body()))
	assert.Contains(t, string(w.Result().Body()), "原告辩论意见")

	w = perform(s, "POST", "/api/agents/plaintiff_lawyer/execute", `{"history": []}`)
	assert.Equal(t, 400, w.Result().StatusCode())

	w = perform(s, "POST", "/api/agents/plaintiff_lawyer/execute", `{not json`)
	assert.Equal(t, 400, w.Result().StatusCode())
}

func TestReflect_RequiresHistory(t *testing.T) {
	s, _ := newTestServer(t, &stubBackend{reply: func(string) (string, error) { return "", nil }})
	w := perform(s, "POST", "/api/agents/plaintiff_lawyer/reflect", `{"history": []}`)
	assert.Equal(t, 400, w.Result().StatusCode())
	assert.Contains(t, string(w.Result().Body()), "history is required")
}

func TestReflect_PartialFailure(t *testing.T) {
	s, _ := newTestServer(t, &stubBackend{reply: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "用三句话总结案件情况"):
			return "买方未付货款。", nil
		case strings.Contains(prompt, "Is additional legal reference needed"):
			return "false", nil
		case strings.Contains(prompt, "生成一个逻辑上连贯的经验总结"):
			return "not json at all", nil
		case strings.Contains(prompt, "生成一个简洁的案例摘要"):
			return `{"content": "c", "case_type": "t", "keywords": "k", "quick_reaction_points": "q", "response_directions": "r"}`, nil
		}
		return "", nil
	}})

	w := perform(s, "POST", "/api/agents/plaintiff_lawyer/reflect", historyBody)
	assert.Equal(t, 502, w.Result().StatusCode())

	var resp reflectResponse
	require.NoError(t, json.Unmarshal(w.Result().Body(), &resp))
	require.NotNil(t, resp.Reflection)
	assert.Nil(t, resp.Reflection.Experience)
	require.NotNil(t, resp.Reflection.Case)
	assert.NotEmpty(t, resp.Error)
}

func TestQueryMemory(t *testing.T) {
	s, mem := newTestServer(t, &stubBackend{reply: func(string) (string, error) { return "", nil }})
	require.NoError(t, mem.Insert(context.Background(), memory.Case, "c1", "买卖合同 货款", map[string]string{"case_type": "合同"}))

	w := perform(s, "GET", "/api/agents/plaintiff_lawyer/memory/case?q="+url.QueryEscape("货款")+"&k=2", "")
	require.Equal(t, 200, w.Result().StatusCode(), string(w.Result().Body()))
	assert.Contains(t, string(w.Result().Body()), `"id":"c1"`)

	for _, path := range []string{
		"/api/agents/plaintiff_lawyer/memory/diary?q=x",
		"/api/agents/plaintiff_lawyer/memory/case",
		"/api/agents/plaintiff_lawyer/memory/case?q=x&k=abc",
	} {
		w = perform(s, "GET", path, "")
		assert.Equal(t, 400, w.Result().StatusCode(), path)
	}
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, &stubBackend{reply: func(string) (string, error) { return "", nil }})
	w := perform(s, "OPTIONS", "/api/agents", "")
	assert.Equal(t, 204, w.Result().StatusCode())
}

func TestRateLimit(t *testing.T) {
	mw := middleware.NewMiddleware(nil)
	r := NewRouter(NewHandler(nil, nil), mw)
	r.SetRateLimit(0.001, 1)
	s := r.Build(":0")

	assert.Equal(t, 200, perform(s, "GET", "/api/agents", "").Result().StatusCode())
	assert.Equal(t, 429, perform(s, "GET", "/api/agents", "").Result().StatusCode())
}
