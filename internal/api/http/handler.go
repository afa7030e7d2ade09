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

// Package http 以 Hertz 暴露各 Agent 的 Plan / Execute / Reflect 与记忆查询。
package http

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"agentcourt/internal/agent"
	"agentcourt/internal/agent/memory"
	"agentcourt/internal/agent/transcript"
	pkgerrors "agentcourt/pkg/errors"
	"agentcourt/pkg/metrics"
)

// Participant 一个可通过 API 访问的 Agent 及其记忆
type Participant struct {
	Agent  *agent.Agent
	Memory *memory.Store
}

// Handler HTTP 处理器
type Handler struct {
	agents map[string]Participant
	logger *slog.Logger
}

// NewHandler 创建处理器；agents 以 Agent 名称为键
func NewHandler(agents map[string]Participant, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if agents == nil {
		agents = map[string]Participant{}
	}
	return &Handler{agents: agents, logger: logger}
}

type historyRequest struct {
	History []transcript.Entry `json:"history"`
}

type executeRequest struct {
	Plan        *agent.Plan        `json:"plan"`
	History     []transcript.Entry `json:"history"`
	Instruction string             `json:"instruction"`
}

type reflectResponse struct {
	Reflection *agent.Reflection `json:"reflection"`
	Error      string            `json:"error,omitempty"`
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"service":   "agentcourt",
		"agents":    len(h.agents),
	})
}

// Preflight CORS 预检；响应头由 CORS 中间件写入
func (h *Handler) Preflight(ctx context.Context, c *app.RequestContext) {
	c.Status(consts.StatusNoContent)
}

// Metrics Prometheus 文本格式指标
func (h *Handler) Metrics(ctx context.Context, c *app.RequestContext) {
	var buf bytes.Buffer
	if err := metrics.WritePrometheus(&buf); err != nil {
		h.fail(c, err)
		return
	}
	c.Data(consts.StatusOK, "text/plain; version=0.0.4; charset=utf-8", buf.Bytes())
}

// ListAgents 列出全部 Agent 身份
// GET /api/agents
func (h *Handler) ListAgents(ctx context.Context, c *app.RequestContext) {
	ids := make([]agent.Identity, 0, len(h.agents))
	for _, p := range h.agents {
		ids = append(ids, p.Agent.Identity())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Name < ids[j].Name })
	c.JSON(consts.StatusOK, map[string]interface{}{"agents": ids, "total": len(ids)})
}

// Plan 生成检索计划
// POST /api/agents/:name/plan
func (h *Handler) Plan(ctx context.Context, c *app.RequestContext) {
	p, ok := h.participant(c)
	if !ok {
		return
	}
	var req historyRequest
	if err := c.BindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}
	plan, err := p.Agent.Plan(ctx, req.History)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(consts.StatusOK, plan)
}

// Execute 按计划检索并生成发言
// POST /api/agents/:name/execute
func (h *Handler) Execute(ctx context.Context, c *app.RequestContext) {
	p, ok := h.participant(c)
	if !ok {
		return
	}
	var req executeRequest
	if err := c.BindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Instruction) == "" {
		h.badRequest(c, "instruction is required")
		return
	}
	reply, err := p.Agent.Execute(ctx, req.Plan, req.History, req.Instruction)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(consts.StatusOK, map[string]string{"reply": reply})
}

// Reflect 将对话记录沉淀为记忆；部分失败时仍返回已完成的结果
// POST /api/agents/:name/reflect
func (h *Handler) Reflect(ctx context.Context, c *app.RequestContext) {
	p, ok := h.participant(c)
	if !ok {
		return
	}
	var req historyRequest
	if err := c.BindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}
	if len(req.History) == 0 {
		h.badRequest(c, "history is required")
		return
	}
	r, err := p.Agent.Reflect(ctx, req.History)
	if err != nil {
		h.logger.Warn("reflect incomplete", "agent", p.Agent.Name(), "error", err)
		c.JSON(statusOf(err), reflectResponse{Reflection: r, Error: err.Error()})
		return
	}
	c.JSON(consts.StatusOK, reflectResponse{Reflection: r})
}

// QueryMemory 按相似度查询某个分区
// GET /api/agents/:name/memory/:partition?q=&k=
func (h *Handler) QueryMemory(ctx context.Context, c *app.RequestContext) {
	p, ok := h.participant(c)
	if !ok {
		return
	}
	partition, err := memory.ParsePartition(c.Param("partition"))
	if err != nil {
		h.badRequest(c, err.Error())
		return
	}
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		h.badRequest(c, "q is required")
		return
	}
	k := memory.DefaultK
	if raw := c.Query("k"); raw != "" {
		k, err = strconv.Atoi(raw)
		if err != nil || k <= 0 {
			h.badRequest(c, "k must be a positive integer")
			return
		}
	}
	records, err := p.Memory.Query(ctx, partition, q, k)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(consts.StatusOK, map[string]interface{}{"records": records, "total": len(records)})
}

func (h *Handler) participant(c *app.RequestContext) (Participant, bool) {
	name := c.Param("name")
	p, ok := h.agents[name]
	if !ok {
		c.JSON(consts.StatusNotFound, map[string]string{"error": "agent not found: " + name})
		return Participant{}, false
	}
	return p, true
}

func (h *Handler) badRequest(c *app.RequestContext, msg string) {
	c.JSON(consts.StatusBadRequest, map[string]string{"error": msg})
}

func (h *Handler) fail(c *app.RequestContext, err error) {
	status := statusOf(err)
	if status >= consts.StatusInternalServerError {
		attrs := []any{"path", string(c.Path()), "error", err}
		for k, v := range pkgerrors.Values(err) {
			attrs = append(attrs, k, v)
		}
		h.logger.Error("request failed", attrs...)
	}
	c.JSON(status, map[string]string{"error": err.Error()})
}

// statusOf 将错误映射为 HTTP 状态码。
// 超时（含 BackendError{Timeout}）为 504；其余后端失败与模型输出不符合结构均为 502
func statusOf(err error) int {
	var be *pkgerrors.BackendError
	switch {
	case errors.Is(err, pkgerrors.ErrInvalidArg):
		return consts.StatusBadRequest
	case errors.Is(err, pkgerrors.ErrNotFound):
		return consts.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded), pkgerrors.IsBackendKind(err, pkgerrors.Timeout):
		return consts.StatusGatewayTimeout
	case errors.As(err, &be), pkgerrors.IsValidation(err):
		return consts.StatusBadGateway
	default:
		return consts.StatusInternalServerError
	}
}
