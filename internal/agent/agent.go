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

// Package agent 实现庭审 Agent 的 Plan → Execute → Reflect 协议。
//
// Agent 持有共享的生成式后端与私有的分区记忆；每个阶段顺序调用后端与记忆，
// 同一 Agent 的阶段互斥执行。
package agent

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"agentcourt/internal/agent/memory"
	"agentcourt/internal/agent/prompt"
	"agentcourt/internal/legal"
	"agentcourt/internal/model/llm"
	"agentcourt/pkg/metrics"
	"agentcourt/pkg/tracing"
)

// Identity Agent 身份，创建后不可变
type Identity struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Description string `json:"description"`
}

// Memory Agent 依赖的分区记忆能力（由 memory.Store 实现）
type Memory interface {
	Insert(ctx context.Context, p memory.Partition, id, document string, metadata map[string]string) error
	Query(ctx context.Context, p memory.Partition, text string, k int) ([]memory.Record, error)
	QueryMetadataField(ctx context.Context, p memory.Partition, text string, k int, field string) (string, error)
}

// Agent 庭审参与者
type Agent struct {
	identity Identity
	backend  llm.Backend
	memory   Memory
	laws     legal.Searcher
	options  llm.GenerateOptions
	logger   *slog.Logger

	phase sync.Mutex
	state atomic.Int32
}

// Option 可选配置
type Option func(*Agent)

// WithLegalSearcher 设置 Reflect 使用的法条检索；未设置时法条反思只记录检索语句
func WithLegalSearcher(s legal.Searcher) Option {
	return func(a *Agent) { a.laws = s }
}

// WithGenerateOptions 设置每次后端调用的生成参数
func WithGenerateOptions(o llm.GenerateOptions) Option {
	return func(a *Agent) { a.options = o }
}

// WithLogger 设置日志
func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

// New 创建 Agent；identity.ID 为空时生成
func New(identity Identity, backend llm.Backend, mem Memory, opts ...Option) *Agent {
	if identity.ID == "" {
		identity.ID = uuid.New().String()
	}
	a := &Agent{
		identity: identity,
		backend:  backend,
		memory:   mem,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}
	a.logger = a.logger.With("agent", identity.Name, "role", identity.Role)
	return a
}

// Identity 返回身份
func (a *Agent) Identity() Identity { return a.identity }

// Name 返回名称
func (a *Agent) Name() string { return a.identity.Name }

// State 当前阶段
func (a *Agent) State() State { return State(a.state.Load()) }

// Speak 不经检索直接以角色身份发言：prompt 为 "{background}\n\n{instruction}"
func (a *Agent) Speak(ctx context.Context, background, instruction string) (string, error) {
	return a.generate(ctx, a.roleInstruction(), background+"\n\n"+instruction)
}

// enter 进入阶段；返回的函数恢复 Idle 并记录耗时与 span
func (a *Agent) enter(ctx context.Context, s State) (context.Context, func(error)) {
	a.phase.Lock()
	a.state.Store(int32(s))
	ctx, span := tracing.StartPhaseSpan(ctx, a.identity.Name, s.String())
	start := time.Now()
	return ctx, func(err error) {
		metrics.PhaseDuration.WithLabelValues(s.String()).Observe(time.Since(start).Seconds())
		tracing.EndSpan(span, err)
		a.state.Store(int32(Idle))
		a.phase.Unlock()
	}
}

func (a *Agent) data(history string) prompt.Data {
	return prompt.Data{Role: a.identity.Role, Description: a.identity.Description, History: history}
}

func (a *Agent) roleInstruction() string {
	return prompt.MustRender(prompt.Instruction, a.data(""))
}

func (a *Agent) generate(ctx context.Context, instruction, p string) (string, error) {
	return a.backend.Generate(ctx, instruction, p, a.options)
}
