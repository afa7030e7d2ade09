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

package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	pkgerrors "agentcourt/pkg/errors"
	"agentcourt/pkg/metrics"
	"agentcourt/pkg/tracing"
)

// InstrumentedBackend 为每次调用记录 span、指标与 debug 日志
type InstrumentedBackend struct {
	inner  Backend
	logger *slog.Logger
}

// NewInstrumentedBackend 包装后端；logger 为 nil 时使用 slog.Default
func NewInstrumentedBackend(inner Backend, logger *slog.Logger) *InstrumentedBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &InstrumentedBackend{inner: inner, logger: logger}
}

// Generate 实现 Backend
func (c *InstrumentedBackend) Generate(ctx context.Context, instruction, prompt string, options GenerateOptions) (string, error) {
	provider := c.inner.Provider()
	ctx, span := tracing.StartBackendSpan(ctx, provider, c.inner.Model())
	start := time.Now()

	text, err := c.inner.Generate(ctx, instruction, prompt, options)

	elapsed := time.Since(start)
	metrics.BackendDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
	metrics.BackendRequestsTotal.WithLabelValues(provider, Outcome(err)).Inc()
	tracing.EndSpan(span, err)
	if err != nil {
		c.logger.WarnContext(ctx, "backend generate failed",
			"provider", provider, "elapsed", elapsed, "error", err)
		return "", err
	}
	c.logger.DebugContext(ctx, "backend generate",
		"provider", provider, "elapsed", elapsed, "prompt_len", len(prompt), "reply_len", len(text))
	return text, nil
}

// Model 返回底层模型名称
func (c *InstrumentedBackend) Model() string { return c.inner.Model() }

// Provider 返回底层提供商名称
func (c *InstrumentedBackend) Provider() string { return c.inner.Provider() }

// Outcome 将错误映射为指标标签
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var be *pkgerrors.BackendError
	if errors.As(err, &be) {
		return string(be.Kind)
	}
	return "error"
}
