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
	"time"
	"unicode"

	pkgerrors "agentcourt/pkg/errors"
	"agentcourt/pkg/metrics"
)

// RateLimitedBackend 在调用前后执行主动限流，与 provider 侧 429 退避互补
type RateLimitedBackend struct {
	inner       Backend
	rateLimiter *LLMRateLimiter
}

// NewRateLimitedBackend 创建带限流的后端。rateLimiter 为 nil 时退化为直接调用。
func NewRateLimitedBackend(inner Backend, rateLimiter *LLMRateLimiter) *RateLimitedBackend {
	return &RateLimitedBackend{inner: inner, rateLimiter: rateLimiter}
}

// Generate 实现 Backend
func (c *RateLimitedBackend) Generate(ctx context.Context, instruction, prompt string, options GenerateOptions) (string, error) {
	if c.rateLimiter != nil {
		provider := c.inner.Provider()
		start := time.Now()
		tokens := estimateTokens(instruction, options.MaxTokens) + estimateTokens(prompt, 0)
		if err := c.rateLimiter.Wait(ctx, provider, tokens); err != nil {
			return "", pkgerrors.Wrap(err, "wait for llm rate limit", pkgerrors.V("provider", provider), pkgerrors.V("tokens", tokens))
		}
		if waited := time.Since(start); waited > 100*time.Millisecond {
			metrics.RateLimitWaitSeconds.WithLabelValues("llm", provider).Observe(waited.Seconds())
		}
		defer c.rateLimiter.Release(provider)
	}
	return c.inner.Generate(ctx, instruction, prompt, options)
}

// Model 返回底层模型名称
func (c *RateLimitedBackend) Model() string { return c.inner.Model() }

// Provider 返回底层提供商名称
func (c *RateLimitedBackend) Provider() string { return c.inner.Provider() }

// estimateTokens 粗略估算 token 数：汉字按 1 个计，其余字符 4 个约 1 个，再加上输出上限
func estimateTokens(text string, maxTokens int) int {
	han, other := 0, 0
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			han++
		} else {
			other++
		}
	}
	estimated := han + other/4 + maxTokens
	if estimated < 1 {
		estimated = 1
	}
	return estimated
}
