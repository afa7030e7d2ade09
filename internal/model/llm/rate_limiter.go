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
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// LLMLimitConfig LLM Provider 主动限流配置
type LLMLimitConfig struct {
	TokensPerMinute   int     `mapstructure:"tokens_per_minute"`   // 每分钟 token 配额
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"` // 每分钟请求数
	MaxConcurrent     int     `mapstructure:"max_concurrent"`      // 最大并发请求数
}

// LLMRateLimiter provider 维度的限流器：请求速率 + token 预算 + 并发槽
type LLMRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*providerLimiter
	defaults LLMLimitConfig
}

type providerLimiter struct {
	requests  *rate.Limiter
	tokens    *rate.Limiter
	semaphore chan struct{}
}

// NewLLMRateLimiter 创建限流器；未配置的 provider 使用 defaults
func NewLLMRateLimiter(configs map[string]LLMLimitConfig, defaults *LLMLimitConfig) *LLMRateLimiter {
	d := LLMLimitConfig{TokensPerMinute: 90000, RequestsPerMinute: 3500, MaxConcurrent: 50}
	if defaults != nil {
		d = *defaults
	}
	l := &LLMRateLimiter{limiters: make(map[string]*providerLimiter), defaults: d}
	for provider, cfg := range configs {
		l.limiters[provider] = newProviderLimiter(cfg)
	}
	return l
}

func newProviderLimiter(cfg LLMLimitConfig) *providerLimiter {
	p := &providerLimiter{}
	if cfg.RequestsPerMinute > 0 {
		// burst 为 2 秒的配额
		burst := int(cfg.RequestsPerMinute / 30)
		if burst < 1 {
			burst = 1
		}
		p.requests = rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60), burst)
	}
	if cfg.TokensPerMinute > 0 {
		burst := cfg.TokensPerMinute / 30
		if burst < 1 {
			burst = 1
		}
		p.tokens = rate.NewLimiter(rate.Limit(float64(cfg.TokensPerMinute)/60), burst)
	}
	if cfg.MaxConcurrent > 0 {
		p.semaphore = make(chan struct{}, cfg.MaxConcurrent)
	}
	return p
}

func (l *LLMRateLimiter) limiter(provider string) *providerLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.limiters[provider]
	if !ok {
		p = newProviderLimiter(l.defaults)
		l.limiters[provider] = p
	}
	return p
}

// Wait 阻塞直到获得执行许可；成功后必须调用 Release
func (l *LLMRateLimiter) Wait(ctx context.Context, provider string, estimatedTokens int) error {
	p := l.limiter(provider)
	if p.requests != nil {
		if err := p.requests.Wait(ctx); err != nil {
			return fmt.Errorf("request rate limit wait failed: %w", err)
		}
	}
	if p.tokens != nil && estimatedTokens > 0 {
		n := estimatedTokens
		if n > p.tokens.Burst() {
			n = p.tokens.Burst()
		}
		if err := p.tokens.WaitN(ctx, n); err != nil {
			return fmt.Errorf("token budget wait failed: %w", err)
		}
	}
	if p.semaphore != nil {
		select {
		case p.semaphore <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Release 释放并发槽
func (l *LLMRateLimiter) Release(provider string) {
	p := l.limiter(provider)
	if p.semaphore == nil {
		return
	}
	select {
	case <-p.semaphore:
	default:
	}
}

// InFlight 当前占用的并发槽数
func (l *LLMRateLimiter) InFlight(provider string) int {
	p := l.limiter(provider)
	if p.semaphore == nil {
		return 0
	}
	return len(p.semaphore)
}
