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

package app

import (
	"context"
	"fmt"
	"time"

	"agentcourt/internal/legal"
	"agentcourt/internal/model/embedding"
	"agentcourt/internal/model/llm"
	"agentcourt/pkg/config"
	"agentcourt/pkg/log"
)

// NewBackendFromConfig 按 model.llm 创建后端；配置了 rate_limits.llm.{provider} 时前置限流，
// 最外层为指标与追踪
func NewBackendFromConfig(ctx context.Context, cfg *config.Config, logger *log.Logger) (llm.Backend, error) {
	lc := cfg.Model.LLM
	pc, ok := lc.Providers[lc.Provider]
	if !ok && lc.Provider != "ollama" {
		return nil, fmt.Errorf("LLM provider %q 未配置", lc.Provider)
	}
	if pc.APIKey == "" && lc.Provider != "ollama" {
		return nil, fmt.Errorf("LLM provider %q 的 api_key 未配置", lc.Provider)
	}

	backend, err := llm.NewBackend(ctx, llm.Config{
		Provider:         lc.Provider,
		Model:            lc.Model,
		APIKey:           pc.APIKey,
		SecretKey:        pc.SecretKey,
		BaseURL:          pc.BaseURL,
		Timeout:          config.ParseDuration(lc.Timeout, 120*time.Second),
		RateLimitBackoff: config.ParseDuration(lc.RateLimitBackoff, 60*time.Second),
	})
	if err != nil {
		return nil, err
	}

	if rl, ok := cfg.RateLimits.LLM[lc.Provider]; ok {
		limit := llm.LLMLimitConfig{
			TokensPerMinute:   rl.TokensPerMinute,
			RequestsPerMinute: rl.RequestsPerMinute,
			MaxConcurrent:     rl.MaxConcurrent,
		}
		limiter := llm.NewLLMRateLimiter(map[string]llm.LLMLimitConfig{lc.Provider: limit}, &limit)
		backend = llm.NewRateLimitedBackend(backend, limiter)
	}

	return llm.NewInstrumentedBackend(backend, logger.Logger), nil
}

// NewEmbedderFromConfig 按 model.embedding 创建 Embedder；维度优先取向量存储配置
func NewEmbedderFromConfig(cfg *config.Config) (embedding.Embedder, error) {
	ec := cfg.Model.Embedding
	dimension := ec.Dimension
	if cfg.Storage.Vector.Dimension > 0 {
		dimension = cfg.Storage.Vector.Dimension
	}
	return embedding.NewEmbedder(embedding.Config{
		Provider:  ec.Provider,
		Model:     ec.Model,
		Dimension: dimension,
		APIKey:    ec.APIKey,
		BaseURL:   ec.BaseURL,
		Timeout:   config.ParseDuration(cfg.Model.LLM.Timeout, 120*time.Second),
		CacheTTL:  config.ParseDuration(ec.CacheTTL, 0),
	})
}

// NewLegalSearcherFromConfig legal.base_url 为空时返回 nil，法条反思只记录检索语句
func NewLegalSearcherFromConfig(cfg *config.Config) legal.Searcher {
	if cfg.Legal.BaseURL == "" {
		return nil
	}
	return legal.NewHTTPSearcher(cfg.Legal.BaseURL, config.ParseDuration(cfg.Legal.Timeout, 30*time.Second), cfg.Legal.MaxResults)
}
