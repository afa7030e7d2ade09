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

// Package embedding 提供记忆分区共享的文本向量化实现，均满足 eino embedding.Embedder。
package embedding

import (
	"fmt"
	"math"
	"time"

	"github.com/cloudwego/eino/components/embedding"
)

// Embedder 向量化接口：eino Embedder 加上固定维度与模型名
type Embedder interface {
	embedding.Embedder
	Dimension() int
	Model() string
}

// Config Embedder 构造参数
type Config struct {
	Provider  string // hash | openai | ollama
	Model     string
	Dimension int
	APIKey    string
	BaseURL   string
	Timeout   time.Duration
	// CacheTTL >0 时包裹缓存层
	CacheTTL time.Duration
}

// NewEmbedder 按 provider 创建 Embedder
func NewEmbedder(cfg Config) (Embedder, error) {
	var e Embedder
	switch cfg.Provider {
	case "", "hash":
		e = NewHashEmbedder(cfg.Dimension)
	case "openai":
		e = NewOpenAIEmbedder(cfg.Model, cfg.APIKey, cfg.BaseURL, cfg.Dimension, cfg.Timeout)
	case "ollama":
		e = NewOllamaEmbedder(cfg.Model, cfg.BaseURL, cfg.Dimension, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q", cfg.Provider)
	}
	if cfg.CacheTTL > 0 {
		e = NewCachedEmbedder(e, cfg.CacheTTL)
	}
	return e, nil
}

// Normalize 将向量缩放为单位长度；零向量原样返回
func Normalize(vec []float64) []float64 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return vec
	}
	norm := math.Sqrt(sum)
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}
