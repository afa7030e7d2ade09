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

package embedding

import (
	"context"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/patrickmn/go-cache"

	"agentcourt/pkg/metrics"
)

// CachedEmbedder 按文本缓存向量；同一查询在多轮辩论中反复出现
type CachedEmbedder struct {
	inner Embedder
	cache *cache.Cache
}

// NewCachedEmbedder 包装 Embedder，ttl 为条目过期时间
func NewCachedEmbedder(inner Embedder, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: cache.New(ttl, 10*time.Minute)}
}

// EmbedStrings 实现 eino embedding.Embedder；仅对未命中的文本调用底层
func (c *CachedEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		if v, ok := c.cache.Get(c.key(text)); ok {
			out[i] = v.([]float64)
			metrics.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		return out, nil
	}
	metrics.EmbeddingCacheTotal.WithLabelValues("miss").Add(float64(len(missTexts)))

	vecs, err := c.inner.EmbedStrings(ctx, missTexts, opts...)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		c.cache.SetDefault(c.key(texts[i]), vecs[j])
	}
	return out, nil
}

func (c *CachedEmbedder) key(text string) string {
	return c.inner.Model() + "\x00" + text
}

// Len 当前缓存条目数
func (c *CachedEmbedder) Len() int { return c.cache.ItemCount() }

// Dimension 返回向量维度
func (c *CachedEmbedder) Dimension() int { return c.inner.Dimension() }

// Model 返回模型名称
func (c *CachedEmbedder) Model() string { return c.inner.Model() }
