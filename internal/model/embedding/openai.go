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
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/go-resty/resty/v2"
)

// OpenAIEmbedder OpenAI 兼容 /embeddings 端点
type OpenAIEmbedder struct {
	model     string
	apiKey    string
	baseURL   string
	dimension int
	client    *resty.Client
}

// NewOpenAIEmbedder 创建 OpenAI Embedder
func NewOpenAIEmbedder(model, apiKey, baseURL string, dimension int, timeout time.Duration) *OpenAIEmbedder {
	if model == "" {
		model = "text-embedding-3-small"
	}
	if dimension <= 0 {
		dimension = 1536
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(time.Second)
	return &OpenAIEmbedder{
		model:     model,
		apiKey:    apiKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		dimension: dimension,
		client:    client,
	}
}

// EmbedStrings 实现 eino embedding.Embedder，单次请求批量向量化
func (e *OpenAIEmbedder) EmbedStrings(ctx context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+e.apiKey).
		SetBody(map[string]interface{}{
			"model":      e.model,
			"input":      texts,
			"dimensions": e.dimension,
		}).
		Post(e.baseURL + "/embeddings")
	if err != nil {
		return nil, fmt.Errorf("调用 embeddings API 失败: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("embeddings API 返回错误 %d: %s", resp.StatusCode(), resp.String())
	}

	var result struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("解析 embeddings 响应失败: %w", err)
	}
	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings 数量不匹配: got %d, want %d", len(result.Data), len(texts))
	}
	sort.Slice(result.Data, func(i, j int) bool { return result.Data[i].Index < result.Data[j].Index })
	out := make([][]float64, len(texts))
	for i, d := range result.Data {
		out[i] = Normalize(d.Embedding)
	}
	return out, nil
}

// Dimension 返回向量维度
func (e *OpenAIEmbedder) Dimension() int { return e.dimension }

// Model 返回模型名称
func (e *OpenAIEmbedder) Model() string { return e.model }
