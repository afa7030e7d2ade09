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
	"strings"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/go-resty/resty/v2"
)

// OllamaEmbedder 本地 Ollama /api/embeddings，逐条请求
type OllamaEmbedder struct {
	model     string
	baseURL   string
	dimension int
	client    *resty.Client
}

// NewOllamaEmbedder 创建 Ollama Embedder
func NewOllamaEmbedder(model, baseURL string, dimension int, timeout time.Duration) *OllamaEmbedder {
	if model == "" {
		model = "nomic-embed-text"
	}
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if dimension <= 0 {
		dimension = 768
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := resty.New()
	client.SetTimeout(timeout)
	return &OllamaEmbedder{
		model:     model,
		baseURL:   strings.TrimRight(baseURL, "/"),
		dimension: dimension,
		client:    client,
	}
}

// EmbedStrings 实现 eino embedding.Embedder
func (e *OllamaEmbedder) EmbedStrings(ctx context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		resp, err := e.client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(map[string]string{"model": e.model, "prompt": text}).
			Post(e.baseURL + "/api/embeddings")
		if err != nil {
			return nil, fmt.Errorf("ollama embedding 请求失败: %w", err)
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("ollama embedding error: %s", resp.String())
		}
		var result struct {
			Embedding []float64 `json:"embedding"`
		}
		if err := json.Unmarshal(resp.Body(), &result); err != nil {
			return nil, fmt.Errorf("解析 ollama embedding 失败: %w", err)
		}
		if len(result.Embedding) == 0 {
			return nil, fmt.Errorf("ollama 返回空向量")
		}
		out[i] = Normalize(result.Embedding)
	}
	return out, nil
}

// Dimension 返回向量维度
func (e *OllamaEmbedder) Dimension() int { return e.dimension }

// Model 返回模型名称
func (e *OllamaEmbedder) Model() string { return e.model }
