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
	"encoding/json"
	"strings"
)

const ollamaBaseURL = "http://localhost:11434"

// OllamaBackend 本地推理后端，调用 Ollama /api/chat（非流式）
type OllamaBackend struct {
	model   string
	baseURL string
	t       *transport
}

type ollamaRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Message *Message `json:"message"`
	Error   string   `json:"error"`
}

// NewOllamaBackend 创建本地后端；baseURL 为空时使用 localhost:11434
func NewOllamaBackend(model, baseURL string, t *transport) *OllamaBackend {
	if baseURL == "" {
		baseURL = ollamaBaseURL
	}
	return &OllamaBackend{model: model, baseURL: strings.TrimRight(baseURL, "/"), t: t}
}

// ollamaOptions 只下发非零生成参数；max_tokens 对应 num_predict
func ollamaOptions(o GenerateOptions) map[string]any {
	opts := map[string]any{}
	if o.Temperature > 0 {
		opts["temperature"] = o.Temperature
	}
	if o.TopP > 0 {
		opts["top_p"] = o.TopP
	}
	if o.MaxTokens > 0 {
		opts["num_predict"] = o.MaxTokens
	}
	if len(o.Stop) > 0 {
		opts["stop"] = o.Stop
	}
	if len(opts) == 0 {
		return nil
	}
	return opts
}

// Generate 实现 Backend
func (c *OllamaBackend) Generate(ctx context.Context, instruction, prompt string, options GenerateOptions) (string, error) {
	resp, err := c.t.post(ctx, request{
		url: c.baseURL + "/api/chat",
		body: ollamaRequest{
			Model:    c.model,
			Messages: Messages(instruction, prompt),
			Options:  ollamaOptions(options),
		},
	})
	if err != nil {
		return "", err
	}

	var result ollamaResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", c.t.rejected("decode ollama chat response", err)
	}
	if result.Error != "" {
		return "", c.t.rejected(result.Error, nil)
	}
	if result.Message == nil {
		return "", c.t.rejected("missing message field", nil)
	}
	return result.Message.Content, nil
}

// Model 返回模型名称
func (c *OllamaBackend) Model() string { return c.model }

// Provider 返回提供商名称
func (c *OllamaBackend) Provider() string { return "ollama" }
