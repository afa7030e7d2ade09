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

const (
	openAIBaseURL = "https://api.openai.com/v1"
	qwenBaseURL   = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	zhipuBaseURL  = "https://open.bigmodel.cn/api/paas/v4"
)

// OpenAIBackend OpenAI 兼容 chat/completions 端点（openai、qwen、zhipuai）
type OpenAIBackend struct {
	provider string
	model    string
	apiKey   string
	baseURL  string
	t        *transport
}

type openAIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`
	Stop        []string  `json:"stop,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func newOpenAICompatible(provider, model, apiKey, baseURL, defaultBase string, t *transport) *OpenAIBackend {
	if model == "" {
		model = "gpt-3.5-turbo"
	}
	if baseURL == "" {
		baseURL = defaultBase
	}
	return &OpenAIBackend{
		provider: provider,
		model:    model,
		apiKey:   apiKey,
		baseURL:  strings.TrimRight(baseURL, "/"),
		t:        t,
	}
}

// Generate 实现 Backend
func (c *OpenAIBackend) Generate(ctx context.Context, instruction, prompt string, options GenerateOptions) (string, error) {
	resp, err := c.t.post(ctx, request{
		url:     c.baseURL + "/chat/completions",
		headers: map[string]string{"Authorization": "Bearer " + c.apiKey},
		body: openAIRequest{
			Model:       c.model,
			Messages:    Messages(instruction, prompt),
			Temperature: options.Temperature,
			MaxTokens:   options.MaxTokens,
			TopP:        options.TopP,
			Stop:        options.Stop,
		},
	})
	if err != nil {
		return "", err
	}

	var result openAIResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", c.t.rejected("decode chat completion", err)
	}
	if len(result.Choices) == 0 {
		return "", c.t.rejected("no choices in response", nil)
	}
	return result.Choices[0].Message.Content, nil
}

// Model 返回模型名称
func (c *OpenAIBackend) Model() string { return c.model }

// Provider 返回提供商名称
func (c *OpenAIBackend) Provider() string { return c.provider }
