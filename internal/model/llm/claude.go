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

const claudeBaseURL = "https://api.anthropic.com/v1"

// ClaudeBackend Anthropic Messages API；system 作为顶层字段发送
type ClaudeBackend struct {
	model   string
	apiKey  string
	baseURL string
	t       *transport
}

type claudeRequest struct {
	Model         string    `json:"model"`
	System        string    `json:"system,omitempty"`
	Messages      []Message `json:"messages"`
	MaxTokens     int       `json:"max_tokens"`
	Temperature   float64   `json:"temperature,omitempty"`
	TopP          float64   `json:"top_p,omitempty"`
	StopSequences []string  `json:"stop_sequences,omitempty"`
}

// NewClaudeBackend 创建 Claude 后端
func NewClaudeBackend(model, apiKey, baseURL string, t *transport) *ClaudeBackend {
	if model == "" {
		model = "claude-3-opus-20240229"
	}
	if baseURL == "" {
		baseURL = claudeBaseURL
	}
	return &ClaudeBackend{model: model, apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), t: t}
}

// Generate 实现 Backend
func (c *ClaudeBackend) Generate(ctx context.Context, instruction, prompt string, options GenerateOptions) (string, error) {
	maxTokens := options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	msgs := Messages(instruction, prompt)
	resp, err := c.t.post(ctx, request{
		url: c.baseURL + "/messages",
		headers: map[string]string{
			"x-api-key":         c.apiKey,
			"anthropic-version": "2023-06-01",
		},
		body: claudeRequest{
			Model:         c.model,
			System:        msgs[0].Content,
			Messages:      msgs[1:],
			MaxTokens:     maxTokens,
			Temperature:   options.Temperature,
			TopP:          options.TopP,
			StopSequences: options.Stop,
		},
	})
	if err != nil {
		return "", err
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", c.t.rejected("decode claude response", err)
	}
	for _, block := range result.Content {
		if block.Type == "" || block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", c.t.rejected("no text content in response", nil)
}

// Model 返回模型名称
func (c *ClaudeBackend) Model() string { return c.model }

// Provider 返回提供商名称
func (c *ClaudeBackend) Provider() string { return "claude" }
