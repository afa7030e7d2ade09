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

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiBackend Google Gemini generateContent
type GeminiBackend struct {
	model   string
	apiKey  string
	baseURL string
	t       *transport
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64  `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	TopP            float64  `json:"topP,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

type geminiRequest struct {
	SystemInstruction geminiContent          `json:"systemInstruction"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

// NewGeminiBackend 创建 Gemini 后端
func NewGeminiBackend(model, apiKey, baseURL string, t *transport) *GeminiBackend {
	if model == "" {
		model = "gemini-pro"
	}
	if baseURL == "" {
		baseURL = geminiBaseURL
	}
	return &GeminiBackend{model: model, apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), t: t}
}

// Generate 实现 Backend
func (c *GeminiBackend) Generate(ctx context.Context, instruction, prompt string, options GenerateOptions) (string, error) {
	msgs := Messages(instruction, prompt)
	resp, err := c.t.post(ctx, request{
		url:   c.baseURL + "/models/" + c.model + ":generateContent",
		query: map[string]string{"key": c.apiKey},
		body: geminiRequest{
			SystemInstruction: geminiContent{Parts: []geminiPart{{Text: msgs[0].Content}}},
			Contents:          []geminiContent{{Role: "user", Parts: []geminiPart{{Text: msgs[1].Content}}}},
			GenerationConfig: geminiGenerationConfig{
				Temperature:     options.Temperature,
				MaxOutputTokens: options.MaxTokens,
				TopP:            options.TopP,
				StopSequences:   options.Stop,
			},
		},
	})
	if err != nil {
		return "", err
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []geminiPart `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", c.t.rejected("decode gemini response", err)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", c.t.rejected("no candidates in response", nil)
	}
	return result.Candidates[0].Content.Parts[0].Text, nil
}

// Model 返回模型名称
func (c *GeminiBackend) Model() string { return c.model }

// Provider 返回提供商名称
func (c *GeminiBackend) Provider() string { return "gemini" }
