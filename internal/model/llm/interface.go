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
	"time"

	pkgerrors "agentcourt/pkg/errors"
)

// DefaultInstruction instruction 为空时使用的系统人设
const DefaultInstruction = "You are a helpful assistant."

// Backend 生成式后端能力接口，每个 provider 一个实现
type Backend interface {
	// Generate 以 [system, user] 消息对调用后端并返回首个结果文本
	Generate(ctx context.Context, instruction, prompt string, options GenerateOptions) (string, error)
	// Model 返回模型名称
	Model() string
	// Provider 返回提供商名称
	Provider() string
}

// GenerateOptions 生成选项，零值字段不下发给 provider
type GenerateOptions struct {
	Temperature float64  `json:"temperature"`
	MaxTokens   int      `json:"max_tokens"`
	TopP        float64  `json:"top_p"`
	Stop        []string `json:"stop"`
}

// Message 聊天消息
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Messages 构造 [system, user] 消息对
func Messages(instruction, prompt string) []Message {
	if instruction == "" {
		instruction = DefaultInstruction
	}
	return []Message{
		{Role: "system", Content: instruction},
		{Role: "user", Content: prompt},
	}
}

// Config 后端构造参数
type Config struct {
	Provider  string
	Model     string
	APIKey    string
	SecretKey string // wenxin client_secret
	BaseURL   string
	// Timeout 单次请求超时，<=0 时默认 120s
	Timeout time.Duration
	// RateLimitBackoff 配额耗尽时的固定退避，<=0 时默认 60s
	RateLimitBackoff time.Duration
}

const (
	defaultTimeout = 120 * time.Second
	defaultBackoff = 60 * time.Second
)

// NewBackend 按 provider 创建后端变体
func NewBackend(ctx context.Context, cfg Config) (Backend, error) {
	t := newTransport(cfg.Provider, cfg.Timeout, cfg.RateLimitBackoff)
	switch cfg.Provider {
	case "openai":
		return newOpenAICompatible("openai", cfg.Model, cfg.APIKey, cfg.BaseURL, openAIBaseURL, t), nil
	case "qwen":
		return newOpenAICompatible("qwen", cfg.Model, cfg.APIKey, cfg.BaseURL, qwenBaseURL, t), nil
	case "zhipuai":
		return newOpenAICompatible("zhipuai", cfg.Model, cfg.APIKey, cfg.BaseURL, zhipuBaseURL, t), nil
	case "wenxin":
		return NewWenxinBackend(cfg.Model, cfg.APIKey, cfg.SecretKey, cfg.BaseURL, t)
	case "claude":
		return NewClaudeBackend(cfg.Model, cfg.APIKey, cfg.BaseURL, t), nil
	case "gemini":
		return NewGeminiBackend(cfg.Model, cfg.APIKey, cfg.BaseURL, t), nil
	case "ollama":
		return NewOllamaBackend(cfg.Model, cfg.BaseURL, t), nil
	case "eino":
		return NewEinoBackend(ctx, cfg)
	default:
		return nil, pkgerrors.NewBackendError(pkgerrors.ProviderRejected, cfg.Provider,
			fmt.Sprintf("unsupported llm provider %q", cfg.Provider), nil)
	}
}
