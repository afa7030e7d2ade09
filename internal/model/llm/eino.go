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
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"time"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	pkgerrors "agentcourt/pkg/errors"
	"agentcourt/pkg/metrics"
)

// EinoBackend 基于 eino ChatModel 的后端。底层 SDK 不暴露响应头，429 一律按配额耗尽处理
type EinoBackend struct {
	chat      model.BaseChatModel
	modelName string
	backoff   time.Duration
}

// NewEinoBackend 使用 eino-ext OpenAI ChatModel 创建后端
func NewEinoBackend(ctx context.Context, cfg Config) (*EinoBackend, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	chat, err := einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: timeout,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "create eino chat model", pkgerrors.V("model", cfg.Model))
	}
	return NewEinoBackendWithModel(chat, cfg.Model, cfg.RateLimitBackoff), nil
}

// NewEinoBackendWithModel 包装任意 eino ChatModel
func NewEinoBackendWithModel(chat model.BaseChatModel, modelName string, backoff time.Duration) *EinoBackend {
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	return &EinoBackend{chat: chat, modelName: modelName, backoff: backoff}
}

// Generate 实现 Backend
func (c *EinoBackend) Generate(ctx context.Context, instruction, prompt string, options GenerateOptions) (string, error) {
	msgs := Messages(instruction, prompt)
	input := []*schema.Message{
		schema.SystemMessage(msgs[0].Content),
		schema.UserMessage(msgs[1].Content),
	}
	var opts []model.Option
	if options.Temperature > 0 {
		opts = append(opts, model.WithTemperature(float32(options.Temperature)))
	}
	if options.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(options.MaxTokens))
	}
	if options.TopP > 0 {
		opts = append(opts, model.WithTopP(float32(options.TopP)))
	}
	if len(options.Stop) > 0 {
		opts = append(opts, model.WithStop(options.Stop))
	}

	out, err := c.chat.Generate(ctx, input, opts...)
	if err != nil && statusOf(err) == http.StatusTooManyRequests {
		metrics.BackendRateLimitRetries.WithLabelValues("eino").Inc()
		if serr := sleepContext(ctx, c.backoff); serr != nil {
			return "", pkgerrors.Wrap(serr, "rate limit backoff interrupted", pkgerrors.V("provider", "eino"))
		}
		out, err = c.chat.Generate(ctx, input, opts...)
		if err != nil && statusOf(err) == http.StatusTooManyRequests {
			return "", pkgerrors.NewBackendError(pkgerrors.RateLimited, "eino", "quota still exhausted after backoff", err)
		}
	}
	if err != nil {
		return "", classifyEinoError(ctx, err)
	}
	if out == nil {
		return "", pkgerrors.NewBackendError(pkgerrors.ProviderRejected, "eino", "empty message", nil)
	}
	return out.Content, nil
}

var statusPattern = regexp.MustCompile(`status code: (\d{3})`)

// statusOf 从 SDK 错误文本中提取 HTTP 状态码，无法识别时返回 0
func statusOf(err error) int {
	m := statusPattern.FindStringSubmatch(err.Error())
	if len(m) != 2 {
		return 0
	}
	code, _ := strconv.Atoi(m[1])
	return code
}

func classifyEinoError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return pkgerrors.Wrap(ctx.Err(), "backend request cancelled", pkgerrors.V("provider", "eino"))
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.NewBackendError(pkgerrors.Timeout, "eino", "request timed out", err)
	}
	switch statusOf(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return pkgerrors.NewBackendError(pkgerrors.AuthFailure, "eino", "", err)
	default:
		return pkgerrors.NewBackendError(pkgerrors.ProviderRejected, "eino", "", err)
	}
}

// Model 返回模型名称
func (c *EinoBackend) Model() string { return c.modelName }

// Provider 返回提供商名称
func (c *EinoBackend) Provider() string { return "eino" }
