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
	"errors"
	"fmt"
	"net/http"
	"strings"

	pkgerrors "agentcourt/pkg/errors"
)

const wenxinBaseURL = "https://aip.baidubce.com"

// wenxinEndpoints 模型名到 wenxinworkshop chat 端点
var wenxinEndpoints = map[string]string{
	"ERNIE-4.0-8K":     "completions_pro",
	"ERNIE-Speed-128K": "ernie-speed-128k",
	"ERNIE-3.5-8K":     "completions",
}

// WenxinBackend 百度千帆（文心）后端，每次请求前刷新 access_token
type WenxinBackend struct {
	model     string
	endpoint  string
	apiKey    string
	secretKey string
	baseURL   string
	t         *transport
}

type wenxinRequest struct {
	Messages        []Message `json:"messages"`
	System          string    `json:"system,omitempty"`
	Temperature     float64   `json:"temperature,omitempty"`
	TopP            float64   `json:"top_p,omitempty"`
	MaxOutputTokens int       `json:"max_output_tokens,omitempty"`
	Stop            []string  `json:"stop,omitempty"`
}

type wenxinResponse struct {
	Result    *string `json:"result"`
	ErrorCode int     `json:"error_code"`
	ErrorMsg  string  `json:"error_msg"`
}

type wenxinToken struct {
	AccessToken      string `json:"access_token"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// NewWenxinBackend 创建文心后端；模型不在端点表中时返回 ProviderRejected
func NewWenxinBackend(model, apiKey, secretKey, baseURL string, t *transport) (*WenxinBackend, error) {
	endpoint, ok := wenxinEndpoints[model]
	if !ok {
		return nil, pkgerrors.NewBackendError(pkgerrors.ProviderRejected, "wenxin",
			fmt.Sprintf("unsupported model %q", model), nil)
	}
	if baseURL == "" {
		baseURL = wenxinBaseURL
	}
	return &WenxinBackend{
		model:     model,
		endpoint:  endpoint,
		apiKey:    apiKey,
		secretKey: secretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		t:         t,
	}, nil
}

// accessToken 用 client_credentials 换取短期 token，任何失败均为 AuthFailure
func (c *WenxinBackend) accessToken(ctx context.Context) (string, error) {
	resp, err := c.t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetQueryParams(map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     c.apiKey,
			"client_secret": c.secretKey,
		}).
		Post(c.baseURL + "/oauth/2.0/token")
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return "", pkgerrors.Wrap(ctx.Err(), "access token request cancelled")
		}
		return "", pkgerrors.NewBackendError(pkgerrors.AuthFailure, "wenxin", "access token request failed", err)
	}
	if resp.StatusCode() != http.StatusOK {
		be := pkgerrors.NewBackendError(pkgerrors.AuthFailure, "wenxin", truncate(resp.String()), nil)
		be.Status = resp.StatusCode()
		return "", be
	}
	var tok wenxinToken
	if err := json.Unmarshal(resp.Body(), &tok); err != nil {
		return "", pkgerrors.NewBackendError(pkgerrors.AuthFailure, "wenxin", "decode access token", err)
	}
	if tok.AccessToken == "" {
		return "", pkgerrors.NewBackendError(pkgerrors.AuthFailure, "wenxin",
			strings.TrimSpace(tok.Error+" "+tok.ErrorDescription), nil)
	}
	return tok.AccessToken, nil
}

// Generate 实现 Backend；instruction 放入 system 字段，每次发送（含配额重试）前换取新 token
func (c *WenxinBackend) Generate(ctx context.Context, instruction, prompt string, options GenerateOptions) (string, error) {
	msgs := Messages(instruction, prompt)
	body := wenxinRequest{
		Messages:        msgs[1:],
		System:          msgs[0].Content,
		Temperature:     options.Temperature,
		TopP:            options.TopP,
		MaxOutputTokens: options.MaxTokens,
		Stop:            options.Stop,
	}
	resp, err := c.t.postWith(ctx, func(ctx context.Context) (request, error) {
		token, err := c.accessToken(ctx)
		if err != nil {
			return request{}, err
		}
		return request{
			url:   c.baseURL + "/rpc/2.0/ai_custom/v1/wenxinworkshop/chat/" + c.endpoint,
			query: map[string]string{"access_token": token},
			body:  body,
		}, nil
	})
	if err != nil {
		return "", err
	}

	var result wenxinResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", c.t.rejected("decode wenxin response", err)
	}
	if result.ErrorCode != 0 {
		return "", wenxinError(result.ErrorCode, result.ErrorMsg)
	}
	if result.Result == nil {
		return "", c.t.rejected("missing result field", nil)
	}
	return *result.Result, nil
}

// wenxinError 将 200 响应体中的 error_code 映射为后端错误类别
func wenxinError(code int, msg string) error {
	kind := pkgerrors.ProviderRejected
	switch code {
	case 110, 111:
		kind = pkgerrors.AuthFailure
	case 4, 17, 18, 336501, 336502:
		kind = pkgerrors.RateLimited
	}
	return pkgerrors.NewBackendError(kind, "wenxin", fmt.Sprintf("error_code %d: %s", code, msg), nil)
}

// Model 返回模型名称
func (c *WenxinBackend) Model() string { return c.model }

// Provider 返回提供商名称
func (c *WenxinBackend) Provider() string { return "wenxin" }
