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
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	pkgerrors "agentcourt/pkg/errors"
	"agentcourt/pkg/metrics"
	"agentcourt/pkg/utils"
)

// provider 在 429 时下发的剩余配额计数
const (
	HeaderRemainingRequests = "X-Ratelimit-Remaining-Requests"
	HeaderRemainingTokens   = "X-Ratelimit-Remaining-Tokens"
)

// transport 各 HTTP 变体共享的 resty 封装：超时分类、状态码分类与一次性配额退避重试
type transport struct {
	provider string
	client   *resty.Client
	backoff  time.Duration
}

func newTransport(provider string, timeout, backoff time.Duration) *transport {
	backoff = utils.DefaultDuration(backoff, defaultBackoff)
	client := resty.New()
	client.SetTimeout(utils.DefaultDuration(timeout, defaultTimeout))
	// 重试策略由 post 自行控制
	client.SetRetryCount(0)
	return &transport{provider: provider, client: client, backoff: backoff}
}

// request 描述一次可原样重发的请求
type request struct {
	url     string
	headers map[string]string
	query   map[string]string
	body    interface{}
}

func (t *transport) send(ctx context.Context, req request) (*resty.Response, error) {
	r := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeaders(req.headers).
		SetQueryParams(req.query)
	if req.body != nil {
		r.SetBody(req.body)
	}
	resp, err := r.Post(req.url)
	if err != nil {
		return nil, t.classifyTransportError(ctx, err)
	}
	return resp, nil
}

// post 发送固定请求，见 postWith
func (t *transport) post(ctx context.Context, req request) (*resty.Response, error) {
	return t.postWith(ctx, func(context.Context) (request, error) { return req, nil })
}

// postWith 每次发送前调用 build 构造请求（可在其中刷新短期凭证）；
// 429 且配额耗尽时退避一次后重新构造并重发，仍为 429 则返回 RateLimited
func (t *transport) postWith(ctx context.Context, build func(context.Context) (request, error)) (*resty.Response, error) {
	resp, err := t.buildAndSend(ctx, build)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusTooManyRequests {
		return resp, t.checkStatus(resp)
	}
	if !QuotaExhausted(resp.Header()) {
		return nil, t.rateLimited(resp, "too many requests")
	}

	metrics.BackendRateLimitRetries.WithLabelValues(t.provider).Inc()
	if err := sleepContext(ctx, t.backoff); err != nil {
		return nil, pkgerrors.Wrap(err, "rate limit backoff interrupted",
			pkgerrors.V("provider", t.provider))
	}

	resp, err = t.buildAndSend(ctx, build)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() == http.StatusTooManyRequests {
		return nil, t.rateLimited(resp, "quota still exhausted after backoff")
	}
	return resp, t.checkStatus(resp)
}

func (t *transport) buildAndSend(ctx context.Context, build func(context.Context) (request, error)) (*resty.Response, error) {
	req, err := build(ctx)
	if err != nil {
		return nil, err
	}
	return t.send(ctx, req)
}

// QuotaExhausted 剩余请求数或剩余 token 数为 0（缺失或非法按 0 处理）
func QuotaExhausted(h http.Header) bool {
	return remaining(h, HeaderRemainingRequests) == 0 || remaining(h, HeaderRemainingTokens) == 0
}

func remaining(h http.Header, key string) int {
	v, err := strconv.Atoi(h.Get(key))
	if err != nil {
		return 0
	}
	return v
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *transport) rateLimited(resp *resty.Response, msg string) error {
	err := pkgerrors.NewBackendError(pkgerrors.RateLimited, t.provider, msg, nil)
	err.Status = resp.StatusCode()
	return err
}

func (t *transport) checkStatus(resp *resty.Response) error {
	status := resp.StatusCode()
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		err := pkgerrors.NewBackendError(pkgerrors.AuthFailure, t.provider, truncate(resp.String()), nil)
		err.Status = status
		return err
	default:
		err := pkgerrors.NewBackendError(pkgerrors.ProviderRejected, t.provider, truncate(resp.String()), nil)
		err.Status = status
		return err
	}
}

// classifyTransportError 超时映射为 Timeout；调用方取消原样返回；其余视为 provider 不可用
func (t *transport) classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return pkgerrors.Wrap(ctx.Err(), "backend request cancelled", pkgerrors.V("provider", t.provider))
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return pkgerrors.NewBackendError(pkgerrors.Timeout, t.provider, "request timed out", err)
	}
	return pkgerrors.NewBackendError(pkgerrors.ProviderRejected, t.provider, "request failed", err)
}

// rejected 构造响应体不合法的 ProviderRejected
func (t *transport) rejected(msg string, cause error) error {
	return pkgerrors.NewBackendError(pkgerrors.ProviderRejected, t.provider, msg, cause)
}

func truncate(s string) string {
	const max = 512
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
