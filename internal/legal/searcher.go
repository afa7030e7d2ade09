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

// Package legal 访问外部法条检索服务。
package legal

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/m-mizutani/goerr/v2"
)

// Law 一条法条检索结果
type Law struct {
	LawsName       string `json:"lawsName"`
	ArticleTag     string `json:"articleTag"`
	ArticleContent string `json:"articleContent"`
}

// Searcher 法条检索
type Searcher interface {
	Search(ctx context.Context, query string) ([]Law, error)
}

// HTTPSearcher 通过 GET {baseURL}?question={query} 检索法条
type HTTPSearcher struct {
	baseURL    string
	client     *resty.Client
	maxResults int
}

// NewHTTPSearcher 创建 HTTP 检索客户端；maxResults<=0 时不截断
func NewHTTPSearcher(baseURL string, timeout time.Duration, maxResults int) *HTTPSearcher {
	client := resty.New()
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &HTTPSearcher{baseURL: baseURL, client: client, maxResults: maxResults}
}

// Search 实现 Searcher
func (s *HTTPSearcher) Search(ctx context.Context, query string) ([]Law, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("question", query).
		Get(s.baseURL)
	if err != nil {
		return nil, goerr.Wrap(err, "legal search request failed", goerr.V("query", query))
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, goerr.New("legal search returned non-200",
			goerr.V("status", resp.StatusCode()), goerr.V("body", resp.String()))
	}
	var laws []Law
	if err := json.Unmarshal(resp.Body(), &laws); err != nil {
		return nil, goerr.Wrap(err, "failed to decode legal search response")
	}
	if s.maxResults > 0 && len(laws) > s.maxResults {
		laws = laws[:s.maxResults]
	}
	return laws, nil
}

// Static 固定结果的 Searcher，用于未配置检索服务的本地运行与测试
type Static []Law

// Search 实现 Searcher
func (s Static) Search(ctx context.Context, query string) ([]Law, error) {
	out := make([]Law, len(s))
	copy(out, s)
	return out, nil
}
