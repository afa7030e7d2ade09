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

package http

import (
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"

	"agentcourt/internal/api/http/middleware"
)

// Router HTTP 路由
type Router struct {
	handler    *Handler
	middleware *middleware.Middleware
	rps        float64
	burst      int
	global     []app.HandlerFunc
}

// NewRouter 创建路由
func NewRouter(handler *Handler, mw *middleware.Middleware) *Router {
	return &Router{handler: handler, middleware: mw}
}

// SetRateLimit 设置 /api 下的全局限流；rps<=0 关闭
func (r *Router) SetRateLimit(rps float64, burst int) {
	r.rps = rps
	r.burst = burst
}

// Use 追加全局中间件，须在 Build 之前调用
func (r *Router) Use(mw ...app.HandlerFunc) {
	r.global = append(r.global, mw...)
}

// Build 创建 Hertz 实例并注册路由；opts 追加在地址之后（如 tracing 选项）
func (r *Router) Build(addr string, opts ...config.Option) *server.Hertz {
	h := server.Default(append([]config.Option{server.WithHostPorts(addr)}, opts...)...)
	h.Use(r.global...)
	h.Use(r.middleware.RequestID(), r.middleware.AccessLog())

	h.GET("/health", r.handler.HealthCheck)
	h.GET("/metrics", r.handler.Metrics)

	api := h.Group("/api", r.middleware.CORS(), r.middleware.RateLimit(r.rps, r.burst))
	api.GET("/health", r.handler.HealthCheck)
	api.GET("/agents", r.handler.ListAgents)
	api.OPTIONS("/*path", r.handler.Preflight)

	agents := api.Group("/agents/:name")
	{
		agents.POST("/plan", r.handler.Plan)
		agents.POST("/execute", r.handler.Execute)
		agents.POST("/reflect", r.handler.Reflect)
		agents.GET("/memory/:partition", r.handler.QueryMemory)
	}
	return h
}
