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

// Package api 组装 Hertz 服务：路由、Hertz 日志桥接与可选的 OpenTelemetry。
package api

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzslog "github.com/hertz-contrib/logger/slog"
	"github.com/hertz-contrib/obs-opentelemetry/provider"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"

	"agentcourt/internal/api/http"
	"agentcourt/internal/api/http/middleware"
	"agentcourt/internal/app"
	applog "agentcourt/pkg/log"
)

// otelProviderShutdown 用于优雅关闭时关闭 OpenTelemetry provider
type otelProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// App API 应用
type App struct {
	bootstrap    *app.Bootstrap
	router       *http.Router
	hertz        *server.Hertz
	otelProvider otelProviderShutdown
}

// NewApp 以名册中的 Agent 创建 API 应用
func NewApp(bootstrap *app.Bootstrap, roster *app.Roster) (*App, error) {
	if bootstrap == nil || roster == nil {
		return nil, fmt.Errorf("bootstrap and roster are required")
	}
	participants := make(map[string]http.Participant)
	for _, m := range roster.Members() {
		participants[m.Config.Name] = http.Participant{Agent: m.Agent, Memory: m.Memory}
	}
	logger := bootstrap.Logger.Logger
	router := http.NewRouter(http.NewHandler(participants, logger), middleware.NewMiddleware(logger))
	router.SetRateLimit(bootstrap.Config.API.RateLimitRPS, bootstrap.Config.API.RateLimitBurst)
	return &App{bootstrap: bootstrap, router: router}, nil
}

// Router 返回路由（测试用）
func (a *App) Router() *http.Router { return a.router }

// Run 启动 HTTP 服务并阻塞，addr 如 ":8080"
func (a *App) Run(addr string) error {
	cfg := a.bootstrap.Config
	a.bootstrap.Logger.Info("API 服务启动", "addr", addr)

	// Hertz 自身日志与应用日志使用同一级别与输出
	hlog.SetLogger(hertzslog.NewLogger(
		hertzslog.WithOutput(applog.Output(&applog.Config{
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
		})),
		hertzslog.WithLevel(a.bootstrap.Logger.Level()),
	))

	tc := cfg.Monitoring.Tracing
	exportEndpoint := tc.ExportEndpoint
	if exportEndpoint == "" {
		exportEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if tc.Enable && exportEndpoint != "" {
		opts := []provider.Option{
			provider.WithServiceName(tc.ServiceName),
			provider.WithExportEndpoint(exportEndpoint),
		}
		if tc.Insecure {
			opts = append(opts, provider.WithInsecure())
		}
		a.otelProvider = provider.NewOpenTelemetryProvider(opts...)
		tracerOpt, tracerCfg := hertztracing.NewServerTracer()
		a.router.Use(hertztracing.ServerMiddleware(tracerCfg))
		a.hertz = a.router.Build(addr, tracerOpt)
		a.bootstrap.Logger.Info("链路追踪已启用", "service_name", tc.ServiceName, "endpoint", exportEndpoint)
	} else {
		a.hertz = a.router.Build(addr)
	}
	return a.hertz.Run()
}

// Shutdown 优雅关闭（传入 ctx 以支持超时）
func (a *App) Shutdown(ctx context.Context) error {
	if a.otelProvider != nil {
		_ = a.otelProvider.Shutdown(ctx)
	}
	if a.hertz != nil {
		if err := a.hertz.Shutdown(ctx); err != nil {
			return err
		}
	}
	return a.bootstrap.Close(ctx)
}
