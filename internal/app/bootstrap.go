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

// Package app 汇总配置到运行时依赖的初始化，供 CLI、API 与模拟运行复用。
package app

import (
	"context"
	"errors"
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"agentcourt/internal/legal"
	"agentcourt/internal/model/embedding"
	"agentcourt/internal/model/llm"
	"agentcourt/internal/storage/vector"
	"agentcourt/pkg/config"
	"agentcourt/pkg/log"
	"agentcourt/pkg/metrics"
	"agentcourt/pkg/secrets"
	"agentcourt/pkg/tracing"
)

// Bootstrap 统一初始化：日志、secret、后端、Embedder、向量存储与法条检索
type Bootstrap struct {
	Config      *config.Config
	Logger      *log.Logger
	Secrets     secrets.Store
	Backend     llm.Backend
	Embedder    embedding.Embedder
	VectorStore vector.Store
	Laws        legal.Searcher

	tracer *sdktrace.TracerProvider
}

// NewBootstrap 根据配置创建 Bootstrap；API key 中的 secret:// 引用在此解析
func NewBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	logger, err := log.NewLogger(&log.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	store, err := secrets.NewStore(secrets.Config{Provider: cfg.Secrets.Provider, Vault: cfg.Secrets.Vault})
	if err != nil {
		return nil, fmt.Errorf("初始化 secret 存储失败: %w", err)
	}
	if err := config.ResolveSecrets(ctx, cfg, store); err != nil {
		return nil, fmt.Errorf("解析 secret 失败: %w", err)
	}

	backend, err := NewBackendFromConfig(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化生成式后端失败: %w", err)
	}
	embedder, err := NewEmbedderFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("初始化 Embedder 失败: %w", err)
	}
	vecStore, err := vector.NewStore(ctx, cfg.Storage.Vector)
	if err != nil {
		return nil, fmt.Errorf("初始化向量存储失败: %w", err)
	}

	logger.Info("bootstrap ready",
		"llm_provider", backend.Provider(),
		"llm_model", backend.Model(),
		"embedding", embedder.Model(),
		"vector_store", cfg.Storage.Vector.Type,
	)
	return &Bootstrap{
		Config:      cfg,
		Logger:      logger,
		Secrets:     store,
		Backend:     backend,
		Embedder:    embedder,
		VectorStore: vecStore,
		Laws:        NewLegalSearcherFromConfig(cfg),
	}, nil
}

// InitTracing 按配置启用 OpenTelemetry 导出；API 服务改用 Hertz 的 provider
func (b *Bootstrap) InitTracing(ctx context.Context, command string) error {
	tc := b.Config.Monitoring.Tracing
	if !tc.Enable || tc.ExportEndpoint == "" {
		return nil
	}
	tp, err := tracing.InitTracer(ctx, tracing.OTelConfig{
		ServiceName:    tc.ServiceName,
		ExportEndpoint: tc.ExportEndpoint,
		Insecure:       tc.Insecure,
		SampleRatio:    tc.SampleRatio,
		Command:        command,
	})
	if err != nil {
		return fmt.Errorf("初始化链路追踪失败: %w", err)
	}
	b.tracer = tp
	b.Logger.Info("链路追踪已启用", "service_name", tc.ServiceName, "endpoint", tc.ExportEndpoint)
	return nil
}

// Close 释放存储与追踪资源；配置了指标文件时写出快照
func (b *Bootstrap) Close(ctx context.Context) error {
	var errs []error
	if path := b.Config.Monitoring.Prometheus.TextFile; path != "" {
		if err := metrics.WriteTextFile(path); err != nil {
			errs = append(errs, fmt.Errorf("写出指标文件失败: %w", err))
		}
	}
	if b.tracer != nil {
		if err := b.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if b.VectorStore != nil {
		if err := b.VectorStore.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
