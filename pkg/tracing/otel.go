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

// Package tracing 为后端调用、agent 阶段与记忆读写提供 OpenTelemetry span。
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	pkgerrors "agentcourt/pkg/errors"
)

const tracerName = "agentcourt"

// OTelConfig OpenTelemetry 配置
type OTelConfig struct {
	ServiceName    string
	ExportEndpoint string
	Insecure       bool
	// SampleRatio 采样比例，<=0 或 >=1 时全量采样
	SampleRatio float64
	// Command 当前进程的子命令（run / serve），写入 resource
	Command string
}

// InitTracer 创建 OTLP/HTTP 导出的 TracerProvider 并设为全局
func InitTracer(ctx context.Context, config OTelConfig) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(config.ExportEndpoint)}
	if config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	if err != nil {
		return nil, pkgerrors.Wrap(err, "create otlp exporter", pkgerrors.V("endpoint", config.ExportEndpoint))
	}

	attrs := []attribute.KeyValue{semconv.ServiceName(config.ServiceName)}
	if config.Command != "" {
		attrs = append(attrs, attribute.String("agentcourt.command", config.Command))
	}
	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, pkgerrors.Wrap(err, "build otel resource")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(Sampler(config.SampleRatio)),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// Sampler 按比例采样，父 span 已采样时跟随父 span
func Sampler(ratio float64) sdktrace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

// StartBackendSpan 开始一次生成式后端调用 span
func StartBackendSpan(ctx context.Context, provider string, model string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "backend.generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("backend.provider", provider),
			attribute.String("backend.model", model),
		),
	)
}

// StartPhaseSpan 开始 agent 阶段（plan / execute / reflect）span
func StartPhaseSpan(ctx context.Context, agentName string, phase string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "agent."+phase,
		trace.WithAttributes(
			attribute.String("agent.name", agentName),
			attribute.String("agent.phase", phase),
		),
	)
}

// StartMemorySpan 开始记忆分区读写 span
func StartMemorySpan(ctx context.Context, op string, index string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "memory."+op,
		trace.WithAttributes(
			attribute.String("memory.index", index),
		),
	)
}

// EndSpan 记录错误并结束 span
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
