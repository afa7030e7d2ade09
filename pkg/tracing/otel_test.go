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

package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), Sampler(0).Description())
	assert.Equal(t, sdktrace.AlwaysSample().Description(), Sampler(1).Description())
	assert.Contains(t, Sampler(0.25).Description(), "TraceIDRatioBased")
}

func TestSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx, span := StartPhaseSpan(context.Background(), "原告律师", "plan")
	_, child := StartBackendSpan(ctx, "openai", "gpt-4o-mini")
	EndSpan(child, errors.New("quota"))
	EndSpan(span, nil)
	_, mem := StartMemorySpan(context.Background(), "query", "judge_case")
	EndSpan(mem, nil)

	ended := rec.Ended()
	require.Len(t, ended, 3)
	assert.Equal(t, "backend.generate", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, ended[1].SpanContext().TraceID(), ended[0].Parent().TraceID())
	assert.Equal(t, "agent.plan", ended[1].Name())
	assert.Equal(t, codes.Unset, ended[1].Status().Code)
	assert.Equal(t, "memory.query", ended[2].Name())
}
