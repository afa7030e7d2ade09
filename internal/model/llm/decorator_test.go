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
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "agentcourt/pkg/errors"
)

type fakeChatModel struct {
	mu     sync.Mutex
	errs   []error
	calls  int
	inputs [][]*schema.Message
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.inputs = append(f.inputs, input)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return schema.AssistantMessage("eino reply", nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func TestEino_SystemUserAndRateLimitRetry(t *testing.T) {
	chat := &fakeChatModel{errs: []error{
		fmt.Errorf("error, status code: 429, status: 429 Too Many Requests, message: quota"),
	}}
	b := NewEinoBackendWithModel(chat, "gpt-4o", time.Millisecond)
	out, err := b.Generate(context.Background(), "", "hello", GenerateOptions{Temperature: 0.2})
	require.NoError(t, err)
	assert.Equal(t, "eino reply", out)
	assert.Equal(t, 2, chat.calls)
	require.Len(t, chat.inputs[0], 2)
	assert.Equal(t, schema.System, chat.inputs[0][0].Role)
	assert.Equal(t, DefaultInstruction, chat.inputs[0][0].Content)
	assert.Equal(t, schema.User, chat.inputs[0][1].Role)
}

func TestEino_ErrorClassification(t *testing.T) {
	auth := &fakeChatModel{errs: []error{fmt.Errorf("error, status code: 401, message: bad key")}}
	_, err := NewEinoBackendWithModel(auth, "m", time.Millisecond).Generate(context.Background(), "", "p", GenerateOptions{})
	assert.True(t, pkgerrors.IsBackendKind(err, pkgerrors.AuthFailure), "got %v", err)

	limited := &fakeChatModel{errs: []error{
		fmt.Errorf("status code: 429"), fmt.Errorf("status code: 429"),
	}}
	_, err = NewEinoBackendWithModel(limited, "m", time.Millisecond).Generate(context.Background(), "", "p", GenerateOptions{})
	assert.True(t, pkgerrors.IsBackendKind(err, pkgerrors.RateLimited), "got %v", err)
	assert.Equal(t, 2, limited.calls)

	timeout := &fakeChatModel{errs: []error{context.DeadlineExceeded}}
	_, err = NewEinoBackendWithModel(timeout, "m", time.Millisecond).Generate(context.Background(), "", "p", GenerateOptions{})
	assert.True(t, pkgerrors.IsBackendKind(err, pkgerrors.Timeout), "got %v", err)
}

type stubBackend struct {
	reply string
	err   error
	calls int
}

func (s *stubBackend) Generate(ctx context.Context, instruction, prompt string, options GenerateOptions) (string, error) {
	s.calls++
	return s.reply, s.err
}
func (s *stubBackend) Model() string    { return "stub-model" }
func (s *stubBackend) Provider() string { return "stub" }

func TestRateLimitedBackend_ReleasesSlot(t *testing.T) {
	limiter := NewLLMRateLimiter(map[string]LLMLimitConfig{
		"stub": {RequestsPerMinute: 6000, TokensPerMinute: 600000, MaxConcurrent: 1},
	}, nil)
	inner := &stubBackend{reply: "ok"}
	b := NewRateLimitedBackend(inner, limiter)

	for i := 0; i < 3; i++ {
		out, err := b.Generate(context.Background(), "", "prompt", GenerateOptions{})
		require.NoError(t, err)
		assert.Equal(t, "ok", out)
	}
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, 0, limiter.InFlight("stub"))
	assert.Equal(t, "stub", b.Provider())
}

func TestRateLimiter_WaitHonorsContext(t *testing.T) {
	limiter := NewLLMRateLimiter(map[string]LLMLimitConfig{"busy": {MaxConcurrent: 1}}, nil)
	require.NoError(t, limiter.Wait(context.Background(), "busy", 1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := limiter.Wait(ctx, "busy", 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	limiter.Release("busy")
	assert.Equal(t, 0, limiter.InFlight("busy"))
}

func TestInstrumentedBackend_Outcome(t *testing.T) {
	ok := NewInstrumentedBackend(&stubBackend{reply: "fine"}, nil)
	out, err := ok.Generate(context.Background(), "", "p", GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "fine", out)

	failing := NewInstrumentedBackend(&stubBackend{
		err: pkgerrors.NewBackendError(pkgerrors.RateLimited, "stub", "", nil),
	}, nil)
	_, err = failing.Generate(context.Background(), "", "p", GenerateOptions{})
	assert.Equal(t, "rate_limited", Outcome(err))
	assert.Equal(t, "error", Outcome(errors.New("x")))
	assert.Equal(t, "ok", Outcome(nil))
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 1, estimateTokens("", 0))
	assert.Equal(t, 2, estimateTokens("abcdefgh", 0))
	assert.Equal(t, 4, estimateTokens("现在开庭", 0))
	assert.Equal(t, 104, estimateTokens("现在开庭", 100))
}
