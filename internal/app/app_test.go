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

package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentcourt/internal/agent/transcript"
	"agentcourt/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Model: config.ModelConfig{
			LLM: config.LLMConfig{
				Provider:  "openai",
				Model:     "gpt-4o-mini",
				Providers: map[string]config.ProviderConfig{"openai": {APIKey: "sk-test"}},
			},
			Embedding: config.EmbeddingConfig{Provider: "hash", Dimension: 32},
		},
		Storage: config.StorageConfig{Vector: config.VectorConfig{Type: "memory"}},
		Log:     config.LogConfig{Level: "error"},
		RateLimits: config.RateLimitsConfig{LLM: map[string]config.LLMRateLimitConfig{
			"openai": {RequestsPerMinute: 60, MaxConcurrent: 2},
		}},
	}
}

func TestBootstrap_Roster(t *testing.T) {
	ctx := context.Background()
	b, err := NewBootstrap(ctx, testConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close(ctx) })

	assert.Equal(t, "openai", b.Backend.Provider())
	assert.Equal(t, 32, b.Embedder.Dimension())
	assert.Nil(t, b.Laws)

	roster, err := b.NewRoster(ctx)
	require.NoError(t, err)
	assert.Len(t, roster.Members(), 3, "stenographer has no agent")

	p, err := roster.CourtParticipants()
	require.NoError(t, err)
	assert.Equal(t, "书记员", p.StenographerName)
	assert.Equal(t, "审判长", p.Judge.Name())
	assert.Equal(t, "原告律师", p.Plaintiff.Identity().Role)

	_, err = roster.Get("nobody")
	assert.Error(t, err)
}

func TestRoster_MissingRole(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Court.Roles = []config.RoleConfig{
		{Role: transcript.RoleJudge, Name: "法官"},
		{Role: transcript.RolePlaintiffLawyer, Name: "甲律师"},
	}
	b, err := NewBootstrap(ctx, cfg)
	require.NoError(t, err)

	roster, err := b.NewRoster(ctx)
	require.NoError(t, err)
	_, err = roster.CourtParticipants()
	assert.Error(t, err)
}

func TestRoster_DuplicateName(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Court.Roles = []config.RoleConfig{
		{Role: transcript.RolePlaintiffLawyer, Name: "律师"},
		{Role: transcript.RoleDefendantLawyer, Name: "律师"},
	}
	b, err := NewBootstrap(ctx, cfg)
	require.NoError(t, err)
	_, err = b.NewRoster(ctx)
	assert.Error(t, err)
}

func TestNewBackendFromConfig_MissingKey(t *testing.T) {
	cfg := testConfig()
	cfg.Model.LLM.Providers = nil
	_, err := NewBootstrap(context.Background(), cfg)
	assert.Error(t, err)
}
