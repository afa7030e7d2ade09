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

package secrets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "agentcourt/pkg/errors"
)

func TestNewStore(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		wantErr  bool
	}{
		{name: "default env", provider: ""},
		{name: "memory", provider: "memory"},
		{name: "env", provider: "env"},
		{name: "unknown provider", provider: "k8s", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store, err := NewStore(Config{Provider: tc.provider})
			if tc.wantErr {
				if !errors.Is(err, pkgerrors.ErrInvalidArg) {
					t.Fatalf("err = %v, want ErrInvalidArg", err)
				}
				if store != nil {
					t.Fatalf("store should be nil when error occurs")
				}
				return
			}
			if err != nil || store == nil {
				t.Fatalf("NewStore(%q) = %v, %v", tc.provider, store, err)
			}
		})
	}
}

func TestEnvName(t *testing.T) {
	cases := map[string]string{
		"llm/openai":        "AGENTCOURT_LLM_OPENAI",
		"llm/wenxin-secret": "AGENTCOURT_LLM_WENXIN_SECRET",
		"embedding.api":     "AGENTCOURT_EMBEDDING_API",
	}
	for key, want := range cases {
		if got := EnvName(key); got != want {
			t.Errorf("EnvName(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestEnvStore(t *testing.T) {
	ctx := context.Background()
	t.Setenv("AGENTCOURT_LLM_ZHIPU", "zp-key")
	s := NewEnvStore()

	got, err := s.Get(ctx, "llm/zhipu")
	if err != nil || got != "zp-key" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	keys, err := s.List(ctx, "llm/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	found := false
	for _, k := range keys {
		found = found || k == "AGENTCOURT_LLM_ZHIPU"
	}
	if !found {
		t.Fatalf("List = %v, missing AGENTCOURT_LLM_ZHIPU", keys)
	}

	if err := s.Delete(ctx, "llm/zhipu"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "llm/zhipu"); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("Get after delete err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStoreFrom(map[string]string{"llm/openai": "sk-1", "llm/deepseek": "sk-2", "vector/password": "pw"})

	keys, err := s.List(ctx, "llm/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 2 || keys[0] != "llm/deepseek" || keys[1] != "llm/openai" {
		t.Fatalf("List = %v", keys)
	}
	if err := s.Set(ctx, "", "x"); !errors.Is(err, pkgerrors.ErrInvalidArg) {
		t.Fatalf("Set empty key err = %v", err)
	}
	if err := s.Delete(ctx, "llm/openai"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "llm/openai"); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("Get after delete err = %v", err)
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStoreFrom(map[string]string{"llm/openai": "sk-1"})

	if got, err := Resolve(ctx, s, "plain-key"); err != nil || got != "plain-key" {
		t.Fatalf("Resolve plain = %q, %v", got, err)
	}
	if got, err := Resolve(ctx, s, "secret://llm/openai"); err != nil || got != "sk-1" {
		t.Fatalf("Resolve ref = %q, %v", got, err)
	}
	if _, err := Resolve(ctx, s, "secret://"); !errors.Is(err, pkgerrors.ErrInvalidArg) {
		t.Fatalf("Resolve empty ref err = %v", err)
	}
	if _, err := Resolve(ctx, s, "secret://llm/missing"); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("Resolve missing err = %v", err)
	}
}

func TestVaultStoreGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/sys/health":
			_, _ = w.Write([]byte(`{"initialized":true,"sealed":false,"standby":false}`))
		case "/v1/secret/data/agentcourt/llm/wenxin":
			_, _ = w.Write([]byte(`{"data":{"data":{"value":"wx-key"},"metadata":{"version":1}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
		}
	}))
	defer srv.Close()

	store, err := NewStore(Config{Provider: "vault", Vault: VaultConfig{Address: srv.URL, Token: "t", Path: "agentcourt"}})
	if err != nil {
		t.Fatalf("NewStore(vault): %v", err)
	}
	got, err := store.Get(context.Background(), "llm/wenxin")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "wx-key" {
		t.Fatalf("Get = %q, want wx-key", got)
	}
	if _, err := store.Get(context.Background(), "llm/missing"); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("missing secret err = %v, want ErrNotFound", err)
	}
}
