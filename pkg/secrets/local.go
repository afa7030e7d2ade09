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
	"os"
	"sort"
	"strings"
	"sync"

	pkgerrors "agentcourt/pkg/errors"
)

// EnvPrefix 环境变量名前缀
const EnvPrefix = "AGENTCOURT_"

// EnvName 将 secret key 映射为环境变量名：llm/openai -> AGENTCOURT_LLM_OPENAI
func EnvName(key string) string {
	r := strings.NewReplacer("/", "_", "-", "_", ".", "_")
	return EnvPrefix + strings.ToUpper(r.Replace(key))
}

type envStore struct{}

// NewEnvStore 基于进程环境变量的 Store
func NewEnvStore() Store {
	return envStore{}
}

func (envStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := os.LookupEnv(EnvName(key)); ok && v != "" {
		return v, nil
	}
	return "", notFound(key)
}

func (envStore) Set(_ context.Context, key, value string) error {
	if err := os.Setenv(EnvName(key), value); err != nil {
		return pkgerrors.Wrap(err, "set env secret", pkgerrors.V("key", key))
	}
	return nil
}

func (envStore) Delete(_ context.Context, key string) error {
	if err := os.Unsetenv(EnvName(key)); err != nil {
		return pkgerrors.Wrap(err, "unset env secret", pkgerrors.V("key", key))
	}
	return nil
}

// List 返回的是环境变量名而非原始 key，映射不可逆
func (envStore) List(_ context.Context, prefix string) ([]string, error) {
	want := EnvName(prefix)
	if prefix == "" {
		want = EnvPrefix
	}
	var out []string
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, want) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// MemoryStore 进程内 Store，用于测试与本地运行
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore 创建空的 MemoryStore
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreFrom(nil)
}

// NewMemoryStoreFrom 以 seed 的副本初始化
func NewMemoryStoreFrom(seed map[string]string) *MemoryStore {
	values := make(map[string]string, len(seed))
	for k, v := range seed {
		values[k] = v
	}
	return &MemoryStore{values: values}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", notFound(key)
	}
	return v, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	if key == "" {
		return pkgerrors.Wrap(pkgerrors.ErrInvalidArg, "secret key is empty")
	}
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for k := range m.values {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}
