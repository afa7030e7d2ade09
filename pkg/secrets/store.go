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

// Package secrets 解析后端凭证引用（secret://llm/openai 之类）。
package secrets

import (
	"context"
	"strings"

	pkgerrors "agentcourt/pkg/errors"
)

// RefPrefix 配置值中的 secret 引用前缀
const RefPrefix = "secret://"

// Store Secret 存储接口
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
	// List 返回以 prefix 开头的 key，按字典序
	List(ctx context.Context, prefix string) ([]string, error)
}

// Config Secret Store 配置
type Config struct {
	Provider string      // env | memory | vault
	Vault    VaultConfig // Provider=vault 时使用
}

// NewStore 创建 Secret Store；Provider 为空时使用 env
func NewStore(config Config) (Store, error) {
	switch config.Provider {
	case "", "env":
		return NewEnvStore(), nil
	case "memory":
		return NewMemoryStore(), nil
	case "vault":
		return NewVaultStore(config.Vault)
	default:
		return nil, pkgerrors.Wrap(pkgerrors.ErrInvalidArg, "unsupported secret provider", pkgerrors.V("provider", config.Provider))
	}
}

// IsRef 判断配置值是否为 secret 引用
func IsRef(value string) bool {
	return strings.HasPrefix(value, RefPrefix)
}

// Resolve 解析 value：secret 引用从 store 读取，其余原样返回
func Resolve(ctx context.Context, store Store, value string) (string, error) {
	if !IsRef(value) {
		return value, nil
	}
	key := strings.TrimPrefix(value, RefPrefix)
	if key == "" {
		return "", pkgerrors.Wrap(pkgerrors.ErrInvalidArg, "empty secret reference")
	}
	return store.Get(ctx, key)
}

func notFound(key string) error {
	return pkgerrors.Wrap(pkgerrors.ErrNotFound, "secret not found", pkgerrors.V("key", key))
}
