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

package vector

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"agentcourt/pkg/config"
	pkgerrors "agentcourt/pkg/errors"
)

// 存储类型
const (
	TypeMemory   = "memory"
	TypeFile     = "file"
	TypeRedis    = "redis"
	TypePostgres = "postgres"
)

// DefaultDir file 存储未配置目录时使用
const DefaultDir = "db"

// NewStore 按 storage.vector.type 创建向量存储；file 为默认
func NewStore(ctx context.Context, cfg config.VectorConfig) (Store, error) {
	switch cfg.Type {
	case TypeMemory:
		return NewMemoryStore(), nil
	case "", TypeFile:
		dir := cfg.Dir
		if dir == "" {
			dir = DefaultDir
		}
		return NewFileStore(ctx, dir)
	case TypeRedis:
		client, err := dialRedis(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, cfg.KeyPrefix), nil
	case TypePostgres:
		return NewPostgresStore(ctx, cfg.DSN, cfg.KeyPrefix)
	default:
		return nil, pkgerrors.Wrap(pkgerrors.ErrInvalidArg, "unsupported vector store type", pkgerrors.V("type", cfg.Type))
	}
}

func dialRedis(ctx context.Context, cfg config.VectorConfig) (*redis.Client, error) {
	db := 0
	if cfg.DB != "" {
		n, err := strconv.Atoi(cfg.DB)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.ErrInvalidArg, "redis db must be an integer", pkgerrors.V("db", cfg.DB))
		}
		db = n
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, pkgerrors.Wrap(err, "redis ping", pkgerrors.V("addr", cfg.Addr))
	}
	return client, nil
}
