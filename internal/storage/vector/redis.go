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
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	pkgerrors "agentcourt/pkg/errors"
)

// RedisStore 基于 Redis 的向量存储；相似度在客户端计算
//
// 键布局：
//
//	{prefix}:indexes          SET  索引名
//	{prefix}:idx:{name}       HASH 索引定义
//	{prefix}:ctr:{name}       INCR 写入序号
//	{prefix}:seq:{name}       ZSET id -> 写入序号
//	{prefix}:vec:{name}:{id}  HASH content/values/metadata
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore 创建 Redis 向量存储
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "agentcourt"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) indexesKey() string          { return s.prefix + ":indexes" }
func (s *RedisStore) indexKey(name string) string { return s.prefix + ":idx:" + name }
func (s *RedisStore) ctrKey(name string) string   { return s.prefix + ":ctr:" + name }
func (s *RedisStore) seqKey(name string) string   { return s.prefix + ":seq:" + name }
func (s *RedisStore) vecKey(name, id string) string {
	return s.prefix + ":vec:" + name + ":" + id
}

// Create 创建向量索引
func (s *RedisStore) Create(ctx context.Context, idx *Index) error {
	added, err := s.client.SAdd(ctx, s.indexesKey(), idx.Name).Result()
	if err != nil {
		return fmt.Errorf("redis create index: %w", err)
	}
	if added == 0 {
		return fmt.Errorf("%w: %s", ErrIndexExists, idx.Name)
	}
	meta, err := json.Marshal(idx.Metadata)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.indexKey(idx.Name),
		"dimension", idx.Dimension,
		"distance", idx.Distance,
		"metadata", string(meta),
	).Err()
}

func (s *RedisStore) loadIndex(ctx context.Context, name string) (*Index, error) {
	fields, err := s.client.HGetAll(ctx, s.indexKey(name)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis load index: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("index with name %s not found", name)
	}
	dim, _ := strconv.Atoi(fields["dimension"])
	idx := &Index{Name: name, Dimension: dim, Distance: fields["distance"]}
	_ = json.Unmarshal([]byte(fields["metadata"]), &idx.Metadata)
	return idx, nil
}

// Add 逐条追加；ZADD NX 保证 ID 唯一
func (s *RedisStore) Add(ctx context.Context, indexName string, vectors []*Vector) error {
	idx, err := s.loadIndex(ctx, indexName)
	if err != nil {
		return err
	}
	for _, v := range vectors {
		if len(v.Values) != idx.Dimension {
			return fmt.Errorf("vector dimension %d does not match index dimension %d", len(v.Values), idx.Dimension)
		}
	}
	for _, v := range vectors {
		seq, err := s.client.Incr(ctx, s.ctrKey(indexName)).Result()
		if err != nil {
			return fmt.Errorf("redis add: %w", err)
		}
		added, err := s.client.ZAddNX(ctx, s.seqKey(indexName), redis.Z{Score: float64(seq), Member: v.ID}).Result()
		if err != nil {
			return fmt.Errorf("redis add: %w", err)
		}
		if added == 0 {
			return pkgerrors.Wrap(pkgerrors.ErrDuplicateID, "add vector",
				pkgerrors.V("index", indexName), pkgerrors.V("id", v.ID))
		}
		values, err := json.Marshal(v.Values)
		if err != nil {
			return err
		}
		meta, err := json.Marshal(v.Metadata)
		if err != nil {
			return err
		}
		if err := s.client.HSet(ctx, s.vecKey(indexName, v.ID),
			"content", v.Content,
			"values", string(values),
			"metadata", string(meta),
		).Err(); err != nil {
			return fmt.Errorf("redis add: %w", err)
		}
	}
	return nil
}

// ordered 按写入序号读取索引下全部向量
func (s *RedisStore) ordered(ctx context.Context, indexName string) ([]*Vector, error) {
	ids, err := s.client.ZRange(ctx, s.seqKey(indexName), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.vecKey(indexName, id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	out := make([]*Vector, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// id 已登记但内容尚未写入
			continue
		}
		out = append(out, decodeRedisVector(ids[i], fields))
	}
	return out, nil
}

func decodeRedisVector(id string, fields map[string]string) *Vector {
	v := &Vector{ID: id, Content: fields["content"]}
	_ = json.Unmarshal([]byte(fields["values"]), &v.Values)
	_ = json.Unmarshal([]byte(fields["metadata"]), &v.Metadata)
	return v
}

// Search 搜索向量
func (s *RedisStore) Search(ctx context.Context, indexName string, query []float64, options *SearchOptions) ([]*SearchResult, error) {
	idx, err := s.loadIndex(ctx, indexName)
	if err != nil {
		return nil, err
	}
	if len(query) != idx.Dimension {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), idx.Dimension)
	}
	vectors, err := s.ordered(ctx, indexName)
	if err != nil {
		return nil, err
	}
	return rank(vectors, query, idx.Distance, options), nil
}

// Get 根据 ID 获取向量
func (s *RedisStore) Get(ctx context.Context, indexName string, id string) (*Vector, error) {
	fields, err := s.client.HGetAll(ctx, s.vecKey(indexName, id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	if len(fields) == 0 {
		return nil, pkgerrors.Wrap(pkgerrors.ErrNotFound, "get vector", pkgerrors.V("id", id))
	}
	return decodeRedisVector(id, fields), nil
}

// ListIndexes 列出所有索引
func (s *RedisStore) ListIndexes(ctx context.Context) ([]string, error) {
	return s.client.SMembers(ctx, s.indexesKey()).Result()
}

// Close 关闭存储连接
func (s *RedisStore) Close() error {
	return s.client.Close()
}
