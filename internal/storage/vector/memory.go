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
	"fmt"
	"sync"

	pkgerrors "agentcourt/pkg/errors"
)

// MemoryStore 内存向量存储实现
type MemoryStore struct {
	indexes map[string]*index
	mu      sync.RWMutex
}

// index 内存索引，ordered 保持写入顺序
type index struct {
	index   *Index
	ordered []*Vector
	ids     map[string]struct{}
}

// NewMemoryStore 创建新的内存向量存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		indexes: make(map[string]*index),
	}
}

// Create 创建向量索引
func (s *MemoryStore) Create(ctx context.Context, idx *Index) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.indexes[idx.Name]; exists {
		return fmt.Errorf("%w: %s", ErrIndexExists, idx.Name)
	}
	s.indexes[idx.Name] = &index{
		index: idx,
		ids:   make(map[string]struct{}),
	}
	return nil
}

// Add 添加向量；批次整体校验通过后才写入
func (s *MemoryStore) Add(ctx context.Context, indexName string, vectors []*Vector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, exists := s.indexes[indexName]
	if !exists {
		return fmt.Errorf("index with name %s not found", indexName)
	}

	seen := make(map[string]struct{}, len(vectors))
	for _, v := range vectors {
		if len(v.Values) != idx.index.Dimension {
			return fmt.Errorf("vector dimension %d does not match index dimension %d", len(v.Values), idx.index.Dimension)
		}
		_, dupStored := idx.ids[v.ID]
		_, dupBatch := seen[v.ID]
		if dupStored || dupBatch {
			return pkgerrors.Wrap(pkgerrors.ErrDuplicateID, "add vector",
				pkgerrors.V("index", indexName), pkgerrors.V("id", v.ID))
		}
		seen[v.ID] = struct{}{}
	}
	for _, v := range vectors {
		idx.ordered = append(idx.ordered, cloneVector(v))
		idx.ids[v.ID] = struct{}{}
	}
	return nil
}

// Search 搜索向量
func (s *MemoryStore) Search(ctx context.Context, indexName string, query []float64, options *SearchOptions) ([]*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, exists := s.indexes[indexName]
	if !exists {
		return nil, fmt.Errorf("index with name %s not found", indexName)
	}
	if len(query) != idx.index.Dimension {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), idx.index.Dimension)
	}
	return rank(idx.ordered, query, idx.index.Distance, options), nil
}

// Get 根据 ID 获取向量
func (s *MemoryStore) Get(ctx context.Context, indexName string, id string) (*Vector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, exists := s.indexes[indexName]
	if !exists {
		return nil, fmt.Errorf("index with name %s not found", indexName)
	}
	for _, v := range idx.ordered {
		if v.ID == id {
			return cloneVector(v), nil
		}
	}
	return nil, pkgerrors.Wrap(pkgerrors.ErrNotFound, "get vector", pkgerrors.V("id", id))
}

// ListIndexes 列出所有索引
func (s *MemoryStore) ListIndexes(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.indexes))
	for name := range s.indexes {
		names = append(names, name)
	}
	return names, nil
}

// Close 关闭存储连接
func (s *MemoryStore) Close() error {
	return nil
}

// size 索引当前记录数；索引不存在时为 -1
func (s *MemoryStore) size(indexName string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[indexName]
	if !ok {
		return -1
	}
	return len(idx.ordered)
}

// truncate 撤销 n 之后写入的记录，仅用于持久化失败时回滚
func (s *MemoryStore) truncate(indexName string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.indexes[indexName]
	if !ok || n < 0 || n >= len(idx.ordered) {
		return
	}
	for _, v := range idx.ordered[n:] {
		delete(idx.ids, v.ID)
	}
	idx.ordered = idx.ordered[:n]
}

// drop 移除索引，仅用于持久化失败时回滚
func (s *MemoryStore) drop(indexName string) {
	s.mu.Lock()
	delete(s.indexes, indexName)
	s.mu.Unlock()
}

func cloneVector(v *Vector) *Vector {
	out := &Vector{ID: v.ID, Content: v.Content, Values: append([]float64(nil), v.Values...)}
	if v.Metadata != nil {
		out.Metadata = make(map[string]string, len(v.Metadata))
		for k, val := range v.Metadata {
			out.Metadata[k] = val
		}
	}
	return out
}
