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
)

// Store 追加式向量存储接口；记录写入后不可修改或删除
type Store interface {
	// Create 创建向量索引
	Create(ctx context.Context, index *Index) error
	// Add 追加向量；ID 已存在时返回 errors.ErrDuplicateID
	Add(ctx context.Context, indexName string, vectors []*Vector) error
	// Search 按相似度降序返回结果，同分按写入顺序
	Search(ctx context.Context, indexName string, query []float64, options *SearchOptions) ([]*SearchResult, error)
	// Get 根据 ID 获取向量
	Get(ctx context.Context, indexName string, id string) (*Vector, error)
	// ListIndexes 列出所有索引
	ListIndexes(ctx context.Context) ([]string, error)
	// Close 关闭存储连接
	Close() error
}

// Index 向量索引
type Index struct {
	Name      string            `json:"name"`      // 索引名称
	Dimension int               `json:"dimension"` // 向量维度
	Distance  string            `json:"distance"`  // cosine | euclidean | manhattan
	Metadata  map[string]string `json:"metadata"`  // 索引元数据
}

// Vector 向量数据
type Vector struct {
	ID       string            `json:"id"`       // 向量唯一标识
	Content  string            `json:"content"`  // 原文
	Values   []float64         `json:"values"`   // 向量值
	Metadata map[string]string `json:"metadata"` // 向量元数据
}

// SearchOptions 搜索选项
type SearchOptions struct {
	TopK           int               `json:"top_k"`           // 返回前 K 个结果，<=0 时为 10
	Filter         map[string]string `json:"filter"`          // 元数据等值过滤
	Threshold      float64           `json:"threshold"`       // >0 时过滤低于该值的结果
	IncludeVectors bool              `json:"include_vectors"` // 是否包含向量值
}

// SearchResult 搜索结果
type SearchResult struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
	Values   []float64         `json:"values,omitempty"`
}
