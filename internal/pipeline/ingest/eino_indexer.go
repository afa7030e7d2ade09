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

package ingest

import (
	"context"
	"fmt"

	einoindexer "github.com/cloudwego/eino/components/indexer"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"agentcourt/internal/storage/vector"
)

// VectorIndexer 基于 vector.Store 实现的 Eino indexer.Indexer
type VectorIndexer struct {
	vectorStore  vector.Store
	defaultIndex string
	batchSize    int
}

// VectorIndexerConfig VectorIndexer 构造参数
type VectorIndexerConfig struct {
	VectorStore  vector.Store
	DefaultIndex string
	BatchSize    int
}

// NewVectorIndexer 创建基于 vector.Store 的 Eino Indexer
func NewVectorIndexer(cfg *VectorIndexerConfig) (*VectorIndexer, error) {
	if cfg == nil || cfg.VectorStore == nil {
		return nil, fmt.Errorf("VectorIndexer 需要 VectorStore")
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	index := cfg.DefaultIndex
	if index == "" {
		index = "default"
	}
	return &VectorIndexer{
		vectorStore:  cfg.VectorStore,
		defaultIndex: index,
		batchSize:    batchSize,
	}, nil
}

// Store 实现 indexer.Indexer；SubIndexes[0] 指定目标索引，缺失 ID 时生成 UUID
func (m *VectorIndexer) Store(ctx context.Context, docs []*schema.Document, opts ...einoindexer.Option) (ids []string, err error) {
	if len(docs) == 0 {
		return nil, nil
	}
	options := einoindexer.GetCommonOptions(nil, opts...)
	indexName := m.defaultIndex
	if options != nil && len(options.SubIndexes) > 0 && options.SubIndexes[0] != "" {
		indexName = options.SubIndexes[0]
	}

	if options != nil && options.Embedding != nil {
		if err := embedMissing(ctx, options, docs); err != nil {
			return nil, err
		}
	}

	allIDs := make([]string, 0, len(docs))
	for i := 0; i < len(docs); i += m.batchSize {
		end := i + m.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		vecs := make([]*vector.Vector, 0, end-i)
		for _, doc := range docs[i:end] {
			if doc == nil {
				continue
			}
			vec := doc.DenseVector()
			if len(vec) == 0 {
				return allIDs, fmt.Errorf("doc %s has no vector and no Embedding option", doc.ID)
			}
			if doc.ID == "" {
				doc.ID = uuid.NewString()
			}
			vecs = append(vecs, &vector.Vector{
				ID:       doc.ID,
				Content:  doc.Content,
				Values:   vec,
				Metadata: MetaToStrings(doc.MetaData),
			})
		}
		if len(vecs) == 0 {
			continue
		}
		if err := m.vectorStore.Add(ctx, indexName, vecs); err != nil {
			return allIDs, fmt.Errorf("vector store add: %w", err)
		}
		for _, v := range vecs {
			allIDs = append(allIDs, v.ID)
		}
	}
	return allIDs, nil
}

// embedMissing 对无向量的 doc 批量向量化
func embedMissing(ctx context.Context, options *einoindexer.Options, docs []*schema.Document) error {
	var (
		pending []*schema.Document
		texts   []string
	)
	for _, doc := range docs {
		if doc == nil || len(doc.DenseVector()) > 0 {
			continue
		}
		pending = append(pending, doc)
		texts = append(texts, doc.Content)
	}
	if len(pending) == 0 {
		return nil
	}
	vecs, err := options.Embedding.EmbedStrings(ctx, texts)
	if err != nil {
		return fmt.Errorf("indexer embedding: %w", err)
	}
	if len(vecs) != len(pending) {
		return fmt.Errorf("indexer embedding: got %d vectors for %d docs", len(vecs), len(pending))
	}
	for i, doc := range pending {
		doc.WithDenseVector(vecs[i])
	}
	return nil
}

// MetaToStrings 将 map[string]any 转为 map[string]string（仅 string 值）
func MetaToStrings(meta map[string]any) map[string]string {
	if len(meta) == 0 {
		return nil
	}
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
