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

// Package query 把 vector.Store 适配为 eino retriever.Retriever，供记忆分区查询使用。
package query

import (
	"context"

	einoembed "github.com/cloudwego/eino/components/embedding"
	einoretriever "github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"

	"agentcourt/internal/storage/vector"
	pkgerrors "agentcourt/pkg/errors"
)

const defaultTopK = 5

// VectorRetrieverConfig 构造参数
type VectorRetrieverConfig struct {
	VectorStore vector.Store
	// Embedder 调用未传 WithEmbedding 时使用
	Embedder einoembed.Embedder
	// DefaultIndex 调用未传 WithIndex 时使用；两者都为空时报错
	DefaultIndex string
	DefaultTopK  int
	// DefaultThreshold 为 0 时不过滤
	DefaultThreshold float64
}

// VectorRetriever 基于 vector.Store 的 retriever.Retriever
type VectorRetriever struct {
	cfg VectorRetrieverConfig
}

// NewVectorRetriever 创建 Retriever
func NewVectorRetriever(cfg *VectorRetrieverConfig) (*VectorRetriever, error) {
	if cfg == nil || cfg.VectorStore == nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrInvalidArg, "vector retriever requires a vector store")
	}
	c := *cfg
	if c.DefaultTopK <= 0 {
		c.DefaultTopK = defaultTopK
	}
	return &VectorRetriever{cfg: c}, nil
}

type searchParams struct {
	index     string
	topK      int
	threshold float64
	embedder  einoembed.Embedder
}

func (m *VectorRetriever) params(opts []einoretriever.Option) (searchParams, error) {
	p := searchParams{
		index:     m.cfg.DefaultIndex,
		topK:      m.cfg.DefaultTopK,
		threshold: m.cfg.DefaultThreshold,
		embedder:  m.cfg.Embedder,
	}
	o := einoretriever.GetCommonOptions(&einoretriever.Options{}, opts...)
	if o.Index != nil && *o.Index != "" {
		p.index = *o.Index
	}
	if o.TopK != nil && *o.TopK > 0 {
		p.topK = *o.TopK
	}
	if o.ScoreThreshold != nil {
		p.threshold = *o.ScoreThreshold
	}
	if o.Embedding != nil {
		p.embedder = o.Embedding
	}
	if p.index == "" {
		return p, pkgerrors.Wrap(pkgerrors.ErrInvalidArg, "retrieve requires an index")
	}
	if p.embedder == nil {
		return p, pkgerrors.Wrap(pkgerrors.ErrInvalidArg, "retrieve requires an embedder", pkgerrors.V("index", p.index))
	}
	return p, nil
}

// Retrieve 按相似度降序返回文档，同分保持向量存储的写入顺序；Score() 为相似度
func (m *VectorRetriever) Retrieve(ctx context.Context, query string, opts ...einoretriever.Option) ([]*schema.Document, error) {
	p, err := m.params(opts)
	if err != nil {
		return nil, err
	}
	vecs, err := p.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "embed query", pkgerrors.V("index", p.index))
	}
	if len(vecs) != 1 {
		return nil, pkgerrors.Wrap(pkgerrors.ErrInvalidArg, "embedder returned no vector for query", pkgerrors.V("index", p.index))
	}

	hits, err := m.cfg.VectorStore.Search(ctx, p.index, vecs[0], &vector.SearchOptions{TopK: p.topK, Threshold: p.threshold})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "vector search", pkgerrors.V("index", p.index))
	}
	docs := make([]*schema.Document, len(hits))
	for i, h := range hits {
		docs[i] = toDocument(h)
	}
	return docs, nil
}

func toDocument(h *vector.SearchResult) *schema.Document {
	meta := make(map[string]any, len(h.Metadata))
	for k, v := range h.Metadata {
		meta[k] = v
	}
	d := &schema.Document{ID: h.ID, Content: h.Content, MetaData: meta}
	return d.WithScore(h.Score)
}
