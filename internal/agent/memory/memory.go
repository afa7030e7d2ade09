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

// Package memory 实现 Agent 私有的三分区语义记忆（experience / case / legal）。
//
// 每个分区对应一个向量索引 {agent}_{partition}；记录只追加、不可修改，
// 写入经 eino Indexer，查询经 eino Retriever，二者共享同一个确定性 Embedder。
package memory

import (
	"context"

	einoindexer "github.com/cloudwego/eino/components/indexer"
	einoretriever "github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"agentcourt/internal/model/embedding"
	"agentcourt/internal/pipeline/ingest"
	"agentcourt/internal/pipeline/query"
	"agentcourt/internal/storage/vector"
	pkgerrors "agentcourt/pkg/errors"
	"agentcourt/pkg/metrics"
	"agentcourt/pkg/tracing"
)

// Partition 记忆分区
type Partition string

const (
	Experience Partition = "experience"
	Case       Partition = "case"
	Legal      Partition = "legal"
)

// Partitions 全部分区，顺序固定
var Partitions = []Partition{Experience, Case, Legal}

// DefaultK Query 未指定 k 时的返回条数
const DefaultK = 5

// ParsePartition 解析分区名
func ParsePartition(s string) (Partition, error) {
	for _, p := range Partitions {
		if string(p) == s {
			return p, nil
		}
	}
	return "", pkgerrors.Wrap(pkgerrors.ErrInvalidArg, "unknown memory partition", pkgerrors.V("partition", s))
}

// Record 一条记忆
type Record struct {
	ID        string            `json:"id"`
	Document  string            `json:"document"`
	Metadata  map[string]string `json:"metadata"`
	Partition Partition         `json:"partition"`
	Score     float64           `json:"score"`
}

// Store 单个 Agent 的分区记忆
type Store struct {
	agent     string
	vectors   vector.Store
	embedder  embedding.Embedder
	indexer   *ingest.VectorIndexer
	retriever *query.VectorRetriever
}

// NewStore 为 agent 创建记忆并确保三个分区索引存在
func NewStore(ctx context.Context, agent string, vectors vector.Store, embedder embedding.Embedder) (*Store, error) {
	if agent == "" {
		return nil, pkgerrors.Wrap(pkgerrors.ErrInvalidArg, "memory store requires agent name")
	}
	names := make([]string, len(Partitions))
	for i, p := range Partitions {
		names[i] = IndexName(agent, p)
	}
	if err := vector.EnsureIndexes(ctx, vectors, embedder.Dimension(), "cosine", names...); err != nil {
		return nil, pkgerrors.Wrap(err, "ensure memory indexes", pkgerrors.V("agent", agent))
	}
	indexer, err := ingest.NewVectorIndexer(&ingest.VectorIndexerConfig{VectorStore: vectors})
	if err != nil {
		return nil, err
	}
	retriever, err := query.NewVectorRetriever(&query.VectorRetrieverConfig{VectorStore: vectors, DefaultTopK: DefaultK})
	if err != nil {
		return nil, err
	}
	return &Store{
		agent:     agent,
		vectors:   vectors,
		embedder:  embedder,
		indexer:   indexer,
		retriever: retriever,
	}, nil
}

// IndexName 分区对应的向量索引名
func IndexName(agent string, p Partition) string {
	return agent + "_" + string(p)
}

// NewID 生成记录 ID（随机 UUID）
func NewID() string {
	return uuid.NewString()
}

// Agent 返回所属 Agent 名称
func (s *Store) Agent() string { return s.agent }

// Insert 追加一条不可变记录；id 已存在时返回 errors.ErrDuplicateID
func (s *Store) Insert(ctx context.Context, p Partition, id, document string, metadata map[string]string) (err error) {
	index := IndexName(s.agent, p)
	ctx, span := tracing.StartMemorySpan(ctx, "insert", index)
	defer func() { tracing.EndSpan(span, err) }()

	if id == "" {
		return pkgerrors.Wrap(pkgerrors.ErrInvalidArg, "memory insert requires id")
	}
	meta := make(map[string]any, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	doc := &schema.Document{ID: id, Content: document, MetaData: meta}
	if _, err = s.indexer.Store(ctx, []*schema.Document{doc},
		einoindexer.WithSubIndexes([]string{index}),
		einoindexer.WithEmbedding(s.embedder),
	); err != nil {
		return pkgerrors.Wrap(err, "memory insert", pkgerrors.V("index", index), pkgerrors.V("id", id))
	}
	metrics.MemoryOpsTotal.WithLabelValues(string(p), "insert").Inc()
	return nil
}

// Add 以新生成的 ID 追加记录并返回该 ID
func (s *Store) Add(ctx context.Context, p Partition, document string, metadata map[string]string) (string, error) {
	id := NewID()
	if err := s.Insert(ctx, p, id, document, metadata); err != nil {
		return "", err
	}
	return id, nil
}

// Query 按相似度降序返回至多 k 条（k<=0 时为 DefaultK），同分按写入顺序
func (s *Store) Query(ctx context.Context, p Partition, text string, k int) (records []Record, err error) {
	index := IndexName(s.agent, p)
	ctx, span := tracing.StartMemorySpan(ctx, "query", index)
	defer func() { tracing.EndSpan(span, err) }()

	if k <= 0 {
		k = DefaultK
	}
	docs, err := s.retriever.Retrieve(ctx, text,
		einoretriever.WithIndex(index),
		einoretriever.WithTopK(k),
		einoretriever.WithEmbedding(s.embedder),
	)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "memory query", pkgerrors.V("index", index))
	}
	metrics.MemoryOpsTotal.WithLabelValues(string(p), "query").Inc()

	records = make([]Record, 0, len(docs))
	for _, d := range docs {
		records = append(records, Record{
			ID:        d.ID,
			Document:  d.Content,
			Metadata:  ingest.MetaToStrings(d.MetaData),
			Partition: p,
			Score:     d.Score(),
		})
	}
	return records, nil
}

// QueryMetadataField 返回相似度顺序中第一条带有 field 的记录的该字段值；无匹配时为空串
func (s *Store) QueryMetadataField(ctx context.Context, p Partition, text string, k int, field string) (string, error) {
	records, err := s.Query(ctx, p, text, k)
	if err != nil {
		return "", err
	}
	for _, r := range records {
		if v, ok := r.Metadata[field]; ok {
			return v, nil
		}
	}
	return "", nil
}

// Get 按 ID 读取记录
func (s *Store) Get(ctx context.Context, p Partition, id string) (*Record, error) {
	v, err := s.vectors.Get(ctx, IndexName(s.agent, p), id)
	if err != nil {
		return nil, err
	}
	return &Record{ID: v.ID, Document: v.Content, Metadata: v.Metadata, Partition: p}, nil
}
