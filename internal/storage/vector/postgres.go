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
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	pkgerrors "agentcourt/pkg/errors"
)

// PostgresStore 基于 PostgreSQL + pgvector 的向量存储
type PostgresStore struct {
	pool    *pgxpool.Pool
	indexes string
	vectors string
}

// distanceOps pgvector 距离运算符
var distanceOps = map[string]string{
	"cosine":    "<=>",
	"euclidean": "<->",
	"manhattan": "<+>",
}

// NewPostgresStore 连接数据库，确保 vector 扩展与表结构存在
func NewPostgresStore(ctx context.Context, dsn, prefix string) (*PostgresStore, error) {
	if prefix == "" {
		prefix = "agentcourt"
	}
	// 扩展需在 RegisterTypes 之前存在
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	_, err = conn.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`)
	_ = conn.Close(ctx)
	if err != nil {
		return nil, fmt.Errorf("create extension vector: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres dsn: %w", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, c *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, c)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}

	s := &PostgresStore{
		pool:    pool,
		indexes: pgx.Identifier{prefix + "_indexes"}.Sanitize(),
		vectors: pgx.Identifier{prefix + "_vectors"}.Sanitize(),
	}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + s.indexes + ` (
  name TEXT PRIMARY KEY,
  dimension INT NOT NULL,
  distance TEXT NOT NULL,
  metadata JSONB NOT NULL DEFAULT '{}'
)`,
		`CREATE TABLE IF NOT EXISTS ` + s.vectors + ` (
  seq BIGSERIAL,
  index_name TEXT NOT NULL,
  id TEXT NOT NULL,
  content TEXT NOT NULL,
  embedding vector NOT NULL,
  metadata JSONB NOT NULL DEFAULT '{}',
  PRIMARY KEY (index_name, id)
)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}

// Create 创建向量索引
func (s *PostgresStore) Create(ctx context.Context, idx *Index) error {
	meta, err := json.Marshal(nonNil(idx.Metadata))
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO `+s.indexes+` (name, dimension, distance, metadata) VALUES ($1, $2, $3, $4) ON CONFLICT (name) DO NOTHING`,
		idx.Name, idx.Dimension, idx.Distance, meta,
	)
	if err != nil {
		return fmt.Errorf("postgres create index: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrIndexExists, idx.Name)
	}
	return nil
}

func (s *PostgresStore) loadIndex(ctx context.Context, name string) (*Index, error) {
	idx := &Index{Name: name}
	var meta []byte
	err := s.pool.QueryRow(ctx,
		`SELECT dimension, distance, metadata FROM `+s.indexes+` WHERE name = $1`, name,
	).Scan(&idx.Dimension, &idx.Distance, &meta)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("index with name %s not found", name)
		}
		return nil, fmt.Errorf("postgres load index: %w", err)
	}
	_ = json.Unmarshal(meta, &idx.Metadata)
	return idx, nil
}

// Add 在单个事务中追加；主键冲突返回 ErrDuplicateID
func (s *PostgresStore) Add(ctx context.Context, indexName string, vectors []*Vector) error {
	idx, err := s.loadIndex(ctx, indexName)
	if err != nil {
		return err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, v := range vectors {
		if len(v.Values) != idx.Dimension {
			return fmt.Errorf("vector dimension %d does not match index dimension %d", len(v.Values), idx.Dimension)
		}
		meta, err := json.Marshal(nonNil(v.Metadata))
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx,
			`INSERT INTO `+s.vectors+` (index_name, id, content, embedding, metadata) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (index_name, id) DO NOTHING`,
			indexName, v.ID, v.Content, pgvector.NewVector(toFloat32(v.Values)), meta,
		)
		if err != nil {
			return fmt.Errorf("postgres add: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return pkgerrors.Wrap(pkgerrors.ErrDuplicateID, "add vector",
				pkgerrors.V("index", indexName), pkgerrors.V("id", v.ID))
		}
	}
	return tx.Commit(ctx)
}

// Search 按距离升序、写入序号升序检索
func (s *PostgresStore) Search(ctx context.Context, indexName string, query []float64, options *SearchOptions) ([]*SearchResult, error) {
	idx, err := s.loadIndex(ctx, indexName)
	if err != nil {
		return nil, err
	}
	if len(query) != idx.Dimension {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), idx.Dimension)
	}
	if options == nil {
		options = &SearchOptions{}
	}
	topK := options.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	op, ok := distanceOps[idx.Distance]
	if !ok {
		op = distanceOps["cosine"]
	}
	filter, err := json.Marshal(nonNil(options.Filter))
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, content, embedding, metadata, embedding `+op+` $2 AS distance
FROM `+s.vectors+`
WHERE index_name = $1 AND metadata @> $3
ORDER BY distance, seq
LIMIT $4`,
		indexName, pgvector.NewVector(toFloat32(query)), filter, topK,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres search: %w", err)
	}
	defer rows.Close()

	var results []*SearchResult
	for rows.Next() {
		var (
			r        SearchResult
			emb      pgvector.Vector
			meta     []byte
			distance float64
		)
		if err := rows.Scan(&r.ID, &r.Content, &emb, &meta, &distance); err != nil {
			return nil, fmt.Errorf("postgres search scan: %w", err)
		}
		_ = json.Unmarshal(meta, &r.Metadata)
		if idx.Distance == "" || idx.Distance == "cosine" {
			r.Score = 1 - distance
		} else {
			r.Score = 1.0 / (1.0 + distance)
		}
		if options.Threshold > 0 && r.Score < options.Threshold {
			continue
		}
		if options.IncludeVectors {
			r.Values = toFloat64(emb.Slice())
		}
		results = append(results, &r)
	}
	return results, rows.Err()
}

// Get 根据 ID 获取向量
func (s *PostgresStore) Get(ctx context.Context, indexName string, id string) (*Vector, error) {
	v := &Vector{ID: id}
	var (
		emb  pgvector.Vector
		meta []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT content, embedding, metadata FROM `+s.vectors+` WHERE index_name = $1 AND id = $2`,
		indexName, id,
	).Scan(&v.Content, &emb, &meta)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pkgerrors.Wrap(pkgerrors.ErrNotFound, "get vector", pkgerrors.V("id", id))
		}
		return nil, fmt.Errorf("postgres get: %w", err)
	}
	v.Values = toFloat64(emb.Slice())
	_ = json.Unmarshal(meta, &v.Metadata)
	return v, nil
}

// ListIndexes 列出所有索引
func (s *PostgresStore) ListIndexes(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM `+s.indexes+` ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Close 关闭存储连接
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func nonNil(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
