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

package query

import (
	"context"
	"errors"
	"testing"

	einoembed "github.com/cloudwego/eino/components/embedding"
	einoretriever "github.com/cloudwego/eino/components/retriever"

	"agentcourt/internal/storage/vector"
	pkgerrors "agentcourt/pkg/errors"
)

// mockEinoEmbedder 测试用：固定返回 4 维向量
type mockEinoEmbedder struct{}

func (m *mockEinoEmbedder) EmbedStrings(ctx context.Context, texts []string, _ ...einoembed.Option) ([][]float64, error) {
	vec := []float64{1, 0, 0, 0}
	out := make([][]float64, len(texts))
	for i := range out {
		out[i] = vec
	}
	return out, nil
}

func TestVectorRetriever_Retrieve(t *testing.T) {
	ctx := context.Background()
	store := vector.NewMemoryStore()
	if err := vector.EnsureIndex(ctx, store, "lawyer_case", 4, "cosine"); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	err := store.Add(ctx, "lawyer_case", []*vector.Vector{
		{ID: "far", Content: "unrelated", Values: []float64{0, 1, 0, 0}},
		{ID: "near", Content: "hello", Values: []float64{1, 0, 0, 0}, Metadata: map[string]string{"caseType": "civil"}},
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	ret, err := NewVectorRetriever(&VectorRetrieverConfig{VectorStore: store, DefaultIndex: "other"})
	if err != nil {
		t.Fatalf("NewVectorRetriever: %v", err)
	}

	docs, err := ret.Retrieve(ctx, "hello",
		einoretriever.WithEmbedding(&mockEinoEmbedder{}),
		einoretriever.WithIndex("lawyer_case"),
		einoretriever.WithTopK(2),
	)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	if docs[0].ID != "near" || docs[0].Content != "hello" {
		t.Errorf("unexpected doc: id=%s content=%s", docs[0].ID, docs[0].Content)
	}
	if docs[0].MetaData["caseType"] != "civil" {
		t.Errorf("metadata not carried: %v", docs[0].MetaData)
	}
	if docs[0].Score() != 1 {
		t.Errorf("score = %v, want 1", docs[0].Score())
	}
}

func TestVectorRetriever_ConfiguredDefaults(t *testing.T) {
	ctx := context.Background()
	store := vector.NewMemoryStore()
	if err := vector.EnsureIndex(ctx, store, "judge_legal", 4, "cosine"); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	for _, id := range []string{"a", "b", "c"} {
		if err := store.Add(ctx, "judge_legal", []*vector.Vector{{ID: id, Content: id, Values: []float64{1, 0, 0, 0}}}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	ret, err := NewVectorRetriever(&VectorRetrieverConfig{
		VectorStore:  store,
		Embedder:     &mockEinoEmbedder{},
		DefaultIndex: "judge_legal",
		DefaultTopK:  2,
	})
	if err != nil {
		t.Fatalf("NewVectorRetriever: %v", err)
	}
	docs, err := ret.Retrieve(ctx, "anything")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "a" || docs[1].ID != "b" {
		t.Fatalf("want [a b] in insertion order, got %d docs", len(docs))
	}
}

func TestVectorRetriever_RequiresIndexAndEmbedding(t *testing.T) {
	ret, err := NewVectorRetriever(&VectorRetrieverConfig{VectorStore: vector.NewMemoryStore()})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ret.Retrieve(context.Background(), "q", einoretriever.WithEmbedding(&mockEinoEmbedder{})); !errors.Is(err, pkgerrors.ErrInvalidArg) {
		t.Errorf("Retrieve without index err = %v", err)
	}
	if _, err := ret.Retrieve(context.Background(), "q", einoretriever.WithIndex("x")); !errors.Is(err, pkgerrors.ErrInvalidArg) {
		t.Errorf("Retrieve without embedding err = %v", err)
	}
	if _, err := NewVectorRetriever(nil); err == nil {
		t.Error("NewVectorRetriever(nil) should error")
	}
}
