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
	"errors"
	"os"
	"path/filepath"
	"testing"

	"agentcourt/pkg/config"
	pkgerrors "agentcourt/pkg/errors"
)

func TestFileStore_Reopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewFileStore(ctx, dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := EnsureIndex(ctx, s, "lawyer_case", 2, "cosine"); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	if err := s.Add(ctx, "lawyer_case", []*Vector{
		{ID: "a", Content: "first", Values: []float64{1, 0}},
		{ID: "b", Content: "second", Values: []float64{0, 1}},
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add(ctx, "lawyer_case", []*Vector{{ID: "c", Content: "third", Values: []float64{1, 0}}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewFileStore(ctx, dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	names, _ := reopened.ListIndexes(ctx)
	if len(names) != 1 || names[0] != "lawyer_case" {
		t.Fatalf("ListIndexes = %v", names)
	}
	results, err := reopened.Search(ctx, "lawyer_case", []float64{1, 0}, &SearchOptions{TopK: 3})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 || results[0].ID != "a" || results[1].ID != "c" {
		t.Fatalf("insertion order lost after reopen: %+v", results)
	}
	v, err := reopened.Get(ctx, "lawyer_case", "b")
	if err != nil || v.Content != "second" {
		t.Fatalf("Get b = %+v, %v", v, err)
	}
	// 重放后的 ID 仍然占用
	if err := reopened.Add(ctx, "lawyer_case", []*Vector{{ID: "a", Values: []float64{0, 1}}}); err == nil {
		t.Error("duplicate id after reopen should be rejected")
	}
}

func TestFileStore_RejectedBatchNotPersisted(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(ctx, dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := EnsureIndex(ctx, s, "judge_legal", 2, "cosine"); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	if err := s.Add(ctx, "judge_legal", []*Vector{
		{ID: "x", Values: []float64{1, 0}},
		{ID: "y", Values: []float64{1, 0, 0}},
	}); err == nil {
		t.Fatal("dimension mismatch should fail")
	}
	s.Close()

	reopened, err := NewFileStore(ctx, dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.Get(ctx, "judge_legal", "x"); err == nil {
		t.Error("rejected batch must not be replayed")
	}
}

func TestFileStore_TornTrailingLine(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(ctx, dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := EnsureIndex(ctx, s, "judge_case", 2, "cosine"); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	if err := s.Add(ctx, "judge_case", []*Vector{{ID: "ok", Values: []float64{1, 0}}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	s.Close()

	path := filepath.Join(dir, "judge_case.jsonl")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString(`{"id":"torn","val`)
	f.Close()

	reopened, err := NewFileStore(ctx, dir)
	if err != nil {
		t.Fatalf("reopen with torn tail: %v", err)
	}
	if _, err := reopened.Get(ctx, "judge_case", "ok"); err != nil {
		t.Errorf("complete record lost: %v", err)
	}
	if err := reopened.Add(ctx, "judge_case", []*Vector{{ID: "next", Values: []float64{0, 1}}}); err != nil {
		t.Fatalf("Add after torn tail: %v", err)
	}
	reopened.Close()

	again, err := NewFileStore(ctx, dir)
	if err != nil {
		t.Fatalf("second reopen: %v", err)
	}
	defer again.Close()
	if _, err := again.Get(ctx, "judge_case", "next"); err != nil {
		t.Errorf("record appended after torn tail lost: %v", err)
	}
}

func TestFileStore_InvalidIndexName(t *testing.T) {
	s, err := NewFileStore(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer s.Close()
	for _, name := range []string{"", "..", "a/b", `a\b`} {
		err := s.Create(context.Background(), &Index{Name: name, Dimension: 2, Distance: "cosine"})
		if !errors.Is(err, pkgerrors.ErrInvalidArg) {
			t.Errorf("Create(%q) = %v, want ErrInvalidArg", name, err)
		}
	}
}

func TestNewStore_DefaultIsFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	s, err := NewStore(context.Background(), config.VectorConfig{Dir: dir})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()
	if _, ok := s.(*FileStore); !ok {
		t.Fatalf("default store = %T, want *FileStore", s)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("store directory not created: %v", err)
	}
}
