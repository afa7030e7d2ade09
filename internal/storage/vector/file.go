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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	pkgerrors "agentcourt/pkg/errors"
)

const (
	indexFileSuffix  = ".index.json"
	vectorFileSuffix = ".jsonl"
)

// FileStore 本地磁盘持久化的向量存储：内存中检索，写入时同步追加到磁盘。
//
// 每个索引对应两个文件：{dir}/{index}.index.json 保存索引定义，
// {dir}/{index}.jsonl 按写入顺序每行一条向量。重新打开时按行重放，
// 同分按写入顺序的约定在重启后保持不变。
type FileStore struct {
	dir   string
	mem   *MemoryStore
	mu    sync.Mutex
	files map[string]*os.File
}

// NewFileStore 打开（必要时创建）dir 并加载其中全部索引
func NewFileStore(ctx context.Context, dir string) (*FileStore, error) {
	if dir == "" {
		return nil, pkgerrors.Wrap(pkgerrors.ErrInvalidArg, "file vector store requires a directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, pkgerrors.Wrap(err, "create vector store directory", pkgerrors.V("dir", dir))
	}
	s := &FileStore{dir: dir, mem: NewMemoryStore(), files: make(map[string]*os.File)}

	metas, err := filepath.Glob(filepath.Join(dir, "*"+indexFileSuffix))
	if err != nil {
		return nil, pkgerrors.Wrap(err, "list vector index files", pkgerrors.V("dir", dir))
	}
	for _, path := range metas {
		if err := s.load(ctx, path); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *FileStore) load(ctx context.Context, metaPath string) error {
	raw, err := os.ReadFile(metaPath)
	if err != nil {
		return pkgerrors.Wrap(err, "read vector index file", pkgerrors.V("path", metaPath))
	}
	var idx Index
	if err := json.Unmarshal(raw, &idx); err != nil {
		return pkgerrors.Wrap(err, "decode vector index file", pkgerrors.V("path", metaPath))
	}
	if err := s.mem.Create(ctx, &idx); err != nil {
		return pkgerrors.Wrap(err, "restore vector index", pkgerrors.V("index", idx.Name))
	}

	vectors, err := readVectors(s.vectorPath(idx.Name))
	if err != nil {
		return pkgerrors.Wrap(err, "restore vectors", pkgerrors.V("index", idx.Name))
	}
	if len(vectors) == 0 {
		return nil
	}
	if err := s.mem.Add(ctx, idx.Name, vectors); err != nil {
		return pkgerrors.Wrap(err, "restore vectors", pkgerrors.V("index", idx.Name))
	}
	return nil
}

// readVectors 逐行解码；末行不完整（写入中断）时截断文件到最后一条完整记录
func readVectors(path string) ([]*Vector, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var (
		out  []*Vector
		good int
	)
	for len(raw[good:]) > 0 {
		rest := raw[good:]
		end := bytes.IndexByte(rest, '\n')
		line := rest
		if end >= 0 {
			line = rest[:end]
		}
		var v Vector
		if err := json.Unmarshal(line, &v); err != nil {
			if end < 0 {
				return out, os.Truncate(path, int64(good))
			}
			return nil, pkgerrors.Wrap(err, "corrupt vector record", pkgerrors.V("offset", good))
		}
		if end < 0 {
			// 完整记录但缺少换行，补齐以便后续追加
			f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, err
			}
			_, err = f.Write([]byte{'\n'})
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return nil, err
			}
			out = append(out, &v)
			break
		}
		out = append(out, &v)
		good += end + 1
	}
	return out, nil
}

func validIndexName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

func (s *FileStore) metaPath(name string) string {
	return filepath.Join(s.dir, name+indexFileSuffix)
}

func (s *FileStore) vectorPath(name string) string {
	return filepath.Join(s.dir, name+vectorFileSuffix)
}

// Create 创建索引并落盘索引定义
func (s *FileStore) Create(ctx context.Context, idx *Index) error {
	if !validIndexName(idx.Name) {
		return pkgerrors.Wrap(pkgerrors.ErrInvalidArg, "invalid index name", pkgerrors.V("index", idx.Name))
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mem.Create(ctx, idx); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(idx, "", "  ")
	if err == nil {
		err = writeFileAtomic(s.metaPath(idx.Name), raw)
	}
	if err != nil {
		s.mem.drop(idx.Name)
		return pkgerrors.Wrap(err, "persist vector index", pkgerrors.V("index", idx.Name))
	}
	return nil
}

// Add 校验通过后整批追加到磁盘并 fsync；落盘失败时回滚内存中的本批记录
func (s *FileStore) Add(ctx context.Context, indexName string, vectors []*Vector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.mem.size(indexName)
	if err := s.mem.Add(ctx, indexName, vectors); err != nil {
		return err
	}
	if err := s.appendVectors(indexName, vectors); err != nil {
		s.mem.truncate(indexName, before)
		return pkgerrors.Wrap(err, "persist vectors", pkgerrors.V("index", indexName))
	}
	return nil
}

func (s *FileStore) appendVectors(indexName string, vectors []*Vector) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, v := range vectors {
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	f, ok := s.files[indexName]
	if !ok {
		var err error
		f, err = os.OpenFile(s.vectorPath(indexName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		s.files[indexName] = f
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		return err
	}
	return f.Sync()
}

// Search 见 Store
func (s *FileStore) Search(ctx context.Context, indexName string, query []float64, options *SearchOptions) ([]*SearchResult, error) {
	return s.mem.Search(ctx, indexName, query, options)
}

// Get 见 Store
func (s *FileStore) Get(ctx context.Context, indexName string, id string) (*Vector, error) {
	return s.mem.Get(ctx, indexName, id)
}

// ListIndexes 见 Store
func (s *FileStore) ListIndexes(ctx context.Context) ([]string, error) {
	return s.mem.ListIndexes(ctx)
}

// Close 关闭打开的追加文件
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for name, f := range s.files {
		if err := f.Close(); err != nil {
			errs = append(errs, pkgerrors.Wrap(err, "close vector file", pkgerrors.V("index", name)))
		}
		delete(s.files, name)
	}
	return errors.Join(errs...)
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
