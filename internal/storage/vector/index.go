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

	pkgerrors "agentcourt/pkg/errors"
)

// ErrIndexExists 索引已存在
var ErrIndexExists = errors.New("index already exists")

// Distances 支持的距离度量
var Distances = []string{"cosine", "euclidean", "manhattan"}

func validDistance(d string) bool {
	for _, v := range Distances {
		if v == d {
			return true
		}
	}
	return false
}

// EnsureIndexes 一次列出已有索引，只创建缺失的；并发创建同名索引视为成功
func EnsureIndexes(ctx context.Context, s Store, dimension int, distance string, names ...string) error {
	if distance == "" {
		distance = "cosine"
	}
	if !validDistance(distance) {
		return pkgerrors.Wrap(pkgerrors.ErrInvalidArg, "unknown distance", pkgerrors.V("distance", distance))
	}
	existing, err := s.ListIndexes(ctx)
	if err != nil {
		return pkgerrors.Wrap(err, "list vector indexes")
	}
	have := make(map[string]struct{}, len(existing))
	for _, n := range existing {
		have[n] = struct{}{}
	}
	for _, name := range names {
		if _, ok := have[name]; ok {
			continue
		}
		err := s.Create(ctx, &Index{Name: name, Dimension: dimension, Distance: distance})
		if err != nil && !errors.Is(err, ErrIndexExists) {
			return pkgerrors.Wrap(err, "create vector index", pkgerrors.V("index", name))
		}
		have[name] = struct{}{}
	}
	return nil
}

// EnsureIndex 单个索引版本的 EnsureIndexes
func EnsureIndex(ctx context.Context, s Store, name string, dimension int, distance string) error {
	return EnsureIndexes(ctx, s, dimension, distance, name)
}
