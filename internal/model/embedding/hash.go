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

package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/cloudwego/eino/components/embedding"
)

const defaultHashDimension = 512

// HashEmbedder 特征哈希向量化：词、字与字二元组计数，次线性加权后归一化。
// 无外部依赖，结果只取决于文本与维度，跨进程重启稳定。
type HashEmbedder struct {
	dimension int
}

// NewHashEmbedder 创建哈希 Embedder，dimension<=0 时默认 512
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = defaultHashDimension
	}
	return &HashEmbedder{dimension: dimension}
}

// EmbedStrings 实现 eino embedding.Embedder
func (h *HashEmbedder) EmbedStrings(ctx context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.embed(text)
	}
	return out, nil
}

func (h *HashEmbedder) embed(text string) []float64 {
	counts := make(map[int]float64)
	for _, feature := range features(text) {
		counts[h.bucket(feature)]++
	}
	vec := make([]float64, h.dimension)
	for idx, c := range counts {
		vec[idx] = 1 + math.Log(c)
	}
	return Normalize(vec)
}

func (h *HashEmbedder) bucket(feature string) int {
	f := fnv.New64a()
	_, _ = f.Write([]byte(feature))
	return int(f.Sum64() % uint64(h.dimension))
}

// features 按非字母数字切分；每段产生整词特征，CJK 段额外产生单字与相邻二字特征
func features(text string) []string {
	segments := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	var out []string
	for _, seg := range segments {
		runes := []rune(seg)
		out = append(out, "w:"+seg)
		if !hasHan(runes) {
			continue
		}
		for i, r := range runes {
			out = append(out, "u:"+string(r))
			if i+1 < len(runes) {
				out = append(out, "b:"+string(runes[i:i+2]))
			}
		}
	}
	return out
}

func hasHan(runes []rune) bool {
	for _, r := range runes {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// Dimension 返回向量维度
func (h *HashEmbedder) Dimension() int { return h.dimension }

// Model 返回模型名称
func (h *HashEmbedder) Model() string { return "hash" }
