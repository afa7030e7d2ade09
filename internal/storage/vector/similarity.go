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
	"math"
	"sort"
)

const defaultTopK = 10

// Similarity 按距离度量计算相似度，越大越相似
func Similarity(query, vec []float64, distance string) float64 {
	switch distance {
	case "euclidean":
		return 1.0 / (1.0 + euclideanDistance(query, vec))
	case "manhattan":
		return 1.0 / (1.0 + manhattanDistance(query, vec))
	default:
		return cosineSimilarity(query, vec)
	}
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0.0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func euclideanDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func manhattanDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += math.Abs(a[i] - b[i])
	}
	return sum
}

// rank 对按写入顺序排列的向量打分、过滤并截断
func rank(ordered []*Vector, query []float64, distance string, options *SearchOptions) []*SearchResult {
	if options == nil {
		options = &SearchOptions{}
	}
	topK := options.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	results := make([]*SearchResult, 0, len(ordered))
	for _, v := range ordered {
		if !matchFilter(v.Metadata, options.Filter) {
			continue
		}
		score := Similarity(query, v.Values, distance)
		if options.Threshold > 0 && score < options.Threshold {
			continue
		}
		r := &SearchResult{ID: v.ID, Score: score, Content: v.Content, Metadata: v.Metadata}
		if options.IncludeVectors {
			r.Values = v.Values
		}
		results = append(results, r)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

func matchFilter(meta, filter map[string]string) bool {
	for k, v := range filter {
		if meta[k] != v {
			return false
		}
	}
	return true
}
