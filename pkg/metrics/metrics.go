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

package metrics

import (
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 API 与 CLI 注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		BackendRequestsTotal, BackendDuration, BackendRateLimitRetries,
		RateLimitWaitSeconds,
		MemoryOpsTotal, EmbeddingCacheTotal,
		PhaseDuration, ReflectRecordsTotal,
		CourtCasesTotal, CourtDebateRounds,
	)
}

// BackendRequestsTotal 生成式后端调用总数（按 provider 与结果）
var BackendRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agentcourt_backend_requests_total",
		Help: "生成式后端调用总数",
	},
	[]string{"provider", "outcome"}, // ok | auth_failure | rate_limited | timeout | provider_rejected | error
)

// BackendDuration 后端调用耗时（秒）
var BackendDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "agentcourt_backend_duration_seconds",
		Help:    "生成式后端调用耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"provider"},
)

// BackendRateLimitRetries 配额耗尽后的退避重试次数
var BackendRateLimitRetries = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agentcourt_backend_rate_limit_retries_total",
		Help: "配额耗尽后的退避重试次数",
	},
	[]string{"provider"},
)

// RateLimitWaitSeconds 主动限流等待时长
var RateLimitWaitSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "agentcourt_rate_limit_wait_seconds",
		Help:    "主动限流等待时长（秒）",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	},
	[]string{"kind", "provider"},
)

// MemoryOpsTotal 记忆分区读写次数
var MemoryOpsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agentcourt_memory_ops_total",
		Help: "记忆分区读写次数",
	},
	[]string{"partition", "op"}, // insert | query
)

// EmbeddingCacheTotal embedding 缓存命中统计
var EmbeddingCacheTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agentcourt_embedding_cache_total",
		Help: "embedding 缓存命中统计",
	},
	[]string{"result"}, // hit | miss
)

// PhaseDuration Agent 阶段耗时（秒）
var PhaseDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "agentcourt_agent_phase_duration_seconds",
		Help:    "Agent 阶段耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"phase"}, // plan | execute | reflect
)

// ReflectRecordsTotal Reflect 写入的记忆条数
var ReflectRecordsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agentcourt_reflect_records_total",
		Help: "Reflect 写入的记忆条数",
	},
	[]string{"partition"},
)

// CourtCasesTotal 模拟完成或中止的案例数
var CourtCasesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agentcourt_court_cases_total",
		Help: "庭审模拟案例数",
	},
	[]string{"status"}, // completed | failed
)

// CourtDebateRounds 每个案例的辩论轮数
var CourtDebateRounds = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "agentcourt_court_debate_rounds",
		Help:    "每个案例的辩论轮数",
		Buckets: prometheus.LinearBuckets(1, 1, 10),
	},
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 等复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

// WriteTextFile 将指标快照写入文件（node_exporter textfile 格式），先写临时文件再重命名
func WriteTextFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := WritePrometheus(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
