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

// Package transcript 保存庭审对话记录：有序、只追加，追加时通知 Sink。
package transcript

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// 发言角色
const (
	RoleJudge           = "judge"
	RoleStenographer    = "stenographer"
	RolePlaintiff       = "plaintiff"
	RoleDefendant       = "defendant"
	RolePlaintiffLawyer = "plaintiff_lawyer"
	RoleDefendantLawyer = "defendant_lawyer"
)

// Roles 合法角色集合
var Roles = map[string]bool{
	RoleJudge:           true,
	RoleStenographer:    true,
	RolePlaintiff:       true,
	RoleDefendant:       true,
	RolePlaintiffLawyer: true,
	RoleDefendantLawyer: true,
}

// Entry 一条发言
type Entry struct {
	Role      string    `json:"role"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Sink 接收追加事件；返回值不影响记录本身
type Sink interface {
	OnTranscriptAppend(entry Entry)
}

// SinkFunc 函数形式的 Sink
type SinkFunc func(entry Entry)

// OnTranscriptAppend 实现 Sink
func (f SinkFunc) OnTranscriptAppend(entry Entry) { f(entry) }

// Transcript 一次庭审的对话记录
type Transcript struct {
	ID string

	entries []Entry
	sinks   []Sink
	mu      sync.RWMutex
}

// New 创建空记录；id 为空时生成
func New(id string, sinks ...Sink) *Transcript {
	if id == "" {
		id = "transcript-" + uuid.New().String()
	}
	return &Transcript{ID: id, sinks: sinks}
}

// FromEntries 以既有发言构造记录（用于回放已保存的庭审日志）
func FromEntries(id string, entries []Entry) *Transcript {
	t := New(id)
	t.entries = append(t.entries, entries...)
	return t
}

// Append 追加一条发言并依次通知 Sink
func (t *Transcript) Append(role, name, content string) Entry {
	entry := Entry{Role: role, Name: name, Content: content, Timestamp: time.Now()}
	t.mu.Lock()
	t.entries = append(t.entries, entry)
	sinks := t.sinks
	t.mu.Unlock()

	for _, s := range sinks {
		s.OnTranscriptAppend(entry)
	}
	return entry
}

// Entries 返回发言副本
func (t *Transcript) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len 发言条数
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Render 渲染当前记录
func (t *Transcript) Render() string {
	return Render(t.Entries())
}

// Render 将发言渲染为 "role (name):\n  content" 块，块间空行分隔，内容续行缩进两格
func Render(entries []Entry) string {
	blocks := make([]string, len(entries))
	for i, e := range entries {
		blocks[i] = e.Role + " (" + e.Name + "):\n  " + strings.ReplaceAll(e.Content, "\n", "\n  ")
	}
	return strings.Join(blocks, "\n\n")
}

// SlogSink 将每条发言写入日志
type SlogSink struct {
	Logger *slog.Logger
}

// OnTranscriptAppend 实现 Sink
func (s SlogSink) OnTranscriptAppend(entry Entry) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.LogAttrs(context.Background(), slog.LevelInfo, "transcript append",
		slog.String("role", entry.Role),
		slog.String("name", entry.Name),
		slog.String("content", entry.Content),
	)
}
