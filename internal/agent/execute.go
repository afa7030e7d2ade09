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

package agent

import (
	"context"
	"strings"

	"agentcourt/internal/agent/memory"
	"agentcourt/internal/agent/transcript"
	pkgerrors "agentcourt/pkg/errors"
)

// executeK 组装上下文时每个分区检索的条数
const executeK = 3

// 上下文块标题
const (
	experienceLabel = "遵循下面的经验，以增强回复的逻辑严密性:"
	caseLabel       = "Case Context:"
	lawLabel        = "Law Context:"
	historyLabel    = "Communication History:"
)

// Execute 按计划检索记忆、组装上下文并调用一次后端，返回后端原文。
// plan 为空时上下文仅为渲染后的对话记录。
func (a *Agent) Execute(ctx context.Context, plan *Plan, entries []transcript.Entry, instruction string) (reply string, err error) {
	ctx, exit := a.enter(ctx, Executing)
	defer func() { exit(err) }()

	background, err := a.assemble(ctx, plan, entries)
	if err != nil {
		return "", err
	}
	reply, err = a.Speak(ctx, background, instruction)
	if err != nil {
		return "", pkgerrors.Wrap(err, "execute", pkgerrors.V("agent", a.identity.Name))
	}
	return reply, nil
}

// assemble 按 experience、case、legal 顺序拼接检索块，最后附上对话记录
func (a *Agent) assemble(ctx context.Context, plan *Plan, entries []transcript.Entry) (string, error) {
	history := transcript.Render(entries)
	if plan.Empty() {
		return history, nil
	}

	var b strings.Builder
	if q, ok := plan.Queries[memory.Experience]; ok {
		text, err := a.memory.QueryMetadataField(ctx, memory.Experience, q, executeK, "context")
		if err != nil {
			return "", err
		}
		writeBlock(&b, experienceLabel, text)
	}
	if q, ok := plan.Queries[memory.Case]; ok {
		text, err := a.memory.QueryMetadataField(ctx, memory.Case, q, executeK, "response_directions")
		if err != nil {
			return "", err
		}
		writeBlock(&b, caseLabel, text)
	}
	if q, ok := plan.Queries[memory.Legal]; ok {
		records, err := a.memory.Query(ctx, memory.Legal, q, executeK)
		if err != nil {
			return "", err
		}
		text := ""
		if len(records) > 0 {
			text = records[0].Document
		}
		writeBlock(&b, lawLabel, text)
	}
	writeBlock(&b, historyLabel, history)
	return b.String(), nil
}

func writeBlock(b *strings.Builder, label, text string) {
	b.WriteString("\n")
	b.WriteString(label)
	b.WriteString("\n")
	b.WriteString(text)
	b.WriteString("\n")
}
