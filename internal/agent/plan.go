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

	"agentcourt/internal/agent/memory"
	"agentcourt/internal/agent/parser"
	"agentcourt/internal/agent/prompt"
	"agentcourt/internal/agent/transcript"
	pkgerrors "agentcourt/pkg/errors"
)

// Flags 各分区是否需要检索
type Flags struct {
	Experience bool `json:"experience"`
	Case       bool `json:"case"`
	Legal      bool `json:"legal"`
}

// Plan 检索计划；Queries 只包含标记为 true 且得到非空检索语句的分区
type Plan struct {
	Plans   Flags                       `json:"plans"`
	Queries map[memory.Partition]string `json:"queries"`
}

// Empty 无任何检索语句
func (p *Plan) Empty() bool {
	return p == nil || len(p.Queries) == 0
}

var queryTemplates = map[memory.Partition]string{
	memory.Experience: prompt.QueryExperience,
	memory.Case:       prompt.QueryCase,
	memory.Legal:      prompt.QueryLegal,
}

// Plan 判断本轮需要检索的分区并为每个分区生成检索语句。
// 模型输出无法解析时按不需要检索处理；后端错误原样返回。
func (a *Agent) Plan(ctx context.Context, entries []transcript.Entry) (plan *Plan, err error) {
	ctx, exit := a.enter(ctx, Planning)
	defer func() { exit(err) }()

	history := transcript.Render(entries)
	instruction := a.roleInstruction()

	reply, err := a.generate(ctx, instruction, prompt.MustRender(prompt.Plan, a.data(history)))
	if err != nil {
		return nil, pkgerrors.Wrap(err, "plan", pkgerrors.V("agent", a.identity.Name))
	}
	plan = &Plan{Plans: parseFlags(parser.Extract(reply)), Queries: map[memory.Partition]string{}}

	for _, p := range memory.Partitions {
		if !plan.Plans.enabled(p) {
			continue
		}
		q, err := a.query(ctx, instruction, queryTemplates[p], history)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "plan query", pkgerrors.V("agent", a.identity.Name), pkgerrors.V("partition", p))
		}
		if q == "" {
			a.logger.DebugContext(ctx, "empty retrieval query", "partition", p)
			continue
		}
		plan.Queries[p] = q
	}
	a.logger.DebugContext(ctx, "plan ready", "flags", plan.Plans, "queries", len(plan.Queries))
	return plan, nil
}

// query 请求单个分区的检索语句
func (a *Agent) query(ctx context.Context, instruction, tmpl, history string) (string, error) {
	reply, err := a.generate(ctx, instruction, prompt.MustRender(tmpl, a.data(history)))
	if err != nil {
		return "", err
	}
	return parser.QueryText(parser.Extract(reply)), nil
}

// parseFlags 缺失或无法识别的键一律为 false
func parseFlags(v parser.Value) Flags {
	if !v.IsObject() {
		return Flags{}
	}
	return Flags{
		Experience: parser.Flag(v.Object["experience"]),
		Case:       parser.Flag(v.Object["case"]),
		Legal:      parser.Flag(v.Object["legal"]),
	}
}

func (f Flags) enabled(p memory.Partition) bool {
	switch p {
	case memory.Experience:
		return f.Experience
	case memory.Case:
		return f.Case
	case memory.Legal:
		return f.Legal
	}
	return false
}
