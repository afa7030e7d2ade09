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
	"errors"
	"strings"

	"agentcourt/internal/agent/memory"
	"agentcourt/internal/agent/parser"
	"agentcourt/internal/agent/prompt"
	"agentcourt/internal/agent/transcript"
	pkgerrors "agentcourt/pkg/errors"
	"agentcourt/pkg/metrics"
)

// maxLaws 每次法条反思写入的最大条数
const maxLaws = 3

// MemoryEntry Reflect 写入记忆的一条记录
type MemoryEntry struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// LegalReflection 法条反思结果
type LegalReflection struct {
	NeededReference bool          `json:"needed_reference"`
	Query           string        `json:"query,omitempty"`
	Laws            []MemoryEntry `json:"laws,omitempty"`
}

// Reflection Reflect 的结果；失败的子过程对应字段为 nil
type Reflection struct {
	CaseContent string           `json:"case_content,omitempty"`
	Legal       *LegalReflection `json:"legal_reflection,omitempty"`
	Experience  *MemoryEntry     `json:"experience_reflection,omitempty"`
	Case        *MemoryEntry     `json:"case_reflection,omitempty"`
}

// Reflect 将对话记录沉淀为记忆：法条、经验、案例三个子过程相互独立，
// 任一失败不影响其余；返回已完成的部分结果与合并后的错误。
func (a *Agent) Reflect(ctx context.Context, entries []transcript.Entry) (r *Reflection, err error) {
	ctx, exit := a.enter(ctx, Reflecting)
	defer func() { exit(err) }()

	history := transcript.Render(entries)
	r = &Reflection{}
	var errs []error

	caseContent, caseErr := a.generate(ctx,
		prompt.MustRender(prompt.CaseContentInstruction, a.data("")),
		prompt.MustRender(prompt.CaseContent, a.data(history)))
	if caseErr != nil {
		caseErr = pkgerrors.Wrap(caseErr, "reflect case content", pkgerrors.V("agent", a.identity.Name))
	}
	r.CaseContent = caseContent

	if legal, err := a.reflectLegal(ctx, history); err != nil {
		errs = append(errs, pkgerrors.Wrap(err, "reflect legal", pkgerrors.V("agent", a.identity.Name)))
	} else {
		r.Legal = legal
	}

	if caseErr != nil {
		errs = append(errs, caseErr)
	} else {
		if entry, err := a.reflectExperience(ctx, caseContent, history); err != nil {
			errs = append(errs, pkgerrors.Wrap(err, "reflect experience", pkgerrors.V("agent", a.identity.Name)))
		} else {
			r.Experience = entry
		}
		if entry, err := a.reflectCase(ctx, caseContent, history); err != nil {
			errs = append(errs, pkgerrors.Wrap(err, "reflect case", pkgerrors.V("agent", a.identity.Name)))
		} else {
			r.Case = entry
		}
	}

	if len(errs) > 0 {
		a.logger.WarnContext(ctx, "reflect incomplete", "errors", len(errs))
	}
	return r, errors.Join(errs...)
}

// NeedsLegalReference 不区分大小写：含 "true" 为需要，否则（含 "false" 或无法判断）为不需要
func NeedsLegalReference(answer string) bool {
	return strings.Contains(strings.ToLower(strings.TrimSpace(answer)), "true")
}

func (a *Agent) reflectLegal(ctx context.Context, history string) (*LegalReflection, error) {
	answer, err := a.generate(ctx,
		prompt.MustRender(prompt.LegalNeedInstruction, a.data("")),
		prompt.MustRender(prompt.LegalNeed, a.data(history)))
	if err != nil {
		return nil, err
	}
	if !NeedsLegalReference(answer) {
		return &LegalReflection{NeededReference: false}, nil
	}

	query, err := a.query(ctx, a.roleInstruction(), prompt.QueryLegal, history)
	if err != nil {
		return nil, err
	}
	out := &LegalReflection{NeededReference: true, Query: query}
	if a.laws == nil {
		a.logger.WarnContext(ctx, "legal reference needed but no searcher configured", "query", query)
		return out, nil
	}
	laws, err := a.laws.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(laws) > maxLaws {
		laws = laws[:maxLaws]
	}
	for _, law := range laws {
		entry := MemoryEntry{
			ID:      memory.NewID(),
			Content: law.LawsName + " " + law.ArticleTag + " " + law.ArticleContent,
			Metadata: map[string]string{
				"lawName":    law.LawsName,
				"articleTag": law.ArticleTag,
			},
		}
		if err := a.store(ctx, memory.Legal, entry); err != nil {
			return out, err
		}
		out.Laws = append(out.Laws, entry)
	}
	return out, nil
}

// reflectExperience 写入经验记录：背景描述作为文档，经验描述放入 metadata.context
func (a *Agent) reflectExperience(ctx context.Context, caseContent, history string) (*MemoryEntry, error) {
	data := a.data(history)
	data.CaseContent = caseContent
	reply, err := a.generate(ctx,
		prompt.MustRender(prompt.ExperienceInstruction, data),
		prompt.MustRender(prompt.ExperienceSummary, data))
	if err != nil {
		return nil, err
	}
	summary, err := parser.NormalizeExperience(parser.Extract(reply))
	if err != nil {
		return nil, err
	}
	entry := MemoryEntry{
		ID:      memory.NewID(),
		Content: summary["context"],
		Metadata: map[string]string{
			"context":     summary["content"],
			"focusPoints": summary["focus_points"],
			"guidelines":  summary["guidelines"],
		},
	}
	if err := a.store(ctx, memory.Experience, entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (a *Agent) reflectCase(ctx context.Context, caseContent, history string) (*MemoryEntry, error) {
	data := a.data(history)
	data.CaseContent = caseContent
	reply, err := a.generate(ctx,
		prompt.MustRender(prompt.CaseInstruction, data),
		prompt.MustRender(prompt.CaseSummary, data))
	if err != nil {
		return nil, err
	}
	summary, err := parser.NormalizeCase(parser.Extract(reply))
	if err != nil {
		return nil, err
	}
	entry := MemoryEntry{
		ID:      memory.NewID(),
		Content: summary["content"],
		Metadata: map[string]string{
			"caseType":              summary["case_type"],
			"keywords":              summary["keywords"],
			"quick_reaction_points": summary["quick_reaction_points"],
			"response_directions":   summary["response_directions"],
		},
	}
	if err := a.store(ctx, memory.Case, entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (a *Agent) store(ctx context.Context, p memory.Partition, e MemoryEntry) error {
	if err := a.memory.Insert(ctx, p, e.ID, e.Content, e.Metadata); err != nil {
		return err
	}
	metrics.ReflectRecordsTotal.WithLabelValues(string(p)).Inc()
	return nil
}
