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

// Package prompt 渲染 Agent 各阶段使用的提示词模板。
package prompt

import (
	"bytes"
	"embed"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
)

//go:embed templates/*.md
var templateFS embed.FS

var templates = template.Must(template.New("prompt").ParseFS(templateFS, "templates/*.md"))

// 模板名
const (
	Instruction            = "instruction.md"
	Plan                   = "plan.md"
	QueryExperience        = "query_experience.md"
	QueryCase              = "query_case.md"
	QueryLegal             = "query_legal.md"
	LegalNeedInstruction   = "legal_need_instruction.md"
	LegalNeed              = "legal_need.md"
	CaseContentInstruction = "case_content_instruction.md"
	CaseContent            = "case_content.md"
	ExperienceInstruction  = "experience_instruction.md"
	ExperienceSummary      = "experience_summary.md"
	CaseInstruction        = "case_instruction.md"
	CaseSummary            = "case_summary.md"
)

// Data 模板参数
type Data struct {
	Role        string
	Description string
	History     string
	CaseContent string
}

// Render 执行指定模板；instruction 类模板保留结尾空行，其余去除末尾换行
func Render(name string, data Data) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", goerr.Wrap(err, "failed to render prompt", goerr.V("template", name))
	}
	out := buf.String()
	if strings.HasSuffix(name, "instruction.md") {
		return out, nil
	}
	return strings.TrimRight(out, "\n"), nil
}

// MustRender 同 Render，模板错误时 panic；仅用于内置模板
func MustRender(name string, data Data) string {
	out, err := Render(name, data)
	if err != nil {
		panic(err)
	}
	return out
}
