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

package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_Instruction(t *testing.T) {
	out, err := Render(Instruction, Data{Role: "plaintiff_lawyer", Description: "原告代理律师。"})
	require.NoError(t, err)
	assert.Equal(t, "You are a plaintiff_lawyer. 原告代理律师。\n\n", out)
}

func TestRender_HistoryAppended(t *testing.T) {
	out, err := Render(Plan, Data{History: "judge (法官):\n  开庭"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "\n\njudge (法官):\n  开庭"))
	assert.Contains(t, out, "experience, case, and legal")
}

func TestRender_SummaryCarriesCaseContent(t *testing.T) {
	for _, name := range []string{ExperienceSummary, CaseSummary} {
		out, err := Render(name, Data{CaseContent: "借款纠纷三句话", History: "h"})
		require.NoError(t, err)
		assert.Contains(t, out, "案例内容: 借款纠纷三句话")
		assert.Contains(t, out, "对话历史: h")
	}
}

func TestRender_AllTemplatesParse(t *testing.T) {
	names := []string{
		Instruction, Plan, QueryExperience, QueryCase, QueryLegal,
		LegalNeedInstruction, LegalNeed, CaseContentInstruction, CaseContent,
		ExperienceInstruction, ExperienceSummary, CaseInstruction, CaseSummary,
	}
	for _, name := range names {
		_, err := Render(name, Data{})
		assert.NoError(t, err, name)
	}
	_, err := Render("missing.md", Data{})
	assert.Error(t, err)
}
