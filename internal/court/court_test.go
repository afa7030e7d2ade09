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

package court

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentcourt/internal/agent"
	"agentcourt/internal/agent/memory"
	"agentcourt/internal/agent/transcript"
	"agentcourt/internal/model/embedding"
	"agentcourt/internal/model/llm"
	"agentcourt/internal/storage/vector"
)

// courtBackend 按 prompt 关键字返回预设回复，并可在第 failAt 次调用时报错
type courtBackend struct {
	mu     sync.Mutex
	calls  int
	failAt int
}

func (b *courtBackend) Generate(_ context.Context, _ string, prompt string, _ llm.GenerateOptions) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.failAt > 0 && b.calls == b.failAt {
		return "", errors.New("backend down")
	}
	switch {
	case strings.Contains(prompt, promptJudgment):
		return "判决被告支付货款十万元。", nil
	case strings.Contains(prompt, "开始你的辩论"):
		if strings.Contains(prompt, "你是原告律师") {
			return "原告辩论意见", nil
		}
		return "被告辩论意见", nil
	case strings.Contains(prompt, "总结双方律师应该针对什么问题进行辩论"):
		return "争议焦点：货款是否已支付。", nil
	case strings.Contains(prompt, "analyze whether information from the experience"):
		return `{"experience": false, "case": false, "legal": false}`, nil
	case strings.Contains(prompt, "用三句话总结案件情况"):
		return "买方未付货款。", nil
	case strings.Contains(prompt, "Is additional legal reference needed"):
		return "false", nil
	case strings.Contains(prompt, "生成一个逻辑上连贯的经验总结"):
		return `{"context": "货款纠纷", "content": "提交送货单", "focus_points": "付款凭证", "guidelines": "先举证"}`, nil
	case strings.Contains(prompt, "生成一个简洁的案例摘要"):
		return `{"content": "买卖合同纠纷", "case_type": "合同", "keywords": ["货款"], "quick_reaction_points": "送货单", "response_directions": "主张付款义务"}`, nil
	}
	return "", nil
}

func (b *courtBackend) Model() string    { return "scripted" }
func (b *courtBackend) Provider() string { return "test" }

type fixture struct {
	sim       *Simulation
	plaintiff *memory.Store
	defendant *memory.Store
	dir       string
}

func newFixture(t *testing.T, backend llm.Backend, opts Options) fixture {
	t.Helper()
	ctx := context.Background()
	vectors := vector.NewMemoryStore()
	embedder := embedding.NewHashEmbedder(64)

	newAgent := func(name, role string) (*agent.Agent, *memory.Store) {
		mem, err := memory.NewStore(ctx, name, vectors, embedder)
		require.NoError(t, err)
		return agent.New(agent.Identity{Name: name, Role: role}, backend, mem), mem
	}
	judge, _ := newAgent("judge", "审判长")
	plaintiff, pm := newAgent("plaintiff_lawyer", "原告律师")
	defendant, dm := newAgent("defendant_lawyer", "被告律师")

	dir := t.TempDir()
	opts.LogDir = filepath.Join(dir, "logs")
	opts.ProgressFile = filepath.Join(dir, "progress.json")
	sim, err := NewSimulation(Participants{
		StenographerName: "书记员",
		CourtRules:       "全体起立。",
		Judge:            judge,
		Plaintiff:        plaintiff,
		Defendant:        defendant,
	}, opts)
	require.NoError(t, err)
	return fixture{sim: sim, plaintiff: pm, defendant: dm, dir: dir}
}

var testCase = Case{PlaintiffStatement: "被告欠付货款十万元。", DefendantStatement: "货款已经付清。"}

func TestRunCase_Flow(t *testing.T) {
	f := newFixture(t, &courtBackend{}, Options{MinRounds: 2, MaxRounds: 2, Seed: 7})

	tr, err := f.sim.RunCase(context.Background(), 0, testCase)
	require.NoError(t, err)

	entries := tr.Entries()
	// 开庭 2 + 权利义务确认 9 + 陈述 4 + 争议焦点 1 + 辩论 2×2 + 判决 1
	require.Len(t, entries, 21)
	assert.Equal(t, transcript.RoleStenographer, entries[0].Role)
	assert.Equal(t, "全体起立。", entries[0].Content)
	assert.Equal(t, lineOpen, entries[1].Content)
	assert.Equal(t, answerNoObjection, entries[3].Content)
	assert.Equal(t, transcript.RoleDefendantLawyer, entries[4].Role)
	assert.Equal(t, testCase.PlaintiffStatement, entries[12].Content)
	assert.Equal(t, testCase.DefendantStatement, entries[14].Content)
	assert.Equal(t, "争议焦点：货款是否已支付。", entries[15].Content)
	assert.Equal(t, "原告辩论意见", entries[16].Content)
	assert.Equal(t, "被告辩论意见", entries[17].Content)
	assert.Equal(t, transcript.RoleJudge, entries[20].Role)
	assert.Equal(t, "判决被告支付货款十万元。", entries[20].Content)

	saved, err := LoadLog(f.sim.LogPath(0))
	require.NoError(t, err)
	assert.Len(t, saved, len(entries))

	// 双方律师反思后各自写入 experience 与 case
	for _, mem := range []*memory.Store{f.plaintiff, f.defendant} {
		for _, p := range []memory.Partition{memory.Experience, memory.Case} {
			records, err := mem.Query(context.Background(), p, "货款", 5)
			require.NoError(t, err)
			assert.Len(t, records, 1, "%s %s", mem.Agent(), p)
		}
	}
}

func TestRun_ResumesAndAdvancesProgress(t *testing.T) {
	f := newFixture(t, &courtBackend{}, Options{MinRounds: 1, MaxRounds: 1, MaxCases: 2})
	require.NoError(t, SaveProgress(filepath.Join(f.dir, "progress.json"), Progress{CurrentCaseIndex: 1}))

	cases := []Case{testCase, testCase, testCase}
	require.NoError(t, f.sim.Run(context.Background(), cases))

	p, err := LoadProgress(filepath.Join(f.dir, "progress.json"))
	require.NoError(t, err)
	assert.Equal(t, 2, p.CurrentCaseIndex)

	_, err = os.Stat(f.sim.LogPath(0))
	assert.True(t, os.IsNotExist(err), "case before the saved index is skipped")
	_, err = os.Stat(f.sim.LogPath(1))
	assert.NoError(t, err)
	_, err = os.Stat(f.sim.LogPath(2))
	assert.True(t, os.IsNotExist(err), "cases beyond MaxCases are ignored")
}

func TestRun_FailureKeepsProgress(t *testing.T) {
	// 第 1 次调用为法官总结争议焦点
	f := newFixture(t, &courtBackend{failAt: 1}, Options{MinRounds: 1, MaxRounds: 1})

	err := f.sim.Run(context.Background(), []Case{testCase})
	require.Error(t, err)

	p, err := LoadProgress(filepath.Join(f.dir, "progress.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, p.CurrentCaseIndex)
}

func TestRounds_WithinBounds(t *testing.T) {
	f := newFixture(t, &courtBackend{}, Options{MinRounds: 3, MaxRounds: 5, Seed: 42})
	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		r := f.sim.Rounds()
		require.GreaterOrEqual(t, r, 3)
		require.LessOrEqual(t, r, 5)
		seen[r] = true
	}
	assert.Len(t, seen, 3)
}

func TestNewSimulation_RequiresAgents(t *testing.T) {
	_, err := NewSimulation(Participants{}, Options{})
	assert.Error(t, err)
}

func TestLoadCases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.jsonl")
	body := `{"plaintiff_statement": "p1", "defendant_statement": "d1"}

{"id": "c2", "plaintiff_statement": "p2", "defendant_statement": "d2"}
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cases, err := LoadCases(path)
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, "p1", cases[0].PlaintiffStatement)
	assert.Equal(t, "c2", cases[1].ID)

	require.NoError(t, os.WriteFile(path, []byte("{broken\n"), 0o644))
	_, err = LoadCases(path)
	assert.Error(t, err)
}

func TestLoadProgress_Missing(t *testing.T) {
	p, err := LoadProgress(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, p.CurrentCaseIndex)
}
