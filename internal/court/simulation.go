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
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"agentcourt/internal/agent"
	"agentcourt/internal/agent/transcript"
	"agentcourt/pkg/metrics"
	"agentcourt/pkg/utils"
)

// 默认值与原始评测设置一致
const (
	DefaultMaxCases  = 62
	DefaultMinRounds = 3
	DefaultMaxRounds = 5
)

// Participants 一次庭审的参与方；书记员只宣读法庭纪律，不需要 Agent
type Participants struct {
	StenographerName string
	CourtRules       string
	Judge            *agent.Agent
	Plaintiff        *agent.Agent
	Defendant        *agent.Agent
}

// Options 模拟运行参数
type Options struct {
	LogDir       string
	ProgressFile string
	MaxCases     int
	MinRounds    int
	MaxRounds    int
	// Seed 为 0 时轮数随机源不固定
	Seed   int64
	Logger *slog.Logger
	Sinks  []transcript.Sink
}

// Simulation 按固定流程逐个模拟案例
type Simulation struct {
	participants Participants
	opts         Options
	logger       *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulation 创建模拟；法官与双方律师必须提供
func NewSimulation(p Participants, opts Options) (*Simulation, error) {
	if p.Judge == nil || p.Plaintiff == nil || p.Defendant == nil {
		return nil, goerr.New("judge and both lawyers are required")
	}
	opts.MaxCases = utils.DefaultInt(opts.MaxCases, DefaultMaxCases)
	opts.MinRounds = utils.DefaultInt(opts.MinRounds, DefaultMinRounds)
	if opts.MaxRounds < opts.MinRounds {
		opts.MaxRounds = max(DefaultMaxRounds, opts.MinRounds)
	}
	opts.LogDir = utils.CoalesceString(opts.LogDir, "court_logs")
	opts.ProgressFile = utils.CoalesceString(opts.ProgressFile, "progress.json")
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var src rand.Source
	if opts.Seed != 0 {
		src = rand.NewPCG(uint64(opts.Seed), uint64(opts.Seed))
	} else {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Simulation{
		participants: p,
		opts:         opts,
		logger:       logger,
		rng:          rand.New(src),
	}, nil
}

// LogPath 第 index 个案例（从 0 开始）的日志路径
func (s *Simulation) LogPath(index int) string {
	return filepath.Join(s.opts.LogDir, fmt.Sprintf("court_session_case_%d.json", index+1))
}

// Rounds 抽取辩论轮数，取值 [MinRounds, MaxRounds]
func (s *Simulation) Rounds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts.MinRounds + s.rng.IntN(s.opts.MaxRounds-s.opts.MinRounds+1)
}

// Run 从进度文件记录的位置继续，逐个模拟至多 MaxCases 个案例；
// 每个案例完成并保存日志后才推进进度
func (s *Simulation) Run(ctx context.Context, cases []Case) error {
	progress, err := LoadProgress(s.opts.ProgressFile)
	if err != nil {
		return err
	}
	if len(cases) > s.opts.MaxCases {
		cases = cases[:s.opts.MaxCases]
	}
	start := max(progress.CurrentCaseIndex, 0)
	if start >= len(cases) {
		s.logger.Info("all cases already simulated", "total", len(cases))
		return nil
	}

	for index := start; index < len(cases); index++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.RunCase(ctx, index, cases[index]); err != nil {
			metrics.CourtCasesTotal.WithLabelValues("failed").Inc()
			return goerr.Wrap(err, "case simulation failed", goerr.V("case", index+1))
		}
		metrics.CourtCasesTotal.WithLabelValues("completed").Inc()
		if err := SaveProgress(s.opts.ProgressFile, Progress{CurrentCaseIndex: index + 1}); err != nil {
			return err
		}
	}
	return nil
}

// RunCase 模拟单个案例并保存庭审日志；双方律师的 Reflect 失败只记录日志
func (s *Simulation) RunCase(ctx context.Context, index int, c Case) (*transcript.Transcript, error) {
	p := s.participants
	logger := s.logger.With("case", index+1)
	logger.Info("case simulation started")

	tr := transcript.New(fmt.Sprintf("case-%d", index+1), s.opts.Sinks...)
	judge := func(content string) { tr.Append(transcript.RoleJudge, p.Judge.Name(), content) }
	plaintiff := func(content string) { tr.Append(transcript.RolePlaintiffLawyer, p.Plaintiff.Name(), content) }
	defendant := func(content string) { tr.Append(transcript.RoleDefendantLawyer, p.Defendant.Name(), content) }

	tr.Append(transcript.RoleStenographer, p.StenographerName, p.CourtRules)
	judge(lineOpen)

	for _, rc := range rightsConfirmation {
		judge(rc.question)
		plaintiff(rc.answer)
		defendant(rc.answer)
	}

	judge(linePlaintiffStatement)
	plaintiff(c.PlaintiffStatement)
	judge(lineDefendantStatement)
	defendant(c.DefendantStatement)

	focus, err := p.Judge.Execute(ctx, nil, tr.Entries(), promptDebateFocus)
	if err != nil {
		return tr, goerr.Wrap(err, "judge failed to summarize debate focus")
	}
	judge(focus)

	rounds := s.Rounds()
	metrics.CourtDebateRounds.Observe(float64(rounds))
	lawyers := []struct {
		role  string
		agent *agent.Agent
	}{
		{transcript.RolePlaintiffLawyer, p.Plaintiff},
		{transcript.RoleDefendantLawyer, p.Defendant},
	}
	for round := 1; round <= rounds; round++ {
		logger.Info("debate round", "round", round, "rounds", rounds)
		for _, l := range lawyers {
			plan, err := l.agent.Plan(ctx, tr.Entries())
			if err != nil {
				return tr, goerr.Wrap(err, "lawyer plan failed", goerr.V("role", l.role), goerr.V("round", round))
			}
			reply, err := l.agent.Execute(ctx, plan, tr.Entries(), fmt.Sprintf(promptDebate, Labels[l.role]))
			if err != nil {
				return tr, goerr.Wrap(err, "lawyer execute failed", goerr.V("role", l.role), goerr.V("round", round))
			}
			tr.Append(l.role, l.agent.Name(), reply)
		}
	}

	verdict, err := p.Judge.Speak(ctx, tr.Render(), promptJudgment)
	if err != nil {
		return tr, goerr.Wrap(err, "judge failed to deliver judgment")
	}
	judge(verdict)

	entries := tr.Entries()
	for _, l := range lawyers {
		if _, err := l.agent.Reflect(ctx, entries); err != nil {
			logger.Warn("reflect incomplete", "role", l.role, "error", err)
		}
	}

	if err := SaveLog(s.LogPath(index), entries); err != nil {
		return tr, err
	}
	logger.Info("case simulation finished", "entries", len(entries), "log", s.LogPath(index))
	return tr, nil
}
