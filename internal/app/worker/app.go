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

// Package worker 运行庭审模拟：加载案例并逐个驱动 court.Simulation。
package worker

import (
	"context"
	"fmt"

	"agentcourt/internal/agent"
	"agentcourt/internal/agent/transcript"
	"agentcourt/internal/app"
	"agentcourt/internal/court"
)

// App 模拟运行应用
type App struct {
	bootstrap *app.Bootstrap
	roster    *app.Roster
	sim       *court.Simulation
}

// Overrides 命令行对 court 配置的覆盖；零值表示沿用配置
type Overrides struct {
	LogDir       string
	ProgressFile string
	MaxCases     int
}

// NewApp 创建模拟应用
func NewApp(bootstrap *app.Bootstrap, roster *app.Roster, o Overrides) (*App, error) {
	participants, err := roster.CourtParticipants()
	if err != nil {
		return nil, err
	}
	cc := bootstrap.Config.Court
	opts := court.Options{
		LogDir:       cc.LogDir,
		ProgressFile: cc.ProgressFile,
		MaxCases:     cc.MaxCases,
		MinRounds:    cc.MinRounds,
		MaxRounds:    cc.MaxRounds,
		Seed:         cc.Seed,
		Logger:       bootstrap.Logger.Logger,
		Sinks:        []transcript.Sink{transcript.SlogSink{Logger: bootstrap.Logger.With("component", "transcript")}},
	}
	if o.LogDir != "" {
		opts.LogDir = o.LogDir
	}
	if o.ProgressFile != "" {
		opts.ProgressFile = o.ProgressFile
	}
	if o.MaxCases > 0 {
		opts.MaxCases = o.MaxCases
	}
	sim, err := court.NewSimulation(participants, opts)
	if err != nil {
		return nil, err
	}
	return &App{bootstrap: bootstrap, roster: roster, sim: sim}, nil
}

// Run 加载案例文件并从上次进度继续模拟
func (a *App) Run(ctx context.Context, casesPath string) error {
	cases, err := court.LoadCases(casesPath)
	if err != nil {
		return err
	}
	a.bootstrap.Logger.Info("开始庭审模拟", "cases", len(cases), "path", casesPath)
	return a.sim.Run(ctx, cases)
}

// Reflect 让指定 Agent 对已保存的庭审日志做一次反思
func (a *App) Reflect(ctx context.Context, agentName, logPath string) (*agent.Reflection, error) {
	m, err := a.roster.Get(agentName)
	if err != nil {
		return nil, err
	}
	entries, err := court.LoadLog(logPath)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("court log is empty: %s", logPath)
	}
	return m.Agent.Reflect(ctx, entries)
}
