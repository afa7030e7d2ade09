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

package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"agentcourt/internal/app"
	"agentcourt/pkg/config"
)

// Error 命令失败时的退出码与信息
type Error struct {
	Code    int
	Message string
}

// Run 解析参数并执行子命令
func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "court",
		Usage: "Multi-agent courtroom simulation with Plan / Execute / Reflect lawyers",
		Commands: []*cli.Command{
			runCommand(),
			reflectCommand(),
			queryCommand(),
			serveCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}
	return nil
}

// globalConfig 各子命令共享的配置来源
type globalConfig struct {
	configPath string
	envFile    string
}

func globalFlags(cfg *globalConfig) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to YAML config file",
			Value:       "configs/court.yaml",
			Sources:     cli.EnvVars("AGENTCOURT_CONFIG"),
			Destination: &cfg.configPath,
		},
		&cli.StringFlag{
			Name:        "env-file",
			Usage:       "Path to .env file loaded before the config (missing file is ignored)",
			Value:       ".env",
			Sources:     cli.EnvVars("AGENTCOURT_ENV_FILE"),
			Destination: &cfg.envFile,
		},
	}
}

// load 读取 .env 与配置文件
func (g *globalConfig) load() (*config.Config, error) {
	if err := config.LoadEnvFile(g.envFile); err != nil {
		return nil, err
	}
	return config.LoadConfig(g.configPath)
}

// bootstrap 读取配置并初始化依赖与名册
func (g *globalConfig) bootstrap(ctx context.Context, mutate func(*config.Config)) (*app.Bootstrap, *app.Roster, error) {
	cfg, err := g.load()
	if err != nil {
		return nil, nil, err
	}
	if mutate != nil {
		mutate(cfg)
	}
	b, err := app.NewBootstrap(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	roster, err := b.NewRoster(ctx)
	if err != nil {
		_ = b.Close(ctx)
		return nil, nil, err
	}
	return b, roster, nil
}
