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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"agentcourt/internal/agent/memory"
	"agentcourt/internal/app/api"
	"agentcourt/internal/app/worker"
	"agentcourt/pkg/config"
)

func runCommand() *cli.Command {
	var (
		g        globalConfig
		cases    string
		logDir   string
		maxCases int64
	)
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "cases",
			Usage:       "Path to JSONL case file (overrides court.cases_path)",
			Sources:     cli.EnvVars("AGENTCOURT_CASES"),
			Destination: &cases,
		},
		&cli.StringFlag{
			Name:        "log-dir",
			Usage:       "Directory for per-case court logs (overrides court.log_dir)",
			Destination: &logDir,
		},
		&cli.IntFlag{
			Name:        "max-cases",
			Usage:       "Maximum number of cases to simulate (overrides court.max_cases)",
			Destination: &maxCases,
		},
	}
	flags = append(flags, globalFlags(&g)...)

	return &cli.Command{
		Name:  "run",
		Usage: "Simulate court sessions for every case, resuming from the saved progress",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			b, roster, err := g.bootstrap(ctx, func(cfg *config.Config) {
				if cases != "" {
					cfg.Court.CasesPath = cases
				}
			})
			if err != nil {
				return err
			}
			defer b.Close(context.Background())
			if err := b.InitTracing(ctx, "run"); err != nil {
				return err
			}
			if b.Config.Court.CasesPath == "" {
				return errors.New("case file is required: set --cases or court.cases_path")
			}

			w, err := worker.NewApp(b, roster, worker.Overrides{LogDir: logDir, MaxCases: int(maxCases)})
			if err != nil {
				return err
			}
			return w.Run(ctx, b.Config.Court.CasesPath)
		},
	}
}

func reflectCommand() *cli.Command {
	var (
		g         globalConfig
		agentName string
	)
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "agent",
			Aliases:     []string{"a"},
			Usage:       "Name of the agent that reflects",
			Required:    true,
			Destination: &agentName,
		},
	}
	flags = append(flags, globalFlags(&g)...)

	return &cli.Command{
		Name:      "reflect",
		Usage:     "Reflect a saved court log into an agent's memory",
		ArgsUsage: "<court-log.json>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 1 {
				return errors.New("exactly one court log path is required")
			}
			b, roster, err := g.bootstrap(ctx, nil)
			if err != nil {
				return err
			}
			defer b.Close(context.Background())

			w, err := worker.NewApp(b, roster, worker.Overrides{})
			if err != nil {
				return err
			}
			r, reflectErr := w.Reflect(ctx, agentName, c.Args().First())
			if r != nil {
				enc := json.NewEncoder(c.Root().Writer)
				enc.SetIndent("", "  ")
				if err := enc.Encode(r); err != nil {
					return err
				}
			}
			return reflectErr
		},
	}
}

func queryCommand() *cli.Command {
	var (
		g         globalConfig
		agentName string
		partition string
		limit     int64
	)
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "agent",
			Aliases:     []string{"a"},
			Usage:       "Name of the agent whose memory is queried",
			Required:    true,
			Destination: &agentName,
		},
		&cli.StringFlag{
			Name:        "partition",
			Aliases:     []string{"p"},
			Usage:       "Memory partition: experience, case or legal",
			Value:       string(memory.Case),
			Destination: &partition,
		},
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"k"},
			Usage:       "Maximum number of records to return",
			Value:       memory.DefaultK,
			Destination: &limit,
		},
	}
	flags = append(flags, globalFlags(&g)...)

	return &cli.Command{
		Name:      "query",
		Usage:     "Query an agent's memory partition by similarity",
		ArgsUsage: "<text>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			text := c.Args().First()
			if text == "" {
				return errors.New("query text is required")
			}
			p, err := memory.ParsePartition(partition)
			if err != nil {
				return err
			}
			b, roster, err := g.bootstrap(ctx, nil)
			if err != nil {
				return err
			}
			defer b.Close(context.Background())

			m, err := roster.Get(agentName)
			if err != nil {
				return err
			}
			records, err := m.Memory.Query(ctx, p, text, int(limit))
			if err != nil {
				return err
			}
			w := c.Root().Writer
			if len(records) == 0 {
				fmt.Fprintln(w, "no records")
				return nil
			}
			for i, r := range records {
				fmt.Fprintf(w, "%d. [%.4f] %s\n   %s\n", i+1, r.Score, r.ID, r.Document)
				for k, v := range r.Metadata {
					fmt.Fprintf(w, "   %s: %s\n", k, v)
				}
			}
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	var (
		g    globalConfig
		port int64
	)
	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "port",
			Usage:       "HTTP port (overrides api.port)",
			Sources:     cli.EnvVars("AGENTCOURT_PORT"),
			Destination: &port,
		},
	}
	flags = append(flags, globalFlags(&g)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Expose agent phases and memory over HTTP",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			b, roster, err := g.bootstrap(ctx, nil)
			if err != nil {
				return err
			}
			application, err := api.NewApp(b, roster)
			if err != nil {
				_ = b.Close(ctx)
				return err
			}

			addr := fmt.Sprintf("%s:%d", b.Config.API.Host, b.Config.API.Port)
			if port > 0 {
				addr = fmt.Sprintf("%s:%d", b.Config.API.Host, port)
			}
			errCh := make(chan error, 1)
			go func() {
				if err := application.Run(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			select {
			case <-sigCtx.Done():
			case err := <-errCh:
				_ = b.Close(context.Background())
				return err
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := application.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("关闭失败: %w", err)
			}
			b.Logger.Info("API 服务已关闭")
			return nil
		},
	}
}
