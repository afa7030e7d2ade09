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

// Package court 驱动庭审模拟：加载案例、按流程调度各方 Agent、保存庭审日志与进度。
package court

import (
	"bufio"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"agentcourt/internal/agent/transcript"
)

// Case 一个待模拟的案例（JSONL 一行）
type Case struct {
	ID                 string `json:"id,omitempty"`
	Description        string `json:"description,omitempty"`
	PlaintiffStatement string `json:"plaintiff_statement"`
	DefendantStatement string `json:"defendant_statement"`
}

// LoadCases 逐行读取 JSONL 案例文件，忽略空行
func LoadCases(path string) ([]Case, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open case file", goerr.V("path", path))
	}
	defer f.Close()

	var cases []Case
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var c Case
		if err := json.Unmarshal([]byte(text), &c); err != nil {
			return nil, goerr.Wrap(err, "failed to decode case", goerr.V("path", path), goerr.V("line", line))
		}
		cases = append(cases, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to read case file", goerr.V("path", path))
	}
	return cases, nil
}

// Progress 运行进度；CurrentCaseIndex 为下一个待模拟案例的下标
type Progress struct {
	CurrentCaseIndex int `json:"current_case_index"`
}

// LoadProgress 读取进度文件；文件不存在时返回零值
func LoadProgress(path string) (Progress, error) {
	var p Progress
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return p, nil
		}
		return p, goerr.Wrap(err, "failed to read progress", goerr.V("path", path))
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, goerr.Wrap(err, "failed to decode progress", goerr.V("path", path))
	}
	return p, nil
}

// SaveProgress 原子写入进度文件
func SaveProgress(path string, p Progress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// SaveLog 以 JSON 数组保存庭审记录
func SaveLog(path string, entries []transcript.Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// LoadLog 读取 SaveLog 保存的庭审记录
func LoadLog(path string) ([]transcript.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read court log", goerr.V("path", path))
	}
	var entries []transcript.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, goerr.Wrap(err, "failed to decode court log", goerr.V("path", path))
	}
	return entries, nil
}

func writeFileAtomic(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return goerr.Wrap(err, "failed to create directory", goerr.V("dir", dir))
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return goerr.Wrap(err, "failed to write file", goerr.V("path", tmp))
	}
	if err := os.Rename(tmp, path); err != nil {
		return goerr.Wrap(err, "failed to rename file", goerr.V("path", path))
	}
	return nil
}
