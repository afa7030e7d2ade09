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

// Package parser 从生成模型的自由文本中恢复结构化对象。
//
// Extract 永不失败：找不到可解析的对象时返回去除首尾空白的原文。
package parser

import (
	"encoding/json"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
)

// Value Extract 的结果：Object 非 nil 时为结构化对象，否则 Text 为回退文本
type Value struct {
	Object map[string]any
	Text   string
}

// IsObject 是否解析出了结构化对象
func (v Value) IsObject() bool { return v.Object != nil }

// Extract 定位第一个 {...} 片段，去除控制字符后先严格解析，再宽松修复解析
func Extract(raw string) Value {
	candidates := spans(raw)
	for i, c := range candidates {
		c = stripControl(c)
		candidates[i] = c
		if m, ok := decodeObject(c); ok {
			return Value{Object: m}
		}
	}
	for _, c := range candidates {
		if m, ok := decodeObject(repair(c)); ok {
			return Value{Object: m}
		}
	}
	return Value{Text: strings.TrimSpace(raw)}
}

// repair 宽松修复；修复库的任何 panic 都视为修复失败
func repair(s string) (out string) {
	defer func() {
		if recover() != nil {
			out = ""
		}
	}()
	repaired, err := jsonrepair.RepairJSON(s)
	if err != nil {
		return ""
	}
	return repaired
}

func decodeObject(s string) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}

// spans 返回候选片段：从第一个 '{' 起括号配平的片段（未闭合时延伸到文本末尾），
// 以及到最后一个 '}' 为止的片段（与前者不同时）
func spans(raw string) []string {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return nil
	}
	balanced := raw[start:]
	if end := balancedEnd(raw[start:]); end >= 0 {
		balanced = raw[start : start+end+1]
	}
	out := []string{balanced}
	if last := strings.LastIndexByte(raw, '}'); last > start && raw[start:last+1] != balanced {
		out = append(out, raw[start:last+1])
	}
	return out
}

// balancedEnd 返回与 s[0] 的 '{' 配对的 '}' 下标；忽略字符串字面量中的括号
func balancedEnd(s string) int {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// stripControl 删除 0x00-0x1F 与 0x7F 字节
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
