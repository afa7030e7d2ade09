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

package parser

import (
	"fmt"
	"strings"

	pkgerrors "agentcourt/pkg/errors"
)

// 经验总结与案例摘要要求的字段
var (
	ExperienceFields = []string{"context", "content", "focus_points", "guidelines"}
	CaseFields       = []string{"content", "case_type", "keywords", "quick_reaction_points", "response_directions"}
)

// experienceScalars 经验总结中不接受列表的字段
var experienceScalars = map[string]bool{"context": true, "content": true}

// NormalizeExperience 校验经验总结；focus_points、guidelines 的字符串列表以 ", " 连接
func NormalizeExperience(v Value) (map[string]string, error) {
	return normalize(v, ExperienceFields, experienceScalars)
}

// NormalizeCase 校验案例摘要；各字段的字符串列表以 ", " 连接
func NormalizeCase(v Value) (map[string]string, error) {
	return normalize(v, CaseFields, nil)
}

func normalize(v Value, fields []string, scalarOnly map[string]bool) (map[string]string, error) {
	if !v.IsObject() {
		return nil, pkgerrors.NewValidationError(pkgerrors.TypeMismatch, "", "text")
	}
	out := make(map[string]string, len(fields))
	for _, field := range fields {
		raw, ok := v.Object[field]
		if !ok {
			return nil, pkgerrors.NewValidationError(pkgerrors.MissingField, field, "")
		}
		s, err := scalarString(field, raw, !scalarOnly[field])
		if err != nil {
			return nil, err
		}
		out[field] = s
	}
	return out, nil
}

func scalarString(field string, raw any, allowList bool) (string, error) {
	switch val := raw.(type) {
	case string:
		return val, nil
	case []any:
		if !allowList {
			break
		}
		parts := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return "", pkgerrors.NewValidationError(pkgerrors.TypeMismatch, field, "list of "+typeName(item))
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ", "), nil
	}
	return "", pkgerrors.NewValidationError(pkgerrors.TypeMismatch, field, typeName(raw))
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "list"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

// Flag 解析布尔标记：true 或不区分大小写的 "true" 为真，其余一律为假
func Flag(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return strings.EqualFold(strings.TrimSpace(val), "true")
	}
	return false
}

// QueryText 从检索语句回复中取出查询文本：对象取 query 字段（列表以空格连接），
// 非对象回复取原文；取不到时返回空串
func QueryText(v Value) string {
	if !v.IsObject() {
		return v.Text
	}
	switch q := v.Object["query"].(type) {
	case string:
		return strings.TrimSpace(q)
	case []any:
		parts := make([]string, 0, len(q))
		for _, item := range q {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}
