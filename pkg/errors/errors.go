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

// Package errors 提供统一错误分类与包装辅助，不依赖 internal
package errors

import (
	"errors"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
)

// 常用哨兵错误
var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidArg  = errors.New("invalid argument")
	ErrDuplicateID = errors.New("duplicate id")
)

// BackendErrorKind 后端失败类别
type BackendErrorKind string

const (
	AuthFailure      BackendErrorKind = "auth_failure"
	RateLimited      BackendErrorKind = "rate_limited"
	Timeout          BackendErrorKind = "timeout"
	ProviderRejected BackendErrorKind = "provider_rejected"
)

// BackendError 生成式后端不可恢复错误
type BackendError struct {
	Kind     BackendErrorKind
	Provider string
	Status   int
	Message  string
	Cause    error
}

func (e *BackendError) Error() string {
	msg := fmt.Sprintf("backend %s: %s", e.Provider, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *BackendError) Unwrap() error { return e.Cause }

// NewBackendError 构造 BackendError
func NewBackendError(kind BackendErrorKind, provider, message string, cause error) *BackendError {
	return &BackendError{Kind: kind, Provider: provider, Message: message, Cause: cause}
}

// IsBackendKind 判断 err 链中是否存在指定类别的 BackendError
func IsBackendKind(err error, kind BackendErrorKind) bool {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Kind == kind
	}
	return false
}

// ValidationErrorKind 结构化字段校验失败类别
type ValidationErrorKind string

const (
	MissingField ValidationErrorKind = "missing_field"
	TypeMismatch ValidationErrorKind = "type_mismatch"
)

// ValidationError 结构化输出字段校验失败
type ValidationError struct {
	Kind  ValidationErrorKind
	Field string
	Got   string
}

func (e *ValidationError) Error() string {
	if e.Got != "" {
		return fmt.Sprintf("validation %s: field %q got %s", e.Kind, e.Field, e.Got)
	}
	return fmt.Sprintf("validation %s: field %q", e.Kind, e.Field)
}

// NewValidationError 构造 ValidationError
func NewValidationError(kind ValidationErrorKind, field, got string) *ValidationError {
	return &ValidationError{Kind: kind, Field: field, Got: got}
}

// IsValidation 判断 err 链中是否存在 ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// KV 附加到错误上的键值
type KV struct {
	Key   string
	Value any
}

// V 构造 KV
func V(key string, value any) KV {
	return KV{Key: key, Value: value}
}

// Wrap 包装错误并附加消息与键值，err 为 nil 时返回 nil
func Wrap(err error, msg string, kvs ...KV) error {
	if err == nil {
		return nil
	}
	opts := make([]goerr.Option, 0, len(kvs))
	for _, kv := range kvs {
		opts = append(opts, goerr.V(kv.Key, kv.Value))
	}
	return goerr.Wrap(err, msg, opts...)
}

// Wrapf 带格式的 Wrap
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return goerr.Wrap(err, fmt.Sprintf(format, args...))
}

// Values 收集 err 链上由 Wrap 附加的键值，用于结构化日志
func Values(err error) map[string]any {
	var ge *goerr.Error
	if !errors.As(err, &ge) {
		return nil
	}
	return ge.Values()
}
