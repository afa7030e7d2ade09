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

package utils

import (
	"testing"
	"time"
)

func TestCoalesceString(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want string
	}{
		{"empty slice", []string{}, ""},
		{"all empty", []string{"", ""}, ""},
		{"first non-empty", []string{"审判长", "", "judge"}, "审判长"},
		{"fallback", []string{"", "judge"}, "judge"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CoalesceString(tt.in...); got != tt.want {
				t.Errorf("CoalesceString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultInt(t *testing.T) {
	tests := []struct {
		v, defaultVal, want int
	}{
		{0, 62, 62},
		{-1, 62, 62},
		{3, 62, 3},
	}
	for _, tt := range tests {
		if got := DefaultInt(tt.v, tt.defaultVal); got != tt.want {
			t.Errorf("DefaultInt(%d, %d) = %d, want %d", tt.v, tt.defaultVal, got, tt.want)
		}
	}
}

func TestDefaultDuration(t *testing.T) {
	if got := DefaultDuration(0, time.Minute); got != time.Minute {
		t.Errorf("DefaultDuration(0) = %v", got)
	}
	if got := DefaultDuration(2*time.Second, time.Minute); got != 2*time.Second {
		t.Errorf("DefaultDuration(2s) = %v", got)
	}
}
