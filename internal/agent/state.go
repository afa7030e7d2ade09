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

package agent

// State Agent 阶段
type State int32

const (
	Idle State = iota
	Planning
	Executing
	Reflecting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Planning:
		return "plan"
	case Executing:
		return "execute"
	case Reflecting:
		return "reflect"
	}
	return "unknown"
}
