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

package app

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"agentcourt/internal/agent"
	"agentcourt/internal/agent/memory"
	"agentcourt/internal/agent/transcript"
	"agentcourt/internal/court"
	"agentcourt/internal/model/llm"
	"agentcourt/pkg/config"
	"agentcourt/pkg/utils"
)

// DefaultRoles court.roles 未配置时使用的角色
var DefaultRoles = []config.RoleConfig{
	{Role: transcript.RoleStenographer, Name: "书记员", Description: "现在宣布法庭纪律：全体人员在庭审活动中应当服从审判长的指挥，尊重司法礼仪，遵守法庭纪律。"},
	{Role: transcript.RoleJudge, Name: "审判长", Description: "你是一名经验丰富的民事审判法官，依据事实和法律居中裁判。"},
	{Role: transcript.RolePlaintiffLawyer, Name: "原告律师", Description: "你代表原告，维护原告的合法权益。"},
	{Role: transcript.RoleDefendantLawyer, Name: "被告律师", Description: "你代表被告，维护被告的合法权益。"},
}

// Member 名册中的一个 Agent
type Member struct {
	Config config.RoleConfig
	Agent  *agent.Agent
	Memory *memory.Store
}

// Roster 按名称登记的庭审 Agent；书记员不持有 Agent
type Roster struct {
	mu           sync.RWMutex
	members      map[string]Member
	stenographer config.RoleConfig
}

// NewRoster 为每个需要发言的角色创建私有记忆与 Agent
func (b *Bootstrap) NewRoster(ctx context.Context) (*Roster, error) {
	roles := b.Config.Court.Roles
	if len(roles) == 0 {
		roles = DefaultRoles
	}
	options := llm.GenerateOptions{
		Temperature: b.Config.Model.LLM.Temperature,
		MaxTokens:   b.Config.Model.LLM.MaxTokens,
	}

	r := &Roster{members: make(map[string]Member)}
	for _, rc := range roles {
		if rc.Role == transcript.RoleStenographer {
			r.stenographer = rc
			continue
		}
		if _, dup := r.members[rc.Name]; dup {
			return nil, fmt.Errorf("角色名称重复: %s", rc.Name)
		}
		mem, err := memory.NewStore(ctx, rc.Name, b.VectorStore, b.Embedder)
		if err != nil {
			return nil, fmt.Errorf("初始化 %s 的记忆失败: %w", rc.Name, err)
		}
		label := utils.CoalesceString(court.Labels[rc.Role], rc.Role)
		a := agent.New(agent.Identity{
			ID:          uuid.NewString(),
			Name:        rc.Name,
			Role:        label,
			Description: rc.Description,
		}, b.Backend, mem,
			agent.WithLegalSearcher(b.Laws),
			agent.WithGenerateOptions(options),
			agent.WithLogger(b.Logger.With("agent", rc.Name)),
		)
		r.Register(Member{Config: rc, Agent: a, Memory: mem})
	}
	return r, nil
}

// Register 登记或替换成员
func (r *Roster) Register(m Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[m.Config.Name] = m
}

// Get 按名称获取成员
func (r *Roster) Get(name string) (Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[name]
	if !ok {
		return Member{}, fmt.Errorf("agent not registered: %s", name)
	}
	return m, nil
}

// ByRole 返回第一个担任 role 的成员（按名称排序）
func (r *Roster) ByRole(role string) (Member, bool) {
	for _, m := range r.Members() {
		if m.Config.Role == role {
			return m, true
		}
	}
	return Member{}, false
}

// Members 按名称排序的全部成员
func (r *Roster) Members() []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Member, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Config.Name < out[j].Config.Name })
	return out
}

// CourtParticipants 组装庭审参与方；缺少法官或任一方律师时报错
func (r *Roster) CourtParticipants() (court.Participants, error) {
	judge, ok := r.ByRole(transcript.RoleJudge)
	if !ok {
		return court.Participants{}, fmt.Errorf("未配置 %s 角色", transcript.RoleJudge)
	}
	plaintiff, ok := r.ByRole(transcript.RolePlaintiffLawyer)
	if !ok {
		return court.Participants{}, fmt.Errorf("未配置 %s 角色", transcript.RolePlaintiffLawyer)
	}
	defendant, ok := r.ByRole(transcript.RoleDefendantLawyer)
	if !ok {
		return court.Participants{}, fmt.Errorf("未配置 %s 角色", transcript.RoleDefendantLawyer)
	}
	steno := r.stenographer
	if steno.Name == "" {
		steno = DefaultRoles[0]
	}
	return court.Participants{
		StenographerName: steno.Name,
		CourtRules:       steno.Description,
		Judge:            judge.Agent,
		Plaintiff:        plaintiff.Agent,
		Defendant:        defendant.Agent,
	}, nil
}
