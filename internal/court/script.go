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

package court

import "agentcourt/internal/agent/transcript"

// Labels 角色的中文称谓，用于提示词与控制台输出
var Labels = map[string]string{
	transcript.RoleStenographer:    "书记员",
	transcript.RoleJudge:           "审判长",
	transcript.RolePlaintiffLawyer: "原告律师",
	transcript.RoleDefendantLawyer: "被告律师",
	transcript.RolePlaintiff:       "原告",
	transcript.RoleDefendant:       "被告",
}

// 固定台词
const (
	lineOpen = "现在开庭。"

	lineObjection = "各方对对方出庭人员有无异议？"
	lineRights    = "经核对，到庭当事人及诉讼代理人身份均符合法律规定，可以参加本案的庭审诉讼活动。" +
		"有关当事人诉讼权利和义务的规定，已于庭前以书面通知形式告知双方当事人。当事人对诉讼权利义务的内容是否清楚？"
	lineRecusal = "根据民事诉讼法的规定，如双方当事人认为审判人员或书记员是本案当事人、诉讼代理人的近亲属" +
		"或与本案有直接利害关系或其他关系，可能影响公正审判的，可以提出事实和理由申请回避。当事人是否需要申请回避？"

	answerNoObjection = "无异议"
	answerClear       = "清楚"
	answerNoRecusal   = "不申请"

	linePlaintiffStatement = "首先由原告陈述诉讼请求、事实和理由。"
	lineDefendantStatement = "请被告进行答辩。"
)

// 模型生成发言使用的指令
const (
	promptDebateFocus = "根据原告律师、被告律师的陈述，总结双方律师应该针对什么问题进行辩论，你的总结应该在符合现实的基础上，尽量简洁有效。"
	promptDebate      = "根据经验、法条、案例以及法庭对话记录，开始你的辩论。如果你引用了context中的法条库，请把引用的部分说出来。" +
		"注意：1、当前为法庭辩论环节，而非法庭调查环节。2、你是%s"
	promptJudgment = "法官请做出判决：(你的判决应该符合现实情况。)"
)

// rightsConfirmation 审判长提问及双方律师的固定回答
var rightsConfirmation = []struct {
	question string
	answer   string
}{
	{lineObjection, answerNoObjection},
	{lineRights, answerClear},
	{lineRecusal, answerNoRecusal},
}
