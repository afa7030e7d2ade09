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

package transcript

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	entries := []Entry{
		{Role: RoleJudge, Name: "王法官", Content: "现在开庭。"},
		{Role: RolePlaintiffLawyer, Name: "李律师", Content: "第一点\n第二点"},
	}
	want := "judge (王法官):\n  现在开庭。\n\nplaintiff_lawyer (李律师):\n  第一点\n  第二点"
	assert.Equal(t, want, Render(entries))
	assert.Equal(t, "", Render(nil))
}

func TestTranscript_AppendNotifiesSinksInOrder(t *testing.T) {
	var seen []string
	sink := SinkFunc(func(e Entry) { seen = append(seen, e.Name) })
	tr := New("", sink)
	require.NotEmpty(t, tr.ID)

	tr.Append(RoleStenographer, "书记员", "全体起立")
	tr.Append(RoleJudge, "法官", "请坐")

	assert.Equal(t, []string{"书记员", "法官"}, seen)
	assert.Equal(t, 2, tr.Len())
	assert.Equal(t, "stenographer (书记员):\n  全体起立\n\njudge (法官):\n  请坐", tr.Render())
}

func TestTranscript_EntriesAreCopies(t *testing.T) {
	tr := New("t1")
	tr.Append(RoleJudge, "法官", "原文")
	entries := tr.Entries()
	entries[0].Content = "篡改"
	assert.Equal(t, "原文", tr.Entries()[0].Content)
}

func TestFromEntries(t *testing.T) {
	tr := FromEntries("saved", []Entry{{Role: RoleDefendant, Name: "被告", Content: "不同意"}})
	assert.Equal(t, "saved", tr.ID)
	assert.Equal(t, 1, tr.Len())
}

func TestSlogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := SlogSink{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}
	sink.OnTranscriptAppend(Entry{Role: RoleJudge, Name: "法官", Content: "宣判"})
	assert.Contains(t, buf.String(), `"role":"judge"`)
	assert.Contains(t, buf.String(), "宣判")
}
