package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/qianlnk/avalon/models"
)

func TestParseDecision(t *testing.T) {
	cases := []struct {
		name string
		kind models.DecisionKind
		raw  string
		want models.Decision
	}{
		{
			"组队", models.DecisionTeamProposal,
			`{"reasoning": "带上可信的人", "team": [0, 2]}`,
			models.Decision{Kind: models.DecisionTeamProposal, Members: []int{0, 2}},
		},
		{
			"公投同意", models.DecisionVote,
			`{"reasoning": "队伍可信", "approve": true}`,
			models.Decision{Kind: models.DecisionVote, Approve: true},
		},
		{
			"公投否决", models.DecisionVote,
			`{"approve": false}`,
			models.Decision{Kind: models.DecisionVote, Approve: false},
		},
		{
			"任务票", models.DecisionMissionVote,
			`{"success": false}`,
			models.Decision{Kind: models.DecisionMissionVote, Success: false},
		},
		{
			"刺杀", models.DecisionAssassination,
			`{"reasoning": "他最像梅林", "target": 1}`,
			models.Decision{Kind: models.DecisionAssassination, Target: 1},
		},
		{
			"发言", models.DecisionSpeech,
			`{"speech": "我建议先派一支小队试探"}`,
			models.Decision{Kind: models.DecisionSpeech, Text: "我建议先派一支小队试探"},
		},
		{
			"带代码块标记", models.DecisionVote,
			"```json\n{\"approve\": true}\n```",
			models.Decision{Kind: models.DecisionVote, Approve: true},
		},
	}

	for _, tc := range cases {
		got, err := parseDecision(tc.kind, tc.raw)
		if err != nil {
			t.Errorf("%s: 解析失败: %v", tc.name, err)
			continue
		}
		if got.Kind != tc.want.Kind || got.Approve != tc.want.Approve ||
			got.Success != tc.want.Success || got.Target != tc.want.Target || got.Text != tc.want.Text {
			t.Errorf("%s: 解析结果不符: %+v", tc.name, got)
		}
		if len(got.Members) != len(tc.want.Members) {
			t.Errorf("%s: 队伍成员不符: %v", tc.name, got.Members)
		}
	}
}

func TestParseDecisionStrictness(t *testing.T) {
	cases := []struct {
		name string
		kind models.DecisionKind
		raw  string
	}{
		{"非JSON", models.DecisionVote, "我同意这个队伍"},
		{"缺approve", models.DecisionVote, `{"reasoning": "想同意"}`},
		{"缺team", models.DecisionTeamProposal, `{"reasoning": "没想好"}`},
		{"空team", models.DecisionTeamProposal, `{"team": []}`},
		{"缺success", models.DecisionMissionVote, `{}`},
		{"缺target", models.DecisionAssassination, `{"reasoning": "不知道"}`},
		{"空发言", models.DecisionSpeech, `{"speech": ""}`},
	}

	for _, tc := range cases {
		if _, err := parseDecision(tc.kind, tc.raw); err == nil {
			t.Errorf("%s: 应解析失败，却通过了", tc.name)
		}
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tc := range cases {
		if got := stripCodeFence(tc.in); got != tc.want {
			t.Errorf("stripCodeFence(%q) = %q，期望 %q", tc.in, got, tc.want)
		}
	}
}

// newChatServer 模拟 OpenAI 兼容接口，固定返回给定内容
func newChatServer(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("请求路径不符: %s", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("请求体解析失败: %v", err)
		}
		if len(req.Messages) != 2 {
			t.Errorf("应携带system和user两条消息，得到 %d", len(req.Messages))
		}

		if status >= 300 {
			w.WriteHeader(status)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": content}},
			},
		})
	}))
}

func TestLLMProviderDecide(t *testing.T) {
	server := newChatServer(t, `{"reasoning": "队伍可信", "approve": true}`, http.StatusOK)
	defer server.Close()

	players := newTestPlayers(t, fiveSeats)
	provider := NewLLMProvider(players[2], LLMConfig{BaseURL: server.URL, Model: "test-model"})

	view := makeStrategyView(t, players, 2, map[int]float64{0: 0.7, 1: 0.6, 3: 0.3, 4: 0.3})
	view.Phase = models.PhaseTeamVote
	view.Proposal = []int{0, 1}

	decision, err := provider.Decide(context.Background(), &models.DecisionRequest{
		Kind: models.DecisionVote, View: view,
	})
	if err != nil {
		t.Fatalf("决策失败: %v", err)
	}
	if decision.Kind != models.DecisionVote || !decision.Approve {
		t.Fatalf("决策结果不符: %+v", decision)
	}
}

func TestLLMProviderFallsBackOnServerError(t *testing.T) {
	server := newChatServer(t, "", http.StatusInternalServerError)
	defer server.Close()

	players := newTestPlayers(t, fiveSeats)
	provider := NewLLMProvider(players[2], LLMConfig{BaseURL: server.URL, Model: "test-model"})

	view := makeStrategyView(t, players, 2, map[int]float64{0: 0.7, 1: 0.6, 3: 0.3, 4: 0.3})
	view.Phase = models.PhaseMissionVote
	view.Proposal = []int{2, 0}

	// 远程失败时回退到规则策略：好人的任务票必然是成功
	decision, err := provider.Decide(context.Background(), &models.DecisionRequest{
		Kind: models.DecisionMissionVote, View: view,
	})
	if err != nil {
		t.Fatalf("回退决策失败: %v", err)
	}
	if decision.Kind != models.DecisionMissionVote || !decision.Success {
		t.Fatalf("回退决策结果不符: %+v", decision)
	}
}

func TestLLMProviderFallsBackOnGarbageReply(t *testing.T) {
	server := newChatServer(t, "我觉得这个队伍还行吧", http.StatusOK)
	defer server.Close()

	players := newTestPlayers(t, fiveSeats)
	provider := NewLLMProvider(players[0], LLMConfig{BaseURL: server.URL, Model: "test-model"})

	view := makeStrategyView(t, players, 0, map[int]float64{1: 0.5, 2: 0.5, 3: TrustFloor, 4: TrustFloor})

	decision, err := provider.Decide(context.Background(), &models.DecisionRequest{
		Kind: models.DecisionTeamProposal, View: view,
	})
	if err != nil {
		t.Fatalf("回退决策失败: %v", err)
	}
	if len(decision.Members) != view.MissionConfig.TeamSize {
		t.Fatalf("回退的提议人数应为%d，得到 %v", view.MissionConfig.TeamSize, decision.Members)
	}
}
