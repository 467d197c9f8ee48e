package services

import (
	"context"
	"errors"
	"testing"

	"github.com/qianlnk/avalon/models"
)

// makeStrategyView 构造决策请求用的视图
func makeStrategyView(t *testing.T, players []models.Player, me int, beliefs map[int]float64) *models.GameView {
	t.Helper()

	view := &models.GameView{
		GameID: "test",
		Phase:  models.PhaseTeamProposal,
		Round:  1,
		Me: &models.PrivateView{
			PlayerID: me,
			Role:     players[me].Role,
			Team:     players[me].Team,
			Beliefs:  beliefs,
		},
	}
	for _, p := range players {
		view.Players = append(view.Players, models.PlayerPublic{ID: p.ID, Name: p.Name})
	}
	if config, err := MissionConfigFor(len(players), 1); err == nil {
		view.MissionConfig = &config
	}
	return view
}

func decideKind(t *testing.T, provider DecisionProvider, view *models.GameView, kind models.DecisionKind) *models.Decision {
	t.Helper()

	decision, err := provider.Decide(context.Background(), &models.DecisionRequest{Kind: kind, View: view})
	if err != nil {
		t.Fatalf("决策失败: %v", err)
	}
	if decision.Kind != kind {
		t.Fatalf("决策类型不符: 期望 %s 得到 %s", kind, decision.Kind)
	}
	return decision
}

func TestStrategyProposeTeamIncludesSelf(t *testing.T) {
	players := newTestPlayers(t, fiveSeats)
	beliefs := map[int]float64{0: 0.8, 1: 0.7, 3: 0.3, 4: 0.2}

	provider := NewStrategyProvider(players[2])
	view := makeStrategyView(t, players, 2, beliefs)

	decision := decideKind(t, provider, view, models.DecisionTeamProposal)
	if len(decision.Members) != view.MissionConfig.TeamSize {
		t.Fatalf("队伍人数应为%d，得到 %v", view.MissionConfig.TeamSize, decision.Members)
	}
	if !containsID(decision.Members, 2) {
		t.Fatalf("队长应带上自己，得到 %v", decision.Members)
	}
	// 第二个位置给最信任的玩家
	if !containsID(decision.Members, 0) {
		t.Fatalf("应带上最信任的玩家0，得到 %v", decision.Members)
	}
}

func TestStrategyGoodRejectsSuspectTeam(t *testing.T) {
	players := newTestPlayers(t, fiveSeats)
	beliefs := map[int]float64{0: 0.7, 1: 0.6, 3: 0.2, 4: 0.3}

	provider := NewStrategyProvider(players[2])
	view := makeStrategyView(t, players, 2, beliefs)
	view.Phase = models.PhaseTeamVote
	view.Proposal = []int{3, 4}

	decision := decideKind(t, provider, view, models.DecisionVote)
	if decision.Approve {
		t.Fatal("好人不应支持包含重点怀疑对象的队伍")
	}
}

func TestStrategyGoodApprovesCleanTeam(t *testing.T) {
	players := newTestPlayers(t, fiveSeats)
	beliefs := map[int]float64{0: 0.7, 1: 0.6, 3: 0.2, 4: 0.3}

	provider := NewStrategyProvider(players[2])
	view := makeStrategyView(t, players, 2, beliefs)
	view.Phase = models.PhaseTeamVote
	view.Proposal = []int{0, 1}

	decision := decideKind(t, provider, view, models.DecisionVote)
	if !decision.Approve {
		t.Fatal("好人应支持由可信玩家组成的队伍")
	}
}

func TestStrategyGoodMustApproveNearStalemate(t *testing.T) {
	players := newTestPlayers(t, fiveSeats)
	beliefs := map[int]float64{0: 0.7, 1: 0.6, 3: 0.2, 4: 0.3}

	provider := NewStrategyProvider(players[2])
	view := makeStrategyView(t, players, 2, beliefs)
	view.Phase = models.PhaseTeamVote
	view.Proposal = []int{3, 4}
	view.VoteRound = 4

	// 第5次投票再否决就流局，必须妥协
	decision := decideKind(t, provider, view, models.DecisionVote)
	if !decision.Approve {
		t.Fatal("临近流局上限时好人必须同意")
	}
}

func TestStrategyGoodMissionVoteAlwaysSuccess(t *testing.T) {
	players := newTestPlayers(t, fiveSeats)
	beliefs := map[int]float64{0: 0.5, 1: 0.5, 3: 0.5, 4: 0.5}

	for _, id := range []int{0, 1, 2} {
		provider := NewStrategyProvider(players[id])
		view := makeStrategyView(t, players, id, beliefs)
		view.Phase = models.PhaseMissionVote
		view.Proposal = []int{id, 3}

		decision := decideKind(t, provider, view, models.DecisionMissionVote)
		if !decision.Success {
			t.Fatalf("好人玩家%d的任务票必须是成功", id)
		}
	}
}

func TestStrategyEvilApprovesTeamWithTeammate(t *testing.T) {
	players := newTestPlayers(t, fiveSeats)
	beliefs := map[int]float64{0: 0.5, 1: 0.5, 2: 0.5, 4: 0.05}

	provider := NewStrategyProvider(players[3])
	view := makeStrategyView(t, players, 3, beliefs)
	view.Phase = models.PhaseTeamVote
	view.Proposal = []int{2, 4}

	decision := decideKind(t, provider, view, models.DecisionVote)
	if !decision.Approve {
		t.Fatal("坏人应放行包含队友的队伍")
	}
}

func TestStrategyEvilHidesAfterTwoFails(t *testing.T) {
	players := newTestPlayers(t, fiveSeats)
	beliefs := map[int]float64{0: 0.5, 1: 0.5, 2: 0.5, 4: 0.05}

	provider := NewStrategyProvider(players[3])
	view := makeStrategyView(t, players, 3, beliefs)
	view.Phase = models.PhaseMissionVote
	view.Proposal = []int{2, 3}
	view.Round = 4
	view.FailedMissions = 2

	// 已经破坏两个任务，第三次破坏前先隐藏等待刺杀机会
	decision := decideKind(t, provider, view, models.DecisionMissionVote)
	if !decision.Success {
		t.Fatal("破坏两个任务后坏人应投成功隐藏身份")
	}
}

func TestStrategyEvilSabotagesEarly(t *testing.T) {
	players := newTestPlayers(t, fiveSeats)
	beliefs := map[int]float64{0: 0.5, 1: 0.5, 2: 0.5, 4: 0.05}

	provider := NewStrategyProvider(players[3])
	view := makeStrategyView(t, players, 3, beliefs)
	view.Phase = models.PhaseMissionVote
	view.Proposal = []int{2, 3}
	view.Round = 1

	decision := decideKind(t, provider, view, models.DecisionMissionVote)
	if decision.Success {
		t.Fatal("前两轮上队的坏人应破坏任务")
	}
}

func TestStrategyAssassinationTargetsMostTrusted(t *testing.T) {
	players := newTestPlayers(t, fiveSeats)
	// 玩家1在刺客眼中最可信，最像梅林；队友4不在候选之列
	beliefs := map[int]float64{0: 0.6, 1: 0.9, 2: 0.4, 4: 0.95}

	provider := NewStrategyProvider(players[3])
	view := makeStrategyView(t, players, 3, beliefs)
	view.Phase = models.PhaseAssassination

	decision := decideKind(t, provider, view, models.DecisionAssassination)
	if decision.Target != 1 {
		t.Fatalf("刺杀目标应为最可信的玩家1，得到 %d", decision.Target)
	}
}

func TestStrategySpeechNotEmpty(t *testing.T) {
	players := newTestPlayers(t, fiveSeats)
	beliefs := map[int]float64{0: 0.5, 1: 0.5, 3: 0.5, 4: 0.5}

	for _, player := range players {
		provider := NewStrategyProvider(player)
		view := makeStrategyView(t, players, player.ID, beliefs)

		decision := decideKind(t, provider, view, models.DecisionSpeech)
		if decision.Text == "" {
			t.Fatalf("玩家%d的发言不应为空", player.ID)
		}
	}
}

func TestStrategyRejectsUnknownKind(t *testing.T) {
	players := newTestPlayers(t, fiveSeats)
	provider := NewStrategyProvider(players[0])

	_, err := provider.Decide(context.Background(), &models.DecisionRequest{
		Kind: models.DecisionKind("unknown"),
		View: makeStrategyView(t, players, 0, map[int]float64{1: 0.5}),
	})
	if !errors.Is(err, ErrDecisionRejected) {
		t.Fatalf("未知决策类型应返回 ErrDecisionRejected，得到 %v", err)
	}
}
