package services

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/qianlnk/avalon/models"
)

// StrategyProvider 基于规则的决策来源。
// 所有判断只依据请求视图中的公开信息、自己的可见信息和信念快照。
type StrategyProvider struct {
	player models.Player
	rng    *rand.Rand
}

// NewStrategyProvider 创建规则决策来源
func NewStrategyProvider(player models.Player) *StrategyProvider {
	return &StrategyProvider{
		player: player,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano() + int64(player.ID))),
	}
}

// Decide 实现 DecisionProvider
func (s *StrategyProvider) Decide(ctx context.Context, req *models.DecisionRequest) (*models.Decision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch req.Kind {
	case models.DecisionTeamProposal:
		return &models.Decision{
			Kind:    models.DecisionTeamProposal,
			Members: s.proposeTeam(req.View),
		}, nil
	case models.DecisionVote:
		return &models.Decision{
			Kind:    models.DecisionVote,
			Approve: s.voteOnTeam(req.View),
		}, nil
	case models.DecisionMissionVote:
		return &models.Decision{
			Kind:    models.DecisionMissionVote,
			Success: s.voteOnMission(req.View),
		}, nil
	case models.DecisionAssassination:
		return &models.Decision{
			Kind:   models.DecisionAssassination,
			Target: s.pickAssassinationTarget(req.View),
		}, nil
	case models.DecisionSpeech:
		return &models.Decision{
			Kind: models.DecisionSpeech,
			Text: GenerateSpeech(s.player, req.View, s.rng),
		}, nil
	default:
		return nil, ErrDecisionRejected
	}
}

// rankedByTrust 按信任度排序的其他玩家ID，最信任的在前
func (s *StrategyProvider) rankedByTrust(view *models.GameView) []int {
	ids := make([]int, 0, len(view.Me.Beliefs))
	for id := range view.Me.Beliefs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if view.Me.Beliefs[ids[i]] == view.Me.Beliefs[ids[j]] {
			return ids[i] < ids[j]
		}
		return view.Me.Beliefs[ids[i]] > view.Me.Beliefs[ids[j]]
	})
	return ids
}

// proposeTeam 队长组队。
// 好人带上自己和最信任的玩家；坏人混入一名队友同时用可信好人打掩护。
func (s *StrategyProvider) proposeTeam(view *models.GameView) []int {
	teamSize := view.MissionConfig.TeamSize
	ranked := s.rankedByTrust(view)
	team := []int{s.player.ID}

	if s.player.Team == models.TeamEvil {
		switch s.player.Personality {
		case models.PersonalityAggressive:
			// 激进：优先带上坏人队友
			for _, id := range s.player.Visible {
				if len(team) >= teamSize {
					break
				}
				team = append(team, id)
			}
		case models.PersonalityCautious:
			// 谨慎：只带可信的好人，隐藏身份
		default:
			// 最多混入一名队友
			if len(s.player.Visible) > 0 && teamSize > 2 {
				team = append(team, s.player.Visible[s.rng.Intn(len(s.player.Visible))])
			}
		}
	}

	for _, id := range ranked {
		if len(team) >= teamSize {
			break
		}
		if !containsID(team, id) {
			team = append(team, id)
		}
	}

	return team[:teamSize]
}

// voteOnTeam 公投表决。
// 临近流局上限时必须妥协，否则坏人会不战而胜。
func (s *StrategyProvider) voteOnTeam(view *models.GameView) bool {
	proposal := view.Proposal

	if s.player.Team == models.TeamGood {
		// 第5次投票必须同意，避免流局
		if view.VoteRound >= 4 {
			return true
		}

		suspicious := s.hasSuspect(view, proposal)

		// 第4次投票倾向于妥协
		if view.VoteRound >= 3 {
			if suspicious {
				return s.rng.Float64() < 0.6
			}
			return true
		}

		if suspicious {
			return false
		}
		return true
	}

	// 坏人：已经破坏两个任务后同意一切以隐藏身份
	if view.FailedMissions >= 2 {
		return true
	}
	if containsID(proposal, s.player.ID) {
		return true
	}
	// 队伍里有队友就放行，全是好人就阻挠
	for _, id := range proposal {
		if containsID(s.player.Visible, id) {
			return true
		}
	}
	if s.player.Personality == models.PersonalityCautious {
		return true
	}
	return false
}

// hasSuspect 队伍中是否包含观察者眼中最可疑的玩家
func (s *StrategyProvider) hasSuspect(view *models.GameView, proposal []int) bool {
	ranked := s.rankedByTrust(view)
	if len(ranked) < 2 {
		return false
	}
	// 信任度垫底的两人视为重点怀疑对象
	for _, id := range ranked[len(ranked)-2:] {
		if view.Me.Beliefs[id] < TrustPrior && containsID(proposal, id) && id != s.player.ID {
			return true
		}
	}
	return false
}

// voteOnMission 任务投票。好人永远投成功；坏人视局势决定是否破坏。
func (s *StrategyProvider) voteOnMission(view *models.GameView) bool {
	if s.player.Team == models.TeamGood {
		return true
	}

	// 已经破坏两个任务，投成功隐藏身份等待刺杀
	if view.FailedMissions >= 2 {
		return true
	}
	if view.Round <= 2 {
		return false
	}
	if s.player.Personality == models.PersonalityAggressive {
		return false
	}
	return true
}

// pickAssassinationTarget 刺杀目标：好人中信任度最高的玩家最像梅林。
// 梅林知道谁是坏人，所以他的行为会稳定偏向可信队伍。
func (s *StrategyProvider) pickAssassinationTarget(view *models.GameView) int {
	best := models.NoActor
	bestTrust := -1.0
	for id, trust := range view.Me.Beliefs {
		if containsID(s.player.Visible, id) {
			continue // 队友不可能是梅林
		}
		if trust > bestTrust {
			best = id
			bestTrust = trust
		}
	}
	return best
}

func containsID(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
